package catalog

import "testing"

func TestFilterKeepsMatchingGroups(t *testing.T) {
	tree := Group([]Entry{
		{Path: "u1/alpha/one.json", Filename: "one.json"},
		{Path: "u1/beta/two.json", Filename: "two.json"},
		{Path: "u2/gamma/three.json", Filename: "three.json"},
		{Path: "flat-beta.json", Filename: "flat-beta.json"},
	})

	got := Filter(tree, "beta", nil)
	if got.Len() != 2 {
		t.Fatalf("expected 2 matches, got %d: %#v", got.Len(), got)
	}
	if len(got.Users) != 1 || got.Users[0].ID != "u1" {
		t.Fatalf("expected only u1 to remain, got %#v", got.Users)
	}
	if len(got.Users[0].Sessions) != 1 || got.Users[0].Sessions[0].ID != "beta" {
		t.Fatalf("expected only beta session, got %#v", got.Users[0].Sessions)
	}
	if len(got.Legacy) != 1 {
		t.Fatalf("expected legacy match, got %#v", got.Legacy)
	}
}

func TestFilterEmptyQueryIsIdentity(t *testing.T) {
	tree := Group([]Entry{{Path: "u1/s1/a.json", Filename: "a.json"}})
	got := Filter(tree, "   ", nil)
	if got.Len() != 1 {
		t.Fatalf("expected unchanged tree")
	}
}

func TestFilterUsesLabel(t *testing.T) {
	tree := Group([]Entry{
		{Path: "u1/s1/a.json", Filename: "a.json"},
		{Path: "u1/s1/b.json", Filename: "b.json"},
	})
	label := func(e Entry) string {
		if e.Filename == "a.json" {
			return "morning"
		}
		return "night"
	}
	got := Filter(tree, "mornin", label)
	if got.Len() != 1 || got.Entries()[0].Filename != "a.json" {
		t.Fatalf("expected label match only, got %#v", got.Entries())
	}
}
