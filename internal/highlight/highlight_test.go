package highlight

import (
	"reflect"
	"strings"
	"testing"
)

func TestApplyANSI_CaseInsensitive(t *testing.T) {
	in := "Hello there\nsecond hello\n"
	res := ApplyANSI(in, []string{"hello"}, func(s string) string { return "[[" + s + "]]" })

	if res.Count != 2 {
		t.Fatalf("expected 2 matches, got %d", res.Count)
	}
	if len(res.LineIndex) != 2 || res.LineIndex[0] != 0 || res.LineIndex[1] != 1 {
		t.Fatalf("unexpected line indexes: %#v", res.LineIndex)
	}
	if !strings.Contains(res.Text, "[[Hello]]") || !strings.Contains(res.Text, "[[hello]]") {
		t.Fatalf("highlight wrapper not applied: %q", res.Text)
	}
}

func TestApplyANSI_PreservesEscapeSequences(t *testing.T) {
	in := "a \x1b[31mhello\x1b[0m b"
	res := ApplyANSI(in, []string{"hello"}, func(s string) string { return "<" + s + ">" })

	if res.Count != 1 {
		t.Fatalf("expected 1 match, got %d", res.Count)
	}
	if !strings.Contains(res.Text, "\x1b[31m<hello>\x1b[0m") {
		t.Fatalf("expected escaped segment to stay intact, got %q", res.Text)
	}
}

func TestApplyANSI_DoesNotMatchAcrossANSIBoundaries(t *testing.T) {
	in := "he\x1b[31mll\x1b[0mo"
	res := ApplyANSI(in, []string{"hello"}, func(s string) string { return "<" + s + ">" })
	if res.Count != 0 {
		t.Fatalf("expected 0 matches across ansi boundaries, got %d", res.Count)
	}
}

func TestApplyANSI_MultipleTerms(t *testing.T) {
	res := ApplyANSI("restart the pod, then restarted", Terms("pod restart"), func(s string) string { return "<" + s + ">" })
	if res.Count != 3 {
		t.Fatalf("expected 3 matches, got %d: %q", res.Count, res.Text)
	}
	if res.Text != "<restart> the <pod>, then <restart>ed" {
		t.Fatalf("unexpected text %q", res.Text)
	}
}

func TestApplyHTML_SkipsMarkup(t *testing.T) {
	in := `<p class="pod">the pod &amp; its <strong>Pod</strong> spec</p>`
	res := ApplyHTML(in, []string{"pod", "amp"})
	if res.Count != 2 {
		t.Fatalf("expected 2 matches, got %d: %q", res.Count, res.Text)
	}
	want := `<p class="pod">the <mark class="search-hit">pod</mark> &amp; its <strong><mark class="search-hit">Pod</mark></strong> spec</p>`
	if res.Text != want {
		t.Fatalf("unexpected html\nwant: %s\ngot:  %s", want, res.Text)
	}
}

func TestEmptyTermsLeaveInputAlone(t *testing.T) {
	in := "nothing to do"
	if res := ApplyHTML(in, nil); res.Text != in || res.Count != 0 {
		t.Fatalf("unexpected result %#v", res)
	}
	if res := ApplyANSI(in, []string{" "}, nil); res.Text != in || res.Count != 0 {
		t.Fatalf("unexpected result %#v", res)
	}
}

func TestTerms(t *testing.T) {
	got := Terms(`  Pod "restart" pod, (k8s) `)
	want := []string{"restart", "pod", "k8s"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v want %#v", got, want)
	}
}
