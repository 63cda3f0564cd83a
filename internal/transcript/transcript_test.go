package transcript

import (
	"encoding/json"
	"strings"
	"testing"
)

const sampleLog = `{
  "timestamp": "2024-01-15T09:30:00+00:00",
  "request": {
    "method": "POST",
    "path": "/v1/messages",
    "body": {
      "model": "claude-sonnet",
      "system": [
        {"type": "text", "text": "You are helpful."},
        {"type": "text", "text": ""},
        {"type": "text", "text": "Be brief."}
      ],
      "tools": [{"name": "Read", "description": "Reads a file.\nReturns text."}],
      "messages": [
        {"role": "user", "content": "hello"},
        {"role": "assistant", "content": [
          {"type": "text", "text": "calling"},
          {"type": "tool_use", "id": "t1", "name": "Read", "input": {"file_path": "/tmp/a"}}
        ]},
        {"role": "user", "content": [
          {"type": "tool_result", "tool_use_id": "t1", "is_error": true, "content": "boom"}
        ]},
        {"role": "user", "content": 42},
        {"role": "user"}
      ]
    }
  },
  "response": {"body": "ok"},
  "status_code": 200
}`

func TestDecodeSample(t *testing.T) {
	tr, err := Decode([]byte(sampleLog))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tr.StatusCode != 200 || tr.Request.Path != "/v1/messages" {
		t.Fatalf("unexpected envelope: %#v", tr)
	}
	if got := tr.Request.Body.System.Text(); got != "You are helpful.\nBe brief.\n" {
		t.Fatalf("system text: %q", got)
	}
	if len(tr.Request.Body.Tools) != 1 || tr.Request.Body.Tools[0].Name != "Read" {
		t.Fatalf("tools: %#v", tr.Request.Body.Tools)
	}

	msgs := tr.Messages()
	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(msgs))
	}

	cases := []struct {
		kind     ContentKind
		typeName string
		tag      string
	}{
		{ContentText, "string", "user"},
		{ContentParts, "array", "assistant"},
		{ContentParts, "array", "tool"},
		{ContentUnknown, "number", "user"},
		{ContentUnknown, "undefined", "user"},
	}
	for i, tc := range cases {
		m := msgs[i]
		if m.Content.Kind != tc.kind {
			t.Fatalf("message %d kind=%v want %v", i, m.Content.Kind, tc.kind)
		}
		if got := m.Content.TypeName(); got != tc.typeName {
			t.Fatalf("message %d type name=%q want %q", i, got, tc.typeName)
		}
		if got := m.Kind(); got != tc.tag {
			t.Fatalf("message %d tag=%q want %q", i, got, tc.tag)
		}
	}

	result := msgs[2].Content.Parts[0]
	if !result.IsError || result.ToolUseID != "t1" {
		t.Fatalf("tool result fields: %#v", result)
	}
	r := result.Result()
	if r.Kind != ResultString || r.Text != "boom" {
		t.Fatalf("tool result content: %#v", r)
	}
}

func TestBodyNotAnObject(t *testing.T) {
	tr, err := Decode([]byte(`{"request": {"body": "event: message_start\ndata: {}"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tr.HasMessages() {
		t.Fatalf("string body should have no messages")
	}
	if !strings.HasPrefix(string(tr.Request.Body.Raw), `"event:`) {
		t.Fatalf("raw body not kept: %s", tr.Request.Body.Raw)
	}
}

func TestMissingMessages(t *testing.T) {
	tr, err := Decode([]byte(`{"request": {"body": {"model": "x"}}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tr.HasMessages() {
		t.Fatalf("expected no messages")
	}
	var nilTranscript *Transcript
	if nilTranscript.HasMessages() {
		t.Fatalf("nil transcript should have no messages")
	}
}

func TestSystemAsString(t *testing.T) {
	tr, err := Decode([]byte(`{"request": {"body": {"system": "plain prompt", "messages": []}}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := tr.Request.Body.System.Text(); got != "plain prompt\n" {
		t.Fatalf("system text: %q", got)
	}
}

func TestToolResultShapes(t *testing.T) {
	tr, err := Decode([]byte(`{"request": {"body": {"messages": [{"role": "user", "content": [
		{"type": "tool_result", "tool_use_id": "a", "content": [
			{"type": "text", "text": "x"},
			{"type": "image", "source": {"type": "base64", "media_type": "image/jpeg", "data": "AAAA"}}
		]},
		{"type": "tool_result", "tool_use_id": "b", "content": {"ok": true}},
		{"type": "tool_result", "tool_use_id": "c"}
	]}]}}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	parts := tr.Messages()[0].Content.Parts

	arr := parts[0].Result()
	if arr.Kind != ResultArray || len(arr.Items) != 2 {
		t.Fatalf("array result: %#v", arr)
	}
	media, data, ok := arr.Items[1].Base64Image()
	if !ok || media != "image/jpeg" || data != "AAAA" {
		t.Fatalf("image item: %q %q %v", media, data, ok)
	}
	if _, _, ok := arr.Items[0].Base64Image(); ok {
		t.Fatalf("text item is not an image")
	}

	obj := parts[1].Result()
	if obj.Kind != ResultObject || Pretty(obj.Raw) != "{\n  \"ok\": true\n}" {
		t.Fatalf("object result: %#v %q", obj, Pretty(obj.Raw))
	}
	if parts[2].Result().Kind != ResultNone {
		t.Fatalf("missing content should be ResultNone")
	}
}

func TestImageDefaultsToPNG(t *testing.T) {
	p := Part{Type: PartImage, Source: &ImageSource{Type: "base64", Data: "QUJD"}}
	media, _, ok := p.Base64Image()
	if !ok || media != "image/png" {
		t.Fatalf("media=%q ok=%v", media, ok)
	}
	url := Part{Type: PartImage, Source: &ImageSource{Type: "url", Data: "QUJD"}}
	if _, _, ok := url.Base64Image(); ok {
		t.Fatalf("non-base64 sources are not inline images")
	}
}

func TestPlainText(t *testing.T) {
	c := PartsContent(
		Part{Type: PartText, Text: " hi "},
		Part{Type: PartToolUse, Name: "Bash", Input: []byte(`{"cmd":"ls"}`)},
		Part{Type: PartToolResult, Content: []byte(`"done"`)},
	)
	want := "hi\nBash {\"cmd\":\"ls\"}\ndone"
	if got := c.PlainText(); got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if got := TextContent("  x ").PlainText(); got != "x" {
		t.Fatalf("text plain: %q", got)
	}
}

func TestUnknownContentUsesTypeofNames(t *testing.T) {
	cases := map[string]string{
		`null`:    "object",
		`{"a":1}`: "object",
		`true`:    "boolean",
		`3.5`:     "number",
	}
	for raw, want := range cases {
		var c Content
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
		if c.Kind != ContentUnknown {
			t.Fatalf("%s: kind=%v", raw, c.Kind)
		}
		if got := c.TypeName(); got != want {
			t.Fatalf("%s: type name=%q want %q", raw, got, want)
		}
	}
	if got := (Content{}).TypeName(); got != "undefined" {
		t.Fatalf("absent content: %q", got)
	}
}
