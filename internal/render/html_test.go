package render

import (
	"bytes"
	"strings"
	"testing"

	"gateway-trace/internal/transcript"
)

func decode(t *testing.T, raw string) *transcript.Transcript {
	t.Helper()
	tr, err := transcript.Decode([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return tr
}

func renderHTML(t *testing.T, raw string) string {
	t.Helper()
	out, err := NewHTML().Render(decode(t, raw))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return string(out)
}

func TestRenderTextMessage(t *testing.T) {
	out := renderHTML(t, `{"request":{"body":{"messages":[{"role":"user","content":"hello"}]}}}`)
	if !strings.Contains(out, `<div class="message user"><p>hello</p>`) {
		t.Fatalf("expected a user block with rendered markdown, got:\n%s", out)
	}
	if strings.Contains(out, "system-prompt") || strings.Contains(out, "available-tools") {
		t.Fatalf("no system or tools block expected:\n%s", out)
	}
}

func TestRenderToolResultError(t *testing.T) {
	out := renderHTML(t, `{"request":{"body":{"messages":[
		{"role":"user","content":[{"type":"tool_result","tool_use_id":"t1","is_error":true,"content":"boom"}]}
	]}}}`)
	for _, want := range []string{
		`class="message tool"`,
		`class="tool-result error"`,
		`Tool Result (ID: t1)`,
		`boom`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Count(out, `class="message `) != 1 {
		t.Fatalf("expected exactly one block:\n%s", out)
	}
}

func TestRenderEscapesToolResultText(t *testing.T) {
	out := renderHTML(t, `{"request":{"body":{"messages":[
		{"role":"user","content":[{"type":"tool_result","tool_use_id":"t2","content":"<script>alert(1)</script>\n\nnext"}]}
	]}}}`)
	if strings.Contains(out, "<script>") {
		t.Fatalf("tool result text must be escaped:\n%s", out)
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Fatalf("escaped text should stay visible:\n%s", out)
	}
	if !strings.Contains(out, "next") {
		t.Fatalf("text after a blank line should stay inside the fragment:\n%s", out)
	}
}

func TestRenderSanitizesMarkdownHTML(t *testing.T) {
	out := renderHTML(t, `{"request":{"body":{"messages":[
		{"role":"assistant","content":"hi <script>alert(1)</script> <img src=x onerror=alert(1)>"}
	]}}}`)
	if strings.Contains(out, "<script") || strings.Contains(out, "onerror") {
		t.Fatalf("markdown HTML must be sanitised:\n%s", out)
	}
}

func TestRenderImages(t *testing.T) {
	out := renderHTML(t, `{"request":{"body":{"messages":[
		{"role":"user","content":[
			{"type":"image","source":{"type":"base64","data":"iVBORw0KGgo="}},
			{"type":"tool_result","tool_use_id":"t3","content":[
				{"type":"image","source":{"type":"base64","media_type":"image/jpeg","data":"QUJD"}},
				{"type":"text","text":"caption"}
			]}
		]}
	]}}}`)
	if !strings.Contains(out, `src="data:image/png;base64,iVBORw0KGgo="`) {
		t.Fatalf("message image should default to image/png:\n%s", out)
	}
	if !strings.Contains(out, `src="data:image/jpeg;base64,QUJD"`) {
		t.Fatalf("tool result image missing:\n%s", out)
	}
	if strings.Count(out, `class="image-container"`) != 2 {
		t.Fatalf("expected two image containers:\n%s", out)
	}
	if !strings.Contains(out, "caption") {
		t.Fatalf("non-image result element should be dumped:\n%s", out)
	}
}

func TestRenderRejectsBadImageData(t *testing.T) {
	out := renderHTML(t, `{"request":{"body":{"messages":[
		{"role":"user","content":[
			{"type":"image","source":{"type":"base64","data":"\" onerror=\"alert(1)"}},
			{"type":"text","text":"after"}
		]}
	]}}}`)
	if strings.Contains(out, "<img") || strings.Contains(out, "onerror") {
		t.Fatalf("invalid image payload must be dropped:\n%s", out)
	}
}

func TestRenderToolUse(t *testing.T) {
	out := renderHTML(t, `{"request":{"body":{"messages":[
		{"role":"assistant","content":[
			{"type":"text","text":"calling"},
			{"type":"tool_use","id":"t1","name":"Read","input":{"file_path":"/tmp/a"}}
		]}
	]}}}`)
	for _, want := range []string{`class="message assistant"`, "calling", "Tool Call: Read", "file_path", `class="chroma"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Index(out, "calling") > strings.Index(out, "Tool Call: Read") {
		t.Fatalf("parts must keep their order:\n%s", out)
	}
}

func TestCombineKeepsFragmentsOnOneLine(t *testing.T) {
	m := transcript.Message{Role: "assistant", Content: transcript.PartsContent(
		transcript.Part{Type: transcript.PartText, Text: "first"},
		transcript.Part{Type: transcript.PartToolUse, Name: "Write", Input: []byte(`{"a":1,"b":[1,2]}`)},
		transcript.Part{Type: transcript.PartText, Text: "  "},
		transcript.Part{Type: "thinking", Text: "hidden"},
	)}
	src := NewHTML().Combine(m)

	lines := strings.Split(src, "\n")
	var frag []string
	for _, l := range lines {
		if strings.HasPrefix(l, "<div") {
			frag = append(frag, l)
		}
	}
	if len(frag) != 1 || !strings.HasSuffix(frag[0], "</div>") {
		t.Fatalf("expected one single-line fragment, got %q", src)
	}
	if !strings.HasPrefix(src, "first\n") {
		t.Fatalf("text part should come first with a newline: %q", src)
	}
	if strings.Contains(src, "hidden") {
		t.Fatalf("unknown part types are skipped: %q", src)
	}
}

func TestRenderPlaceholders(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"number", `{"role":"user","content":42}`, "[Unexpected content type: number] 42"},
		{"object", `{"role":"user","content":{"a":1}}`, "[Unexpected content type: object]"},
		{"missing", `{"role":"user"}`, "[Unexpected content type: undefined] undefined"},
		{"null", `{"role":"user","content":null}`, "[Unexpected content type: object] null"},
		{"blank text", `{"role":"user","content":[{"type":"text","text":"   "}]}`, EmptyContent},
		{"empty array", `{"role":"user","content":[]}`, EmptyContent},
		{"empty string", `{"role":"user","content":""}`, EmptyContent},
	}
	for _, tc := range cases {
		out := renderHTML(t, `{"request":{"body":{"messages":[`+tc.raw+`]}}}`)
		if !strings.Contains(out, tc.want) {
			t.Fatalf("%s: missing %q in:\n%s", tc.name, tc.want, out)
		}
	}
}

func TestRenderNoMessages(t *testing.T) {
	cases := []string{
		`{"request":{"body":{"messages":[]}}}`,
		`{"request":{"body":{"system":"ignored"}}}`,
		`{"request":{"body":"data: {\"type\":\"ping\"}"}}`,
		`{"request":{}}`,
		`{}`,
	}
	for _, raw := range cases {
		if out := renderHTML(t, raw); out != NoMessagesHTML {
			t.Fatalf("%s: expected only the placeholder, got:\n%s", raw, out)
		}
	}
}

func TestRenderSystemAndTools(t *testing.T) {
	out := renderHTML(t, `{"request":{"body":{
		"system":[{"type":"text","text":"You are **helpful**."},{"type":"text","text":"Be brief."}],
		"tools":[{"name":"Read","description":"Reads a file.\nReturns <text>."},{"name":"Bash"}],
		"messages":[{"role":"user","content":"hi"}]
	}}}`)
	for _, want := range []string{
		`id="system-prompt-content"`,
		`class="collapsible-content collapsed"`,
		`<strong>helpful</strong>`,
		`Available Tools (2)`,
		`id="available-tools-content"`,
		`1. <strong>Read</strong>`,
		`2. <strong>Bash</strong>`,
		`Reads a file.<br>Returns &lt;text&gt;.`,
		`▶`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Index(out, "system-prompt") > strings.Index(out, "available-tools") ||
		strings.Index(out, "available-tools") > strings.Index(out, `class="message user"`) {
		t.Fatalf("expected system, tools, then messages:\n%s", out)
	}
}

func TestRenderSystemString(t *testing.T) {
	out := renderHTML(t, `{"request":{"body":{"system":"plain prompt","messages":[{"role":"user","content":"hi"}]}}}`)
	if !strings.Contains(out, "plain prompt") {
		t.Fatalf("string system prompt should render:\n%s", out)
	}
}

func TestClassToken(t *testing.T) {
	cases := map[string]string{
		"user":            "user",
		"tool":            "tool",
		"":                "unknown",
		`x" onclick="y`:   "x-onclick-y",
		"assistant extra": "assistant-extra",
	}
	for in, want := range cases {
		if got := ClassToken(in); got != want {
			t.Fatalf("ClassToken(%q)=%q want %q", in, got, want)
		}
	}
}

func TestWriteCSS(t *testing.T) {
	var buf bytes.Buffer
	if err := NewHTML().WriteCSS(&buf); err != nil {
		t.Fatalf("write css: %v", err)
	}
	if !strings.Contains(buf.String(), ".chroma") {
		t.Fatalf("expected chroma classes in stylesheet")
	}
}
