package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	emoji "github.com/yuin/goldmark-emoji"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"gateway-trace/internal/transcript"
)

const (
	NoMessagesHTML = `<div class="welcome-message">No messages found in this log.</div>`
	EmptyContent   = "[Empty content]"
	CodeStyle      = "github"
)

var (
	classTokenRe = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
	mediaTypeRe  = regexp.MustCompile(`^image/[a-zA-Z0-9.+-]+$`)
	base64Re     = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)
)

// HTML renders transcripts for the browser viewer. Message text goes through
// one markdown pass; tool and image fragments are built with html/template
// and embedded in the markdown source as raw HTML. The result is sanitised.
type HTML struct {
	md        goldmark.Markdown
	policy    *bluemonday.Policy
	formatter *chromahtml.Formatter
	style     *chroma.Style
	lexer     chroma.Lexer
}

func NewHTML() *HTML {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM, emoji.Emoji),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)

	policy := bluemonday.UGCPolicy()
	policy.AllowDataURIImages()
	policy.AllowAttrs("class").Matching(regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)).OnElements("div", "span", "pre", "p", "strong")

	lexer := lexers.Get("json")
	if lexer == nil {
		lexer = lexers.Fallback
	}

	return &HTML{
		md:        md,
		policy:    policy,
		formatter: chromahtml.New(chromahtml.WithClasses(true)),
		style:     styles.Get(CodeStyle),
		lexer:     chroma.Coalesce(lexer),
	}
}

// WriteCSS writes the stylesheet for highlighted tool input.
func (r *HTML) WriteCSS(w io.Writer) error {
	return r.formatter.WriteCSS(w, r.style)
}

type Block struct {
	Class string
	HTML  template.HTML
}

type ToolView struct {
	Name        string
	Description string
}

type Document struct {
	Empty  bool
	System template.HTML
	Tools  []ToolView
	Blocks []Block
}

// Document lays out a transcript: system prompt, tool list, then one block
// per message in order.
func (r *HTML) Document(t *transcript.Transcript) (Document, error) {
	if !t.HasMessages() {
		return Document{Empty: true}, nil
	}
	body := t.Request.Body

	var doc Document
	if sys := strings.TrimSpace(body.System.Text()); sys != "" {
		h, err := r.markdown(sys)
		if err != nil {
			return doc, err
		}
		doc.System = h
	}
	for _, tool := range body.Tools {
		doc.Tools = append(doc.Tools, ToolView{Name: tool.Name, Description: tool.Description})
	}
	for i, m := range body.Messages {
		b, err := r.Message(m)
		if err != nil {
			return doc, fmt.Errorf("message %d: %w", i, err)
		}
		doc.Blocks = append(doc.Blocks, b)
	}
	return doc, nil
}

func (r *HTML) Render(t *transcript.Transcript) (template.HTML, error) {
	doc, err := r.Document(t)
	if err != nil {
		return "", err
	}
	if doc.Empty {
		return NoMessagesHTML, nil
	}
	var buf bytes.Buffer
	if err := transcriptTmpl.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("execute transcript template: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// Message renders one message block.
func (r *HTML) Message(m transcript.Message) (Block, error) {
	src := r.Combine(m)
	h, err := r.markdown(strings.TrimSpace(src))
	if err != nil {
		return Block{}, err
	}
	return Block{Class: ClassToken(m.Kind()), HTML: h}, nil
}

// Combine builds the markdown source of a message, with tool and image
// fragments already inlined as HTML.
func (r *HTML) Combine(m transcript.Message) string {
	var b strings.Builder
	switch m.Content.Kind {
	case transcript.ContentText:
		b.WriteString(m.Content.Text)
	case transcript.ContentParts:
		for _, p := range m.Content.Parts {
			switch p.Type {
			case transcript.PartText:
				if strings.TrimSpace(p.Text) != "" {
					b.WriteString(p.Text)
					b.WriteString("\n")
				}
			case transcript.PartImage:
				if frag := imageFragment(p, "Image"); frag != "" {
					writeFragment(&b, frag)
				}
			case transcript.PartToolUse:
				writeFragment(&b, r.toolUseFragment(p))
			case transcript.PartToolResult:
				writeFragment(&b, toolResultFragment(p))
			}
		}
	default:
		b.WriteString(UnexpectedContent(m.Content))
	}
	if strings.TrimSpace(b.String()) == "" {
		return EmptyContent
	}
	return b.String()
}

// UnexpectedContent is the visible fallback for content of an unknown shape.
func UnexpectedContent(c transcript.Content) string {
	raw := "undefined"
	if len(c.Raw) > 0 {
		raw = string(c.Raw)
	}
	return fmt.Sprintf("[Unexpected content type: %s] %s", c.TypeName(), raw)
}

func ClassToken(s string) string {
	s = classTokenRe.ReplaceAllString(strings.TrimSpace(s), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "unknown"
	}
	return s
}

func (r *HTML) markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return template.HTML(r.policy.SanitizeBytes(buf.Bytes())), nil
}

// writeFragment puts an HTML fragment on its own line, followed by a blank
// line, so markdown treats it as a raw HTML block.
func writeFragment(b *strings.Builder, frag string) {
	if frag == "" {
		return
	}
	b.WriteString("\n")
	b.WriteString(frag)
	b.WriteString("\n\n")
}

// oneLine keeps a fragment inside a single raw HTML block; a blank line would
// end the block and hand the rest to the markdown parser.
func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "&#10;")
}

func dataURI(p transcript.Part) (template.URL, bool) {
	media, data, ok := p.Base64Image()
	if !ok || !mediaTypeRe.MatchString(media) {
		return "", false
	}
	data = strings.Join(strings.Fields(data), "")
	if !base64Re.MatchString(data) {
		return "", false
	}
	return template.URL("data:" + media + ";base64," + data), true
}

func imageFragment(p transcript.Part, alt string) string {
	src, ok := dataURI(p)
	if !ok {
		return ""
	}
	return execFragment(imageTmpl, struct {
		Src template.URL
		Alt string
	}{src, alt})
}

func (r *HTML) toolUseFragment(p transcript.Part) string {
	return execFragment(toolUseTmpl, struct {
		Name string
		Code template.HTML
	}{p.Name, r.highlightJSON(transcript.Pretty(p.Input))})
}

func (r *HTML) highlightJSON(src string) template.HTML {
	it, err := r.lexer.Tokenise(nil, src)
	if err == nil {
		var buf bytes.Buffer
		if err := r.formatter.Format(&buf, r.style, it); err == nil {
			return template.HTML(buf.String())
		}
	}
	return template.HTML("<pre><code>" + template.HTMLEscapeString(src) + "</code></pre>")
}

func toolResultFragment(p transcript.Part) string {
	res := p.Result()
	data := struct {
		ID      string
		IsError bool
		IsArray bool
		Items   []template.HTML
		Text    string
	}{ID: p.ToolUseID, IsError: p.IsError}

	switch res.Kind {
	case transcript.ResultArray:
		data.IsArray = true
		for _, item := range res.Items {
			if frag := imageFragment(item, "Tool Result Image"); frag != "" {
				data.Items = append(data.Items, template.HTML(frag))
				continue
			}
			data.Items = append(data.Items, template.HTML("<pre>"+template.HTMLEscapeString(transcript.Pretty(item.Raw))+"</pre>"))
		}
	case transcript.ResultString:
		data.Text = res.Text
	case transcript.ResultObject:
		data.Text = transcript.Pretty(res.Raw)
	}
	return execFragment(toolResultTmpl, data)
}

func execFragment(t *template.Template, data any) string {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "<pre>" + template.HTMLEscapeString(err.Error()) + "</pre>"
	}
	return oneLine(buf.String())
}

var (
	imageTmpl = template.Must(template.New("image").Parse(
		`<div class="image-container"><img src="{{.Src}}" alt="{{.Alt}}"></div>`))

	toolUseTmpl = template.Must(template.New("tool_use").Parse(
		`<div class="tool-call"><strong>Tool Call: {{.Name}}</strong>{{.Code}}</div>`))

	toolResultTmpl = template.Must(template.New("tool_result").Parse(
		`<div class="tool-result{{if .IsError}} error{{end}}"><strong>Tool Result (ID: {{.ID}})</strong>` +
			`{{if .IsArray}}<div>{{range .Items}}{{.}}{{end}}</div>{{else}}<pre class="tool-output">{{.Text}}</pre>{{end}}</div>`))

	transcriptTmpl = template.Must(template.New("transcript").Funcs(template.FuncMap{
		"inc":   func(i int) int { return i + 1 },
		"lines": descriptionLines,
	}).Parse(transcriptHTML))
)

func descriptionLines(s string) template.HTML {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, l := range lines {
		lines[i] = template.HTMLEscapeString(l)
	}
	return template.HTML(strings.Join(lines, "<br>"))
}

const transcriptHTML = `{{with .System}}<div class="message system">
<div class="collapsible-header" data-collapsible="system-prompt"><strong>📋 System Prompt</strong> <span class="collapse-arrow" id="system-prompt-arrow">▶</span></div>
<div class="collapsible-content collapsed" id="system-prompt-content">{{.}}</div>
</div>
{{end}}{{if .Tools}}<div class="message tools">
<div class="collapsible-header" data-collapsible="available-tools"><strong>🔧 Available Tools ({{len .Tools}})</strong> <span class="collapse-arrow" id="available-tools-arrow">▶</span></div>
<div class="collapsible-content collapsed" id="available-tools-content">
{{range $i, $t := .Tools}}<div class="tool-item"><div class="tool-header">{{inc $i}}. <strong>{{$t.Name}}</strong></div>{{if $t.Description}}<div class="tool-description">{{lines $t.Description}}</div>{{end}}</div>
{{end}}</div>
</div>
{{end}}{{range .Blocks}}<div class="message {{.Class}}">{{.HTML}}</div>
{{end}}`
