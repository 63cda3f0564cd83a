package render

import (
	"fmt"
	"strings"

	"gateway-trace/internal/transcript"
)

const NoMessagesText = "No messages found in this log."

type MarkdownOptions struct {
	ShowSystem bool
	ShowTools  bool
}

// Markdown builds the terminal rendition of a transcript. Images become
// placeholders; everything else mirrors the HTML layout.
func Markdown(t *transcript.Transcript, opts MarkdownOptions) string {
	if !t.HasMessages() {
		return "_" + NoMessagesText + "_\n"
	}
	body := t.Request.Body

	var b strings.Builder
	if sys := strings.TrimSpace(body.System.Text()); sys != "" {
		if opts.ShowSystem {
			b.WriteString("### ▼ System Prompt\n\n")
			b.WriteString(sys)
			b.WriteString("\n\n")
		} else {
			fmt.Fprintf(&b, "### ▶ System Prompt\n\n_%d chars hidden_\n\n", len(sys))
		}
	}
	if len(body.Tools) > 0 {
		if opts.ShowTools {
			fmt.Fprintf(&b, "### ▼ Available Tools (%d)\n\n", len(body.Tools))
			for i, tool := range body.Tools {
				fmt.Fprintf(&b, "%d. **%s**\n", i+1, tool.Name)
				for _, line := range strings.Split(strings.TrimSpace(tool.Description), "\n") {
					if line = strings.TrimSpace(line); line != "" {
						fmt.Fprintf(&b, "   %s\n", line)
					}
				}
			}
			b.WriteString("\n")
		} else {
			fmt.Fprintf(&b, "### ▶ Available Tools (%d)\n\n", len(body.Tools))
		}
	}

	for _, m := range body.Messages {
		fmt.Fprintf(&b, "## %s\n\n", roleTitle(m.Kind()))
		b.WriteString(strings.TrimSpace(MessageMarkdown(m)))
		b.WriteString("\n\n---\n\n")
	}
	return b.String()
}

// MessageMarkdown is the terminal counterpart of the combined HTML buffer.
func MessageMarkdown(m transcript.Message) string {
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
					b.WriteString("\n\n")
				}
			case transcript.PartImage:
				if s := imagePlaceholder(p); s != "" {
					b.WriteString(s + "\n\n")
				}
			case transcript.PartToolUse:
				fmt.Fprintf(&b, "**Tool Call: %s**\n\n", p.Name)
				b.WriteString(codeBlock("json", transcript.Pretty(p.Input)))
			case transcript.PartToolResult:
				writeResultMarkdown(&b, p)
			}
		}
	default:
		b.WriteString(codeBlock("", UnexpectedContent(m.Content)))
	}
	if strings.TrimSpace(b.String()) == "" {
		return "_" + EmptyContent + "_"
	}
	return b.String()
}

func writeResultMarkdown(b *strings.Builder, p transcript.Part) {
	fmt.Fprintf(b, "**Tool Result (ID: %s)**", p.ToolUseID)
	if p.IsError {
		b.WriteString(" ⚠ error")
	}
	b.WriteString("\n\n")

	res := p.Result()
	switch res.Kind {
	case transcript.ResultString:
		b.WriteString(codeBlock("text", res.Text))
	case transcript.ResultObject:
		b.WriteString(codeBlock("json", transcript.Pretty(res.Raw)))
	case transcript.ResultArray:
		for _, item := range res.Items {
			if s := imagePlaceholder(item); s != "" {
				b.WriteString(s + "\n\n")
				continue
			}
			b.WriteString(codeBlock("json", transcript.Pretty(item.Raw)))
		}
	}
}

func imagePlaceholder(p transcript.Part) string {
	media, data, ok := p.Base64Image()
	if !ok {
		return ""
	}
	return fmt.Sprintf("_[image: %s, %s]_", media, approxSize(len(data)*3/4))
}

func approxSize(n int) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// codeBlock fences s with a backtick run longer than any inside it.
func codeBlock(lang, s string) string {
	longest, run := 0, 0
	for _, r := range s {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 0
	}
	fence := strings.Repeat("`", max(3, longest+1))
	return fence + lang + "\n" + strings.TrimRight(s, "\n") + "\n" + fence + "\n\n"
}

func roleTitle(kind string) string {
	switch kind {
	case "user":
		return "👤 User"
	case "assistant":
		return "🤖 Assistant"
	case "tool":
		return "🔧 Tool"
	case "":
		return "Unknown"
	}
	r := []rune(kind)
	return strings.ToUpper(string(r[:1])) + string(r[1:])
}
