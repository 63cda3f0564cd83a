package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Transcript is one gateway log document. Only the request body is
// interpreted; everything else is carried for display and export.
type Transcript struct {
	Timestamp     string          `json:"timestamp,omitempty"`
	Request       Request         `json:"request"`
	Response      json.RawMessage `json:"response,omitempty"`
	StatusCode    int             `json:"status_code,omitempty"`
	CanonicalPath string          `json:"canonical_path,omitempty"`
}

type Request struct {
	Method string `json:"method,omitempty"`
	Path   string `json:"path,omitempty"`
	Body   Body   `json:"body"`
}

// Body is the messages API request body. Bodies that are not JSON objects
// (streamed text, plain strings) are kept in Raw and have no messages.
type Body struct {
	Model    string          `json:"model,omitempty"`
	System   System          `json:"system,omitempty"`
	Tools    []Tool          `json:"tools,omitempty"`
	Messages []Message       `json:"messages,omitempty"`
	Raw      json.RawMessage `json:"-"`
}

func (b *Body) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		*b = Body{Raw: append(json.RawMessage(nil), trimmed...)}
		return nil
	}
	type plain Body
	var p plain
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	*b = Body(p)
	return nil
}

// System accepts either a plain string or an array of parts.
type System []Part

func (s *System) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		*s = nil
		return nil
	case trimmed[0] == '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*s = System{{Type: PartText, Text: text}}
		return nil
	case trimmed[0] == '[':
		var parts []Part
		if err := json.Unmarshal(trimmed, &parts); err != nil {
			return err
		}
		*s = parts
		return nil
	default:
		*s = nil
		return nil
	}
}

// Text concatenates the text parts, each followed by a newline.
func (s System) Text() string {
	var b strings.Builder
	for _, p := range s {
		if p.Type == PartText && p.Text != "" {
			b.WriteString(p.Text)
			b.WriteString("\n")
		}
	}
	return b.String()
}

type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

type Message struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

// Kind is the block tag of a message: "tool" when any part is a tool result,
// otherwise the role.
func (m Message) Kind() string {
	if m.Content.Kind == ContentParts {
		for _, p := range m.Content.Parts {
			if p.Type == PartToolResult {
				return "tool"
			}
		}
	}
	return m.Role
}

func (t *Transcript) Messages() []Message {
	if t == nil {
		return nil
	}
	return t.Request.Body.Messages
}

// HasMessages reports whether the request body carried a messages array.
func (t *Transcript) HasMessages() bool {
	return len(t.Messages()) > 0
}

func Decode(data []byte) (*Transcript, error) {
	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	return &t, nil
}
