package transcript

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	PartText       = "text"
	PartImage      = "image"
	PartToolUse    = "tool_use"
	PartToolResult = "tool_result"
)

type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
}

// Part is one element of a content array. Fields not used by its type stay
// empty; Raw keeps the original JSON.
type Part struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Source    *ImageSource    `json:"source,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

func (p *Part) UnmarshalJSON(data []byte) error {
	type plain Part
	var tmp plain
	if err := json.Unmarshal(data, &tmp); err != nil {
		// Non-object parts and odd field types are kept raw.
		*p = Part{Raw: append(json.RawMessage(nil), bytes.TrimSpace(data)...)}
		return nil
	}
	*p = Part(tmp)
	p.Raw = append(json.RawMessage(nil), bytes.TrimSpace(data)...)
	return nil
}

func (p Part) MarshalJSON() ([]byte, error) {
	if len(p.Raw) > 0 {
		return p.Raw, nil
	}
	type plain Part
	return json.Marshal(plain(p))
}

// Base64Image returns the media type and payload of an inline base64 image.
func (p Part) Base64Image() (mediaType, data string, ok bool) {
	if p.Type != PartImage || p.Source == nil || p.Source.Type != "base64" || p.Source.Data == "" {
		return "", "", false
	}
	mediaType = p.Source.MediaType
	if mediaType == "" {
		mediaType = "image/png"
	}
	return mediaType, p.Source.Data, true
}

type ResultKind int

const (
	ResultNone ResultKind = iota
	ResultString
	ResultArray
	ResultObject
)

// Result is the decoded content of a tool_result part.
type Result struct {
	Kind  ResultKind
	Text  string
	Items []Part
	Raw   json.RawMessage
}

func (p Part) Result() Result {
	trimmed := bytes.TrimSpace(p.Content)
	if len(trimmed) == 0 {
		return Result{Kind: ResultNone}
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return Result{Kind: ResultString, Text: s, Raw: trimmed}
		}
	case '[':
		var items []Part
		if err := json.Unmarshal(trimmed, &items); err == nil {
			return Result{Kind: ResultArray, Items: items, Raw: trimmed}
		}
	}
	return Result{Kind: ResultObject, Raw: trimmed}
}

// Pretty indents raw JSON by two spaces, the way the viewer dumps values.
func Pretty(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "null"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, trimmed, "", "  "); err != nil {
		return string(trimmed)
	}
	return buf.String()
}

func (p Part) PlainText() string {
	switch p.Type {
	case PartText:
		return strings.TrimSpace(p.Text)
	case PartToolUse:
		return strings.TrimSpace(p.Name + " " + string(bytes.TrimSpace(p.Input)))
	case PartToolResult:
		r := p.Result()
		switch r.Kind {
		case ResultString:
			return strings.TrimSpace(r.Text)
		case ResultArray:
			parts := make([]string, 0, len(r.Items))
			for _, item := range r.Items {
				if s := item.PlainText(); s != "" {
					parts = append(parts, s)
				}
			}
			return strings.Join(parts, "\n")
		case ResultObject:
			return string(r.Raw)
		}
	}
	return ""
}
