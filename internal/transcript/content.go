package transcript

import (
	"bytes"
	"encoding/json"
	"strings"
)

type ContentKind int

const (
	ContentUnknown ContentKind = iota
	ContentText
	ContentParts
)

// Content is the tagged form of a message's content field. Unknown carries
// the raw JSON so unexpected shapes can be shown instead of dropped; Raw is
// nil when the field was absent.
type Content struct {
	Kind  ContentKind
	Text  string
	Parts []Part
	Raw   json.RawMessage
}

func TextContent(s string) Content {
	return Content{Kind: ContentText, Text: s}
}

func PartsContent(parts ...Part) Content {
	return Content{Kind: ContentParts, Parts: parts}
}

func (c *Content) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	raw := append(json.RawMessage(nil), trimmed...)
	if len(trimmed) > 0 {
		switch trimmed[0] {
		case '"':
			var s string
			if err := json.Unmarshal(trimmed, &s); err == nil {
				*c = Content{Kind: ContentText, Text: s, Raw: raw}
				return nil
			}
		case '[':
			var parts []Part
			if err := json.Unmarshal(trimmed, &parts); err == nil {
				*c = Content{Kind: ContentParts, Parts: parts, Raw: raw}
				return nil
			}
		}
	}
	*c = Content{Kind: ContentUnknown, Raw: raw}
	return nil
}

func (c Content) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case ContentText:
		return json.Marshal(c.Text)
	case ContentParts:
		return json.Marshal(c.Parts)
	}
	if len(c.Raw) == 0 {
		return []byte("null"), nil
	}
	return c.Raw, nil
}

// TypeName describes the JSON shape of unknown content using the JavaScript
// typeof names, so null reads as "object" and absent content as "undefined".
func (c Content) TypeName() string {
	switch c.Kind {
	case ContentText:
		return "string"
	case ContentParts:
		return "array"
	}
	if len(c.Raw) == 0 {
		return "undefined"
	}
	switch c.Raw[0] {
	case 'n', '{', '[':
		return "object"
	case 't', 'f':
		return "boolean"
	case '"':
		return "string"
	default:
		return "number"
	}
}

// PlainText flattens content to searchable text.
func (c Content) PlainText() string {
	switch c.Kind {
	case ContentText:
		return strings.TrimSpace(c.Text)
	case ContentParts:
		parts := make([]string, 0, len(c.Parts))
		for _, p := range c.Parts {
			if s := p.PlainText(); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	}
	return strings.TrimSpace(string(c.Raw))
}
