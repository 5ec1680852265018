package danmaku

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Variant selects how a comment is presented.
type Variant uint8

const (
	VariantBordered Variant = iota // name and body inside a bordered capsule
	VariantPlain                   // body only, no border
)

// String returns the YAML spelling of the variant.
func (v Variant) String() string {
	switch v {
	case VariantBordered:
		return "bordered"
	case VariantPlain:
		return "plain"
	default:
		return fmt.Sprintf("Variant(%d)", uint8(v))
	}
}

// ParseVariant parses "bordered" or "plain" (case-insensitive). An empty
// string is VariantBordered.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "bordered":
		return VariantBordered, nil
	case "plain":
		return VariantPlain, nil
	default:
		return VariantBordered, fmt.Errorf("danmaku: unknown variant %q", s)
	}
}

// MarshalYAML implements yaml.Marshaler.
func (v Variant) MarshalYAML() (any, error) {
	return v.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Variant) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseVariant(s)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Item describes one comment to display. Items are plain values and are
// never modified by the engine.
type Item struct {
	Avatar  string  `yaml:"avatar" json:"avatar"`
	Name    string  `yaml:"name" json:"name"`
	Body    string  `yaml:"body" json:"body"`
	Image   string  `yaml:"image,omitempty" json:"image,omitempty"`
	Variant Variant `yaml:"variant,omitempty" json:"variant,omitempty"`
}

// HasImage reports whether the item carries a trailing image reference.
func (it Item) HasImage() bool {
	return it.Image != ""
}

// Bordered reports whether the item shows its name inside a border.
func (it Item) Bordered() bool {
	return it.Variant == VariantBordered
}

// Text returns the string measured to size the item: "name  body" for
// bordered items and the body alone for plain ones.
func (it Item) Text() string {
	if it.Bordered() {
		return it.Name + "  " + it.Body
	}
	return it.Body
}

// backlogFile is the on-disk shape read by LoadBacklog.
type backlogFile struct {
	Items []Item `yaml:"items"`
}

// MarshalText implements encoding.TextMarshaler, so JSON uses the same
// spelling as YAML.
func (v Variant) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Variant) UnmarshalText(b []byte) error {
	parsed, err := ParseVariant(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// LoadBacklog decodes a YAML backlog of the form:
//
//	items:
//	  - name: alice
//	    avatar: https://example.com/a.png
//	    body: hello
//	    image: ic_red_packet
//	    variant: plain
//
// A bare top-level sequence of items is accepted too.
func LoadBacklog(r io.Reader) ([]Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("danmaku: read backlog: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("danmaku: parse backlog: %w", err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind == yaml.SequenceNode {
		var items []Item
		if err := root.Decode(&items); err != nil {
			return nil, fmt.Errorf("danmaku: parse backlog: %w", err)
		}
		return items, nil
	}

	var f backlogFile
	if err := root.Decode(&f); err != nil {
		return nil, fmt.Errorf("danmaku: parse backlog: %w", err)
	}
	return f.Items, nil
}
