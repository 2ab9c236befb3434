package block

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Tag is the structural role of a block: a heading level, a paragraph, or an image.
type Tag string

const (
	TagH1        Tag = "h1"
	TagH2        Tag = "h2"
	TagH3        Tag = "h3"
	TagH4        Tag = "h4"
	TagH5        Tag = "h5"
	TagH6        Tag = "h6"
	TagParagraph Tag = "p"
	TagImage     Tag = "img"
)

// Label prefixes, followed by a 1-based running counter per role.
const (
	HeadingPrefix   = "head"
	ParagraphPrefix = "para"
	ImagePrefix     = "img"
)

// IsHeading reports whether t is one of h1..h6.
func (t Tag) IsHeading() bool {
	switch t {
	case TagH1, TagH2, TagH3, TagH4, TagH5, TagH6:
		return true
	}
	return false
}

// Valid reports whether t is a tag a block can carry.
func (t Tag) Valid() bool {
	return t.IsHeading() || t == TagParagraph || t == TagImage
}

// Block is one extracted content unit. It is either a TextBlock or an ImageBlock.
type Block interface {
	// BlockLabel returns the page-unique label (head1, para2, img3, ...).
	BlockLabel() string
	// BlockTag returns the structural role.
	BlockTag() Tag
	// Value returns the editable payload: content for text, src for images.
	Value() string
	// WithValue returns a copy with the payload replaced.
	WithValue(v string) Block

	isBlock()
}

// TextBlock is a heading or paragraph block.
type TextBlock struct {
	Label   string `json:"label" yaml:"label"`
	Tag     Tag    `json:"tag" yaml:"tag"`
	Content string `json:"content" yaml:"content"`
}

func (b TextBlock) BlockLabel() string { return b.Label }
func (b TextBlock) BlockTag() Tag      { return b.Tag }
func (b TextBlock) Value() string      { return b.Content }

func (b TextBlock) WithValue(v string) Block {
	return TextBlock{Label: b.Label, Tag: b.Tag, Content: v}
}

func (TextBlock) isBlock() {}

// ImageBlock is an image block. Src is always an absolute URL at extraction time,
// but may hold a data URI after an image edit has been saved.
type ImageBlock struct {
	Label string `json:"label" yaml:"label"`
	Src   string `json:"src" yaml:"src"`
}

func (b ImageBlock) BlockLabel() string { return b.Label }
func (b ImageBlock) BlockTag() Tag      { return TagImage }
func (b ImageBlock) Value() string      { return b.Src }

func (b ImageBlock) WithValue(v string) Block {
	return ImageBlock{Label: b.Label, Src: v}
}

func (ImageBlock) isBlock() {}

// IsImage reports whether b is an image block.
func IsImage(b Block) bool {
	_, ok := b.(ImageBlock)
	return ok
}

// Blocks is an ordered block sequence. It encodes as the flat
// {label, tag, content|src} shape used by the store and every API surface.
type Blocks []Block

// wireBlock is the serialized shape of a Block.
type wireBlock struct {
	Label   string  `json:"label" yaml:"label"`
	Tag     Tag     `json:"tag" yaml:"tag"`
	Content *string `json:"content,omitempty" yaml:"content,omitempty"`
	Src     *string `json:"src,omitempty" yaml:"src,omitempty"`
}

func toWire(b Block) wireBlock {
	v := b.Value()
	w := wireBlock{Label: b.BlockLabel(), Tag: b.BlockTag()}
	if IsImage(b) {
		w.Src = &v
	} else {
		w.Content = &v
	}
	return w
}

func fromWire(w wireBlock) (Block, error) {
	if strings.TrimSpace(w.Label) == "" {
		return nil, fmt.Errorf("block label is required")
	}
	if !w.Tag.Valid() {
		return nil, fmt.Errorf("block %s: unknown tag %q", w.Label, w.Tag)
	}
	if w.Content != nil && w.Src != nil {
		return nil, fmt.Errorf("block %s: content and src are mutually exclusive", w.Label)
	}

	if w.Tag == TagImage {
		if w.Content != nil {
			return nil, fmt.Errorf("block %s: image block cannot carry content", w.Label)
		}
		b := ImageBlock{Label: w.Label}
		if w.Src != nil {
			b.Src = *w.Src
		}
		return b, nil
	}

	if w.Src != nil {
		return nil, fmt.Errorf("block %s: text block cannot carry src", w.Label)
	}
	b := TextBlock{Label: w.Label, Tag: w.Tag}
	if w.Content != nil {
		b.Content = *w.Content
	}
	return b, nil
}

// MarshalJSON implements json.Marshaler.
func (bs Blocks) MarshalJSON() ([]byte, error) {
	out := make([]wireBlock, 0, len(bs))
	for _, b := range bs {
		out = append(out, toWire(b))
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (bs *Blocks) UnmarshalJSON(data []byte) error {
	var in []wireBlock
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	out := make(Blocks, 0, len(in))
	for _, w := range in {
		b, err := fromWire(w)
		if err != nil {
			return err
		}
		out = append(out, b)
	}
	*bs = out
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (bs Blocks) MarshalYAML() (any, error) {
	out := make([]wireBlock, 0, len(bs))
	for _, b := range bs {
		out = append(out, toWire(b))
	}
	return out, nil
}

// Clone returns a copy of the sequence. Block values are immutable, so a
// shallow copy is independent of the source.
func (bs Blocks) Clone() Blocks {
	if bs == nil {
		return Blocks{}
	}
	return slices.Clone(bs)
}

// Counts holds the per-role block counters of an extraction.
type Counts struct {
	Paragraphs int `json:"paragraphs" yaml:"paragraphs"`
	Headers    int `json:"headers" yaml:"headers"`
	Images     int `json:"images" yaml:"images"`
}

// CountRoles tallies headings, paragraphs and images in bs.
func CountRoles(bs Blocks) Counts {
	var c Counts
	for _, b := range bs {
		switch {
		case IsImage(b):
			c.Images++
		case b.BlockTag() == TagParagraph:
			c.Paragraphs++
		default:
			c.Headers++
		}
	}
	return c
}

// CountWords returns the number of whitespace-separated tokens in s.
func CountWords(s string) int {
	return len(strings.Fields(s))
}

// WordCount sums the token counts of all text blocks. Images are excluded.
func WordCount(bs Blocks) int {
	n := 0
	for _, b := range bs {
		if IsImage(b) {
			continue
		}
		n += CountWords(b.Value())
	}
	return n
}
