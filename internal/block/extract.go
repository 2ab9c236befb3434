package block

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Sentinels used when a page carries no title or meta description.
const (
	NoTitle       = "No Title"
	NoDescription = "No Description"
)

// Minimum whitespace-token counts for a text element to become a block.
const (
	MinHeadingWords   = 3
	MinParagraphWords = 5
)

// rootSelectors are tried in order; the first match is the content root.
var rootSelectors = []string{
	"main",
	"div#mw-content-text",
	"article",
	"body",
}

// contentSelector matches every element that can become a block.
const contentSelector = "h1, h2, h3, h4, h5, h6, p, img"

// Extraction is the result of one extraction pass over a page.
type Extraction struct {
	Blocks      Blocks `json:"blocks"`
	Title       string `json:"title"`
	Description string `json:"description"`
	WordCount   int    `json:"word_count"`
	Counts      Counts `json:"counts"`
}

// ExtractHTML parses r as HTML and extracts its blocks. pageURL is the URL the
// document was fetched from and is used to resolve relative image sources.
func ExtractHTML(r io.Reader, pageURL string) (*Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML: %w", err)
	}
	return Extract(doc, pageURL)
}

// Extract walks the main content of doc and returns its labeled blocks plus
// page metadata.
func Extract(doc *goquery.Document, pageURL string) (*Extraction, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parsing page URL: %w", err)
	}

	root := contentRoot(doc)
	if root == nil {
		return nil, fmt.Errorf("no content root found in HTML")
	}

	var (
		blocks                   = Blocks{}
		heads, paras, images int = 1, 1, 1
	)

	root.Find(contentSelector).Each(func(_ int, s *goquery.Selection) {
		tag := Tag(goquery.NodeName(s))

		switch {
		case tag.IsHeading():
			text := collapseText(s.Text())
			if CountWords(text) < MinHeadingWords {
				return
			}
			blocks = append(blocks, TextBlock{
				Label:   fmt.Sprintf("%s%d", HeadingPrefix, heads),
				Tag:     tag,
				Content: text,
			})
			heads++

		case tag == TagParagraph:
			text := collapseText(s.Text())
			if CountWords(text) < MinParagraphWords {
				return
			}
			blocks = append(blocks, TextBlock{
				Label:   fmt.Sprintf("%s%d", ParagraphPrefix, paras),
				Tag:     TagParagraph,
				Content: text,
			})
			paras++

		case tag == TagImage:
			src, ok := resolveSrc(base, s)
			if !ok {
				return
			}
			blocks = append(blocks, ImageBlock{
				Label: fmt.Sprintf("%s%d", ImagePrefix, images),
				Src:   src,
			})
			images++
		}
	})

	return &Extraction{
		Blocks:      blocks,
		Title:       pageTitle(doc),
		Description: pageDescription(doc),
		WordCount:   WordCount(blocks),
		Counts: Counts{
			Paragraphs: paras - 1,
			Headers:    heads - 1,
			Images:     images - 1,
		},
	}, nil
}

// contentRoot returns the first element matching rootSelectors.
func contentRoot(doc *goquery.Document) *goquery.Selection {
	for _, sel := range rootSelectors {
		if found := doc.Find(sel); found.Length() > 0 {
			return found.First()
		}
	}
	return nil
}

// resolveSrc returns the image's src attribute resolved against base.
// Images with a missing or blank src are skipped. A src that does not parse
// is still kept so later image labels do not shift: stray '%' signs are
// escaped before resolving, and anything else is returned as written.
func resolveSrc(base *url.URL, s *goquery.Selection) (string, bool) {
	raw, ok := s.Attr("src")
	if !ok {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		ref, err = url.Parse(escapeStrayPercents(raw))
		if err != nil {
			return raw, true
		}
	}
	return base.ResolveReference(ref).String(), true
}

// escapeStrayPercents rewrites each '%' not followed by two hex digits as "%25".
func escapeStrayPercents(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && (i+2 >= len(s) || !isHex(s[i+1]) || !isHex(s[i+2])) {
			b.WriteString("%25")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// pageTitle returns the trimmed document title or NoTitle.
func pageTitle(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return NoTitle
	}
	return title
}

// pageDescription returns the trimmed meta description or NoDescription.
// A present but empty content attribute yields the empty string.
func pageDescription(doc *goquery.Document) string {
	content, ok := doc.Find(`meta[name="description"]`).First().Attr("content")
	if !ok {
		return NoDescription
	}
	return strings.TrimSpace(content)
}

// collapseText joins the whitespace-separated tokens of s with single spaces.
func collapseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
