// Package markdown renders the small Markdown subset used in chat bubbles:
// paragraphs with hard line breaks, flat bullet and numbered lists, bold,
// italic and inline code. Everything else is emitted as escaped text.
package markdown

import (
	"strings"

	"github.com/dlclark/regexp2"
)

var (
	unorderedItem = regexp2.MustCompile(`^\s*[-*]\s+(.+)$`, regexp2.None)
	orderedItem   = regexp2.MustCompile(`^\s*[0-9]+[.)]\s+(.+)$`, regexp2.None)

	bold   = regexp2.MustCompile(`\*\*(.+?)\*\*`, regexp2.None)
	italic = regexp2.MustCompile(`(?<!\*)\*(?!\*)(.+?)(?<!\*)\*(?!\*)`, regexp2.None)
	code   = regexp2.MustCompile("`([^`]+)`", regexp2.None)

	escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

type block int

const (
	blockNone block = iota
	blockParagraph
	blockUnordered
	blockOrdered
)

type renderer struct {
	b    strings.Builder
	open block
}

// Render converts text to an HTML fragment. Raw text is always escaped
// before any markup is inserted.
func Render(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	r := &renderer{}
	for _, line := range strings.Split(text, "\n") {
		if item, ok := match(unorderedItem, line); ok {
			r.item(blockUnordered, item)
			continue
		}
		if item, ok := match(orderedItem, line); ok {
			r.item(blockOrdered, item)
			continue
		}
		if strings.TrimSpace(line) == "" {
			r.close()
			continue
		}
		r.paragraphLine(line)
	}
	r.close()
	return r.b.String()
}

func (r *renderer) item(kind block, content string) {
	if r.open != kind {
		r.close()
		if kind == blockUnordered {
			r.b.WriteString("<ul>")
		} else {
			r.b.WriteString("<ol>")
		}
		r.open = kind
	}
	r.b.WriteString("<li>")
	r.b.WriteString(Inline(content))
	r.b.WriteString("</li>")
}

func (r *renderer) paragraphLine(line string) {
	if r.open == blockParagraph {
		r.b.WriteString("<br>")
	} else {
		r.close()
		r.b.WriteString("<p>")
		r.open = blockParagraph
	}
	r.b.WriteString(Inline(line))
}

func (r *renderer) close() {
	switch r.open {
	case blockParagraph:
		r.b.WriteString("</p>")
	case blockUnordered:
		r.b.WriteString("</ul>")
	case blockOrdered:
		r.b.WriteString("</ol>")
	}
	r.open = blockNone
}

// Inline escapes s and then applies bold, italic and code spans, in that
// order.
func Inline(s string) string {
	s = escaper.Replace(s)
	s = replace(bold, s, "<strong>$1</strong>")
	s = replace(italic, s, "<em>$1</em>")
	s = replace(code, s, "<code>$1</code>")
	return s
}

func match(re *regexp2.Regexp, line string) (string, bool) {
	m, err := re.FindStringMatch(line)
	if err != nil || m == nil {
		return "", false
	}
	return m.GroupByNumber(1).String(), true
}

func replace(re *regexp2.Regexp, s, repl string) string {
	out, err := re.Replace(s, repl, -1, -1)
	if err != nil {
		// only a match timeout can fail, and none is configured
		return s
	}
	return out
}
