package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "hello", "<p>hello</p>"},
		{"bold", "**bold**", "<p><strong>bold</strong></p>"},
		{"italic", "*em*", "<p><em>em</em></p>"},
		{"code", "`code`", "<p><code>code</code></p>"},
		{"bold and italic", "**a** and *b*", "<p><strong>a</strong> and <em>b</em></p>"},
		{"escape", "<script>", "<p>&lt;script&gt;</p>"},
		{"escape ampersand", "a & b", "<p>a &amp; b</p>"},
		{"escape inside bold", "**<b>**", "<p><strong>&lt;b&gt;</strong></p>"},
		{"escape inside code", "`a<b`", "<p><code>a&lt;b</code></p>"},
		{"line break", "a\nb", "<p>a<br>b</p>"},
		{"paragraphs", "a\n\nb", "<p>a</p><p>b</p>"},
		{"unordered list", "- a\n- b", "<ul><li>a</li><li>b</li></ul>"},
		{"star list", "* a\n* b", "<ul><li>a</li><li>b</li></ul>"},
		{"indented item", "   - a", "<ul><li>a</li></ul>"},
		{"ordered list", "1. a\n2) b", "<ol><li>a</li><li>b</li></ol>"},
		{"list type switch", "- a\n1. b", "<ul><li>a</li></ul><ol><li>b</li></ol>"},
		{"paragraph then list", "a\n\n- b", "<p>a</p><ul><li>b</li></ul>"},
		{"list then paragraph", "- a\nb", "<ul><li>a</li></ul><p>b</p>"},
		{"paragraph directly before list", "a\n- b", "<p>a</p><ul><li>b</li></ul>"},
		{"blank splits lists", "- a\n\n- b", "<ul><li>a</li></ul><ul><li>b</li></ul>"},
		{"crlf", "a\r\nb\rc", "<p>a<br>b<br>c</p>"},
		{"trailing newline", "a\n", "<p>a</p>"},
		{"whitespace only line", "a\n   \nb", "<p>a</p><p>b</p>"},
		{"dash without space", "-a", "<p>-a</p>"},
		{"number without space", "1.a", "<p>1.a</p>"},
		{"heading passes through", "# title", "<p># title</p>"},
		{"link passes through", "[x](http://e)", "<p>[x](http://e)</p>"},
		{"inline in list", "- **a** `b`", "<ul><li><strong>a</strong> <code>b</code></li></ul>"},
		{"lone star", "2 * 3", "<p>2 * 3</p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.input))
		})
	}
}

func TestRenderItalicDoesNotMatchBold(t *testing.T) {
	got := Render("*em*")
	assert.Contains(t, got, "<em>em</em>")
	assert.NotContains(t, got, "<strong>")

	got = Render("**strong**")
	assert.Contains(t, got, "<strong>strong</strong>")
	assert.NotContains(t, got, "<em>")
}

func TestRenderNeverEmitsRawTags(t *testing.T) {
	inputs := []string{
		"<script>alert(1)</script>",
		"**<img src=x onerror=alert(1)>**",
		"- <b>item</b>",
		"1. `<i>`",
		"*<a>*",
	}
	for _, in := range inputs {
		got := Render(in)
		for _, tag := range []string{"<script", "<img", "<b>", "<i>", "<a>"} {
			assert.NotContains(t, got, tag, "input %q", in)
		}
	}
}

func TestRenderListGroupsIntoOneContainer(t *testing.T) {
	got := Render("- a\n- b")
	assert.Equal(t, 1, strings.Count(got, "<ul>"))
	assert.Equal(t, 2, strings.Count(got, "<li>"))
}

func TestInline(t *testing.T) {
	// italic runs before code spans
	assert.Equal(t, "<code><em>x</em></code>", Inline("`*x*`"))
	assert.Equal(t, "a &lt; b", Inline("a < b"))
}
