package executor

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/entrhq/moodjournal/pkg/types"
)

// Span is a run of text with uniform emphasis.
type Span struct {
	Text   string
	Bold   bool
	Italic bool
}

// Spans parses the HTML subset chat messages use (<b>, <strong>, <i>, <em>,
// <br>). Unknown tags are dropped and their text kept; entities are decoded.
func Spans(text string) []Span {
	var (
		out          []Span
		bold, italic int
	)
	z := html.NewTokenizer(strings.NewReader(text))
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				// malformed input; show what is left verbatim
				out = append(out, Span{Text: string(z.Raw())})
			}
			return merge(out)
		case html.TextToken:
			out = append(out, Span{Text: string(z.Text()), Bold: bold > 0, Italic: italic > 0})
		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "b", "strong":
				bold++
			case "i", "em":
				italic++
			case "br":
				out = append(out, Span{Text: "\n"})
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "b", "strong":
				bold = max(bold-1, 0)
			case "i", "em":
				italic = max(italic-1, 0)
			}
		case html.SelfClosingTagToken:
			if name, _ := z.TagName(); string(name) == "br" {
				out = append(out, Span{Text: "\n"})
			}
		}
	}
}

func merge(spans []Span) []Span {
	var out []Span
	for _, s := range spans {
		if s.Text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Bold == s.Bold && out[n-1].Italic == s.Italic {
			out[n-1].Text += s.Text
			continue
		}
		out = append(out, s)
	}
	return out
}

// Plain strips markup from text.
func Plain(text string) string {
	var b strings.Builder
	for _, s := range Spans(text) {
		b.WriteString(s.Text)
	}
	return b.String()
}

// KeyboardLines renders kb as numbered buttons, one line per row, numbered
// the way Console.Event counts them.
func KeyboardLines(kb types.Keyboard) []string {
	var (
		lines []string
		n     int
	)
	for _, row := range kb {
		cells := make([]string, len(row))
		for i, btn := range row {
			n++
			cells[i] = fmt.Sprintf("[%d] %s", n, Plain(btn.Text))
		}
		lines = append(lines, strings.Join(cells, "  "))
	}
	return lines
}
