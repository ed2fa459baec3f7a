// Package render turns assistant replies and widget metrics into terminal
// output.
package render

import (
	"bytes"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const DefaultWidth = 80

// StyleFor maps a widget theme to a glamour style. Terminals without colour
// get the notty style whatever the theme.
func StyleFor(theme string, profile termenv.Profile) string {
	if profile == termenv.Ascii {
		return styles.NoTTYStyle
	}
	if theme == "dark" {
		return styles.DarkStyle
	}
	return styles.LightStyle
}

// Markdown renders reply markdown for one style and wrap width.
type Markdown struct {
	tr    *glamour.TermRenderer
	style string
	width int
}

func NewMarkdown(style string, width int) (*Markdown, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s markdown renderer", style)
	}
	return &Markdown{tr: tr, style: style, width: width}, nil
}

func (m *Markdown) Style() string { return m.style }

func (m *Markdown) Width() int { return m.width }

// Render returns the styled text, or the source unchanged if glamour fails.
func (m *Markdown) Render(md string) string {
	out, err := m.tr.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

var plainParser = goldmark.New()

// PlainText strips markdown syntax and collapses whitespace, for one-line
// previews.
func PlainText(md string) string {
	src := []byte(md)
	doc := plainParser.Parser().Parse(text.NewReader(src))

	var buf bytes.Buffer
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				buf.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Text:
			buf.Write(n.Segment.Value(src))
			if n.SoftLineBreak() || n.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(n.Value)
		case *ast.AutoLink:
			buf.Write(n.Label(src))
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				buf.Write(seg.Value(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.RawHTML, *ast.HTMLBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(buf.String()), " ")
}
