package extract

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var markdownParser = goldmark.New(
	goldmark.WithExtensions(extension.Table),
)

// extractMarkdown parses markdown and collects its textual content, dropping
// formatting syntax. Headings, paragraphs, list items and code blocks each
// end up on their own line so downstream chunking sees real boundaries.
func extractMarkdown(data []byte) (string, error) {
	reader := text.NewReader(data)
	doc := markdownParser.Parser().Parse(reader)

	var builder strings.Builder

	ensureNewline := func() {
		s := builder.String()
		if len(s) > 0 && !strings.HasSuffix(s, "\n") {
			builder.WriteString("\n")
		}
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading, *ast.Paragraph, *ast.ListItem:
			ensureNewline()
			return ast.WalkContinue, nil

		case *ast.Text:
			segment := node.Segment
			builder.Write(segment.Value(data))
			if node.HardLineBreak() || node.SoftLineBreak() {
				builder.WriteString("\n")
			}
			return ast.WalkContinue, nil

		case *ast.String:
			builder.Write(node.Value)
			return ast.WalkContinue, nil

		case *ast.CodeBlock:
			ensureNewline()
			writeCodeLines(&builder, node, data)
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock:
			ensureNewline()
			writeCodeLines(&builder, node, data)
			return ast.WalkSkipChildren, nil
		}

		// Table rows from the table extension carry their cell text in
		// child Text nodes; separate rows with newlines.
		kindName := n.Kind().String()
		if kindName == "TableRow" || kindName == "TableHeader" {
			ensureNewline()
		}
		return ast.WalkContinue, nil
	})

	return builder.String(), nil
}

type linedNode interface {
	Lines() *text.Segments
}

func writeCodeLines(builder *strings.Builder, block linedNode, data []byte) {
	lines := block.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		builder.Write(line.Value(data))
	}
}
