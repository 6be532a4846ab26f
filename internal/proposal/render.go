package proposal

import (
	"fmt"
	"html"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/terra-clan/projecthub/internal/models"
)

// sections holds the Markdown source of each printable block
type sections struct {
	title      string
	student    string
	topics     []string
	signatures [2]string
}

func build(doc *models.ProposalDocument) sections {
	var s sections

	s.title = fmt.Sprintf("# %s\n\n%s\n", escape(doc.Title), escape(doc.Subtitle))

	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", escape(StudentHeading))
	for i, row := range doc.Student {
		fmt.Fprintf(&b, "| **%s** | %s |\n", escape(row.Label), escape(row.Value))
		if i == 0 {
			b.WriteString("|---|---|\n")
		}
	}
	s.student = b.String()

	for _, e := range doc.Topics {
		s.topics = append(s.topics, fmt.Sprintf("### %d. %s\n\n**%s** %s\n\n**%s** %s\n",
			e.Number, escape(e.Title),
			escape(LabelDescription), escape(e.Description),
			escape(LabelTechnology), escape(e.Technologies),
		))
	}

	for i, sig := range doc.Signatures {
		s.signatures[i] = fmt.Sprintf("%s\n**%s**\nDate: %s\n",
			escape(SignatureLine), escape(sig.Caption), escape(sig.Date))
	}

	return s
}

// ToMarkdown renders the document as Markdown
func ToMarkdown(doc *models.ProposalDocument) string {
	s := build(doc)

	parts := []string{s.title, s.student, fmt.Sprintf("## %s\n", escape(TopicsHeading))}
	parts = append(parts, s.topics...)
	parts = append(parts, s.signatures[0], s.signatures[1])
	return strings.Join(parts, "\n")
}

// ToPrintableMarkup renders a standalone HTML page for the browser print
// dialog. Each topic is kept on one page where possible.
func ToPrintableMarkup(doc *models.ProposalDocument, studentName string) string {
	s := build(doc)

	if studentName == "" {
		studentName = "Student"
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>Project Proposal - %s</title>\n", html.EscapeString(studentName))
	b.WriteString(printCSS)
	b.WriteString("</head>\n<body>\n<div class=\"printable-proposal\">\n")

	fmt.Fprintf(&b, "<div class=\"proposal-title\">\n%s</div>\n", render(s.title))
	fmt.Fprintf(&b, "<div class=\"student-info\">\n%s</div>\n", render(s.student))

	b.WriteString("<div class=\"topics-section\">\n")
	b.WriteString(render(fmt.Sprintf("## %s\n", escape(TopicsHeading))))
	for _, t := range s.topics {
		fmt.Fprintf(&b, "<div class=\"topic-item\">\n%s</div>\n", render(t))
	}
	b.WriteString("</div>\n")

	b.WriteString("<div class=\"signature-section\">\n")
	for _, sig := range s.signatures {
		fmt.Fprintf(&b, "<div class=\"signature-block\">\n%s</div>\n", render(sig))
	}
	b.WriteString("</div>\n")

	b.WriteString("</div>\n</body>\n</html>\n")
	return b.String()
}

func render(md string) string {
	p := parser.NewWithExtensions(parser.Tables | parser.HardLineBreak | parser.NoIntraEmphasis)
	r := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.SkipHTML})
	return string(markdown.ToHTML([]byte(md), p, r))
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	`*`, `\*`,
	`_`, `\_`,
	`{`, `\{`,
	`}`, `\}`,
	`[`, `\[`,
	`]`, `\]`,
	`<`, `\<`,
	`>`, `\>`,
	`#`, `\#`,
	`|`, `\|`,
	`&`, `\&`,
	`~`, `\~`,
	`$`, `\$`,
)

// escape makes user text literal in Markdown; line breaks become spaces so
// free text cannot start new blocks
func escape(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return mdEscaper.Replace(s)
}

const printCSS = `<style>
@page { size: A4; margin: 1in; }
body { font-family: 'Times New Roman', Times, serif; margin: 0; padding: 0; color: #000; line-height: 1.6; }
.proposal-title { text-align: center; margin-bottom: 40px; }
.proposal-title h1 { font-size: 15px; font-weight: bold; text-decoration: underline; margin: 0 0 10px 0; }
.proposal-title p { font-size: 10px; margin: 5px 0; color: #333; }
.student-info h2, .topics-section h2 { font-size: 12px; border-bottom: 2px solid #000; padding-bottom: 5px; margin: 0 0 15px 0; }
.student-info table { width: 100%; border-collapse: collapse; margin-bottom: 30px; }
.student-info th, .student-info td { text-align: left; font-weight: normal; padding: 4px 8px; }
.topic-item { page-break-inside: avoid; margin-bottom: 20px; }
.topic-item h3 { font-size: 12px; margin: 0 0 8px 0; }
.signature-section { display: flex; justify-content: space-between; margin-top: 60px; page-break-inside: avoid; }
.signature-block { width: 45%; text-align: center; }
</style>
`
