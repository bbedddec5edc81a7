package report

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/conformadev/conforma/internal/analysis"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

const pageTemplate = `<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; max-width: 860px; margin: 2rem auto; padding: 0 1rem; color: #1f2328; line-height: 1.6; }
h1 { border-bottom: 2px solid #d0d7de; padding-bottom: .4rem; }
h2 { border-bottom: 1px solid #d0d7de; padding-bottom: .3rem; margin-top: 2rem; }
blockquote { border-left: 4px solid #d0d7de; margin: 0; padding: .2rem 1rem; color: #57606a; background: #f6f8fa; }
code { background: #f6f8fa; padding: .1rem .3rem; border-radius: 4px; }
.badge { display: inline-block; padding: .2rem .6rem; border-radius: 1rem; font-size: .85rem; font-weight: 600; color: #fff; }
.risco-baixo { background: #1a7f37; }
.risco-medio { background: #bf8700; }
.risco-alto { background: #bc4c00; }
.risco-critico { background: #cf222e; }
</style>
</head>
<body>
<p><span class="badge risco-{{.Risk}}">Risco {{.Risk}}</span></p>
{{.Body}}
</body>
</html>
`

var page = template.Must(template.New("report").Parse(pageTemplate))

// HTML renders the markdown report as a self-contained HTML page.
func HTML(result *analysis.Result, docType analysis.DocumentType) ([]byte, error) {
	var body bytes.Buffer
	if err := md.Convert([]byte(Markdown(result, docType)), &body); err != nil {
		return nil, fmt.Errorf("rendering report markdown: %w", err)
	}

	var out bytes.Buffer
	err := page.Execute(&out, struct {
		Title string
		Risk  string
		Body  template.HTML
	}{
		Title: "Relatório de Conformidade — " + docTypeLabel(docType),
		Risk:  string(result.RiskLevel),
		Body:  template.HTML(body.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("rendering report page: %w", err)
	}
	return out.Bytes(), nil
}
