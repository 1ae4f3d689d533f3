package export

import (
	"bytes"
	"html/template"
	"time"
)

var articleTemplate = template.Must(template.New("article").Funcs(template.FuncMap{
	"formatDate": func(t time.Time) string {
		return t.Format("Jan 2, 2006")
	},
	"safeHTML": func(s string) template.HTML {
		return template.HTML(s)
	},
}).Parse(articleTemplateHTML))

// RenderArticleHTML renders the printable article page.
func RenderArticleHTML(article Article, includeComments bool) (string, error) {
	data := struct {
		Article
		IncludeComments bool
	}{Article: article, IncludeComments: includeComments}

	var buf bytes.Buffer
	if err := articleTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const articleTemplateHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Georgia, serif; line-height: 1.7; max-width: 800px; margin: 2rem auto; color: #222; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .cover { max-width: 100%; margin-bottom: 1.5rem; }
    .comment { background: #f5f5f5; padding: 1rem; margin: 1rem 0; border-left: 3px solid #333; }
    .reply { margin-left: 2rem; background: #fafafa; }
    .comment-meta { color: #666; font-size: 0.85em; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="meta">By {{.AuthorName}} | {{formatDate .PublishedAt}}</div>
  {{if .CoverImage}}<img class="cover" src="{{.CoverImage}}" alt="">{{end}}
  <div>{{safeHTML .ContentHTML}}</div>
  {{if and .IncludeComments .Comments}}
  <h2>Discussion</h2>
  {{range .Comments}}
  <div class="comment">
    <div class="comment-meta">{{.AuthorName}} | {{formatDate .CreatedAt}}</div>
    <p>{{.Content}}</p>
    {{range .Replies}}
    <div class="comment reply">
      <div class="comment-meta">{{.AuthorName}} | {{formatDate .CreatedAt}}</div>
      <p>{{.Content}}</p>
    </div>
    {{end}}
  </div>
  {{end}}
  {{end}}
</body>
</html>`
