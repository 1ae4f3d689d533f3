package export

import "fmt"

// Service renders assembled articles into downloadable documents.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Export renders the article and converts it to the requested format.
func (s *Service) Export(article Article, format Format, includeComments bool) (*Result, error) {
	html, err := RenderArticleHTML(article, includeComments)
	if err != nil {
		return nil, fmt.Errorf("render article: %w", err)
	}

	switch format {
	case FormatPDF:
		return exportPDF(html, article.Title)
	case FormatDOCX:
		return exportDOCX(html, article.Title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
