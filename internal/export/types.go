// Package export renders published articles to PDF and DOCX.
package export

import (
	"errors"
	"time"
)

// Format represents the export output format
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// Article is the assembled content handed to the exporter.
type Article struct {
	ID          string
	Title       string
	AuthorName  string
	CoverImage  string
	ContentHTML string
	PublishedAt time.Time
	Comments    []ArticleComment
}

// ArticleComment is a top-level comment with its replies, included
// when the caller asks for the discussion section.
type ArticleComment struct {
	AuthorName string
	Content    string
	CreatedAt  time.Time
	Replies    []ArticleComment
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
