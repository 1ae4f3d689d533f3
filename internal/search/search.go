package search

// MinQueryLength is the minimum number of characters before a title
// search runs; shorter queries return everything unfiltered.
const MinQueryLength = 3

// BlogRecord is the data we index per published blog.
type BlogRecord struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	AuthorName string `json:"authorName"`
	Excerpt    string `json:"excerpt"`
}

// Result is a single search hit returned to the caller.
type Result struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	AuthorName string `json:"authorName"`
	Excerpt    string `json:"excerpt"`
}

// Query describes a search request.
type Query struct {
	Text  string
	Limit int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a blog title search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}
