// Package search provides backlog epic search: Meilisearch when available,
// PostgreSQL full-text search as the fallback.
package search

// Result is a single search hit returned to the caller.
type Result struct {
	EpicID  string `json:"epicId"`
	Name    string `json:"name"`
	Snippet string `json:"snippet"`
	ThemeID string `json:"themeId,omitempty"`
	Track   string `json:"track,omitempty"`
}

// Query describes a backlog search request, always scoped to one product.
type Query struct {
	Text      string
	ProductID string
	Limit     int
	Offset    int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// EpicRecord is the data we index for an epic.
type EpicRecord struct {
	ID          string `json:"id"` // productID and epicID joined; unique across products
	EpicID      string `json:"epicId"`
	ProductID   string `json:"productId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ThemeID     string `json:"themeId"`
	Track       string `json:"track"`
}

// Searcher can execute a backlog search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}
