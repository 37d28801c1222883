// Package query holds the search-optimized form of a user query.
package query

// MaxRewrittenLength caps the rewritten query in characters.
const MaxRewrittenLength = 200

// MaxSearchTerms caps the extracted search term set.
const MaxSearchTerms = 10

// Strategy is the transformation applied by the rewriter.
type Strategy string

// Rewrite strategies.
const (
	Direct      Strategy = "direct"
	Expanded    Strategy = "expanded"
	Contextual  Strategy = "contextual"
	Comparative Strategy = "comparative"
)

// RewrittenQuery is created once per query and consumed by the scorer and the cache.
type RewrittenQuery struct {
	Original    string   `json:"original"`
	Rewritten   string   `json:"rewritten"`
	SearchTerms []string `json:"search_terms"`
	Context     []string `json:"context"`
	Strategy    Strategy `json:"strategy"`
	Confidence  float64  `json:"confidence"`
	Reasoning   []string `json:"reasoning"`
}
