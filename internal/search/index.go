package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/recollect/recollect/internal/domain/meeting"
)

// Field identifies which part of a summary a posting was extracted from.
type Field string

const (
	FieldTitle   Field = "title"
	FieldTag     Field = "tag"
	FieldContent Field = "content"
)

// Weight returns the relevance weight of a field match.
func (f Field) Weight() float64 {
	switch f {
	case FieldTitle:
		return 3
	case FieldTag:
		return 2
	default:
		return 1
	}
}

// maxFieldWeight is the best possible per-token contribution, used to
// normalize scores into [0, 1].
const maxFieldWeight = 3.0

// Posting is one (token, field, frequency) entry extracted from a summary.
type Posting struct {
	Token     string
	Field     Field
	Frequency int
}

// Hit is a stored posting joined with the summary it belongs to.
type Hit struct {
	SummaryID string
	Field     Field
	Frequency int
	CreatedAt time.Time
}

// PostingStore persists inverted-index postings. The index is derived
// state: it is rebuilt from summary rows and is never the source of truth.
type PostingStore interface {
	Replace(ctx context.Context, summaryID string, postings []Posting) error
	Delete(ctx context.Context, summaryID string) error
	Lookup(ctx context.Context, ownerID string, tokens []string) (map[string][]Hit, error)
}

// Index provides ranked free-text retrieval over summary title, content
// and tags.
type Index struct {
	store  PostingStore
	logger *slog.Logger
}

// NewIndex creates a search index over the given posting store.
func NewIndex(store PostingStore, logger *slog.Logger) *Index {
	return &Index{store: store, logger: logger}
}

// Index tokenizes a summary and replaces its postings. Re-indexing the
// same summary removes prior postings first, so term counts never
// accumulate across versions.
func (ix *Index) Index(ctx context.Context, s *meeting.Summary) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("index: summary without id")
	}
	postings := ExtractPostings(s)
	if err := ix.store.Replace(ctx, s.ID, postings); err != nil {
		return fmt.Errorf("replacing postings: %w", err)
	}
	ix.logger.Debug("indexed summary", "summary_id", s.ID, "postings", len(postings))
	return nil
}

// Remove deletes all postings referencing the summary.
func (ix *Index) Remove(ctx context.Context, summaryID string) error {
	if err := ix.store.Delete(ctx, summaryID); err != nil {
		return fmt.Errorf("deleting postings: %w", err)
	}
	return nil
}

// Search tokenizes the query and ranks candidate summaries. Each query
// token contributes the weight of the best field it matched (title 3,
// tag 2, content 1); the sum is normalized by the maximum possible score
// for the query, so an all-title match scores 1.0. Ties are broken by
// most recent summary. An unmatched query yields an empty result, not
// an error.
func (ix *Index) Search(ctx context.Context, ownerID, query string, limit int) ([]meeting.ScoredRef, error) {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	hits, err := ix.store.Lookup(ctx, ownerID, tokens)
	if err != nil {
		return nil, fmt.Errorf("looking up postings: %w", err)
	}

	scores := make(map[string]float64)
	createdAt := make(map[string]time.Time)
	for _, token := range tokens {
		best := make(map[string]float64)
		for _, hit := range hits[token] {
			if w := hit.Field.Weight(); w > best[hit.SummaryID] {
				best[hit.SummaryID] = w
			}
			createdAt[hit.SummaryID] = hit.CreatedAt
		}
		for id, w := range best {
			scores[id] += w
		}
	}

	maxScore := maxFieldWeight * float64(len(tokens))
	results := make([]meeting.ScoredRef, 0, len(scores))
	for id, score := range scores {
		results = append(results, meeting.ScoredRef{
			SummaryID: id,
			Score:     score / maxScore,
			CreatedAt: createdAt[id],
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.After(results[j].CreatedAt)
		}
		return results[i].SummaryID < results[j].SummaryID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// ExtractPostings flattens a summary into term-frequency postings for
// title, content, and tags. Tags index both as whole-phrase tokens and
// as their word tokens.
func ExtractPostings(s *meeting.Summary) []Posting {
	type key struct {
		token string
		field Field
	}
	counts := make(map[key]int)

	for _, token := range Tokenize(s.Title) {
		counts[key{token, FieldTitle}]++
	}
	for _, token := range Tokenize(s.Content) {
		counts[key{token, FieldContent}]++
	}
	for _, tag := range s.Tags {
		for _, token := range TokenizeTag(tag) {
			counts[key{token, FieldTag}]++
		}
	}

	postings := make([]Posting, 0, len(counts))
	for k, freq := range counts {
		postings = append(postings, Posting{Token: k.token, Field: k.field, Frequency: freq})
	}
	sort.Slice(postings, func(i, j int) bool {
		if postings[i].Token != postings[j].Token {
			return postings[i].Token < postings[j].Token
		}
		return postings[i].Field < postings[j].Field
	})
	return postings
}
