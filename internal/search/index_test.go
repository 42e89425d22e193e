package search

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/recollect/recollect/internal/domain/meeting"
)

// memoryStore is an in-memory PostingStore for index tests. Summaries
// all belong to one implicit owner.
type memoryStore struct {
	postings  map[string][]Posting
	createdAt map[string]time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		postings:  make(map[string][]Posting),
		createdAt: make(map[string]time.Time),
	}
}

func (s *memoryStore) Replace(_ context.Context, summaryID string, postings []Posting) error {
	s.postings[summaryID] = postings
	if _, ok := s.createdAt[summaryID]; !ok {
		s.createdAt[summaryID] = time.Now()
	}
	return nil
}

func (s *memoryStore) Delete(_ context.Context, summaryID string) error {
	delete(s.postings, summaryID)
	return nil
}

func (s *memoryStore) Lookup(_ context.Context, _ string, tokens []string) (map[string][]Hit, error) {
	hits := make(map[string][]Hit)
	for _, token := range tokens {
		for summaryID, postings := range s.postings {
			for _, p := range postings {
				if p.Token == token {
					hits[token] = append(hits[token], Hit{
						SummaryID: summaryID,
						Field:     p.Field,
						Frequency: p.Frequency,
						CreatedAt: s.createdAt[summaryID],
					})
				}
			}
		}
	}
	return hits, nil
}

func (s *memoryStore) count(summaryID string) int {
	return len(s.postings[summaryID])
}

func newTestIndex(t *testing.T) (*Index, *memoryStore) {
	t.Helper()
	store := newMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewIndex(store, logger), store
}

func summaryFixture(id, title, content string, tags ...string) *meeting.Summary {
	return &meeting.Summary{
		ID:        id,
		MeetingID: "meeting-" + id,
		Title:     title,
		Content:   content,
		Tags:      tags,
	}
}

func TestExtractPostings(t *testing.T) {
	postings := ExtractPostings(summaryFixture("s1",
		"Greeting", "hello world hello", "quarterly review"))

	byKey := make(map[string]int)
	for _, p := range postings {
		byKey[p.Token+"/"+string(p.Field)] = p.Frequency
	}

	require.Equal(t, 1, byKey["greeting/title"])
	require.Equal(t, 2, byKey["hello/content"])
	require.Equal(t, 1, byKey["world/content"])
	require.Equal(t, 1, byKey["quarterly review/tag"], "tag indexed as whole phrase")
	require.Equal(t, 1, byKey["quarterly/tag"])
	require.Equal(t, 1, byKey["review/tag"])
}

func TestIndexRemoveRoundTrip(t *testing.T) {
	ix, store := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Index(ctx, summaryFixture("s1", "Greeting", "hello world", "greeting")))
	require.Positive(t, store.count("s1"))

	require.NoError(t, ix.Remove(ctx, "s1"))
	require.Zero(t, store.count("s1"), "remove leaves no postings behind")
}

func TestReindexReplaces(t *testing.T) {
	ix, store := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Index(ctx, summaryFixture("s1", "Old Title", "old words here")))
	require.NoError(t, ix.Index(ctx, summaryFixture("s1", "New Title", "fresh words")))

	for _, p := range store.postings["s1"] {
		require.NotEqual(t, "old", p.Token, "stale tokens must not survive a re-index")
	}

	results, err := ix.Search(ctx, "u1", "old", 10)
	require.NoError(t, err)
	require.Empty(t, results)

	results, err = ix.Search(ctx, "u1", "fresh", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestSearchScoring(t *testing.T) {
	ix, _ := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Index(ctx, summaryFixture("title-hit", "standup notes", "misc")))
	require.NoError(t, ix.Index(ctx, summaryFixture("tag-hit", "other", "misc", "standup")))
	require.NoError(t, ix.Index(ctx, summaryFixture("content-hit", "other", "daily standup recap")))
	require.NoError(t, ix.Index(ctx, summaryFixture("no-hit", "unrelated", "nothing matches")))

	results, err := ix.Search(ctx, "u1", "standup", 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.Equal(t, "title-hit", results[0].SummaryID)
	require.Equal(t, "tag-hit", results[1].SummaryID)
	require.Equal(t, "content-hit", results[2].SummaryID)

	require.InDelta(t, 1.0, results[0].Score, 1e-9, "all-title match scores 1.0")
	require.InDelta(t, 2.0/3.0, results[1].Score, 1e-9)
	require.InDelta(t, 1.0/3.0, results[2].Score, 1e-9)
}

func TestSearchMultiTokenQuery(t *testing.T) {
	ix, _ := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Index(ctx, summaryFixture("both", "budget planning", "numbers")))
	require.NoError(t, ix.Index(ctx, summaryFixture("one", "budget", "no second token")))

	results, err := ix.Search(ctx, "u1", "Budget Planning!", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "both", results[0].SummaryID)
	require.InDelta(t, 1.0, results[0].Score, 1e-9)
	require.InDelta(t, 0.5, results[1].Score, 1e-9, "one of two tokens matched in title")
}

func TestSearchTieBreakByRecency(t *testing.T) {
	ix, store := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, ix.Index(ctx, summaryFixture("older", "same words", "x")))
	require.NoError(t, ix.Index(ctx, summaryFixture("newer", "same words", "x")))
	store.createdAt["older"] = time.Now().Add(-time.Hour)
	store.createdAt["newer"] = time.Now()

	results, err := ix.Search(ctx, "u1", "same", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "newer", results[0].SummaryID)
}

func TestSearchNoMatchesAndLimit(t *testing.T) {
	ix, _ := newTestIndex(t)
	ctx := context.Background()

	results, err := ix.Search(ctx, "u1", "anything", 10)
	require.NoError(t, err)
	require.Empty(t, results, "no postings is an empty result, not an error")

	results, err = ix.Search(ctx, "u1", "...", 10)
	require.NoError(t, err)
	require.Empty(t, results, "query with no tokens")

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, ix.Index(ctx, summaryFixture(id, "common term", "x")))
	}
	results, err = ix.Search(ctx, "u1", "common", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
}
