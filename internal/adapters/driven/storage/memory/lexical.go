package memory

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
)

// Ensure LexicalIndex implements the interface.
var _ driven.LexicalIndex = (*LexicalIndex)(nil)

// LexicalIndex scores chunks by the number of distinct query terms they
// contain. Ties keep document then chunk order.
type LexicalIndex struct {
	store *Store
}

// Search returns up to limit of the user's chunks containing any query term.
func (l *LexicalIndex) Search(_ context.Context, userID, query string, limit int) ([]domain.RetrievedChunk, error) {
	terms := tokenize(query)
	results := []domain.RetrievedChunk{}
	if len(terms) == 0 || limit <= 0 {
		return results, nil
	}

	l.store.mu.RLock()
	var docs []documentRow
	for _, row := range l.store.documents {
		if row.doc.UserID == userID {
			docs = append(docs, row)
		}
	}
	sortDocuments(docs)

	for _, row := range docs {
		for _, c := range l.store.chunks[row.doc.ID] {
			score := 0
			for w := range tokenize(c.Text) {
				if _, ok := terms[w]; ok {
					score++
				}
			}
			if score == 0 {
				continue
			}
			results = append(results, domain.RetrievedChunk{
				ChunkID:    c.ID,
				DocumentID: c.DocumentID,
				Score:      float64(score),
				Text:       c.Text,
			})
		}
	}
	l.store.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func tokenize(text string) map[string]struct{} {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
