package sqlite

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
)

// lexicalIndex implements driven.LexicalIndex with SQLite FTS5.
type lexicalIndex struct {
	store *Store
}

var _ driven.LexicalIndex = (*lexicalIndex)(nil)

// Search ranks the user's chunks against query with bm25.
// Scores are negated so that higher is better.
func (l *lexicalIndex) Search(ctx context.Context, userID, query string, limit int) ([]domain.RetrievedChunk, error) {
	match := MatchExpression(query)
	if match == "" || limit <= 0 {
		return []domain.RetrievedChunk{}, nil
	}

	rows, err := l.store.db.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.text, -bm25(chunks_fts) AS score
		FROM chunks_fts
		JOIN chunks c ON c.id = chunks_fts.chunk_id
		JOIN documents d ON d.id = c.document_id
		WHERE chunks_fts MATCH ? AND d.user_id = ?
		ORDER BY score DESC
		LIMIT ?
	`, match, userID, limit)
	if err != nil {
		if isFTSQueryError(err) {
			return []domain.RetrievedChunk{}, nil
		}
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	defer rows.Close()

	results := []domain.RetrievedChunk{}
	for rows.Next() {
		var r domain.RetrievedChunk
		if err := rows.Scan(&r.ChunkID, &r.DocumentID, &r.Text, &r.Score); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// MatchExpression turns free text into an FTS5 query: alphanumeric terms,
// each quoted, joined with OR. Returns "" when the text has no terms.
func MatchExpression(query string) string {
	terms := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(terms) == 0 {
		return ""
	}

	seen := make(map[string]struct{}, len(terms))
	quoted := make([]string, 0, len(terms))
	for _, t := range terms {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		quoted = append(quoted, `"`+t+`"`)
	}
	return strings.Join(quoted, " OR ")
}

func isFTSQueryError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "fts5:") || strings.Contains(msg, "syntax error")
}
