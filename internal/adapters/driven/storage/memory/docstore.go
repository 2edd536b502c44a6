package memory

import (
	"context"
	"time"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	store *Store
}

// SaveDocument stores or updates a document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" || doc.UserID == "" {
		return domain.ErrInvalidInput
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if existing, ok := s.store.documents[doc.ID]; ok {
		updated := *doc
		updated.UserID = existing.doc.UserID
		updated.CreatedAt = existing.doc.CreatedAt
		s.store.documents[doc.ID] = documentRow{doc: updated, seq: existing.seq}
		return nil
	}
	s.store.documents[doc.ID] = documentRow{doc: *doc, seq: s.store.next()}
	return nil
}

// GetDocument retrieves a user's document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, userID, id string) (*domain.Document, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	row, ok := s.store.documents[id]
	if !ok || row.doc.UserID != userID {
		return nil, domain.ErrNotFound
	}
	doc := row.doc
	return &doc, nil
}

// ListDocuments returns a user's documents, oldest first.
func (s *DocumentStore) ListDocuments(_ context.Context, userID string) ([]domain.Document, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	var rows []documentRow
	for _, row := range s.store.documents {
		if row.doc.UserID == userID {
			rows = append(rows, row)
		}
	}
	sortDocuments(rows)

	var result []domain.Document
	for _, row := range rows {
		result = append(result, row.doc)
	}
	return result, nil
}

// DeleteDocument removes a document and its chunks and jobs.
func (s *DocumentStore) DeleteDocument(_ context.Context, userID, id string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	if !s.store.ownedBy(id, userID) {
		return domain.ErrNotFound
	}
	s.store.deleteDocument(id)
	return nil
}

// GetChunks retrieves all chunks for a document ordered by index.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	chunks, ok := s.store.chunks[documentID]
	if !ok {
		return nil, nil
	}
	return append([]domain.Chunk(nil), chunks...), nil
}

// GetChunksByIDs retrieves chunks by ID, restricted to documents owned by userID.
func (s *DocumentStore) GetChunksByIDs(_ context.Context, userID string, ids []string) ([]domain.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	var result []domain.Chunk
	for docID, chunks := range s.store.chunks {
		if !s.store.ownedBy(docID, userID) {
			continue
		}
		for _, c := range chunks {
			if _, ok := wanted[c.ID]; ok {
				result = append(result, c)
			}
		}
	}
	return result, nil
}
