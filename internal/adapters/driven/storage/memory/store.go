// Package memory provides in-memory implementations of the storage ports.
// They share state the same way the SQLite store does, so chunk
// replacement, cascades and purges behave identically.
package memory

import (
	"sort"
	"sync"

	"github.com/custodia-labs/astraqa-kb/internal/core/domain"
	"github.com/custodia-labs/astraqa-kb/internal/core/ports/driven"
)

// Store holds every table behind one lock.
type Store struct {
	mu        sync.RWMutex
	seq       int64
	documents map[string]documentRow
	chunks    map[string][]domain.Chunk
	builds    map[string]buildRow
	jobs      map[string]jobRow
	status    map[string]domain.KnowledgeBaseStatus
}

// documentRow, buildRow and jobRow carry an insertion sequence used as a
// tiebreaker, like SQLite's rowid.
type documentRow struct {
	doc domain.Document
	seq int64
}

type buildRow struct {
	build domain.Build
	seq   int64
}

type jobRow struct {
	job domain.Job
	seq int64
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		documents: make(map[string]documentRow),
		chunks:    make(map[string][]domain.Chunk),
		builds:    make(map[string]buildRow),
		jobs:      make(map[string]jobRow),
		status:    make(map[string]domain.KnowledgeBaseStatus),
	}
}

// DocumentStore returns a DocumentStore backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &DocumentStore{store: s}
}

// BuildStore returns a BuildStore backed by this store.
func (s *Store) BuildStore() driven.BuildStore {
	return &BuildStore{store: s}
}

// LexicalIndex returns a LexicalIndex backed by this store.
func (s *Store) LexicalIndex() driven.LexicalIndex {
	return &LexicalIndex{store: s}
}

// Close is a no-op.
func (s *Store) Close() error {
	return nil
}

// next returns the next insertion sequence (caller must hold lock).
func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

// deleteDocument removes a document with its chunks and jobs (caller must hold lock).
func (s *Store) deleteDocument(id string) {
	delete(s.documents, id)
	delete(s.chunks, id)
	for jobID, row := range s.jobs {
		if row.job.DocumentID == id {
			delete(s.jobs, jobID)
		}
	}
}

// ownedBy returns true if the document exists and belongs to userID
// (caller must hold lock).
func (s *Store) ownedBy(documentID, userID string) bool {
	row, ok := s.documents[documentID]
	return ok && row.doc.UserID == userID
}

func sortDocuments(rows []documentRow) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].doc.CreatedAt.Equal(rows[j].doc.CreatedAt) {
			return rows[i].doc.CreatedAt.Before(rows[j].doc.CreatedAt)
		}
		return rows[i].seq < rows[j].seq
	})
}
