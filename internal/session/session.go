// Package session holds the mutable pipeline state shared across API
// handlers: what collection is currently indexed and what the last query
// retrieved. The graph, projection, and generate endpoints all read this
// state rather than re-running earlier stages.
package session

import (
	"sync"
	"time"

	"github.com/54b3r/ragviz/internal/rag"
)

// Collection describes the currently indexed document set.
type Collection struct {
	// Backend and Model identify the embedder that produced the vectors.
	Backend string `json:"backend"`
	Model   string `json:"model"`

	// Dimensions is the embedding width of every stored vector.
	Dimensions int `json:"dimensions"`

	// ChunkSize and ChunkOverlap are the chunking parameters used.
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`

	// Count is the number of chunks indexed.
	Count int `json:"count"`

	// IndexedAt is when indexing completed.
	IndexedAt time.Time `json:"indexed_at"`
}

// Query captures the most recent retrieval: the question, its embedding, and
// the ranked results.
type Query struct {
	// Text is the query string.
	Text string `json:"text"`

	// Vector is the query embedding.
	Vector []float32 `json:"-"`

	// Results are the ranked retrieval results.
	Results []rag.Result `json:"results"`

	// At is when the retrieval ran.
	At time.Time `json:"at"`
}

// State is the shared session state. The zero value is ready to use. Safe
// for concurrent use.
type State struct {
	mu         sync.RWMutex
	collection *Collection
	query      *Query
}

// SetCollection records a completed indexing run, replacing any previous
// collection and clearing the last query, whose results refer to chunks that
// no longer exist.
func (s *State) SetCollection(c Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collection = &c
	s.query = nil
}

// Collection returns the current collection metadata, or false if nothing
// has been indexed.
func (s *State) Collection() (Collection, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.collection == nil {
		return Collection{}, false
	}
	return *s.collection, true
}

// SetQuery records the most recent retrieval.
func (s *State) SetQuery(q Query) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = &q
}

// Query returns the most recent retrieval, or false if none has run since
// the last (re)index.
func (s *State) Query() (Query, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.query == nil {
		return Query{}, false
	}
	return *s.query, true
}

// Reset clears all session state.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collection = nil
	s.query = nil
}
