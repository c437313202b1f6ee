package session

import (
	"sync"
	"testing"
	"time"

	"github.com/54b3r/ragviz/internal/rag"
)

func Test_State_ZeroValueEmpty(t *testing.T) {
	t.Parallel()
	var s State

	if _, ok := s.Collection(); ok {
		t.Error("zero-value state should have no collection")
	}
	if _, ok := s.Query(); ok {
		t.Error("zero-value state should have no query")
	}
}

func Test_State_SetCollectionClearsQuery(t *testing.T) {
	t.Parallel()
	var s State

	s.SetCollection(Collection{Backend: "local", Dimensions: 384, Count: 3})
	s.SetQuery(Query{Text: "q", Results: []rag.Result{{Chunk: rag.Chunk{ID: "chunk-0"}}}, At: time.Now()})

	if _, ok := s.Query(); !ok {
		t.Fatal("query should be set")
	}

	s.SetCollection(Collection{Backend: "cloud", Dimensions: 1536, Count: 5})

	if _, ok := s.Query(); ok {
		t.Error("reindexing should clear the stale query")
	}
	c, ok := s.Collection()
	if !ok || c.Backend != "cloud" || c.Dimensions != 1536 {
		t.Errorf("collection not replaced: %+v", c)
	}
}

func Test_State_Reset(t *testing.T) {
	t.Parallel()
	var s State

	s.SetCollection(Collection{Count: 1})
	s.SetQuery(Query{Text: "q"})
	s.Reset()

	if _, ok := s.Collection(); ok {
		t.Error("reset should clear the collection")
	}
	if _, ok := s.Query(); ok {
		t.Error("reset should clear the query")
	}
}

func Test_State_ReturnsCopies(t *testing.T) {
	t.Parallel()
	var s State

	s.SetCollection(Collection{Count: 1})
	c, _ := s.Collection()
	c.Count = 99

	again, _ := s.Collection()
	if again.Count != 1 {
		t.Errorf("mutating the returned copy leaked into state: %d", again.Count)
	}
}

func Test_State_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	var s State
	var wg sync.WaitGroup

	for i := range 8 {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			s.SetCollection(Collection{Count: n})
		}(i)
		go func() {
			defer wg.Done()
			s.Collection()
			s.Query()
		}()
	}
	wg.Wait()

	if _, ok := s.Collection(); !ok {
		t.Error("expected a collection after concurrent writes")
	}
}
