package search

import (
	"context"
	"log"
	"sync"

	"folio/api/internal/content"
)

type index interface {
	Searcher
	Upsert(ResultType, []Document) error
	Remove(ResultType, string) error
}

// Service is the facade that tries Meilisearch first and falls back to SQL.
type Service struct {
	meili    index
	fallback Searcher

	mu      sync.Mutex
	indexed map[ResultType]map[string]struct{}

	// Reindexing runs on one goroutine at a time. pending keeps only the
	// newest table per kind; queue keeps the kinds in arrival order.
	queueMu  sync.Mutex
	pending  map[content.Kind][]content.Record
	queue    []content.Kind
	draining bool
	drained  sync.WaitGroup
}

// NewService creates a search service. meili may be nil if Meilisearch is not configured.
func NewService(meili *Meili, fallback Searcher) *Service {
	s := &Service{fallback: fallback, indexed: make(map[ResultType]map[string]struct{})}
	if meili != nil {
		s.meili = meili
	}
	return s
}

// Search tries Meilisearch if healthy, otherwise falls back to SQL.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to sql: %v", err)
	}

	if s.fallback == nil {
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	results, total, err := s.fallback.Search(q)
	if err != nil {
		log.Printf("search: sql error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// ContentChanged queues a reindex of the table after a confirmed change and
// returns at once. Tables are indexed in the order they arrive, and a table
// still waiting is replaced by the newer one.
func (s *Service) ContentChanged(_ context.Context, kind content.Kind, records []content.Record) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	if _, ok := ResultTypeFor(kind); !ok {
		return
	}

	s.queueMu.Lock()
	defer s.queueMu.Unlock()
	if s.pending == nil {
		s.pending = make(map[content.Kind][]content.Record)
	}
	if _, waiting := s.pending[kind]; !waiting {
		s.queue = append(s.queue, kind)
	}
	s.pending[kind] = records
	if !s.draining {
		s.draining = true
		s.drained.Add(1)
		go s.drain()
	}
}

func (s *Service) drain() {
	defer s.drained.Done()
	for {
		s.queueMu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.queueMu.Unlock()
			return
		}
		kind := s.queue[0]
		s.queue = s.queue[1:]
		records := s.pending[kind]
		delete(s.pending, kind)
		s.queueMu.Unlock()

		if err := s.Reindex(kind, records); err != nil {
			log.Printf("search: reindex %s: %v", kind, err)
		}
	}
}

// Flush waits for queued reindexes to finish.
func (s *Service) Flush() {
	s.drained.Wait()
}

// Reindex makes the index for kind hold exactly records: every record is
// upserted and ids indexed earlier but now absent are removed.
func (s *Service) Reindex(kind content.Kind, records []content.Record) error {
	rtyp, ok := ResultTypeFor(kind)
	if !ok || s.meili == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	documents := make([]Document, 0, len(records))
	current := make(map[string]struct{}, len(records))
	for _, record := range records {
		document, ok := DocumentFor(record)
		if !ok {
			continue
		}
		documents = append(documents, document)
		current[document.ID] = struct{}{}
	}
	if err := s.meili.Upsert(rtyp, documents); err != nil {
		return err
	}
	for id := range s.indexed[rtyp] {
		if _, still := current[id]; still {
			continue
		}
		if err := s.meili.Remove(rtyp, id); err != nil {
			return err
		}
	}
	s.indexed[rtyp] = current
	return nil
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
