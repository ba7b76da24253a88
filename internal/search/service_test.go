package search

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"

	"folio/api/internal/content"
)

type fakeIndex struct {
	healthy   bool
	searchErr error
	results   []Result
	docs      map[ResultType]map[string]Document
	removed   []string
	upserts   int
	// hold, when set, blocks the first Upsert until it is closed; entered is
	// closed once that Upsert starts.
	hold    chan struct{}
	entered chan struct{}
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{healthy: true, docs: map[ResultType]map[string]Document{}}
}

func (f *fakeIndex) Healthy() bool { return f.healthy }
func (f *fakeIndex) Search(Query) ([]Result, int, error) {
	if f.searchErr != nil {
		return nil, 0, f.searchErr
	}
	return f.results, len(f.results), nil
}
func (f *fakeIndex) Upsert(rtyp ResultType, documents []Document) error {
	if f.upserts == 0 && f.hold != nil {
		close(f.entered)
		<-f.hold
	}
	f.upserts++
	if f.docs[rtyp] == nil {
		f.docs[rtyp] = map[string]Document{}
	}
	for _, document := range documents {
		f.docs[rtyp][document.ID] = document
	}
	return nil
}
func (f *fakeIndex) Remove(rtyp ResultType, id string) error {
	delete(f.docs[rtyp], id)
	f.removed = append(f.removed, id)
	return nil
}

type fakeSearcher struct {
	results []Result
	calls   int
}

func (f *fakeSearcher) Healthy() bool { return true }
func (f *fakeSearcher) Search(Query) ([]Result, int, error) {
	f.calls++
	return f.results, len(f.results), nil
}

func TestSearchFallsBackWhenMeiliFails(t *testing.T) {
	index := newFakeIndex()
	index.searchErr = errors.New("down")
	fallback := &fakeSearcher{results: []Result{{Type: ResultProject, ID: "p1"}}}
	svc := &Service{meili: index, fallback: fallback, indexed: map[ResultType]map[string]struct{}{}}

	resp := svc.Search(Query{Text: "chat"})
	if fallback.calls != 1 {
		t.Fatalf("expected fallback to be used once, got %d", fallback.calls)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != "p1" || resp.Query != "chat" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestSearchWithoutBackendsReturnsEmptyList(t *testing.T) {
	svc := NewService(nil, nil)
	resp := svc.Search(Query{Text: "x"})
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Fatalf("expected empty non-nil results, got %#v", resp.Results)
	}
}

func TestReindexRemovesDroppedRecords(t *testing.T) {
	index := newFakeIndex()
	svc := &Service{meili: index, indexed: map[ResultType]map[string]struct{}{}}

	first := []content.Record{
		content.Project{ID: "p1", Title: "One"},
		content.Project{ID: "p2", Title: "Two"},
	}
	if err := svc.Reindex(content.KindProjects, first); err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if err := svc.Reindex(content.KindProjects, first[:1]); err != nil {
		t.Fatalf("reindex: %v", err)
	}

	ids := make([]string, 0)
	for id := range index.docs[ResultProject] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) != 1 || ids[0] != "p1" {
		t.Fatalf("expected only p1 indexed, got %v", ids)
	}
	if len(index.removed) != 1 || index.removed[0] != "p2" {
		t.Fatalf("expected p2 removal, got %v", index.removed)
	}
}

func TestReindexSkipsUnsearchableKinds(t *testing.T) {
	index := newFakeIndex()
	svc := &Service{meili: index, indexed: map[ResultType]map[string]struct{}{}}
	if err := svc.Reindex(content.KindSettings, []content.Record{content.Setting{ID: "s", Key: "k"}}); err != nil {
		t.Fatalf("reindex: %v", err)
	}
	if len(index.docs) != 0 {
		t.Fatalf("expected nothing indexed, got %v", index.docs)
	}
}

func projectRecords(ids ...string) []content.Record {
	records := make([]content.Record, 0, len(ids))
	for _, id := range ids {
		records = append(records, content.Project{ID: id, Title: "Project " + id})
	}
	return records
}

func indexedIDs(index *fakeIndex, rtyp ResultType) []string {
	ids := make([]string, 0, len(index.docs[rtyp]))
	for id := range index.docs[rtyp] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func TestContentChangedKeepsNewestTable(t *testing.T) {
	index := newFakeIndex()
	svc := &Service{meili: index, indexed: map[ResultType]map[string]struct{}{}}

	svc.ContentChanged(context.Background(), content.KindProjects, projectRecords("a"))
	svc.ContentChanged(context.Background(), content.KindProjects, projectRecords("a", "b"))
	svc.Flush()

	if got, want := indexedIDs(index, ResultProject), []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v indexed, got %v", want, got)
	}
	if len(index.removed) != 0 {
		t.Fatalf("expected no removals, got %v", index.removed)
	}
}

func TestContentChangedCoalescesWaitingTables(t *testing.T) {
	index := newFakeIndex()
	index.hold = make(chan struct{})
	index.entered = make(chan struct{})
	svc := &Service{meili: index, indexed: map[ResultType]map[string]struct{}{}}
	ctx := context.Background()

	svc.ContentChanged(ctx, content.KindProjects, projectRecords("a"))
	<-index.entered
	svc.ContentChanged(ctx, content.KindProjects, projectRecords("a", "b"))
	svc.ContentChanged(ctx, content.KindSkills, []content.Record{content.Skill{ID: "s1", Name: "Go", CategoryID: "c1"}})
	svc.ContentChanged(ctx, content.KindProjects, projectRecords("b", "c"))
	close(index.hold)
	svc.Flush()

	if got, want := indexedIDs(index, ResultProject), []string{"b", "c"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v indexed, got %v", want, got)
	}
	if got, want := indexedIDs(index, ResultSkill), []string{"s1"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v indexed, got %v", want, got)
	}
	if index.upserts != 3 {
		t.Fatalf("expected 3 upserts (first table, newest projects, skills), got %d", index.upserts)
	}
}
