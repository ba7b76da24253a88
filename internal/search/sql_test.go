package search

import (
	"context"
	"path/filepath"
	"testing"

	"folio/api/internal/content"
	"folio/api/internal/store"
)

func newSQLSearcher(t *testing.T) (*SQL, *store.SQLStore) {
	t.Helper()
	ctx := context.Background()
	db, err := store.OpenSQLite(ctx, filepath.Join(t.TempDir(), "search.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.ApplyMigrations(ctx, db, store.SQLite); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return NewSQL(db, store.SQLite), store.NewSQLStore(db, store.SQLite)
}

func TestSQLSearchMatchesAcrossTables(t *testing.T) {
	searcher, s := newSQLSearcher(t)
	ctx := context.Background()

	if _, err := s.Insert(ctx, content.Project{Title: "Chat App", Description: "Realtime messaging", Technologies: []string{"Golang"}}); err != nil {
		t.Fatalf("insert project: %v", err)
	}
	if _, err := s.Insert(ctx, content.Experience{Title: "Developer", Company: "Acme", Skills: []string{"golang"}}); err != nil {
		t.Fatalf("insert experience: %v", err)
	}
	if _, err := s.Insert(ctx, content.Project{Title: "Library", Description: "Catalog search"}); err != nil {
		t.Fatalf("insert project: %v", err)
	}

	results, total, err := searcher.Search(Query{Text: "GOLANG"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 2 || len(results) != 2 {
		t.Fatalf("expected 2 matches, got total=%d results=%+v", total, results)
	}
	if results[0].Type != ResultExperience || results[1].Type != ResultProject {
		t.Fatalf("unexpected result order %+v", results)
	}

	results, total, err = searcher.Search(Query{Text: "golang", FilterType: ResultProject})
	if err != nil {
		t.Fatalf("filtered search: %v", err)
	}
	if total != 1 || results[0].Title != "Chat App" {
		t.Fatalf("expected only the project, got %+v", results)
	}
}

func TestSQLSearchIgnoresBlankAndWildcards(t *testing.T) {
	searcher, _ := newSQLSearcher(t)
	for _, text := range []string{"", "   ", "%", "_"} {
		results, total, err := searcher.Search(Query{Text: text})
		if err != nil || total != 0 || len(results) != 0 {
			t.Fatalf("query %q: expected no results, got %v %d %v", text, results, total, err)
		}
	}
}
