// Package contentsync keeps an in-memory mirror of the portfolio content tables
// for one admin panel. The mirror only changes after the store confirms a
// write, so what the panel shows always matches durable state.
package contentsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"folio/api/internal/content"
)

// Store is the remote table store the synchronizer writes through.
type Store interface {
	List(ctx context.Context, kind content.Kind) ([]content.Record, error)
	Insert(ctx context.Context, record content.Record) (content.Record, error)
	Update(ctx context.Context, record content.Record) (content.Record, error)
	Delete(ctx context.Context, kind content.Kind, id string) error
	DeleteSkillsByCategory(ctx context.Context, categoryID string) (int64, error)
	UpsertSetting(ctx context.Context, key string, value json.RawMessage) (content.Setting, error)
}

// Observer is told about every table the mirror accepted, with the table's
// full contents after the change.
type Observer interface {
	ContentChanged(ctx context.Context, kind content.Kind, records []content.Record)
}

// ErrClosed is returned when an operation finishes after the panel closed. The
// remote result, if any, was not applied.
var ErrClosed = errors.New("admin panel closed")

// RemoteError wraps a failure reported by the store.
type RemoteError struct {
	Op   string
	Kind content.Kind
	Err  error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Kind, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// LoadError lists the tables LoadAll could not read. The other tables loaded.
type LoadError struct {
	Failed map[content.Kind]error
}

func (e *LoadError) Error() string {
	kinds := make([]string, 0, len(e.Failed))
	for kind := range e.Failed {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)
	return "load content: failed tables " + strings.Join(kinds, ", ")
}

func (e *LoadError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, err := range e.Failed {
		errs = append(errs, err)
	}
	return errs
}

// CascadeError means a category's skills were removed but the category was not.
type CascadeError struct {
	CategoryID    string
	SkillsRemoved int64
	Err           error
}

func (e *CascadeError) Error() string {
	return fmt.Sprintf("delete skill category %s: %d skills removed but category delete failed: %v", e.CategoryID, e.SkillsRemoved, e.Err)
}

func (e *CascadeError) Unwrap() error { return e.Err }

// LoadReport summarises the last LoadAll.
type LoadReport struct {
	LoadedAt time.Time               `json:"loaded_at"`
	Counts   map[content.Kind]int    `json:"counts"`
	Failed   map[content.Kind]string `json:"failed,omitempty"`
}

type Synchronizer struct {
	store     Store
	observers []Observer
	now       func() time.Time

	mu     sync.Mutex
	mirror *mirror
	closed bool
	report LoadReport

	// notifyMu is taken before mu is released, so observers see changes in
	// the order they were patched into the mirror.
	notifyMu sync.Mutex
}

type change struct {
	kind    content.Kind
	records []content.Record
}

func New(store Store, observers ...Observer) *Synchronizer {
	return &Synchronizer{
		store:     store,
		observers: observers,
		now:       time.Now,
		mirror:    newMirror(),
	}
}

// LoadAll reads every table concurrently. Each table that reads successfully
// replaces its collection; a failing table keeps what it had and is reported
// in the returned *LoadError.
func (s *Synchronizer) LoadAll(ctx context.Context) (LoadReport, error) {
	results := make([][]content.Record, len(content.Kinds))
	failures := make([]error, len(content.Kinds))

	var group errgroup.Group
	for i, kind := range content.Kinds {
		group.Go(func() error {
			records, err := s.store.List(ctx, kind)
			if err != nil {
				failures[i] = &RemoteError{Op: "list", Kind: kind, Err: err}
				return nil
			}
			results[i] = records
			return nil
		})
	}
	_ = group.Wait()

	report := LoadReport{
		LoadedAt: s.now(),
		Counts:   make(map[content.Kind]int, len(content.Kinds)),
	}
	failed := map[content.Kind]error{}
	changed := map[content.Kind][]content.Record{}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return LoadReport{}, ErrClosed
	}
	for i, kind := range content.Kinds {
		if failures[i] != nil {
			failed[kind] = failures[i]
			continue
		}
		t, _ := s.mirror.table(kind)
		if err := t.replaceAll(results[i]); err != nil {
			failed[kind] = err
			continue
		}
		report.Counts[kind] = len(results[i])
		changed[kind] = t.records()
	}
	if len(failed) > 0 {
		report.Failed = make(map[content.Kind]string, len(failed))
		for kind, err := range failed {
			report.Failed[kind] = err.Error()
		}
	}
	s.report = report
	var changes []change
	for _, kind := range content.Kinds {
		if records, ok := changed[kind]; ok {
			changes = append(changes, change{kind: kind, records: records})
		}
	}
	s.unlockAndNotify(ctx, changes...)

	if len(failed) > 0 {
		return report, &LoadError{Failed: failed}
	}
	return report, nil
}

// Save updates the record when it carries an id and inserts it otherwise. The
// stored row returned by the store replaces or extends the mirror.
func (s *Synchronizer) Save(ctx context.Context, record content.Record) (content.Record, error) {
	record = content.Normalize(record)
	if err := record.Validate(); err != nil {
		return nil, err
	}
	kind := record.RecordKind()
	if setting, ok := record.(content.Setting); ok {
		return s.UpdateSetting(ctx, setting.Key, setting.Value)
	}

	var (
		stored content.Record
		err    error
		op     = "insert"
	)
	if record.RecordID() != "" {
		op = "update"
		stored, err = s.store.Update(ctx, record)
	} else {
		stored, err = s.store.Insert(ctx, record)
	}
	if err != nil {
		return nil, &RemoteError{Op: op, Kind: kind, Err: err}
	}
	if stored == nil || stored.RecordKind() != kind || stored.RecordID() == "" {
		return nil, &RemoteError{Op: op, Kind: kind, Err: errors.New("store returned no record")}
	}

	if err := s.apply(ctx, kind, func(t table) error { return t.put(stored) }); err != nil {
		return nil, err
	}
	return stored, nil
}

// Delete removes one row. Deleting a skill category first deletes its skills;
// see deleteCategory.
func (s *Synchronizer) Delete(ctx context.Context, kind content.Kind, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return &content.ValidationError{Kind: kind, Fields: map[string]string{"id": "is required"}}
	}
	switch kind {
	case content.KindSkillCategories:
		return s.deleteCategory(ctx, id)
	case content.KindSettings:
		return &content.ValidationError{Kind: kind, Fields: map[string]string{"id": "settings cannot be deleted"}}
	}
	if _, err := s.mirror.table(kind); err != nil {
		return err
	}

	if err := s.store.Delete(ctx, kind, id); err != nil {
		return &RemoteError{Op: "delete", Kind: kind, Err: err}
	}
	return s.apply(ctx, kind, func(t table) error {
		t.remove(id)
		return nil
	})
}

// deleteCategory removes the category's skills and then the category. When
// the first call fails nothing changes. When only the second fails the
// removed skills leave the mirror and a *CascadeError is returned.
func (s *Synchronizer) deleteCategory(ctx context.Context, id string) error {
	removed, err := s.store.DeleteSkillsByCategory(ctx, id)
	if err != nil {
		return &RemoteError{Op: "delete", Kind: content.KindSkills, Err: err}
	}
	inCategory := func(skill content.Skill) bool { return skill.CategoryID == id }

	if err := s.store.Delete(ctx, content.KindSkillCategories, id); err != nil {
		if applyErr := s.apply(ctx, content.KindSkills, func(table) error {
			s.mirror.skills.removeWhere(inCategory)
			return nil
		}); applyErr != nil {
			return applyErr
		}
		return &CascadeError{CategoryID: id, SkillsRemoved: removed, Err: err}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.mirror.categories.remove(id)
	s.mirror.skills.removeWhere(inCategory)
	s.unlockAndNotify(ctx,
		change{kind: content.KindSkillCategories, records: s.mirror.categories.records()},
		change{kind: content.KindSkills, records: s.mirror.skills.records()},
	)
	return nil
}

// UpdateSetting upserts value under key.
func (s *Synchronizer) UpdateSetting(ctx context.Context, key string, value json.RawMessage) (content.Setting, error) {
	candidate := content.Normalize(content.Setting{Key: key, Value: value}).(content.Setting)
	if err := candidate.Validate(); err != nil {
		return content.Setting{}, err
	}
	stored, err := s.store.UpsertSetting(ctx, candidate.Key, candidate.Value)
	if err != nil {
		return content.Setting{}, &RemoteError{Op: "upsert", Kind: content.KindSettings, Err: err}
	}
	if err := s.apply(ctx, content.KindSettings, func(t table) error { return t.put(stored) }); err != nil {
		return content.Setting{}, err
	}
	return stored, nil
}

// PatchSetting merges fields into the JSON object mirrored under key and
// upserts the result. A missing or non-object value is treated as empty.
func (s *Synchronizer) PatchSetting(ctx context.Context, key string, fields map[string]any) (content.Setting, error) {
	merged := map[string]any{}
	s.mu.Lock()
	for _, setting := range s.mirror.settings.items {
		if setting.Key == key {
			_ = json.Unmarshal(setting.Value, &merged)
			break
		}
	}
	s.mu.Unlock()
	if merged == nil {
		merged = map[string]any{}
	}
	for field, value := range fields {
		merged[field] = value
	}
	encoded, err := json.Marshal(merged)
	if err != nil {
		return content.Setting{}, fmt.Errorf("encode setting %s: %w", key, err)
	}
	return s.UpdateSetting(ctx, key, encoded)
}

// Snapshot deep-copies the current mirror.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mirror.snapshot()
}

// Records copies one mirrored table.
func (s *Synchronizer) Records(kind content.Kind) ([]content.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.mirror.table(kind)
	if err != nil {
		return nil, err
	}
	return t.records(), nil
}

// LastLoad reports the most recent LoadAll.
func (s *Synchronizer) LastLoad() LoadReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

// Close detaches the synchronizer from its panel. Operations still in flight
// complete remotely but are not applied.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Synchronizer) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Synchronizer) apply(ctx context.Context, kind content.Kind, patch func(table) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	t, err := s.mirror.table(kind)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := patch(t); err != nil {
		s.mu.Unlock()
		return err
	}
	s.unlockAndNotify(ctx, change{kind: kind, records: t.records()})
	return nil
}

// unlockAndNotify must be called with mu held. It releases mu and tells the
// observers about changes before the next patch can reach them.
func (s *Synchronizer) unlockAndNotify(ctx context.Context, changes ...change) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.mu.Unlock()

	for _, c := range changes {
		for _, observer := range s.observers {
			observer.ContentChanged(ctx, c.kind, c.records)
		}
	}
}
