// Package journal records every confirmed content table in a local git
// repository, one JSON file per table, so edits made through the admin panel
// have a browsable history.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"folio/api/internal/content"
)

const kindTrailer = "Kind: "

// Entry is one recorded change.
type Entry struct {
	Hash      string       `json:"hash"`
	Kind      content.Kind `json:"kind,omitempty"`
	Message   string       `json:"message"`
	Author    string       `json:"author"`
	CreatedAt time.Time    `json:"created_at"`
}

type Journal struct {
	dir  string
	now  func() time.Time
	mu   sync.Mutex
	repo *git.Repository
}

// Open initialises the repository in dir on first use.
func Open(dir string) (*Journal, error) {
	if dir == "" {
		return nil, errors.New("journal directory is required")
	}
	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = initRepo(dir)
	}
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &Journal{dir: dir, now: time.Now, repo: repo}, nil
}

func initRepo(dir string) (*git.Repository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create repo dir: %w", err)
	}
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return nil, fmt.Errorf("set HEAD to main: %w", err)
	}
	return repo, nil
}

type authorKey struct{}

// WithAuthor names the person committing changes made under ctx.
func WithAuthor(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, authorKey{}, name)
}

func authorFrom(ctx context.Context) string {
	if name, ok := ctx.Value(authorKey{}).(string); ok && strings.TrimSpace(name) != "" {
		return name
	}
	return "folio"
}

// Record writes the table and commits it. It reports false when the table is
// unchanged since the last commit.
func (j *Journal) Record(ctx context.Context, kind content.Kind, records []content.Record) (Entry, bool, error) {
	if records == nil {
		records = []content.Record{}
	}
	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return Entry{}, false, fmt.Errorf("marshal %s: %w", kind, err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	worktree, err := j.repo.Worktree()
	if err != nil {
		return Entry{}, false, fmt.Errorf("open worktree: %w", err)
	}
	name := string(kind) + ".json"
	if err := os.WriteFile(filepath.Join(j.dir, name), append(payload, '\n'), 0o644); err != nil {
		return Entry{}, false, fmt.Errorf("write %s: %w", name, err)
	}
	if _, err := worktree.Add(name); err != nil {
		return Entry{}, false, fmt.Errorf("git add %s: %w", name, err)
	}

	author := authorFrom(ctx)
	message := fmt.Sprintf("Update %s (%d records)\n\n%s%s", kind, len(records), kindTrailer, kind)
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@local.folio.dev", sanitizeEmail(author)),
			When:  j.now(),
		},
	})
	if errors.Is(err, git.ErrEmptyCommit) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("commit %s: %w", name, err)
	}
	commitObj, err := j.repo.CommitObject(hash)
	if err != nil {
		return Entry{}, false, fmt.Errorf("read commit object: %w", err)
	}
	return toEntry(commitObj), true, nil
}

// ContentChanged records the table. Failures are logged.
func (j *Journal) ContentChanged(ctx context.Context, kind content.Kind, records []content.Record) {
	if _, _, err := j.Record(ctx, kind, records); err != nil {
		log.Printf("journal: %v", err)
	}
}

// History lists the newest entries first. limit <= 0 means all.
func (j *Journal) History(limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	head, err := j.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve head: %w", err)
	}
	iter, err := j.repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := []Entry{}
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toEntry(commitObj))
		if limit > 0 && len(items) >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// Read returns the table as recorded at hash.
func (j *Journal) Read(hash string, kind content.Kind) (json.RawMessage, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	resolved, err := j.repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return nil, fmt.Errorf("resolve hash %s: %w", hash, err)
	}
	commitObj, err := j.repo.CommitObject(*resolved)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	file, err := commitObj.File(string(kind) + ".json")
	if err != nil {
		return nil, fmt.Errorf("load %s at %s: %w", kind, hash, err)
	}
	body, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("read %s at %s: %w", kind, hash, err)
	}
	return json.RawMessage(body), nil
}

func toEntry(commitObj *object.Commit) Entry {
	entry := Entry{
		Hash:      commitObj.Hash.String()[:7],
		Message:   strings.SplitN(commitObj.Message, "\n", 2)[0],
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
	for _, line := range strings.Split(commitObj.Message, "\n") {
		if strings.HasPrefix(line, kindTrailer) {
			entry.Kind = content.Kind(strings.TrimPrefix(line, kindTrailer))
		}
	}
	return entry
}

func sanitizeEmail(input string) string {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			out = append(out, '.')
		}
	}
	if len(out) == 0 {
		return "user"
	}
	return string(out)
}
