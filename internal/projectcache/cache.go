// Package projectcache keeps the last confirmed list of admin-edited projects
// as one JSON blob under a fixed key. It is a fallback copy and never takes
// precedence over the projects table.
package projectcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"

	"folio/api/internal/content"
)

// Key is the fixed storage key of the blob.
const Key = "adminProjects"

// Backend stores raw bytes under a key. Get returns ErrMiss when nothing is stored.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

var ErrMiss = errors.New("projectcache: miss")

type Cache struct {
	backend Backend
}

func New(backend Backend) *Cache {
	if backend == nil {
		backend = NewMemory()
	}
	return &Cache{backend: backend}
}

// Load returns the cached projects. A miss yields an empty list.
func (c *Cache) Load(ctx context.Context) ([]content.Project, error) {
	raw, err := c.backend.Get(ctx, Key)
	if errors.Is(err, ErrMiss) {
		return []content.Project{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", Key, err)
	}
	var projects []content.Project
	if err := json.Unmarshal(raw, &projects); err != nil {
		return nil, fmt.Errorf("decode %s: %w", Key, err)
	}
	return projects, nil
}

func (c *Cache) Store(ctx context.Context, projects []content.Project) error {
	if projects == nil {
		projects = []content.Project{}
	}
	raw, err := json.Marshal(projects)
	if err != nil {
		return fmt.Errorf("encode %s: %w", Key, err)
	}
	if err := c.backend.Set(ctx, Key, raw); err != nil {
		return fmt.Errorf("write %s: %w", Key, err)
	}
	return nil
}

// ContentChanged rewrites the blob whenever the mirrored projects change.
func (c *Cache) ContentChanged(ctx context.Context, kind content.Kind, records []content.Record) {
	if kind != content.KindProjects {
		return
	}
	projects := make([]content.Project, 0, len(records))
	for _, record := range records {
		if project, ok := record.(content.Project); ok {
			projects = append(projects, project)
		}
	}
	if err := c.Store(ctx, projects); err != nil {
		log.Printf("projectcache: %v", err)
	}
}

// Memory is a process-local Backend.
type Memory struct {
	mu     sync.Mutex
	values map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	if !ok {
		return nil, ErrMiss
	}
	return append([]byte(nil), value...), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

// Redis is a Backend over a shared go-redis client. Keys are namespaced with
// prefix so the blob does not collide with session keys.
type Redis struct {
	client *redis.Client
	prefix string
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "folio:"}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return value, err
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	return r.client.Set(ctx, r.prefix+key, value, 0).Err()
}
