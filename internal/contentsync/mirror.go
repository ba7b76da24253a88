package contentsync

import (
	"encoding/json"
	"fmt"

	"folio/api/internal/content"
)

// table is the per-kind patch surface of the mirror.
type table interface {
	replaceAll(records []content.Record) error
	put(record content.Record) error
	remove(key string) bool
	records() []content.Record
}

// collection holds the mirrored rows of one kind in store order. keyOf
// addresses a row: the id for every kind except settings, which use the key.
type collection[T content.Record] struct {
	items []T
	keyOf func(T) string
}

func (c *collection[T]) replaceAll(records []content.Record) error {
	items := make([]T, 0, len(records))
	for _, record := range records {
		item, ok := record.(T)
		if !ok {
			return fmt.Errorf("mirror: unexpected %T", record)
		}
		items = append(items, content.Clone(item).(T))
	}
	c.items = items
	return nil
}

// put replaces the row sharing the record's key, or appends it.
func (c *collection[T]) put(record content.Record) error {
	item, ok := record.(T)
	if !ok {
		return fmt.Errorf("mirror: unexpected %T", record)
	}
	item = content.Clone(item).(T)
	key := c.keyOf(item)
	for i := range c.items {
		if c.keyOf(c.items[i]) == key {
			c.items[i] = item
			return nil
		}
	}
	c.items = append(c.items, item)
	return nil
}

func (c *collection[T]) remove(key string) bool {
	return c.removeWhere(func(item T) bool { return c.keyOf(item) == key }) > 0
}

func (c *collection[T]) removeWhere(match func(T) bool) int {
	kept := c.items[:0:0]
	removed := 0
	for _, item := range c.items {
		if match(item) {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	c.items = kept
	return removed
}

// records and snapshot return deep copies; callers may keep or modify them.
func (c *collection[T]) records() []content.Record {
	out := make([]content.Record, len(c.items))
	for i, item := range c.items {
		out[i] = content.Clone(item)
	}
	return out
}

func (c *collection[T]) snapshot() []T {
	out := make([]T, len(c.items))
	for i, item := range c.items {
		out[i] = content.Clone(item).(T)
	}
	return out
}

func byID[T content.Record](item T) string { return item.RecordID() }

type mirror struct {
	settings    collection[content.Setting]
	categories  collection[content.SkillCategory]
	skills      collection[content.Skill]
	projects    collection[content.Project]
	education   collection[content.Education]
	experiences collection[content.Experience]

	tables map[content.Kind]table
}

func newMirror() *mirror {
	m := &mirror{
		settings:    collection[content.Setting]{keyOf: func(s content.Setting) string { return s.Key }},
		categories:  collection[content.SkillCategory]{keyOf: byID[content.SkillCategory]},
		skills:      collection[content.Skill]{keyOf: byID[content.Skill]},
		projects:    collection[content.Project]{keyOf: byID[content.Project]},
		education:   collection[content.Education]{keyOf: byID[content.Education]},
		experiences: collection[content.Experience]{keyOf: byID[content.Experience]},
	}
	m.tables = map[content.Kind]table{
		content.KindSettings:        &m.settings,
		content.KindSkillCategories: &m.categories,
		content.KindSkills:          &m.skills,
		content.KindProjects:        &m.projects,
		content.KindEducation:       &m.education,
		content.KindExperiences:     &m.experiences,
	}
	return m
}

func (m *mirror) table(kind content.Kind) (table, error) {
	t, ok := m.tables[kind]
	if !ok {
		return nil, fmt.Errorf("unknown content kind %q", kind)
	}
	return t, nil
}

// Snapshot is a deep copy of the mirror suitable for rendering or encoding.
type Snapshot struct {
	Settings        map[string]json.RawMessage `json:"settings"`
	SkillCategories []content.SkillCategory    `json:"skill_categories"`
	Skills          []content.Skill            `json:"skills"`
	Projects        []content.Project          `json:"projects"`
	Education       []content.Education        `json:"education"`
	Experiences     []content.Experience       `json:"experiences"`
}

func (m *mirror) snapshot() Snapshot {
	settings := make(map[string]json.RawMessage, len(m.settings.items))
	for _, setting := range m.settings.items {
		settings[setting.Key] = append(json.RawMessage(nil), setting.Value...)
	}
	return Snapshot{
		Settings:        settings,
		SkillCategories: m.categories.snapshot(),
		Skills:          m.skills.snapshot(),
		Projects:        m.projects.snapshot(),
		Education:       m.education.snapshot(),
		Experiences:     m.experiences.snapshot(),
	}
}

// SkillsIn returns the skills filed under categoryID, in order.
func (s Snapshot) SkillsIn(categoryID string) []content.Skill {
	out := []content.Skill{}
	for _, skill := range s.Skills {
		if skill.CategoryID == categoryID {
			out = append(out, skill)
		}
	}
	return out
}

// Setting decodes the JSON object stored under key into target. A missing key
// leaves target untouched.
func (s Snapshot) Setting(key string, target any) error {
	raw, ok := s.Settings[key]
	if !ok || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode setting %s: %w", key, err)
	}
	return nil
}
