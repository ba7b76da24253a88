// Package content defines the portfolio records edited through the admin panel.
package content

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Kind names one of the six content tables.
type Kind string

const (
	KindSettings        Kind = "settings"
	KindSkillCategories Kind = "skill_categories"
	KindSkills          Kind = "skills"
	KindProjects        Kind = "projects"
	KindEducation       Kind = "education"
	KindExperiences     Kind = "experiences"
)

// Kinds lists every table in load order.
var Kinds = []Kind{
	KindSettings,
	KindSkillCategories,
	KindSkills,
	KindProjects,
	KindEducation,
	KindExperiences,
}

func ParseKind(value string) (Kind, error) {
	kind := Kind(strings.TrimSpace(strings.ToLower(value)))
	for _, known := range Kinds {
		if kind == known {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown content kind %q", value)
}

// Record is implemented by every row type. RecordID is empty for a record that
// has not been stored yet.
type Record interface {
	RecordKind() Kind
	RecordID() string
	Validate() error
}

// Well-known setting keys.
const (
	SettingPersonalInfo = "personal_info"
	SettingContactInfo  = "contact_info"
	SettingSocialLinks  = "social_links"
)

type Setting struct {
	ID        string          `json:"id,omitempty"`
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type SkillCategory struct {
	ID        string    `json:"id,omitempty"`
	Title     string    `json:"title"`
	IconName  string    `json:"icon_name"`
	Color     string    `json:"color"`
	SortOrder *int      `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Skill struct {
	ID         string    `json:"id,omitempty"`
	Name       string    `json:"name"`
	CategoryID string    `json:"category_id"`
	Level      int       `json:"level"`
	SortOrder  *int      `json:"sort_order"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Project struct {
	ID           string    `json:"id,omitempty"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Period       string    `json:"period"`
	Location     string    `json:"location"`
	Features     []string  `json:"features"`
	Technologies []string  `json:"technologies"`
	Color        string    `json:"color"`
	IconName     string    `json:"icon_name"`
	CodeURL      *string   `json:"code_url"`
	LiveURL      *string   `json:"live_url"`
	SortOrder    *int      `json:"sort_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Education struct {
	ID              string    `json:"id,omitempty"`
	Degree          string    `json:"degree"`
	Institution     string    `json:"institution"`
	Location        string    `json:"location"`
	Period          string    `json:"period"`
	Specializations []string  `json:"specializations"`
	SortOrder       *int      `json:"sort_order"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Experience struct {
	ID               string    `json:"id,omitempty"`
	Title            string    `json:"title"`
	Company          string    `json:"company"`
	Description      string    `json:"description"`
	Location         string    `json:"location"`
	Period           string    `json:"period"`
	Responsibilities []string  `json:"responsibilities"`
	Skills           []string  `json:"skills"`
	Color            string    `json:"color"`
	IconName         string    `json:"icon_name"`
	SortOrder        *int      `json:"sort_order"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (s Setting) RecordKind() Kind       { return KindSettings }
func (c SkillCategory) RecordKind() Kind { return KindSkillCategories }
func (s Skill) RecordKind() Kind         { return KindSkills }
func (p Project) RecordKind() Kind       { return KindProjects }
func (e Education) RecordKind() Kind     { return KindEducation }
func (e Experience) RecordKind() Kind    { return KindExperiences }

func (s Setting) RecordID() string       { return s.ID }
func (c SkillCategory) RecordID() string { return c.ID }
func (s Skill) RecordID() string         { return s.ID }
func (p Project) RecordID() string       { return p.ID }
func (e Education) RecordID() string     { return e.ID }
func (e Experience) RecordID() string    { return e.ID }

// Decode builds the record type of kind from a JSON body.
func Decode(kind Kind, raw []byte) (Record, error) {
	var (
		record Record
		err    error
	)
	switch kind {
	case KindSettings:
		var item Setting
		err = json.Unmarshal(raw, &item)
		record = item
	case KindSkillCategories:
		var item SkillCategory
		err = json.Unmarshal(raw, &item)
		record = item
	case KindSkills:
		var item Skill
		err = json.Unmarshal(raw, &item)
		record = item
	case KindProjects:
		var item Project
		err = json.Unmarshal(raw, &item)
		record = item
	case KindEducation:
		var item Education
		err = json.Unmarshal(raw, &item)
		record = item
	case KindExperiences:
		var item Experience
		err = json.Unmarshal(raw, &item)
		record = item
	default:
		return nil, fmt.Errorf("unknown content kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s record: %w", kind, err)
	}
	return record, nil
}

// WithID returns a copy of record addressed to id.
func WithID(record Record, id string) Record {
	switch item := record.(type) {
	case Setting:
		item.ID = id
		return item
	case SkillCategory:
		item.ID = id
		return item
	case Skill:
		item.ID = id
		return item
	case Project:
		item.ID = id
		return item
	case Education:
		item.ID = id
		return item
	case Experience:
		item.ID = id
		return item
	}
	return record
}

// Clone returns a copy of record that shares no slices or pointers with it.
func Clone(record Record) Record {
	switch item := record.(type) {
	case Setting:
		item.Value = slices.Clone(item.Value)
		return item
	case SkillCategory:
		item.SortOrder = clonePtr(item.SortOrder)
		return item
	case Skill:
		item.SortOrder = clonePtr(item.SortOrder)
		return item
	case Project:
		item.Features = slices.Clone(item.Features)
		item.Technologies = slices.Clone(item.Technologies)
		item.CodeURL = clonePtr(item.CodeURL)
		item.LiveURL = clonePtr(item.LiveURL)
		item.SortOrder = clonePtr(item.SortOrder)
		return item
	case Education:
		item.Specializations = slices.Clone(item.Specializations)
		item.SortOrder = clonePtr(item.SortOrder)
		return item
	case Experience:
		item.Responsibilities = slices.Clone(item.Responsibilities)
		item.Skills = slices.Clone(item.Skills)
		item.SortOrder = clonePtr(item.SortOrder)
		return item
	}
	return record
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ColorClass maps a color tag to its CSS class, defaulting to primary.
func ColorClass(color string) string {
	switch color {
	case "secondary":
		return "tone-secondary"
	case "accent":
		return "tone-accent"
	default:
		return "tone-primary"
	}
}
