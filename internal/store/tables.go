package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"folio/api/internal/content"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// table describes how one content kind maps onto its SQL table. columns are
// the editable columns; id, created_at and updated_at are managed here.
type table struct {
	name    string
	columns []string
	orderBy string
	values  func(content.Record) ([]any, error)
	scan    func(rowScanner) (content.Record, error)
}

func (t table) selectColumns() string {
	return "id, " + strings.Join(t.columns, ", ") + ", created_at, updated_at"
}

const bySortOrder = "CASE WHEN sort_order IS NULL THEN 1 ELSE 0 END, sort_order, created_at, id"

var tables = map[content.Kind]table{
	content.KindSettings: {
		name:    "settings",
		columns: []string{"key", "value"},
		orderBy: "key",
		values: func(record content.Record) ([]any, error) {
			item, ok := record.(content.Setting)
			if !ok {
				return nil, wrongType(content.KindSettings, record)
			}
			return []any{item.Key, string(item.Value)}, nil
		},
		scan: func(row rowScanner) (content.Record, error) {
			var (
				item    content.Setting
				value   []byte
				created int64
				updated int64
			)
			if err := row.Scan(&item.ID, &item.Key, &value, &created, &updated); err != nil {
				return nil, err
			}
			item.Value = json.RawMessage(append([]byte(nil), value...))
			item.CreatedAt, item.UpdatedAt = fromMillis(created), fromMillis(updated)
			return item, nil
		},
	},
	content.KindSkillCategories: {
		name:    "skill_categories",
		columns: []string{"title", "icon_name", "color", "sort_order"},
		orderBy: bySortOrder,
		values: func(record content.Record) ([]any, error) {
			item, ok := record.(content.SkillCategory)
			if !ok {
				return nil, wrongType(content.KindSkillCategories, record)
			}
			return []any{item.Title, item.IconName, item.Color, nullableInt(item.SortOrder)}, nil
		},
		scan: func(row rowScanner) (content.Record, error) {
			var (
				item             content.SkillCategory
				sortOrder        sql.NullInt64
				created, updated int64
			)
			if err := row.Scan(&item.ID, &item.Title, &item.IconName, &item.Color, &sortOrder, &created, &updated); err != nil {
				return nil, err
			}
			item.SortOrder = intPtr(sortOrder)
			item.CreatedAt, item.UpdatedAt = fromMillis(created), fromMillis(updated)
			return item, nil
		},
	},
	content.KindSkills: {
		name:    "skills",
		columns: []string{"name", "category_id", "level", "sort_order"},
		orderBy: bySortOrder,
		values: func(record content.Record) ([]any, error) {
			item, ok := record.(content.Skill)
			if !ok {
				return nil, wrongType(content.KindSkills, record)
			}
			return []any{item.Name, item.CategoryID, item.Level, nullableInt(item.SortOrder)}, nil
		},
		scan: func(row rowScanner) (content.Record, error) {
			var (
				item             content.Skill
				sortOrder        sql.NullInt64
				created, updated int64
			)
			if err := row.Scan(&item.ID, &item.Name, &item.CategoryID, &item.Level, &sortOrder, &created, &updated); err != nil {
				return nil, err
			}
			item.SortOrder = intPtr(sortOrder)
			item.CreatedAt, item.UpdatedAt = fromMillis(created), fromMillis(updated)
			return item, nil
		},
	},
	content.KindProjects: {
		name: "projects",
		columns: []string{
			"title", "description", "period", "location", "features", "technologies",
			"color", "icon_name", "code_url", "live_url", "sort_order",
		},
		orderBy: bySortOrder,
		values: func(record content.Record) ([]any, error) {
			item, ok := record.(content.Project)
			if !ok {
				return nil, wrongType(content.KindProjects, record)
			}
			features, err := encodeList(item.Features)
			if err != nil {
				return nil, err
			}
			technologies, err := encodeList(item.Technologies)
			if err != nil {
				return nil, err
			}
			return []any{
				item.Title, item.Description, item.Period, item.Location, features, technologies,
				item.Color, item.IconName, nullableString(item.CodeURL), nullableString(item.LiveURL),
				nullableInt(item.SortOrder),
			}, nil
		},
		scan: func(row rowScanner) (content.Record, error) {
			var (
				item                   content.Project
				features, technologies stringList
				codeURL, liveURL       sql.NullString
				sortOrder              sql.NullInt64
				created, updated       int64
			)
			if err := row.Scan(
				&item.ID, &item.Title, &item.Description, &item.Period, &item.Location, &features, &technologies,
				&item.Color, &item.IconName, &codeURL, &liveURL, &sortOrder, &created, &updated,
			); err != nil {
				return nil, err
			}
			item.Features, item.Technologies = features, technologies
			item.CodeURL, item.LiveURL = stringPtr(codeURL), stringPtr(liveURL)
			item.SortOrder = intPtr(sortOrder)
			item.CreatedAt, item.UpdatedAt = fromMillis(created), fromMillis(updated)
			return item, nil
		},
	},
	content.KindEducation: {
		name:    "education",
		columns: []string{"degree", "institution", "location", "period", "specializations", "sort_order"},
		orderBy: bySortOrder,
		values: func(record content.Record) ([]any, error) {
			item, ok := record.(content.Education)
			if !ok {
				return nil, wrongType(content.KindEducation, record)
			}
			specializations, err := encodeList(item.Specializations)
			if err != nil {
				return nil, err
			}
			return []any{item.Degree, item.Institution, item.Location, item.Period, specializations, nullableInt(item.SortOrder)}, nil
		},
		scan: func(row rowScanner) (content.Record, error) {
			var (
				item             content.Education
				specializations  stringList
				sortOrder        sql.NullInt64
				created, updated int64
			)
			if err := row.Scan(&item.ID, &item.Degree, &item.Institution, &item.Location, &item.Period, &specializations, &sortOrder, &created, &updated); err != nil {
				return nil, err
			}
			item.Specializations = specializations
			item.SortOrder = intPtr(sortOrder)
			item.CreatedAt, item.UpdatedAt = fromMillis(created), fromMillis(updated)
			return item, nil
		},
	},
	content.KindExperiences: {
		name: "experiences",
		columns: []string{
			"title", "company", "description", "location", "period", "responsibilities", "skills",
			"color", "icon_name", "sort_order",
		},
		orderBy: bySortOrder,
		values: func(record content.Record) ([]any, error) {
			item, ok := record.(content.Experience)
			if !ok {
				return nil, wrongType(content.KindExperiences, record)
			}
			responsibilities, err := encodeList(item.Responsibilities)
			if err != nil {
				return nil, err
			}
			skills, err := encodeList(item.Skills)
			if err != nil {
				return nil, err
			}
			return []any{
				item.Title, item.Company, item.Description, item.Location, item.Period, responsibilities, skills,
				item.Color, item.IconName, nullableInt(item.SortOrder),
			}, nil
		},
		scan: func(row rowScanner) (content.Record, error) {
			var (
				item                     content.Experience
				responsibilities, skills stringList
				sortOrder                sql.NullInt64
				created, updated         int64
			)
			if err := row.Scan(
				&item.ID, &item.Title, &item.Company, &item.Description, &item.Location, &item.Period,
				&responsibilities, &skills, &item.Color, &item.IconName, &sortOrder, &created, &updated,
			); err != nil {
				return nil, err
			}
			item.Responsibilities, item.Skills = responsibilities, skills
			item.SortOrder = intPtr(sortOrder)
			item.CreatedAt, item.UpdatedAt = fromMillis(created), fromMillis(updated)
			return item, nil
		},
	},
}

func tableFor(kind content.Kind) (table, error) {
	t, ok := tables[kind]
	if !ok {
		return table{}, fmt.Errorf("unknown content kind %q", kind)
	}
	return t, nil
}

func wrongType(kind content.Kind, record content.Record) error {
	return fmt.Errorf("%s table cannot store %T", kind, record)
}

// stringList scans a JSON array column.
type stringList []string

func (l *stringList) Scan(src any) error {
	var raw []byte
	switch value := src.(type) {
	case nil:
		*l = stringList{}
		return nil
	case []byte:
		raw = value
	case string:
		raw = []byte(value)
	default:
		return fmt.Errorf("scan string list from %T", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("decode string list: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*l = out
	return nil
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode string list: %w", err)
	}
	return string(encoded), nil
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return int64(*value)
}

func nullableString(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func intPtr(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	n := int(value.Int64)
	return &n
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}
