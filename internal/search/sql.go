package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"folio/api/internal/store"
)

// SQL implements Searcher with case-insensitive LIKE matching against the
// content tables. It is the fallback when Meilisearch is absent or down.
type SQL struct {
	db      *sql.DB
	dialect store.Dialect
}

func NewSQL(db *sql.DB, dialect store.Dialect) *SQL {
	return &SQL{db: db, dialect: dialect}
}

// Healthy always returns true; without the database nothing works anyway.
func (p *SQL) Healthy() bool {
	return true
}

var sqlSources = []struct {
	rtyp    ResultType
	query   string
	matched []string
}{
	{
		rtyp:    ResultProject,
		query:   `SELECT 'project' AS type, id, title, description AS snippet FROM projects`,
		matched: []string{"title", "description", "CAST(technologies AS TEXT)", "CAST(features AS TEXT)"},
	},
	{
		rtyp:    ResultExperience,
		query:   `SELECT 'experience' AS type, id, title, description AS snippet FROM experiences`,
		matched: []string{"title", "company", "description", "CAST(skills AS TEXT)"},
	},
	{
		rtyp:    ResultSkill,
		query:   `SELECT 'skill' AS type, id, name AS title, '' AS snippet FROM skills`,
		matched: []string{"name"},
	},
	{
		rtyp:    ResultEducation,
		query:   `SELECT 'education' AS type, id, degree AS title, institution AS snippet FROM education`,
		matched: []string{"degree", "institution", "CAST(specializations AS TEXT)"},
	},
}

func (p *SQL) Search(q Query) ([]Result, int, error) {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	text = strings.NewReplacer("%", "", "_", "").Replace(text)
	if text == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	var subQueries []string
	for _, source := range sqlSources {
		if q.FilterType != "" && q.FilterType != source.rtyp {
			continue
		}
		conditions := make([]string, len(source.matched))
		for i, column := range source.matched {
			conditions[i] = fmt.Sprintf("LOWER(%s) LIKE $1", column)
		}
		subQueries = append(subQueries, source.query+" WHERE "+strings.Join(conditions, " OR "))
	}
	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	union := strings.Join(subQueries, " UNION ALL ")
	pattern := "%" + text + "%"
	ctx := context.Background()

	var total int
	countSQL := store.Rebind(p.dialect, fmt.Sprintf("SELECT COUNT(*) FROM (%s) sub", union))
	if err := p.db.QueryRowContext(ctx, countSQL, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("sql search count: %w", err)
	}

	dataSQL := store.Rebind(p.dialect, fmt.Sprintf(`SELECT type, id, title, snippet FROM (%s) sub ORDER BY type, title LIMIT %d OFFSET %d`, union, limit, offset))
	rows, err := p.db.QueryContext(ctx, dataSQL, pattern)
	if err != nil {
		return nil, 0, fmt.Errorf("sql search query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			r   Result
			typ string
		)
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("sql search scan: %w", err)
		}
		r.Type = ResultType(typ)
		r.Snippet = snippet(r.Snippet)
		results = append(results, r)
	}
	return results, total, rows.Err()
}
