package search

import (
	"strings"

	"folio/api/internal/content"
)

// ResultType identifies the kind of content in a search result.
type ResultType string

const (
	ResultProject    ResultType = "project"
	ResultExperience ResultType = "experience"
	ResultSkill      ResultType = "skill"
	ResultEducation  ResultType = "education"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type    ResultType `json:"type"`
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Snippet string     `json:"snippet"`
}

// Query describes a search request.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Document is the flattened form of a content record pushed to the index.
type Document struct {
	ID    string   `json:"id"`
	Type  string   `json:"type"`
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags"`
}

// ResultTypeFor maps a content kind to the result type it is indexed under.
// Kinds that are not searchable report false.
func ResultTypeFor(kind content.Kind) (ResultType, bool) {
	switch kind {
	case content.KindProjects:
		return ResultProject, true
	case content.KindExperiences:
		return ResultExperience, true
	case content.KindSkills:
		return ResultSkill, true
	case content.KindEducation:
		return ResultEducation, true
	}
	return "", false
}

// DocumentFor flattens a record, reporting false for kinds that are not indexed.
func DocumentFor(record content.Record) (Document, bool) {
	switch item := record.(type) {
	case content.Project:
		return Document{
			ID: item.ID, Type: string(ResultProject), Title: item.Title,
			Body: item.Description, Tags: append(append([]string{}, item.Technologies...), item.Features...),
		}, true
	case content.Experience:
		return Document{
			ID: item.ID, Type: string(ResultExperience), Title: item.Title,
			Body: strings.TrimSpace(item.Company + " " + item.Description), Tags: append([]string{}, item.Skills...),
		}, true
	case content.Skill:
		return Document{ID: item.ID, Type: string(ResultSkill), Title: item.Name, Tags: []string{}}, true
	case content.Education:
		return Document{
			ID: item.ID, Type: string(ResultEducation), Title: item.Degree,
			Body: item.Institution, Tags: append([]string{}, item.Specializations...),
		}, true
	}
	return Document{}, false
}

func snippet(value string) string {
	value = strings.TrimSpace(value)
	const max = 160
	if len([]rune(value)) <= max {
		return value
	}
	return string([]rune(value)[:max]) + "…"
}
