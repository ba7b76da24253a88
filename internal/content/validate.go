package content

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// ValidationError lists the fields a record failed on, keyed by JSON name.
type ValidationError struct {
	Kind   Kind
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+" "+e.Fields[key])
	}
	return fmt.Sprintf("invalid %s record: %s", e.Kind, strings.Join(parts, "; "))
}

type fieldErrors map[string]string

func (f fieldErrors) required(name, value string) {
	if strings.TrimSpace(value) == "" {
		f[name] = "is required"
	}
}

func (f fieldErrors) color(value string) {
	switch value {
	case "", "primary", "secondary", "accent":
	default:
		f["color"] = "must be primary, secondary or accent"
	}
}

func (f fieldErrors) icon(value string) {
	if value == "" {
		return
	}
	if _, ok := iconNames[value]; !ok {
		f["icon_name"] = "is not a known icon"
	}
}

func (f fieldErrors) link(name string, value *string) {
	if value == nil || *value == "" {
		return
	}
	parsed, err := url.Parse(*value)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		f[name] = "must be an absolute http(s) URL"
	}
}

func (f fieldErrors) err(kind Kind) error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Kind: kind, Fields: f}
}

// IconNames is the icon catalog offered by the admin forms.
var IconNames = []string{
	"Code", "Server", "Database", "Cpu", "GitBranch", "Shield", "Palette", "Zap",
	"GraduationCap", "Briefcase", "MapPin", "Mail", "Phone", "Linkedin", "Github",
	"Download", "Globe", "MessageSquare", "ShoppingBag", "FileCheck",
}

var iconNames = func() map[string]struct{} {
	names := make(map[string]struct{}, len(IconNames))
	for _, name := range IconNames {
		names[name] = struct{}{}
	}
	return names
}()

func (s Setting) Validate() error {
	errs := fieldErrors{}
	errs.required("key", s.Key)
	if len(s.Value) == 0 {
		errs["value"] = "is required"
	} else if !json.Valid(s.Value) {
		errs["value"] = "must be valid JSON"
	}
	return errs.err(KindSettings)
}

func (c SkillCategory) Validate() error {
	errs := fieldErrors{}
	errs.required("title", c.Title)
	errs.color(c.Color)
	errs.icon(c.IconName)
	return errs.err(KindSkillCategories)
}

func (s Skill) Validate() error {
	errs := fieldErrors{}
	errs.required("name", s.Name)
	errs.required("category_id", s.CategoryID)
	if s.Level < 0 || s.Level > 100 {
		errs["level"] = "must be between 0 and 100"
	}
	return errs.err(KindSkills)
}

func (p Project) Validate() error {
	errs := fieldErrors{}
	errs.required("title", p.Title)
	errs.color(p.Color)
	errs.icon(p.IconName)
	errs.link("code_url", p.CodeURL)
	errs.link("live_url", p.LiveURL)
	return errs.err(KindProjects)
}

func (e Education) Validate() error {
	errs := fieldErrors{}
	errs.required("degree", e.Degree)
	errs.required("institution", e.Institution)
	return errs.err(KindEducation)
}

func (e Experience) Validate() error {
	errs := fieldErrors{}
	errs.required("title", e.Title)
	errs.required("company", e.Company)
	errs.color(e.Color)
	errs.icon(e.IconName)
	return errs.err(KindExperiences)
}

// Normalize trims text fields, fills the default color and replaces nil lists
// and empty links so stored rows have a single shape.
func Normalize(record Record) Record {
	switch item := record.(type) {
	case Setting:
		item.Key = strings.TrimSpace(item.Key)
		return item
	case SkillCategory:
		item.Title = strings.TrimSpace(item.Title)
		item.Color = defaultColor(item.Color)
		return item
	case Skill:
		item.Name = strings.TrimSpace(item.Name)
		item.CategoryID = strings.TrimSpace(item.CategoryID)
		return item
	case Project:
		item.Title = strings.TrimSpace(item.Title)
		item.Description = strings.TrimSpace(item.Description)
		item.Features = cleanList(item.Features)
		item.Technologies = cleanList(item.Technologies)
		item.Color = defaultColor(item.Color)
		item.CodeURL = optionalLink(item.CodeURL)
		item.LiveURL = optionalLink(item.LiveURL)
		return item
	case Education:
		item.Degree = strings.TrimSpace(item.Degree)
		item.Institution = strings.TrimSpace(item.Institution)
		item.Specializations = cleanList(item.Specializations)
		return item
	case Experience:
		item.Title = strings.TrimSpace(item.Title)
		item.Company = strings.TrimSpace(item.Company)
		item.Responsibilities = cleanList(item.Responsibilities)
		item.Skills = cleanList(item.Skills)
		item.Color = defaultColor(item.Color)
		return item
	}
	return record
}

func defaultColor(color string) string {
	color = strings.TrimSpace(color)
	if color == "" {
		return "primary"
	}
	return color
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func optionalLink(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
