package content

import (
	"encoding/json"
	"fmt"
)

type PersonalInfo struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	Bio   string `json:"bio"`
}

type ContactInfo struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Location string `json:"location"`
}

type SocialLinks struct {
	LinkedIn string `json:"linkedin"`
	GitHub   string `json:"github"`
	CVURL    string `json:"cv_url"`
}

// CategoryView is a skill category with its skills, as the page shows it.
type CategoryView struct {
	SkillCategory
	Skills []Skill `json:"skills"`
}

// Portfolio is the public read model of every table.
type Portfolio struct {
	Personal    PersonalInfo   `json:"personal_info"`
	Contact     ContactInfo    `json:"contact_info"`
	Social      SocialLinks    `json:"social_links"`
	Categories  []CategoryView `json:"skill_categories"`
	Projects    []Project      `json:"projects"`
	Education   []Education    `json:"education"`
	Experiences []Experience   `json:"experiences"`
}

// Tables holds one slice per kind in store order.
type Tables struct {
	Settings    []Setting
	Categories  []SkillCategory
	Skills      []Skill
	Projects    []Project
	Education   []Education
	Experiences []Experience
}

// BuildPortfolio decodes the well-known settings and groups skills under
// their categories. Skills whose category is missing are dropped.
func BuildPortfolio(t Tables) (Portfolio, error) {
	p := Portfolio{
		Categories:  make([]CategoryView, 0, len(t.Categories)),
		Projects:    nonNil(t.Projects),
		Education:   nonNil(t.Education),
		Experiences: nonNil(t.Experiences),
	}
	for _, setting := range t.Settings {
		var target any
		switch setting.Key {
		case SettingPersonalInfo:
			target = &p.Personal
		case SettingContactInfo:
			target = &p.Contact
		case SettingSocialLinks:
			target = &p.Social
		default:
			continue
		}
		if err := json.Unmarshal(setting.Value, target); err != nil {
			return Portfolio{}, fmt.Errorf("decode setting %s: %w", setting.Key, err)
		}
	}

	index := make(map[string]int, len(t.Categories))
	for _, category := range t.Categories {
		index[category.ID] = len(p.Categories)
		p.Categories = append(p.Categories, CategoryView{SkillCategory: category, Skills: []Skill{}})
	}
	for _, skill := range t.Skills {
		if i, ok := index[skill.CategoryID]; ok {
			p.Categories[i].Skills = append(p.Categories[i].Skills, skill)
		}
	}
	return p, nil
}

// SplitRecords sorts a mixed record list into Tables.
func SplitRecords(records []Record) Tables {
	var t Tables
	for _, record := range records {
		switch item := record.(type) {
		case Setting:
			t.Settings = append(t.Settings, item)
		case SkillCategory:
			t.Categories = append(t.Categories, item)
		case Skill:
			t.Skills = append(t.Skills, item)
		case Project:
			t.Projects = append(t.Projects, item)
		case Education:
			t.Education = append(t.Education, item)
		case Experience:
			t.Experiences = append(t.Experiences, item)
		}
	}
	return t
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
