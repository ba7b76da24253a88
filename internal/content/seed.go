package content

import "encoding/json"

// SeedCategory groups a skill category with the skills created under it.
type SeedCategory struct {
	Category SkillCategory
	Skills   []Skill
}

// Seed is the starter content inserted into an empty store.
type Seed struct {
	Settings    []Setting
	Categories  []SeedCategory
	Projects    []Project
	Education   []Education
	Experiences []Experience
}

func order(n int) *int { return &n }

func DefaultSeed() Seed {
	return Seed{
		Settings: []Setting{
			{Key: SettingPersonalInfo, Value: json.RawMessage(`{"name":"Site Owner","title":"Software Engineer","bio":"Full-stack developer building reliable web services."}`)},
			{Key: SettingContactInfo, Value: json.RawMessage(`{"email":"owner@example.com","phone":"","location":"Montreal"}`)},
			{Key: SettingSocialLinks, Value: json.RawMessage(`{"linkedin":"","github":"","cv_url":""}`)},
		},
		Categories: []SeedCategory{
			{
				Category: SkillCategory{Title: "Frontend Development", IconName: "Code", Color: "primary", SortOrder: order(1)},
				Skills: []Skill{
					{Name: "TypeScript", Level: 85, SortOrder: order(1)},
					{Name: "HTML/CSS", Level: 95, SortOrder: order(2)},
				},
			},
			{
				Category: SkillCategory{Title: "Backend Development", IconName: "Server", Color: "secondary", SortOrder: order(2)},
				Skills: []Skill{
					{Name: "Go", Level: 85, SortOrder: order(1)},
					{Name: "PostgreSQL", Level: 80, SortOrder: order(2)},
				},
			},
			{
				Category: SkillCategory{Title: "DevOps & Tools", IconName: "GitBranch", Color: "accent", SortOrder: order(3)},
				Skills: []Skill{
					{Name: "Git", Level: 95, SortOrder: order(1)},
					{Name: "Docker", Level: 80, SortOrder: order(2)},
				},
			},
		},
		Projects: []Project{
			{
				Title:        "Personal Portfolio Website",
				Description:  "Portfolio site with an authenticated content editor backed by a relational store.",
				Period:       "2025 - Present",
				Location:     "Montreal",
				Features:     []string{"Server-rendered pages", "English and French content", "Admin content editing"},
				Technologies: []string{"Go", "PostgreSQL", "Redis"},
				Color:        "secondary",
				IconName:     "Globe",
				SortOrder:    order(1),
			},
			{
				Title:        "Instant Chat Application",
				Description:  "Messaging application with real-time delivery, authentication and cloud deployment.",
				Period:       "2024",
				Location:     "Montreal",
				Features:     []string{"Real-time messaging", "User authentication", "Message logging"},
				Technologies: []string{"Docker", "Node.js", "React"},
				Color:        "primary",
				IconName:     "MessageSquare",
				SortOrder:    order(2),
			},
		},
		Education: []Education{
			{
				Degree:          "Bachelor of Computer Science",
				Institution:     "University",
				Location:        "Montreal",
				Period:          "2021 - 2025",
				Specializations: []string{"Software engineering", "Databases"},
				SortOrder:       order(1),
			},
		},
		Experiences: []Experience{
			{
				Title:            "Software Developer",
				Company:          "Company",
				Description:      "Built and operated internal web services.",
				Location:         "Montreal",
				Period:           "2023 - 2024",
				Responsibilities: []string{"API development", "Code review"},
				Skills:           []string{"Go", "SQL"},
				Color:            "primary",
				IconName:         "Briefcase",
				SortOrder:        order(1),
			},
		},
	}
}
