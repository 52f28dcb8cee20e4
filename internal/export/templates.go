package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var roadmapTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
		"stars": func(rating int) string {
			if rating < 0 {
				rating = 0
			}
			if rating > 5 {
				rating = 5
			}
			return strings.Repeat("★", rating) + strings.Repeat("☆", 5-rating)
		},
	}

	templateContent, err := templateFS.ReadFile("templates/roadmap.html")
	if err != nil {
		panic("export: missing roadmap template: " + err.Error())
	}
	roadmapTemplate = template.Must(template.New("roadmap").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for roadmap template rendering
type TemplateData struct {
	ProductID   string
	Year        int
	Quarter     int
	GeneratedAt time.Time
	EffortUnit  string
	Items       []TemplateItem
	Teams       []TemplateTeam
}

// TemplateItem is one roadmap row, ordered by RICE score descending.
type TemplateItem struct {
	EpicName     string
	Track        string
	Reach        int
	Impact       int
	Confidence   int
	EffortRating int
	RiceScore    float64
	Status       string
	Published    bool
}

// TemplateTeam summarizes effort allocated per team for the quarter.
type TemplateTeam struct {
	Name      string
	Allocated float64
}

// RenderRoadmapHTML renders the roadmap template with provided data
func RenderRoadmapHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := roadmapTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
