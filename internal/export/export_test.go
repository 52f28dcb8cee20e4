package export

import (
	"strings"
	"testing"
	"time"
)

func TestRenderRoadmapHTML(t *testing.T) {
	data := TemplateData{
		ProductID:   "prod-1",
		Year:        2026,
		Quarter:     3,
		GeneratedAt: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		EffortUnit:  "sprints",
		Items: []TemplateItem{
			{
				EpicName:     "Checkout revamp",
				Track:        "growth",
				Reach:        8,
				Impact:       9,
				Confidence:   7,
				EffortRating: 3,
				RiceScore:    168,
				Status:       "PLANNED",
				Published:    true,
			},
			{
				EpicName:     "Search tuning",
				Track:        "core",
				Reach:        4,
				Impact:       5,
				Confidence:   6,
				EffortRating: 2,
				RiceScore:    60,
				Status:       "PLANNED",
			},
		},
		Teams: []TemplateTeam{
			{Name: "Platform", Allocated: 7.5},
		},
	}

	html, err := RenderRoadmapHTML(data)
	if err != nil {
		t.Fatalf("RenderRoadmapHTML() error = %v", err)
	}

	for _, want := range []string{
		"2026 Q3 Roadmap",
		"Checkout revamp",
		"★★★☆☆",
		"168.0",
		"PLANNED (published)",
		"planned",
		"Platform",
		"7.5",
		"sprints",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered HTML missing %q", want)
		}
	}
}

func TestRenderRoadmapHTMLOmitsTeamsSection(t *testing.T) {
	html, err := RenderRoadmapHTML(TemplateData{ProductID: "prod-1", Year: 2026, Quarter: 1, EffortUnit: "days"})
	if err != nil {
		t.Fatalf("RenderRoadmapHTML() error = %v", err)
	}
	if strings.Contains(html, "Team allocation") {
		t.Error("expected teams section to be omitted when no allocations")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple title", "prod-1 2026 Q3 roadmap", "prod-1-2026-Q3-roadmap"},
		{"strips punctuation", "Roadmap: Q3 (final)", "Roadmap-Q3-final"},
		{"empty becomes default", "!!!", "roadmap"},
		{"truncated to 50", strings.Repeat("a", 80), strings.Repeat("a", 50)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeFilename(tt.input); got != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}
