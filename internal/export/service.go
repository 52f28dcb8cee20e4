package export

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// DataStore defines the interface for data access
type DataStore interface {
	ListQuarterItems(ctx context.Context, productID string, year, quarter int) ([]ItemInfo, error)
	QuarterEffortUnit(ctx context.Context, productID string, year, quarter int) (string, error)
	TeamAllocations(ctx context.Context, productID string, year, quarter int) ([]TeamAllocation, error)
}

// ItemInfo holds one roadmap item's scoring data
type ItemInfo struct {
	EpicID       string
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

// TeamAllocation holds total effort allocated to one team
type TeamAllocation struct {
	TeamName  string
	Allocated float64
}

// Service provides roadmap export functionality
type Service struct {
	store DataStore
}

// NewService creates a new export service
func NewService(store DataStore) *Service {
	return &Service{store: store}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	items, err := s.store.ListQuarterItems(ctx, req.ProductID, req.Year, req.Quarter)
	if err != nil {
		return nil, fmt.Errorf("list quarter items: %w", err)
	}

	unit, err := s.store.QuarterEffortUnit(ctx, req.ProductID, req.Year, req.Quarter)
	if err != nil {
		return nil, fmt.Errorf("load effort unit: %w", err)
	}

	allocations, err := s.store.TeamAllocations(ctx, req.ProductID, req.Year, req.Quarter)
	if err != nil {
		return nil, fmt.Errorf("load team allocations: %w", err)
	}

	data := TemplateData{
		ProductID:   req.ProductID,
		Year:        req.Year,
		Quarter:     req.Quarter,
		GeneratedAt: time.Now(),
		EffortUnit:  unit,
		Items:       make([]TemplateItem, 0, len(items)),
		Teams:       make([]TemplateTeam, 0, len(allocations)),
	}

	for _, item := range items {
		data.Items = append(data.Items, TemplateItem{
			EpicName:     item.EpicName,
			Track:        item.Track,
			Reach:        item.Reach,
			Impact:       item.Impact,
			Confidence:   item.Confidence,
			EffortRating: item.EffortRating,
			RiceScore:    item.RiceScore,
			Status:       item.Status,
			Published:    item.Published,
		})
	}
	// Highest priority first on the printed page.
	sort.SliceStable(data.Items, func(i, j int) bool {
		return data.Items[i].RiceScore > data.Items[j].RiceScore
	})

	for _, alloc := range allocations {
		data.Teams = append(data.Teams, TemplateTeam{Name: alloc.TeamName, Allocated: alloc.Allocated})
	}

	html, err := RenderRoadmapHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatPDF:
		title := fmt.Sprintf("%s %d Q%d roadmap", req.ProductID, req.Year, req.Quarter)
		return exportPDF(html, title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}
