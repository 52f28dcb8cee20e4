package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"quarterdeck/api/internal/archive"
	"quarterdeck/api/internal/config"
	"quarterdeck/api/internal/export"
	"quarterdeck/api/internal/idempotency"
	"quarterdeck/api/internal/planning"
	"quarterdeck/api/internal/planrepo"
	"quarterdeck/api/internal/search"
	"quarterdeck/api/internal/store"
	"quarterdeck/api/internal/util"
)

const dateLayout = "2006-01-02"

var allowedItemStatuses = map[string]struct{}{
	"Proposed":    {},
	"Committed":   {},
	"To-Do":       {},
	"In-Progress": {},
	"Done":        {},
}

var scoreFields = map[string]struct{}{
	"reach":        {},
	"impact":       {},
	"confidence":   {},
	"effortRating": {},
}

type dataStore interface {
	Ping(ctx context.Context) error
	ListEpics(context.Context, string) ([]store.Epic, error)
	ListAllEpics(context.Context) ([]store.Epic, error)
	GetEpic(context.Context, string, string) (store.Epic, error)
	InsertEpic(context.Context, store.Epic) error
	UpdateEpic(context.Context, store.Epic) error
	DeleteEpic(context.Context, string, string) error
	GetCapacityPlan(context.Context, string, int, int) (*store.CapacityPlan, error)
	ReplaceCapacityPlan(context.Context, store.CapacityPlan) error
	GetRatingConfig(context.Context, string, planning.EffortUnit) (*store.RatingConfig, error)
	UpsertRatingConfig(context.Context, store.RatingConfig) error
	ListRoadmapItems(context.Context, string, int, int) ([]store.RoadmapItem, error)
	AssignedEpicIDs(context.Context, string, int, int) ([]string, error)
	ReplaceQuarterSelection(context.Context, string, int, int, []string) error
	GetRoadmapItem(context.Context, string, int, int, string) (store.RoadmapItem, error)
	UpdateRoadmapItem(context.Context, store.RoadmapItem) error
	SetScoreField(context.Context, string, int, int, string, string, int, float64) error
	SetEffortRating(context.Context, string, int, int, string, int, float64) error
	PublishQuarter(context.Context, string, int, int) (int, error)
	ListTeams(context.Context, string, int, int) ([]store.Team, error)
	InsertTeam(context.Context, store.Team) error
	UpdateTeam(context.Context, store.Team) error
	DeleteTeam(context.Context, string) error
	ListTeamMembers(context.Context, string) ([]store.TeamMember, error)
	InsertTeamMember(context.Context, store.TeamMember) error
	DeleteTeamMember(context.Context, string) error
	ListMemberAssignments(context.Context, string, string) ([]store.ResourceAssignment, error)
	InsertAssignment(context.Context, store.ResourceAssignment) error
	DeleteAssignment(context.Context, string, string) error
}

type idempotencyStore interface {
	Claim(ctx context.Context, requestKey string) (bool, error)
	Release(ctx context.Context, requestKey string) error
}

type planHistory interface {
	CommitPlan(productID string, snapshot planrepo.PlanSnapshot, author, message string) (planrepo.CommitInfo, error)
	History(productID string, limit int) ([]planrepo.CommitInfo, error)
	PlanAt(productID, hash string, year, quarter int) (planrepo.PlanSnapshot, error)
}

type snapshotArchive interface {
	PutQuarterSnapshot(ctx context.Context, productID string, year, quarter int, payload []byte) (archive.Snapshot, error)
	GetQuarterSnapshot(ctx context.Context, productID string, year, quarter int) ([]byte, error)
}

type epicSearch interface {
	Search(q search.Query) search.Response
	IndexEpic(record search.EpicRecord)
	DeleteEpic(productID, epicID string)
	ReindexEpics(records []search.EpicRecord)
}

type Service struct {
	cfg       config.Config
	store     dataStore
	idem      idempotencyStore
	plans     planHistory
	snapshots snapshotArchive
	search    epicSearch
}

// New wires the service. idem, plans, snapshots, and searchSvc may be nil;
// the matching features degrade instead of failing.
func New(cfg config.Config, dataStore *store.PostgresStore, idem *idempotency.Store, plans *planrepo.Service, snapshots *archive.Service, searchSvc *search.Service) *Service {
	svc := &Service{cfg: cfg, store: dataStore}
	if idem != nil {
		svc.idem = idem
	}
	if plans != nil {
		svc.plans = plans
	}
	if snapshots != nil {
		svc.snapshots = snapshots
	}
	if searchSvc != nil {
		svc.search = searchSvc
	}
	return svc
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Bootstrap rebuilds the search index from the database at startup. Losing
// the Meilisearch volume must never lose backlog search.
func (s *Service) Bootstrap(ctx context.Context) error {
	if s.search == nil {
		return nil
	}
	epics, err := s.store.ListAllEpics(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap epics: %w", err)
	}
	records := make([]search.EpicRecord, 0, len(epics))
	for _, epic := range epics {
		records = append(records, epicRecord(epic))
	}
	s.search.ReindexEpics(records)
	return nil
}

// ---- epics ----

type EpicInput struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	ThemeID      string `json:"themeId"`
	InitiativeID string `json:"initiativeId"`
	Track        string `json:"track"`
}

type EpicView struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	ThemeID      string    `json:"themeId,omitempty"`
	InitiativeID string    `json:"initiativeId,omitempty"`
	Track        string    `json:"track,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func epicView(epic store.Epic) EpicView {
	return EpicView{
		ID:           epic.ID,
		Name:         epic.Name,
		Description:  epic.Description,
		ThemeID:      epic.ThemeID,
		InitiativeID: epic.InitiativeID,
		Track:        epic.Track,
		UpdatedAt:    epic.UpdatedAt,
	}
}

func epicRecord(epic store.Epic) search.EpicRecord {
	return search.EpicRecord{
		ID:          search.RecordID(epic.ProductID, epic.ID),
		EpicID:      epic.ID,
		ProductID:   epic.ProductID,
		Name:        epic.Name,
		Description: epic.Description,
		ThemeID:     epic.ThemeID,
		Track:       epic.Track,
	}
}

func (s *Service) ListEpics(ctx context.Context, productID string) ([]EpicView, error) {
	epics, err := s.store.ListEpics(ctx, productID)
	if err != nil {
		return nil, err
	}
	views := make([]EpicView, 0, len(epics))
	for _, epic := range epics {
		views = append(views, epicView(epic))
	}
	return views, nil
}

func (s *Service) CreateEpic(ctx context.Context, productID string, input EpicInput) (EpicView, error) {
	if strings.TrimSpace(input.Name) == "" {
		return EpicView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	epic := store.Epic{
		ID:           strings.TrimSpace(input.ID),
		ProductID:    productID,
		Name:         strings.TrimSpace(input.Name),
		Description:  input.Description,
		ThemeID:      input.ThemeID,
		InitiativeID: input.InitiativeID,
		Track:        input.Track,
	}
	if epic.ID == "" {
		epic.ID = util.NewID("epic")
	}
	if err := s.store.InsertEpic(ctx, epic); err != nil {
		return EpicView{}, err
	}
	saved, err := s.store.GetEpic(ctx, productID, epic.ID)
	if err != nil {
		return EpicView{}, err
	}
	if s.search != nil {
		s.search.IndexEpic(epicRecord(saved))
	}
	return epicView(saved), nil
}

func (s *Service) UpdateEpic(ctx context.Context, productID, epicID string, input EpicInput) (EpicView, error) {
	if strings.TrimSpace(input.Name) == "" {
		return EpicView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	if _, err := s.store.GetEpic(ctx, productID, epicID); err != nil {
		return EpicView{}, err
	}
	epic := store.Epic{
		ID:           epicID,
		ProductID:    productID,
		Name:         strings.TrimSpace(input.Name),
		Description:  input.Description,
		ThemeID:      input.ThemeID,
		InitiativeID: input.InitiativeID,
		Track:        input.Track,
	}
	if err := s.store.UpdateEpic(ctx, epic); err != nil {
		return EpicView{}, err
	}
	saved, err := s.store.GetEpic(ctx, productID, epicID)
	if err != nil {
		return EpicView{}, err
	}
	if s.search != nil {
		s.search.IndexEpic(epicRecord(saved))
	}
	return epicView(saved), nil
}

func (s *Service) DeleteEpic(ctx context.Context, productID, epicID string) error {
	if err := s.store.DeleteEpic(ctx, productID, epicID); err != nil {
		return err
	}
	if s.search != nil {
		s.search.DeleteEpic(productID, epicID)
	}
	return nil
}

func (s *Service) SearchEpics(ctx context.Context, productID, text string, limit, offset int) (search.Response, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}, nil
	}
	return s.search.Search(search.Query{Text: text, ProductID: productID, Limit: limit, Offset: offset}), nil
}

// ---- capacity ----

type CapacityEntryInput struct {
	EpicID string  `json:"epicId"`
	TeamID string  `json:"teamId"`
	Amount float64 `json:"amount"`
	Notes  string  `json:"notes"`
}

type CapacityInput struct {
	EffortUnit string               `json:"effortUnit"`
	Entries    []CapacityEntryInput `json:"entries"`
	SavedBy    string               `json:"savedBy"`
}

// RatingPushResult reports the outcome of one epic's rating push after a
// capacity save. A failed push never fails the save.
type RatingPushResult struct {
	EpicID string  `json:"epicId"`
	Status string  `json:"status"` // PUSHED | CONFIG_MISSING | NOT_IN_QUARTER | ERROR
	Rating int     `json:"rating,omitempty"`
	Total  float64 `json:"total"`
	Error  string  `json:"error,omitempty"`
}

func (s *Service) GetCapacity(ctx context.Context, productID string, year, quarter int) (map[string]any, error) {
	plan, err := s.store.GetCapacityPlan(ctx, productID, year, quarter)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return map[string]any{
			"productId":  productID,
			"year":       year,
			"quarter":    quarter,
			"effortUnit": string(planning.UnitSprints),
			"entries":    []CapacityEntryInput{},
		}, nil
	}
	entries := make([]CapacityEntryInput, 0, len(plan.Entries))
	for _, entry := range plan.Entries {
		entries = append(entries, CapacityEntryInput{EpicID: entry.EpicID, TeamID: entry.TeamID, Amount: entry.Amount, Notes: entry.Notes})
	}
	return map[string]any{
		"productId":  productID,
		"year":       year,
		"quarter":    quarter,
		"effortUnit": string(plan.EffortUnit),
		"entries":    entries,
		"updatedAt":  plan.UpdatedAt,
	}, nil
}

// SaveCapacity replaces the quarter's plan, records it in history, then
// fans out effort ratings to the quarter's roadmap items. The save commits
// before any push starts; push failures surface per epic.
func (s *Service) SaveCapacity(ctx context.Context, productID string, year, quarter int, input CapacityInput) (map[string]any, error) {
	if !planning.ValidUnit(input.EffortUnit) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "effortUnit must be SPRINTS or DAYS", nil)
	}
	entries := make([]store.EffortEntry, 0, len(input.Entries))
	seen := make(map[string]struct{}, len(input.Entries))
	for _, entry := range input.Entries {
		if strings.TrimSpace(entry.EpicID) == "" || strings.TrimSpace(entry.TeamID) == "" {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "entries require epicId and teamId", nil)
		}
		if entry.Amount < 0 {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "effort amounts must be non-negative", nil)
		}
		pair := entry.EpicID + "\x00" + entry.TeamID
		if _, dup := seen[pair]; dup {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "duplicate entry for epic/team pair", map[string]any{"epicId": entry.EpicID, "teamId": entry.TeamID})
		}
		seen[pair] = struct{}{}
		entries = append(entries, store.EffortEntry{EpicID: entry.EpicID, TeamID: entry.TeamID, Amount: entry.Amount, Notes: entry.Notes})
	}

	plan := store.CapacityPlan{
		ProductID:  productID,
		Year:       year,
		Quarter:    quarter,
		EffortUnit: planning.EffortUnit(input.EffortUnit),
		Entries:    entries,
	}
	if err := s.store.ReplaceCapacityPlan(ctx, plan); err != nil {
		return nil, err
	}

	s.recordPlanHistory(productID, year, quarter, input)

	pushes := s.pushRatings(ctx, plan)

	return map[string]any{
		"productId":  productID,
		"year":       year,
		"quarter":    quarter,
		"effortUnit": input.EffortUnit,
		"saved":      true,
		"ratingPush": pushes,
	}, nil
}

func (s *Service) recordPlanHistory(productID string, year, quarter int, input CapacityInput) {
	if s.plans == nil {
		return
	}
	raw, err := json.Marshal(input.Entries)
	if err != nil {
		log.Printf("app: marshal plan history entries: %v", err)
		return
	}
	author := strings.TrimSpace(input.SavedBy)
	if author == "" {
		author = "planner"
	}
	snapshot := planrepo.PlanSnapshot{
		ProductID:  productID,
		Year:       year,
		Quarter:    quarter,
		EffortUnit: input.EffortUnit,
		Entries:    raw,
	}
	message := fmt.Sprintf("Save %d Q%d capacity plan", year, quarter)
	if _, err := s.plans.CommitPlan(productID, snapshot, author, message); err != nil {
		log.Printf("app: commit plan history for %s: %v", productID, err)
	}
}

// pushRatings classifies per-epic totals and writes effort ratings onto the
// quarter's roadmap items with a bounded worker pool.
func (s *Service) pushRatings(ctx context.Context, plan store.CapacityPlan) []RatingPushResult {
	planEntries := make([]planning.EffortEntry, 0, len(plan.Entries))
	for _, entry := range plan.Entries {
		planEntries = append(planEntries, planning.EffortEntry{EpicID: entry.EpicID, TeamID: entry.TeamID, Amount: entry.Amount})
	}
	totals := planning.EpicTotals(planEntries)
	if len(totals) == 0 {
		return []RatingPushResult{}
	}

	epicIDs := make([]string, 0, len(totals))
	for epicID := range totals {
		epicIDs = append(epicIDs, epicID)
	}
	sort.Strings(epicIDs)

	cfg, err := s.store.GetRatingConfig(ctx, plan.ProductID, plan.EffortUnit)
	if err != nil {
		log.Printf("app: load rating config for %s/%s: %v", plan.ProductID, plan.EffortUnit, err)
		cfg = nil
	}
	if cfg == nil {
		results := make([]RatingPushResult, 0, len(epicIDs))
		for _, epicID := range epicIDs {
			results = append(results, RatingPushResult{EpicID: epicID, Status: "CONFIG_MISSING", Total: totals[epicID]})
		}
		return results
	}

	workers := s.cfg.RatingPushWorkers
	if workers <= 0 {
		workers = 4
	}

	results := make([]RatingPushResult, len(epicIDs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, epicID := range epicIDs {
		wg.Add(1)
		go func(i int, epicID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = s.pushRating(ctx, plan, epicID, totals[epicID], cfg.Bands)
		}(i, epicID)
	}
	wg.Wait()
	return results
}

func (s *Service) pushRating(ctx context.Context, plan store.CapacityPlan, epicID string, total float64, bands planning.RatingConfig) RatingPushResult {
	rating := planning.Classify(total, bands)
	item, err := s.store.GetRoadmapItem(ctx, plan.ProductID, plan.Year, plan.Quarter, epicID)
	if errors.Is(err, sql.ErrNoRows) {
		return RatingPushResult{EpicID: epicID, Status: "NOT_IN_QUARTER", Rating: rating, Total: total}
	}
	if err != nil {
		return RatingPushResult{EpicID: epicID, Status: "ERROR", Total: total, Error: err.Error()}
	}
	rice := planning.RICEScore(item.Reach, item.Impact, item.Confidence, rating)
	if err := s.store.SetEffortRating(ctx, plan.ProductID, plan.Year, plan.Quarter, epicID, rating, rice); err != nil {
		return RatingPushResult{EpicID: epicID, Status: "ERROR", Total: total, Error: err.Error()}
	}
	return RatingPushResult{EpicID: epicID, Status: "PUSHED", Rating: rating, Total: total}
}

func (s *Service) CapacityHistory(ctx context.Context, productID string, limit int) ([]planrepo.CommitInfo, error) {
	if s.plans == nil {
		return []planrepo.CommitInfo{}, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.plans.History(productID, limit)
}

// CapacityPlanAt reads the quarter's plan as it was at one history commit.
func (s *Service) CapacityPlanAt(ctx context.Context, productID, hash string, year, quarter int) (map[string]any, error) {
	if s.plans == nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Plan history not configured", nil)
	}
	snapshot, err := s.plans.PlanAt(productID, hash, year, quarter)
	if err != nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "No plan snapshot at that commit", nil)
	}
	entries := snapshot.Entries
	if entries == nil {
		entries = json.RawMessage("[]")
	}
	return map[string]any{
		"productId":  snapshot.ProductID,
		"year":       snapshot.Year,
		"quarter":    snapshot.Quarter,
		"effortUnit": snapshot.EffortUnit,
		"entries":    entries,
		"commit":     hash,
	}, nil
}

// ---- rating config ----

type RatingConfigInput struct {
	Bands planning.RatingConfig `json:"bands"`
}

func (s *Service) GetRatingConfig(ctx context.Context, productID, unit string) (map[string]any, error) {
	if !planning.ValidUnit(unit) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unit must be SPRINTS or DAYS", nil)
	}
	cfg, err := s.store.GetRatingConfig(ctx, productID, planning.EffortUnit(unit))
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, sql.ErrNoRows
	}
	return map[string]any{
		"productId": cfg.ProductID,
		"unitType":  string(cfg.UnitType),
		"bands":     cfg.Bands,
		"updatedAt": cfg.UpdatedAt,
	}, nil
}

func (s *Service) PutRatingConfig(ctx context.Context, productID, unit string, input RatingConfigInput) (map[string]any, error) {
	if !planning.ValidUnit(unit) {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unit must be SPRINTS or DAYS", nil)
	}
	bands := input.Bands
	for name, value := range map[string]float64{
		"star1Max": bands.Star1Max,
		"star2Min": bands.Star2Min, "star2Max": bands.Star2Max,
		"star3Min": bands.Star3Min, "star3Max": bands.Star3Max,
		"star4Min": bands.Star4Min, "star4Max": bands.Star4Max,
		"star5Min": bands.Star5Min,
	} {
		if value < 0 {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", name+" must be non-negative", nil)
		}
	}
	cfg := store.RatingConfig{ProductID: productID, UnitType: planning.EffortUnit(unit), Bands: bands}
	if err := s.store.UpsertRatingConfig(ctx, cfg); err != nil {
		return nil, err
	}
	return s.GetRatingConfig(ctx, productID, unit)
}

// ---- roadmap ----

type RoadmapItemInput struct {
	EpicID     string  `json:"epicId"`
	Reach      int     `json:"reach"`
	Impact     int     `json:"impact"`
	Confidence int     `json:"confidence"`
	Status     string  `json:"status"`
	StartDate  *string `json:"startDate"`
	EndDate    *string `json:"endDate"`
}

type RoadmapInput struct {
	Items []RoadmapItemInput `json:"items"`
}

type RoadmapItemView struct {
	EpicID       string    `json:"epicId"`
	Reach        int       `json:"reach"`
	Impact       int       `json:"impact"`
	Confidence   int       `json:"confidence"`
	EffortRating int       `json:"effortRating"`
	RiceScore    float64   `json:"riceScore"`
	Status       string    `json:"status"`
	Published    bool      `json:"published"`
	StartDate    *string   `json:"startDate"`
	EndDate      *string   `json:"endDate"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func roadmapItemView(item store.RoadmapItem) RoadmapItemView {
	view := RoadmapItemView{
		EpicID:       item.EpicID,
		Reach:        item.Reach,
		Impact:       item.Impact,
		Confidence:   item.Confidence,
		EffortRating: item.EffortRating,
		// The stored score is a cache; reads recompute from the factors.
		RiceScore: planning.RICEScore(item.Reach, item.Impact, item.Confidence, item.EffortRating),
		Status:    item.Status,
		Published: item.Published,
		UpdatedAt: item.UpdatedAt,
	}
	if item.StartDate != nil {
		formatted := item.StartDate.Format(dateLayout)
		view.StartDate = &formatted
	}
	if item.EndDate != nil {
		formatted := item.EndDate.Format(dateLayout)
		view.EndDate = &formatted
	}
	return view
}

func (s *Service) GetRoadmap(ctx context.Context, productID string, year, quarter int) (map[string]any, error) {
	items, err := s.store.ListRoadmapItems(ctx, productID, year, quarter)
	if err != nil {
		return nil, err
	}
	views := make([]RoadmapItemView, 0, len(items))
	for _, item := range items {
		views = append(views, roadmapItemView(item))
	}
	sort.SliceStable(views, func(i, j int) bool { return views[i].RiceScore > views[j].RiceScore })
	return map[string]any{
		"productId": productID,
		"year":      year,
		"quarter":   quarter,
		"items":     views,
	}, nil
}

// ApplyRoadmap replaces the quarter's epic selection and overwrites the
// editable fields of every item in one request. An epic held by another
// quarter rolls the whole apply back with a conflict.
func (s *Service) ApplyRoadmap(ctx context.Context, productID string, year, quarter int, input RoadmapInput) (map[string]any, error) {
	// All validation happens before the first store write: a caller fault
	// must reject the request with nothing mutated.
	epicIDs := make([]string, 0, len(input.Items))
	startDates := make([]*time.Time, len(input.Items))
	endDates := make([]*time.Time, len(input.Items))
	seen := make(map[string]struct{}, len(input.Items))
	for i, item := range input.Items {
		epicID := strings.TrimSpace(item.EpicID)
		if epicID == "" {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "items require epicId", nil)
		}
		if _, dup := seen[epicID]; dup {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "duplicate epic in selection", map[string]any{"epicId": epicID})
		}
		seen[epicID] = struct{}{}
		if err := validateScore("reach", item.Reach); err != nil {
			return nil, err
		}
		if err := validateScore("impact", item.Impact); err != nil {
			return nil, err
		}
		if err := validateScore("confidence", item.Confidence); err != nil {
			return nil, err
		}
		if item.Status != "" {
			if _, ok := allowedItemStatuses[item.Status]; !ok {
				return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown status", map[string]any{"status": item.Status})
			}
		}
		startDate, err := parseOptionalDate("startDate", item.StartDate)
		if err != nil {
			return nil, err
		}
		endDate, err := parseOptionalDate("endDate", item.EndDate)
		if err != nil {
			return nil, err
		}
		if startDate != nil && endDate != nil && startDate.After(*endDate) {
			return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "startDate must not be after endDate", map[string]any{"epicId": epicID})
		}
		startDates[i] = startDate
		endDates[i] = endDate
		epicIDs = append(epicIDs, epicID)
	}

	if err := s.store.ReplaceQuarterSelection(ctx, productID, year, quarter, epicIDs); err != nil {
		return nil, err
	}

	for i, itemInput := range input.Items {
		epicID := epicIDs[i]
		current, err := s.store.GetRoadmapItem(ctx, productID, year, quarter, epicID)
		if err != nil {
			return nil, err
		}
		item := current
		item.Reach = itemInput.Reach
		item.Impact = itemInput.Impact
		item.Confidence = itemInput.Confidence
		item.RiceScore = planning.RICEScore(itemInput.Reach, itemInput.Impact, itemInput.Confidence, current.EffortRating)
		if itemInput.Status != "" {
			item.Status = itemInput.Status
		}
		item.StartDate = startDates[i]
		item.EndDate = endDates[i]
		if err := s.store.UpdateRoadmapItem(ctx, item); err != nil {
			return nil, err
		}
	}

	return s.GetRoadmap(ctx, productID, year, quarter)
}

type ScoreInput struct {
	Field string `json:"field"`
	Value int    `json:"value"`
}

// SaveScoreField is the single-field auto-save path. One field, one UPDATE,
// acknowledged before the client sends the next.
func (s *Service) SaveScoreField(ctx context.Context, productID string, year, quarter int, epicID string, input ScoreInput) (map[string]any, error) {
	if _, ok := scoreFields[input.Field]; !ok {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "field must be one of reach, impact, confidence, effortRating", nil)
	}
	if err := validateScore(input.Field, input.Value); err != nil {
		return nil, err
	}

	item, err := s.store.GetRoadmapItem(ctx, productID, year, quarter, epicID)
	if err != nil {
		return nil, err
	}

	reach, impact, confidence, effort := item.Reach, item.Impact, item.Confidence, item.EffortRating
	switch input.Field {
	case "reach":
		reach = input.Value
	case "impact":
		impact = input.Value
	case "confidence":
		confidence = input.Value
	case "effortRating":
		effort = input.Value
	}
	rice := planning.RICEScore(reach, impact, confidence, effort)

	if input.Field == "effortRating" {
		err = s.store.SetEffortRating(ctx, productID, year, quarter, epicID, input.Value, rice)
	} else {
		err = s.store.SetScoreField(ctx, productID, year, quarter, epicID, input.Field, input.Value, rice)
	}
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"epicId":    epicID,
		"field":     input.Field,
		"value":     input.Value,
		"riceScore": rice,
	}, nil
}

func (s *Service) AssignedEpics(ctx context.Context, productID string, excludeYear, excludeQuarter int) (map[string]any, error) {
	ids, err := s.store.AssignedEpicIDs(ctx, productID, excludeYear, excludeQuarter)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return map[string]any{"epicIds": ids}, nil
}

// ---- publish ----

// Publish flips every item in the quarter to published. Nothing is removed
// and re-publishing an already published quarter is harmless. An
// Idempotency-Key already claimed returns a REPLAYED result without touching
// the database again.
func (s *Service) Publish(ctx context.Context, productID string, year, quarter int, idemKey string) (map[string]any, error) {
	claimed := false
	if idemKey != "" && s.idem != nil {
		ok, err := s.idem.Claim(ctx, idemKey)
		if err != nil {
			log.Printf("app: idempotency claim failed, proceeding without replay protection: %v", err)
		} else if !ok {
			return map[string]any{
				"result":         "REPLAYED",
				"publishedCount": 0,
				"replayed":       true,
			}, nil
		} else {
			claimed = true
		}
	}

	count, err := s.store.PublishQuarter(ctx, productID, year, quarter)
	if err != nil {
		if claimed {
			if releaseErr := s.idem.Release(ctx, idemKey); releaseErr != nil {
				log.Printf("app: release idempotency key: %v", releaseErr)
			}
		}
		return nil, err
	}

	if count == 0 {
		return map[string]any{
			"result":         "NOTHING_TO_PUBLISH",
			"publishedCount": 0,
		}, nil
	}

	s.archivePublishedQuarter(ctx, productID, year, quarter)

	return map[string]any{
		"result":         "PUBLISHED",
		"publishedCount": count,
	}, nil
}

// archivePublishedQuarter uploads the published set to object storage.
// Best effort: a failed upload is logged, never surfaced to the publisher.
func (s *Service) archivePublishedQuarter(ctx context.Context, productID string, year, quarter int) {
	if s.snapshots == nil {
		return
	}
	roadmap, err := s.GetRoadmap(ctx, productID, year, quarter)
	if err != nil {
		log.Printf("app: load roadmap for snapshot %s %d Q%d: %v", productID, year, quarter, err)
		return
	}
	roadmap["publishedAt"] = time.Now().UTC()
	payload, err := json.Marshal(roadmap)
	if err != nil {
		log.Printf("app: marshal snapshot %s %d Q%d: %v", productID, year, quarter, err)
		return
	}
	if _, err := s.snapshots.PutQuarterSnapshot(ctx, productID, year, quarter, payload); err != nil {
		log.Printf("app: upload snapshot %s %d Q%d: %v", productID, year, quarter, err)
	}
}

func (s *Service) QuarterSnapshot(ctx context.Context, productID string, year, quarter int) ([]byte, error) {
	if s.snapshots == nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "Snapshot storage not configured", nil)
	}
	payload, err := s.snapshots.GetQuarterSnapshot(ctx, productID, year, quarter)
	if err != nil {
		return nil, domainError(http.StatusNotFound, "NOT_FOUND", "No snapshot for this quarter", nil)
	}
	return payload, nil
}

// ---- teams ----

type TeamInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    *bool  `json:"isActive"`
}

func (s *Service) ListTeams(ctx context.Context, productID string, year, quarter int) ([]store.Team, error) {
	return s.store.ListTeams(ctx, productID, year, quarter)
}

func (s *Service) CreateTeam(ctx context.Context, productID string, year, quarter int, input TeamInput) (store.Team, error) {
	if strings.TrimSpace(input.Name) == "" {
		return store.Team{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	team := store.Team{
		ID:          util.NewID("team"),
		ProductID:   productID,
		Year:        year,
		Quarter:     quarter,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		IsActive:    true,
	}
	if input.IsActive != nil {
		team.IsActive = *input.IsActive
	}
	if err := s.store.InsertTeam(ctx, team); err != nil {
		return store.Team{}, err
	}
	return team, nil
}

func (s *Service) UpdateTeam(ctx context.Context, productID, teamID string, input TeamInput) (store.Team, error) {
	if strings.TrimSpace(input.Name) == "" {
		return store.Team{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "name is required", nil)
	}
	team := store.Team{
		ID:          teamID,
		ProductID:   productID,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		IsActive:    true,
	}
	if input.IsActive != nil {
		team.IsActive = *input.IsActive
	}
	if err := s.store.UpdateTeam(ctx, team); err != nil {
		return store.Team{}, err
	}
	return team, nil
}

func (s *Service) DeleteTeam(ctx context.Context, teamID string) error {
	return s.store.DeleteTeam(ctx, teamID)
}

type MemberInput struct {
	MemberName string `json:"memberName"`
	Role       string `json:"role"`
}

func (s *Service) ListTeamMembers(ctx context.Context, teamID string) ([]store.TeamMember, error) {
	return s.store.ListTeamMembers(ctx, teamID)
}

func (s *Service) AddTeamMember(ctx context.Context, teamID string, input MemberInput) (store.TeamMember, error) {
	if strings.TrimSpace(input.MemberName) == "" {
		return store.TeamMember{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "memberName is required", nil)
	}
	member := store.TeamMember{
		ID:         util.NewID("member"),
		TeamID:     teamID,
		MemberName: strings.TrimSpace(input.MemberName),
		Role:       input.Role,
	}
	if err := s.store.InsertTeamMember(ctx, member); err != nil {
		return store.TeamMember{}, err
	}
	return member, nil
}

func (s *Service) RemoveTeamMember(ctx context.Context, memberID string) error {
	return s.store.DeleteTeamMember(ctx, memberID)
}

// ---- assignments ----

type AssignmentInput struct {
	UserStoryID string `json:"userStoryId"`
	MemberID    string `json:"memberId"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

type AssignmentView struct {
	ID          string `json:"id"`
	UserStoryID string `json:"userStoryId"`
	MemberID    string `json:"memberId"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

func assignmentView(assignment store.ResourceAssignment) AssignmentView {
	return AssignmentView{
		ID:          assignment.ID,
		UserStoryID: assignment.UserStoryID,
		MemberID:    assignment.MemberID,
		StartDate:   assignment.StartDate.Format(dateLayout),
		EndDate:     assignment.EndDate.Format(dateLayout),
	}
}

func (s *Service) MemberAssignments(ctx context.Context, productID, memberID string) ([]AssignmentView, error) {
	assignments, err := s.store.ListMemberAssignments(ctx, productID, memberID)
	if err != nil {
		return nil, err
	}
	views := make([]AssignmentView, 0, len(assignments))
	for _, assignment := range assignments {
		views = append(views, assignmentView(assignment))
	}
	return views, nil
}

// CheckAvailability is the advisory pre-check the assignment picker calls to
// prune its candidate list. The result can go stale before submit; the insert
// path re-checks inside its transaction.
func (s *Service) CheckAvailability(ctx context.Context, productID, memberID, startRaw, endRaw string) (map[string]any, error) {
	start, err := time.Parse(dateLayout, startRaw)
	if err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "start must be YYYY-MM-DD", nil)
	}
	end, err := time.Parse(dateLayout, endRaw)
	if err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "end must be YYYY-MM-DD", nil)
	}
	proposed := planning.DateRange{Start: start, End: end}
	if err := proposed.Validate(); err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "start must not be after end", nil)
	}

	records, err := s.store.ListMemberAssignments(ctx, productID, memberID)
	if err != nil {
		return nil, err
	}
	existing := make([]planning.Assignment, 0, len(records))
	for _, record := range records {
		existing = append(existing, planning.Assignment{
			ID:       record.ID,
			MemberID: record.MemberID,
			Range:    planning.DateRange{Start: record.StartDate, End: record.EndDate},
		})
	}

	payload := map[string]any{
		"memberId":  memberID,
		"start":     start.Format(dateLayout),
		"end":       end.Format(dateLayout),
		"available": true,
	}
	if conflict := planning.FirstConflict(memberID, proposed, existing); conflict != nil {
		payload["available"] = false
		payload["conflictingAssignmentId"] = conflict.ID
	}
	return payload, nil
}

// CreateAssignment validates the range and inserts. The overlap check runs
// inside the insert transaction; any client-side availability check is
// advisory only.
func (s *Service) CreateAssignment(ctx context.Context, productID string, input AssignmentInput) (AssignmentView, error) {
	if strings.TrimSpace(input.UserStoryID) == "" || strings.TrimSpace(input.MemberID) == "" {
		return AssignmentView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "userStoryId and memberId are required", nil)
	}
	start, err := time.Parse(dateLayout, input.StartDate)
	if err != nil {
		return AssignmentView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "startDate must be YYYY-MM-DD", nil)
	}
	end, err := time.Parse(dateLayout, input.EndDate)
	if err != nil {
		return AssignmentView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "endDate must be YYYY-MM-DD", nil)
	}
	if err := (planning.DateRange{Start: start, End: end}).Validate(); err != nil {
		return AssignmentView{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "startDate must not be after endDate", nil)
	}

	assignment := store.ResourceAssignment{
		ID:          util.NewID("assign"),
		ProductID:   productID,
		UserStoryID: strings.TrimSpace(input.UserStoryID),
		MemberID:    strings.TrimSpace(input.MemberID),
		StartDate:   start,
		EndDate:     end,
	}
	if err := s.store.InsertAssignment(ctx, assignment); err != nil {
		return AssignmentView{}, err
	}
	return assignmentView(assignment), nil
}

// DeleteAssignment removes an assignment; deleting an unknown id is a no-op.
// A failed delete releases its Idempotency-Key claim so the client's retry
// with the same key reaches the store instead of replaying a phantom success.
func (s *Service) DeleteAssignment(ctx context.Context, productID, assignmentID, idemKey string) (map[string]any, error) {
	claimed := false
	if idemKey != "" && s.idem != nil {
		ok, err := s.idem.Claim(ctx, idemKey)
		if err != nil {
			log.Printf("app: idempotency claim failed, proceeding without replay protection: %v", err)
		} else if !ok {
			return map[string]any{"deleted": true, "replayed": true}, nil
		} else {
			claimed = true
		}
	}
	if err := s.store.DeleteAssignment(ctx, productID, assignmentID); err != nil {
		if claimed {
			if releaseErr := s.idem.Release(ctx, idemKey); releaseErr != nil {
				log.Printf("app: release idempotency key: %v", releaseErr)
			}
		}
		return nil, err
	}
	return map[string]any{"deleted": true}, nil
}

// ---- export adapter ----

// ExportStore adapts the service to the export package's data needs.
type ExportStore struct {
	Service *Service
}

func (e ExportStore) ListQuarterItems(ctx context.Context, productID string, year, quarter int) ([]export.ItemInfo, error) {
	items, err := e.Service.store.ListRoadmapItems(ctx, productID, year, quarter)
	if err != nil {
		return nil, err
	}
	epics, err := e.Service.store.ListEpics(ctx, productID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]store.Epic, len(epics))
	for _, epic := range epics {
		names[epic.ID] = epic
	}

	infos := make([]export.ItemInfo, 0, len(items))
	for _, item := range items {
		info := export.ItemInfo{
			EpicID:       item.EpicID,
			EpicName:     item.EpicID,
			Reach:        item.Reach,
			Impact:       item.Impact,
			Confidence:   item.Confidence,
			EffortRating: item.EffortRating,
			RiceScore:    planning.RICEScore(item.Reach, item.Impact, item.Confidence, item.EffortRating),
			Status:       item.Status,
			Published:    item.Published,
		}
		if epic, ok := names[item.EpicID]; ok {
			info.EpicName = epic.Name
			info.Track = epic.Track
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (e ExportStore) QuarterEffortUnit(ctx context.Context, productID string, year, quarter int) (string, error) {
	plan, err := e.Service.store.GetCapacityPlan(ctx, productID, year, quarter)
	if err != nil {
		return "", err
	}
	if plan == nil {
		return string(planning.UnitSprints), nil
	}
	return string(plan.EffortUnit), nil
}

func (e ExportStore) TeamAllocations(ctx context.Context, productID string, year, quarter int) ([]export.TeamAllocation, error) {
	plan, err := e.Service.store.GetCapacityPlan(ctx, productID, year, quarter)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return []export.TeamAllocation{}, nil
	}
	planEntries := make([]planning.EffortEntry, 0, len(plan.Entries))
	for _, entry := range plan.Entries {
		planEntries = append(planEntries, planning.EffortEntry{EpicID: entry.EpicID, TeamID: entry.TeamID, Amount: entry.Amount})
	}
	totals := planning.TeamTotals(planEntries)

	teams, err := e.Service.store.ListTeams(ctx, productID, year, quarter)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(teams))
	for _, team := range teams {
		names[team.ID] = team.Name
	}

	teamIDs := make([]string, 0, len(totals))
	for teamID := range totals {
		teamIDs = append(teamIDs, teamID)
	}
	sort.Strings(teamIDs)

	allocations := make([]export.TeamAllocation, 0, len(teamIDs))
	for _, teamID := range teamIDs {
		name := names[teamID]
		if name == "" {
			name = teamID
		}
		allocations = append(allocations, export.TeamAllocation{TeamName: name, Allocated: totals[teamID]})
	}
	return allocations, nil
}

// ---- helpers ----

func validateScore(field string, value int) error {
	if value < 0 || value > 5 {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", field+" must be between 0 and 5", nil)
	}
	return nil
}

func parseOptionalDate(field string, raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	parsed, err := time.Parse(dateLayout, *raw)
	if err != nil {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", field+" must be YYYY-MM-DD", nil)
	}
	return &parsed, nil
}
