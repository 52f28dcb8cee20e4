package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"quarterdeck/api/internal/config"
	"quarterdeck/api/internal/planning"
	"quarterdeck/api/internal/planrepo"
	"quarterdeck/api/internal/store"
)

type fakeStore struct {
	listEpicsFn               func(context.Context, string) ([]store.Epic, error)
	getEpicFn                 func(context.Context, string, string) (store.Epic, error)
	insertEpicFn              func(context.Context, store.Epic) error
	getCapacityPlanFn         func(context.Context, string, int, int) (*store.CapacityPlan, error)
	replaceCapacityPlanFn     func(context.Context, store.CapacityPlan) error
	getRatingConfigFn         func(context.Context, string, planning.EffortUnit) (*store.RatingConfig, error)
	listRoadmapItemsFn        func(context.Context, string, int, int) ([]store.RoadmapItem, error)
	assignedEpicIDsFn         func(context.Context, string, int, int) ([]string, error)
	replaceQuarterSelectionFn func(context.Context, string, int, int, []string) error
	getRoadmapItemFn          func(context.Context, string, int, int, string) (store.RoadmapItem, error)
	updateRoadmapItemFn       func(context.Context, store.RoadmapItem) error
	setScoreFieldFn           func(context.Context, string, int, int, string, string, int, float64) error
	setEffortRatingFn         func(context.Context, string, int, int, string, int, float64) error
	publishQuarterFn          func(context.Context, string, int, int) (int, error)
	listMemberAssignmentsFn   func(context.Context, string, string) ([]store.ResourceAssignment, error)
	insertAssignmentFn        func(context.Context, store.ResourceAssignment) error
	deleteAssignmentFn        func(context.Context, string, string) error
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) ListEpics(ctx context.Context, productID string) ([]store.Epic, error) {
	if f.listEpicsFn != nil {
		return f.listEpicsFn(ctx, productID)
	}
	return nil, nil
}
func (f *fakeStore) ListAllEpics(context.Context) ([]store.Epic, error) { return nil, nil }
func (f *fakeStore) GetEpic(ctx context.Context, productID, epicID string) (store.Epic, error) {
	if f.getEpicFn != nil {
		return f.getEpicFn(ctx, productID, epicID)
	}
	return store.Epic{ID: epicID, ProductID: productID, Name: "Epic"}, nil
}
func (f *fakeStore) InsertEpic(ctx context.Context, epic store.Epic) error {
	if f.insertEpicFn != nil {
		return f.insertEpicFn(ctx, epic)
	}
	return nil
}
func (f *fakeStore) UpdateEpic(context.Context, store.Epic) error     { return nil }
func (f *fakeStore) DeleteEpic(context.Context, string, string) error { return nil }
func (f *fakeStore) GetCapacityPlan(ctx context.Context, productID string, year, quarter int) (*store.CapacityPlan, error) {
	if f.getCapacityPlanFn != nil {
		return f.getCapacityPlanFn(ctx, productID, year, quarter)
	}
	return nil, nil
}
func (f *fakeStore) ReplaceCapacityPlan(ctx context.Context, plan store.CapacityPlan) error {
	if f.replaceCapacityPlanFn != nil {
		return f.replaceCapacityPlanFn(ctx, plan)
	}
	return nil
}
func (f *fakeStore) GetRatingConfig(ctx context.Context, productID string, unit planning.EffortUnit) (*store.RatingConfig, error) {
	if f.getRatingConfigFn != nil {
		return f.getRatingConfigFn(ctx, productID, unit)
	}
	return nil, nil
}
func (f *fakeStore) UpsertRatingConfig(context.Context, store.RatingConfig) error { return nil }
func (f *fakeStore) ListRoadmapItems(ctx context.Context, productID string, year, quarter int) ([]store.RoadmapItem, error) {
	if f.listRoadmapItemsFn != nil {
		return f.listRoadmapItemsFn(ctx, productID, year, quarter)
	}
	return nil, nil
}
func (f *fakeStore) AssignedEpicIDs(ctx context.Context, productID string, excludeYear, excludeQuarter int) ([]string, error) {
	if f.assignedEpicIDsFn != nil {
		return f.assignedEpicIDsFn(ctx, productID, excludeYear, excludeQuarter)
	}
	return nil, nil
}
func (f *fakeStore) ReplaceQuarterSelection(ctx context.Context, productID string, year, quarter int, epicIDs []string) error {
	if f.replaceQuarterSelectionFn != nil {
		return f.replaceQuarterSelectionFn(ctx, productID, year, quarter, epicIDs)
	}
	return nil
}
func (f *fakeStore) GetRoadmapItem(ctx context.Context, productID string, year, quarter int, epicID string) (store.RoadmapItem, error) {
	if f.getRoadmapItemFn != nil {
		return f.getRoadmapItemFn(ctx, productID, year, quarter, epicID)
	}
	return store.RoadmapItem{}, sql.ErrNoRows
}
func (f *fakeStore) UpdateRoadmapItem(ctx context.Context, item store.RoadmapItem) error {
	if f.updateRoadmapItemFn != nil {
		return f.updateRoadmapItemFn(ctx, item)
	}
	return nil
}
func (f *fakeStore) SetScoreField(ctx context.Context, productID string, year, quarter int, epicID, field string, value int, rice float64) error {
	if f.setScoreFieldFn != nil {
		return f.setScoreFieldFn(ctx, productID, year, quarter, epicID, field, value, rice)
	}
	return nil
}
func (f *fakeStore) SetEffortRating(ctx context.Context, productID string, year, quarter int, epicID string, rating int, rice float64) error {
	if f.setEffortRatingFn != nil {
		return f.setEffortRatingFn(ctx, productID, year, quarter, epicID, rating, rice)
	}
	return nil
}
func (f *fakeStore) PublishQuarter(ctx context.Context, productID string, year, quarter int) (int, error) {
	if f.publishQuarterFn != nil {
		return f.publishQuarterFn(ctx, productID, year, quarter)
	}
	return 0, nil
}
func (f *fakeStore) ListTeams(context.Context, string, int, int) ([]store.Team, error) {
	return nil, nil
}
func (f *fakeStore) InsertTeam(context.Context, store.Team) error { return nil }
func (f *fakeStore) UpdateTeam(context.Context, store.Team) error { return nil }
func (f *fakeStore) DeleteTeam(context.Context, string) error     { return nil }
func (f *fakeStore) ListTeamMembers(context.Context, string) ([]store.TeamMember, error) {
	return nil, nil
}
func (f *fakeStore) InsertTeamMember(context.Context, store.TeamMember) error { return nil }
func (f *fakeStore) DeleteTeamMember(context.Context, string) error           { return nil }
func (f *fakeStore) ListMemberAssignments(ctx context.Context, productID, memberID string) ([]store.ResourceAssignment, error) {
	if f.listMemberAssignmentsFn != nil {
		return f.listMemberAssignmentsFn(ctx, productID, memberID)
	}
	return nil, nil
}
func (f *fakeStore) InsertAssignment(ctx context.Context, assignment store.ResourceAssignment) error {
	if f.insertAssignmentFn != nil {
		return f.insertAssignmentFn(ctx, assignment)
	}
	return nil
}
func (f *fakeStore) DeleteAssignment(ctx context.Context, productID, assignmentID string) error {
	if f.deleteAssignmentFn != nil {
		return f.deleteAssignmentFn(ctx, productID, assignmentID)
	}
	return nil
}

type fakeIdem struct {
	claimFn   func(context.Context, string) (bool, error)
	released  []string
	releaseMu sync.Mutex
}

func (f *fakeIdem) Claim(ctx context.Context, key string) (bool, error) {
	if f.claimFn != nil {
		return f.claimFn(ctx, key)
	}
	return true, nil
}

func (f *fakeIdem) Release(_ context.Context, key string) error {
	f.releaseMu.Lock()
	defer f.releaseMu.Unlock()
	f.released = append(f.released, key)
	return nil
}

type fakePlans struct {
	planAtFn func(string, string, int, int) (planrepo.PlanSnapshot, error)
}

func (f *fakePlans) CommitPlan(string, planrepo.PlanSnapshot, string, string) (planrepo.CommitInfo, error) {
	return planrepo.CommitInfo{Hash: "abc1234"}, nil
}

func (f *fakePlans) History(string, int) ([]planrepo.CommitInfo, error) {
	return []planrepo.CommitInfo{}, nil
}

func (f *fakePlans) PlanAt(productID, hash string, year, quarter int) (planrepo.PlanSnapshot, error) {
	if f.planAtFn != nil {
		return f.planAtFn(productID, hash, year, quarter)
	}
	return planrepo.PlanSnapshot{}, errors.New("no snapshot")
}

func newTestService(fake *fakeStore) *Service {
	return &Service{cfg: config.Config{RatingPushWorkers: 4}, store: fake}
}

var testBands = planning.RatingConfig{
	Star1Max: 2,
	Star2Min: 3, Star2Max: 4,
	Star3Min: 5, Star3Max: 8,
	Star4Min: 9, Star4Max: 12,
	Star5Min: 13,
}

func expectValidationError(t *testing.T, err error) {
	t.Helper()
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %v", err)
	}
	if domainErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %s", domainErr.Code)
	}
}

func TestSaveCapacityPushesRatings(t *testing.T) {
	pushed := map[string]int{}
	var pushMu sync.Mutex
	var savedPlan store.CapacityPlan

	fake := &fakeStore{
		replaceCapacityPlanFn: func(_ context.Context, plan store.CapacityPlan) error {
			savedPlan = plan
			return nil
		},
		getRatingConfigFn: func(context.Context, string, planning.EffortUnit) (*store.RatingConfig, error) {
			return &store.RatingConfig{ProductID: "prod-1", UnitType: planning.UnitSprints, Bands: testBands}, nil
		},
		getRoadmapItemFn: func(_ context.Context, _ string, _, _ int, epicID string) (store.RoadmapItem, error) {
			return store.RoadmapItem{EpicID: epicID, Reach: 4, Impact: 3, Confidence: 5}, nil
		},
		setEffortRatingFn: func(_ context.Context, _ string, _, _ int, epicID string, rating int, _ float64) error {
			pushMu.Lock()
			defer pushMu.Unlock()
			pushed[epicID] = rating
			return nil
		},
	}
	svc := newTestService(fake)

	payload, err := svc.SaveCapacity(context.Background(), "prod-1", 2026, 3, CapacityInput{
		EffortUnit: "SPRINTS",
		Entries: []CapacityEntryInput{
			{EpicID: "epic-a", TeamID: "team-1", Amount: 2},
			{EpicID: "epic-a", TeamID: "team-2", Amount: 2},
			{EpicID: "epic-b", TeamID: "team-1", Amount: 10},
		},
	})
	if err != nil {
		t.Fatalf("SaveCapacity() error = %v", err)
	}

	if len(savedPlan.Entries) != 3 {
		t.Fatalf("expected 3 saved entries, got %d", len(savedPlan.Entries))
	}
	// epic-a totals 4 -> band 2; epic-b totals 10 -> band 4
	if pushed["epic-a"] != 2 || pushed["epic-b"] != 4 {
		t.Fatalf("unexpected pushed ratings: %v", pushed)
	}

	results, ok := payload["ratingPush"].([]RatingPushResult)
	if !ok {
		t.Fatalf("missing ratingPush in payload: %v", payload)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 push results, got %d", len(results))
	}
	for _, result := range results {
		if result.Status != "PUSHED" {
			t.Fatalf("expected PUSHED, got %+v", result)
		}
	}
}

func TestSaveCapacityConfigMissingSkipsPush(t *testing.T) {
	pushes := int32(0)
	fake := &fakeStore{
		setEffortRatingFn: func(context.Context, string, int, int, string, int, float64) error {
			atomic.AddInt32(&pushes, 1)
			return nil
		},
	}
	svc := newTestService(fake)

	payload, err := svc.SaveCapacity(context.Background(), "prod-1", 2026, 3, CapacityInput{
		EffortUnit: "DAYS",
		Entries:    []CapacityEntryInput{{EpicID: "epic-a", TeamID: "team-1", Amount: 5}},
	})
	if err != nil {
		t.Fatalf("SaveCapacity() error = %v", err)
	}

	results := payload["ratingPush"].([]RatingPushResult)
	if len(results) != 1 || results[0].Status != "CONFIG_MISSING" {
		t.Fatalf("expected CONFIG_MISSING result, got %+v", results)
	}
	if atomic.LoadInt32(&pushes) != 0 {
		t.Fatal("expected no rating pushes without a config")
	}
}

func TestSaveCapacityPushReportsNotInQuarter(t *testing.T) {
	fake := &fakeStore{
		getRatingConfigFn: func(context.Context, string, planning.EffortUnit) (*store.RatingConfig, error) {
			return &store.RatingConfig{Bands: testBands}, nil
		},
		getRoadmapItemFn: func(context.Context, string, int, int, string) (store.RoadmapItem, error) {
			return store.RoadmapItem{}, sql.ErrNoRows
		},
	}
	svc := newTestService(fake)

	payload, err := svc.SaveCapacity(context.Background(), "prod-1", 2026, 3, CapacityInput{
		EffortUnit: "SPRINTS",
		Entries:    []CapacityEntryInput{{EpicID: "epic-x", TeamID: "team-1", Amount: 1}},
	})
	if err != nil {
		t.Fatalf("SaveCapacity() error = %v", err)
	}
	results := payload["ratingPush"].([]RatingPushResult)
	if len(results) != 1 || results[0].Status != "NOT_IN_QUARTER" {
		t.Fatalf("expected NOT_IN_QUARTER, got %+v", results)
	}
}

func TestSaveCapacityPushFailureDoesNotFailSave(t *testing.T) {
	fake := &fakeStore{
		getRatingConfigFn: func(context.Context, string, planning.EffortUnit) (*store.RatingConfig, error) {
			return &store.RatingConfig{Bands: testBands}, nil
		},
		getRoadmapItemFn: func(_ context.Context, _ string, _, _ int, epicID string) (store.RoadmapItem, error) {
			return store.RoadmapItem{EpicID: epicID}, nil
		},
		setEffortRatingFn: func(context.Context, string, int, int, string, int, float64) error {
			return errors.New("write failed")
		},
	}
	svc := newTestService(fake)

	payload, err := svc.SaveCapacity(context.Background(), "prod-1", 2026, 3, CapacityInput{
		EffortUnit: "SPRINTS",
		Entries:    []CapacityEntryInput{{EpicID: "epic-a", TeamID: "team-1", Amount: 1}},
	})
	if err != nil {
		t.Fatalf("SaveCapacity() error = %v", err)
	}
	results := payload["ratingPush"].([]RatingPushResult)
	if results[0].Status != "ERROR" || results[0].Error == "" {
		t.Fatalf("expected ERROR result with message, got %+v", results[0])
	}
}

func TestSaveCapacityBoundsPushConcurrency(t *testing.T) {
	var inFlight, peak int32
	entries := make([]CapacityEntryInput, 0, 16)
	for i := 0; i < 16; i++ {
		entries = append(entries, CapacityEntryInput{EpicID: string(rune('a' + i)), TeamID: "team-1", Amount: 1})
	}

	fake := &fakeStore{
		getRatingConfigFn: func(context.Context, string, planning.EffortUnit) (*store.RatingConfig, error) {
			return &store.RatingConfig{Bands: testBands}, nil
		},
		getRoadmapItemFn: func(_ context.Context, _ string, _, _ int, epicID string) (store.RoadmapItem, error) {
			current := atomic.AddInt32(&inFlight, 1)
			for {
				max := atomic.LoadInt32(&peak)
				if current <= max || atomic.CompareAndSwapInt32(&peak, max, current) {
					break
				}
			}
			defer atomic.AddInt32(&inFlight, -1)
			return store.RoadmapItem{EpicID: epicID}, nil
		},
	}
	svc := &Service{cfg: config.Config{RatingPushWorkers: 2}, store: fake}

	if _, err := svc.SaveCapacity(context.Background(), "prod-1", 2026, 3, CapacityInput{EffortUnit: "SPRINTS", Entries: entries}); err != nil {
		t.Fatalf("SaveCapacity() error = %v", err)
	}
	if got := atomic.LoadInt32(&peak); got > 2 {
		t.Fatalf("expected at most 2 concurrent pushes, observed %d", got)
	}
}

func TestSaveCapacityValidation(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.SaveCapacity(context.Background(), "prod-1", 2026, 3, CapacityInput{EffortUnit: "WEEKS"})
	expectValidationError(t, err)

	_, err = svc.SaveCapacity(context.Background(), "prod-1", 2026, 3, CapacityInput{
		EffortUnit: "SPRINTS",
		Entries:    []CapacityEntryInput{{EpicID: "epic-a", TeamID: "team-1", Amount: -1}},
	})
	expectValidationError(t, err)

	_, err = svc.SaveCapacity(context.Background(), "prod-1", 2026, 3, CapacityInput{
		EffortUnit: "SPRINTS",
		Entries: []CapacityEntryInput{
			{EpicID: "epic-a", TeamID: "team-1", Amount: 1},
			{EpicID: "epic-a", TeamID: "team-1", Amount: 2},
		},
	})
	expectValidationError(t, err)
}

func TestCapacityPlanAtReadsHistoryCommit(t *testing.T) {
	svc := newTestService(&fakeStore{})
	svc.plans = &fakePlans{planAtFn: func(productID, hash string, year, quarter int) (planrepo.PlanSnapshot, error) {
		if productID != "prod-1" || hash != "abc1234" || year != 2026 || quarter != 3 {
			t.Errorf("unexpected lookup: %s %s %d Q%d", productID, hash, year, quarter)
		}
		return planrepo.PlanSnapshot{
			ProductID:  "prod-1",
			Year:       2026,
			Quarter:    3,
			EffortUnit: "SPRINTS",
			Entries:    json.RawMessage(`[{"epicId":"epic-a","teamId":"team-1","amount":4}]`),
		}, nil
	}}

	payload, err := svc.CapacityPlanAt(context.Background(), "prod-1", "abc1234", 2026, 3)
	if err != nil {
		t.Fatalf("CapacityPlanAt() error = %v", err)
	}
	if payload["effortUnit"] != "SPRINTS" || payload["commit"] != "abc1234" {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestCapacityPlanAtUnknownCommitIs404(t *testing.T) {
	svc := newTestService(&fakeStore{})
	svc.plans = &fakePlans{}

	_, err := svc.CapacityPlanAt(context.Background(), "prod-1", "ffffff0", 2026, 3)
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}

	svc.plans = nil
	_, err = svc.CapacityPlanAt(context.Background(), "prod-1", "ffffff0", 2026, 3)
	if !errors.As(err, &domainErr) || domainErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND without history configured, got %v", err)
	}
}

func TestPublishNothingToPublish(t *testing.T) {
	fake := &fakeStore{
		publishQuarterFn: func(context.Context, string, int, int) (int, error) { return 0, nil },
	}
	svc := newTestService(fake)

	payload, err := svc.Publish(context.Background(), "prod-1", 2026, 3, "")
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if payload["result"] != "NOTHING_TO_PUBLISH" || payload["publishedCount"] != 0 {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestPublishReportsCount(t *testing.T) {
	fake := &fakeStore{
		publishQuarterFn: func(context.Context, string, int, int) (int, error) { return 7, nil },
	}
	svc := newTestService(fake)

	payload, err := svc.Publish(context.Background(), "prod-1", 2026, 3, "")
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if payload["result"] != "PUBLISHED" || payload["publishedCount"] != 7 {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestPublishReplayedKeySkipsWrite(t *testing.T) {
	writes := int32(0)
	fake := &fakeStore{
		publishQuarterFn: func(context.Context, string, int, int) (int, error) {
			atomic.AddInt32(&writes, 1)
			return 3, nil
		},
	}
	svc := newTestService(fake)
	svc.idem = &fakeIdem{claimFn: func(context.Context, string) (bool, error) { return false, nil }}

	payload, err := svc.Publish(context.Background(), "prod-1", 2026, 3, "key-1")
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if payload["replayed"] != true || payload["result"] != "REPLAYED" {
		t.Fatalf("expected REPLAYED payload, got %v", payload)
	}
	if atomic.LoadInt32(&writes) != 0 {
		t.Fatal("expected no publish write on replayed key")
	}
}

func TestPublishFailureReleasesIdempotencyKey(t *testing.T) {
	fake := &fakeStore{
		publishQuarterFn: func(context.Context, string, int, int) (int, error) {
			return 0, errors.New("db down")
		},
	}
	idem := &fakeIdem{}
	svc := newTestService(fake)
	svc.idem = idem

	if _, err := svc.Publish(context.Background(), "prod-1", 2026, 3, "key-1"); err == nil {
		t.Fatal("expected publish error")
	}
	if len(idem.released) != 1 || idem.released[0] != "key-1" {
		t.Fatalf("expected key release, got %v", idem.released)
	}
}

func TestDeleteAssignmentFailureReleasesIdempotencyKey(t *testing.T) {
	fake := &fakeStore{
		deleteAssignmentFn: func(context.Context, string, string) error {
			return errors.New("db down")
		},
	}
	idem := &fakeIdem{}
	svc := newTestService(fake)
	svc.idem = idem

	if _, err := svc.DeleteAssignment(context.Background(), "prod-1", "assign-1", "del-1"); err == nil {
		t.Fatal("expected delete error")
	}
	if len(idem.released) != 1 || idem.released[0] != "del-1" {
		t.Fatalf("expected key release on failed delete, got %v", idem.released)
	}
}

func TestDeleteAssignmentRetryAfterFailureReachesStore(t *testing.T) {
	attempts := 0
	fake := &fakeStore{
		deleteAssignmentFn: func(context.Context, string, string) error {
			attempts++
			if attempts == 1 {
				return errors.New("db down")
			}
			return nil
		},
	}
	claimed := map[string]bool{}
	svc := newTestService(fake)
	svc.idem = &fakeIdem{claimFn: func(_ context.Context, key string) (bool, error) {
		if claimed[key] {
			return false, nil
		}
		claimed[key] = true
		return true, nil
	}}
	idem := svc.idem.(*fakeIdem)

	if _, err := svc.DeleteAssignment(context.Background(), "prod-1", "assign-1", "del-1"); err == nil {
		t.Fatal("expected first delete to fail")
	}
	// The release must free the key for the retry.
	for _, key := range idem.released {
		delete(claimed, key)
	}

	payload, err := svc.DeleteAssignment(context.Background(), "prod-1", "assign-1", "del-1")
	if err != nil {
		t.Fatalf("retry DeleteAssignment() error = %v", err)
	}
	if payload["deleted"] != true || payload["replayed"] == true {
		t.Fatalf("expected a real delete on retry, got %v", payload)
	}
	if attempts != 2 {
		t.Fatalf("expected 2 store attempts, got %d", attempts)
	}
}

func TestSaveScoreFieldRecomputesRice(t *testing.T) {
	var gotField string
	var gotRice float64
	fake := &fakeStore{
		getRoadmapItemFn: func(context.Context, string, int, int, string) (store.RoadmapItem, error) {
			return store.RoadmapItem{EpicID: "epic-a", Reach: 4, Impact: 3, Confidence: 5, EffortRating: 5}, nil
		},
		setScoreFieldFn: func(_ context.Context, _ string, _, _ int, _ string, field string, _ int, rice float64) error {
			gotField = field
			gotRice = rice
			return nil
		},
	}
	svc := newTestService(fake)

	payload, err := svc.SaveScoreField(context.Background(), "prod-1", 2026, 3, "epic-a", ScoreInput{Field: "impact", Value: 5})
	if err != nil {
		t.Fatalf("SaveScoreField() error = %v", err)
	}
	// 4 * 5 * 5 / 5 = 20
	if gotField != "impact" || gotRice != 20 {
		t.Fatalf("unexpected write: field=%s rice=%v", gotField, gotRice)
	}
	if payload["riceScore"] != 20.0 {
		t.Fatalf("unexpected payload: %v", payload)
	}
}

func TestSaveScoreFieldEffortUsesRatingPath(t *testing.T) {
	var gotRating int
	fake := &fakeStore{
		getRoadmapItemFn: func(context.Context, string, int, int, string) (store.RoadmapItem, error) {
			return store.RoadmapItem{EpicID: "epic-a", Reach: 4, Impact: 3, Confidence: 5}, nil
		},
		setEffortRatingFn: func(_ context.Context, _ string, _, _ int, _ string, rating int, _ float64) error {
			gotRating = rating
			return nil
		},
	}
	svc := newTestService(fake)

	if _, err := svc.SaveScoreField(context.Background(), "prod-1", 2026, 3, "epic-a", ScoreInput{Field: "effortRating", Value: 3}); err != nil {
		t.Fatalf("SaveScoreField() error = %v", err)
	}
	if gotRating != 3 {
		t.Fatalf("expected effort rating write of 3, got %d", gotRating)
	}
}

func TestSaveScoreFieldValidation(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.SaveScoreField(context.Background(), "prod-1", 2026, 3, "epic-a", ScoreInput{Field: "velocity", Value: 3})
	expectValidationError(t, err)

	_, err = svc.SaveScoreField(context.Background(), "prod-1", 2026, 3, "epic-a", ScoreInput{Field: "reach", Value: 9})
	expectValidationError(t, err)
}

func TestCreateAssignmentValidatesRange(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.CreateAssignment(context.Background(), "prod-1", AssignmentInput{
		UserStoryID: "story-1", MemberID: "member-1",
		StartDate: "2026-07-10", EndDate: "2026-07-01",
	})
	expectValidationError(t, err)

	_, err = svc.CreateAssignment(context.Background(), "prod-1", AssignmentInput{
		UserStoryID: "story-1", MemberID: "member-1",
		StartDate: "July 1", EndDate: "2026-07-10",
	})
	expectValidationError(t, err)
}

func TestCheckAvailabilityReportsConflict(t *testing.T) {
	day := func(value string) time.Time {
		parsed, err := time.Parse("2006-01-02", value)
		if err != nil {
			t.Fatalf("parse %s: %v", value, err)
		}
		return parsed
	}
	fake := &fakeStore{
		listMemberAssignmentsFn: func(context.Context, string, string) ([]store.ResourceAssignment, error) {
			return []store.ResourceAssignment{
				{ID: "assign-1", MemberID: "member-1", StartDate: day("2025-01-01"), EndDate: day("2025-01-10")},
			}, nil
		},
	}
	svc := newTestService(fake)

	// Shared boundary day is an overlap.
	payload, err := svc.CheckAvailability(context.Background(), "prod-1", "member-1", "2025-01-10", "2025-01-15")
	if err != nil {
		t.Fatalf("CheckAvailability() error = %v", err)
	}
	if payload["available"] != false || payload["conflictingAssignmentId"] != "assign-1" {
		t.Fatalf("expected conflict with assign-1, got %v", payload)
	}

	payload, err = svc.CheckAvailability(context.Background(), "prod-1", "member-1", "2025-01-11", "2025-01-15")
	if err != nil {
		t.Fatalf("CheckAvailability() error = %v", err)
	}
	if payload["available"] != true {
		t.Fatalf("expected availability, got %v", payload)
	}
}

func TestCheckAvailabilityValidatesRange(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.CheckAvailability(context.Background(), "prod-1", "member-1", "2025-01-15", "2025-01-10")
	expectValidationError(t, err)

	_, err = svc.CheckAvailability(context.Background(), "prod-1", "member-1", "soon", "2025-01-10")
	expectValidationError(t, err)
}

func TestCreateAssignmentPropagatesOverlap(t *testing.T) {
	fake := &fakeStore{
		insertAssignmentFn: func(context.Context, store.ResourceAssignment) error {
			return &store.OverlapError{AssignmentID: "assign-1", MemberID: "member-1"}
		},
	}
	svc := newTestService(fake)

	_, err := svc.CreateAssignment(context.Background(), "prod-1", AssignmentInput{
		UserStoryID: "story-1", MemberID: "member-1",
		StartDate: "2026-07-01", EndDate: "2026-07-10",
	})
	var overlap *store.OverlapError
	if !errors.As(err, &overlap) {
		t.Fatalf("expected OverlapError, got %v", err)
	}
}

func TestApplyRoadmapValidation(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.ApplyRoadmap(context.Background(), "prod-1", 2026, 3, RoadmapInput{
		Items: []RoadmapItemInput{{EpicID: ""}},
	})
	expectValidationError(t, err)

	_, err = svc.ApplyRoadmap(context.Background(), "prod-1", 2026, 3, RoadmapInput{
		Items: []RoadmapItemInput{{EpicID: "epic-a"}, {EpicID: "epic-a"}},
	})
	expectValidationError(t, err)

	_, err = svc.ApplyRoadmap(context.Background(), "prod-1", 2026, 3, RoadmapInput{
		Items: []RoadmapItemInput{{EpicID: "epic-a", Status: "Someday"}},
	})
	expectValidationError(t, err)
}

func TestApplyRoadmapRejectsBadDatesBeforeAnyWrite(t *testing.T) {
	replaces := 0
	updates := 0
	fake := &fakeStore{
		replaceQuarterSelectionFn: func(context.Context, string, int, int, []string) error {
			replaces++
			return nil
		},
		updateRoadmapItemFn: func(context.Context, store.RoadmapItem) error {
			updates++
			return nil
		},
	}
	svc := newTestService(fake)

	start := "2026-07-10"
	end := "2026-07-01"
	_, err := svc.ApplyRoadmap(context.Background(), "prod-1", 2026, 3, RoadmapInput{
		Items: []RoadmapItemInput{
			{EpicID: "epic-a", StartDate: &start, EndDate: &end},
		},
	})
	expectValidationError(t, err)
	if replaces != 0 || updates != 0 {
		t.Fatalf("expected no store writes on validation failure, got replaces=%d updates=%d", replaces, updates)
	}

	bad := "next tuesday"
	_, err = svc.ApplyRoadmap(context.Background(), "prod-1", 2026, 3, RoadmapInput{
		Items: []RoadmapItemInput{
			{EpicID: "epic-ok"},
			{EpicID: "epic-bad", StartDate: &bad},
		},
	})
	expectValidationError(t, err)
	if replaces != 0 || updates != 0 {
		t.Fatalf("expected no store writes when any item fails validation, got replaces=%d updates=%d", replaces, updates)
	}
}

func TestGetRoadmapRecomputesRice(t *testing.T) {
	fake := &fakeStore{
		listRoadmapItemsFn: func(context.Context, string, int, int) ([]store.RoadmapItem, error) {
			return []store.RoadmapItem{
				// stale cached score on purpose
				{EpicID: "epic-a", Reach: 4, Impact: 3, Confidence: 1, EffortRating: 1, RiceScore: 999},
				{EpicID: "epic-b", Reach: 5, Impact: 5, Confidence: 5, EffortRating: 1, RiceScore: 0},
			}, nil
		},
	}
	svc := newTestService(fake)

	payload, err := svc.GetRoadmap(context.Background(), "prod-1", 2026, 3)
	if err != nil {
		t.Fatalf("GetRoadmap() error = %v", err)
	}
	views := payload["items"].([]RoadmapItemView)
	if views[0].EpicID != "epic-b" || views[0].RiceScore != 125 {
		t.Fatalf("expected epic-b first with recomputed score 125, got %+v", views[0])
	}
	if views[1].RiceScore != 12 {
		t.Fatalf("expected recomputed score 12, got %+v", views[1])
	}
}
