package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"quarterdeck/api/internal/planning"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// uniqueViolation reports whether err is a Postgres unique-constraint failure.
func uniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// exclusionViolation reports whether err is a Postgres exclusion-constraint
// failure, raised by the assignment no-overlap guard.
func exclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

// ---- epics ----

const epicColumns = `id, product_id, name, COALESCE(description, ''), COALESCE(theme_id, ''), COALESCE(initiative_id, ''), COALESCE(track, ''), created_at, updated_at`

func scanEpic(scanner interface{ Scan(...any) error }) (Epic, error) {
	var item Epic
	err := scanner.Scan(
		&item.ID,
		&item.ProductID,
		&item.Name,
		&item.Description,
		&item.ThemeID,
		&item.InitiativeID,
		&item.Track,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	return item, err
}

func (s *PostgresStore) ListEpics(ctx context.Context, productID string) ([]Epic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+epicColumns+`
		FROM epics
		WHERE product_id=$1
		ORDER BY name ASC
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("list epics: %w", err)
	}
	defer rows.Close()

	items := make([]Epic, 0)
	for rows.Next() {
		item, err := scanEpic(rows)
		if err != nil {
			return nil, fmt.Errorf("scan epic: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate epics: %w", err)
	}
	return items, nil
}

// ListAllEpics returns every epic across products, used to rebuild the
// search index at startup.
func (s *PostgresStore) ListAllEpics(ctx context.Context) ([]Epic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+epicColumns+`
		FROM epics
		ORDER BY product_id ASC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list all epics: %w", err)
	}
	defer rows.Close()

	items := make([]Epic, 0)
	for rows.Next() {
		item, err := scanEpic(rows)
		if err != nil {
			return nil, fmt.Errorf("scan epic: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate epics: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetEpic(ctx context.Context, productID, epicID string) (Epic, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+epicColumns+`
		FROM epics
		WHERE product_id=$1 AND id=$2
	`, productID, epicID)
	item, err := scanEpic(row)
	if err != nil {
		return Epic{}, err
	}
	return item, nil
}

func (s *PostgresStore) InsertEpic(ctx context.Context, item Epic) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO epics (id, product_id, name, description, theme_id, initiative_id, track)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''))
	`, item.ID, item.ProductID, item.Name, item.Description, item.ThemeID, item.InitiativeID, item.Track)
	if err != nil {
		return fmt.Errorf("insert epic: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateEpic(ctx context.Context, item Epic) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE epics
		SET name=$3, description=$4, theme_id=NULLIF($5, ''), initiative_id=NULLIF($6, ''), track=NULLIF($7, ''), updated_at=NOW()
		WHERE product_id=$1 AND id=$2
	`, item.ProductID, item.ID, item.Name, item.Description, item.ThemeID, item.InitiativeID, item.Track)
	if err != nil {
		return fmt.Errorf("update epic: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteEpic(ctx context.Context, productID, epicID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM epics WHERE product_id=$1 AND id=$2`, productID, epicID)
	if err != nil {
		return fmt.Errorf("delete epic: %w", err)
	}
	return nil
}

// ---- capacity plans ----

// GetCapacityPlan returns nil when no plan exists yet for the quarter; an
// unsaved quarter is an empty state, not an error.
func (s *PostgresStore) GetCapacityPlan(ctx context.Context, productID string, year, quarter int) (*CapacityPlan, error) {
	plan := CapacityPlan{ProductID: productID, Year: year, Quarter: quarter}
	err := s.db.QueryRowContext(ctx, `
		SELECT effort_unit, updated_at
		FROM capacity_plans
		WHERE product_id=$1 AND year=$2 AND quarter=$3
	`, productID, year, quarter).Scan(&plan.EffortUnit, &plan.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get capacity plan: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT epic_id, team_id, effort_amount, COALESCE(notes, '')
		FROM capacity_entries
		WHERE product_id=$1 AND year=$2 AND quarter=$3
		ORDER BY epic_id ASC, team_id ASC
	`, productID, year, quarter)
	if err != nil {
		return nil, fmt.Errorf("list capacity entries: %w", err)
	}
	defer rows.Close()

	plan.Entries = make([]EffortEntry, 0)
	for rows.Next() {
		var entry EffortEntry
		if err := rows.Scan(&entry.EpicID, &entry.TeamID, &entry.Amount, &entry.Notes); err != nil {
			return nil, fmt.Errorf("scan capacity entry: %w", err)
		}
		plan.Entries = append(plan.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate capacity entries: %w", err)
	}
	return &plan, nil
}

// ReplaceCapacityPlan fully replaces the quarter's entry set in one
// transaction; saves are whole-plan, never patches.
func (s *PostgresStore) ReplaceCapacityPlan(ctx context.Context, plan CapacityPlan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin capacity save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO capacity_plans (product_id, year, quarter, effort_unit)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id, year, quarter) DO UPDATE SET effort_unit=EXCLUDED.effort_unit, updated_at=NOW()
	`, plan.ProductID, plan.Year, plan.Quarter, string(plan.EffortUnit)); err != nil {
		return fmt.Errorf("upsert capacity plan: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM capacity_entries WHERE product_id=$1 AND year=$2 AND quarter=$3
	`, plan.ProductID, plan.Year, plan.Quarter); err != nil {
		return fmt.Errorf("clear capacity entries: %w", err)
	}

	for _, entry := range plan.Entries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO capacity_entries (product_id, year, quarter, epic_id, team_id, effort_amount, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, plan.ProductID, plan.Year, plan.Quarter, entry.EpicID, entry.TeamID, entry.Amount, entry.Notes); err != nil {
			return fmt.Errorf("insert capacity entry %s/%s: %w", entry.EpicID, entry.TeamID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit capacity save: %w", err)
	}
	return nil
}

// ---- rating configs ----

// GetRatingConfig returns nil when no config exists for the unit; callers
// surface that as a configuration-missing condition, not a failure.
func (s *PostgresStore) GetRatingConfig(ctx context.Context, productID string, unit planning.EffortUnit) (*RatingConfig, error) {
	cfg := RatingConfig{ProductID: productID, UnitType: unit}
	err := s.db.QueryRowContext(ctx, `
		SELECT star1_max, star2_min, star2_max, star3_min, star3_max, star4_min, star4_max, star5_min, updated_at
		FROM effort_rating_configs
		WHERE product_id=$1 AND unit_type=$2
	`, productID, string(unit)).Scan(
		&cfg.Bands.Star1Max,
		&cfg.Bands.Star2Min,
		&cfg.Bands.Star2Max,
		&cfg.Bands.Star3Min,
		&cfg.Bands.Star3Max,
		&cfg.Bands.Star4Min,
		&cfg.Bands.Star4Max,
		&cfg.Bands.Star5Min,
		&cfg.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rating config: %w", err)
	}
	return &cfg, nil
}

func (s *PostgresStore) UpsertRatingConfig(ctx context.Context, cfg RatingConfig) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO effort_rating_configs (product_id, unit_type, star1_max, star2_min, star2_max, star3_min, star3_max, star4_min, star4_max, star5_min)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (product_id, unit_type) DO UPDATE SET
			star1_max=EXCLUDED.star1_max,
			star2_min=EXCLUDED.star2_min,
			star2_max=EXCLUDED.star2_max,
			star3_min=EXCLUDED.star3_min,
			star3_max=EXCLUDED.star3_max,
			star4_min=EXCLUDED.star4_min,
			star4_max=EXCLUDED.star4_max,
			star5_min=EXCLUDED.star5_min,
			updated_at=NOW()
	`, cfg.ProductID, string(cfg.UnitType),
		cfg.Bands.Star1Max,
		cfg.Bands.Star2Min, cfg.Bands.Star2Max,
		cfg.Bands.Star3Min, cfg.Bands.Star3Max,
		cfg.Bands.Star4Min, cfg.Bands.Star4Max,
		cfg.Bands.Star5Min)
	if err != nil {
		return fmt.Errorf("upsert rating config: %w", err)
	}
	return nil
}

// ---- roadmap items / quarter registry ----

const roadmapColumns = `product_id, year, quarter, epic_id, reach, impact, confidence, effort_rating, rice_score, status, published, start_date, end_date, updated_at`

func scanRoadmapItem(scanner interface{ Scan(...any) error }) (RoadmapItem, error) {
	var item RoadmapItem
	var start, end sql.NullTime
	err := scanner.Scan(
		&item.ProductID,
		&item.Year,
		&item.Quarter,
		&item.EpicID,
		&item.Reach,
		&item.Impact,
		&item.Confidence,
		&item.EffortRating,
		&item.RiceScore,
		&item.Status,
		&item.Published,
		&start,
		&end,
		&item.UpdatedAt,
	)
	if start.Valid {
		item.StartDate = &start.Time
	}
	if end.Valid {
		item.EndDate = &end.Time
	}
	return item, err
}

func (s *PostgresStore) ListRoadmapItems(ctx context.Context, productID string, year, quarter int) ([]RoadmapItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+roadmapColumns+`
		FROM roadmap_items
		WHERE product_id=$1 AND year=$2 AND quarter=$3
		ORDER BY epic_id ASC
	`, productID, year, quarter)
	if err != nil {
		return nil, fmt.Errorf("list roadmap items: %w", err)
	}
	defer rows.Close()

	items := make([]RoadmapItem, 0)
	for rows.Next() {
		item, err := scanRoadmapItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan roadmap item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roadmap items: %w", err)
	}
	return items, nil
}

// AssignedEpicIDs lists every epic held by a quarter other than the excluded
// one; it backs the candidate-list filter in the selection UI.
func (s *PostgresStore) AssignedEpicIDs(ctx context.Context, productID string, excludeYear, excludeQuarter int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT epic_id
		FROM roadmap_items
		WHERE product_id=$1 AND NOT (year=$2 AND quarter=$3)
		ORDER BY epic_id ASC
	`, productID, excludeYear, excludeQuarter)
	if err != nil {
		return nil, fmt.Errorf("list assigned epics: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan assigned epic: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assigned epics: %w", err)
	}
	return ids, nil
}

// ReplaceQuarterSelection atomically replaces the epic set for one quarter.
// The conflict check runs inside the same transaction as the write, with the
// product's rows locked, so two sessions racing the same epic resolve to one
// success and one QuarterConflictError. The unique (product_id, epic_id)
// index is the commit-time backstop.
func (s *PostgresStore) ReplaceQuarterSelection(ctx context.Context, productID string, year, quarter int, epicIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin selection replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		SELECT 1 FROM roadmap_items WHERE product_id=$1 FOR UPDATE
	`, productID); err != nil {
		return fmt.Errorf("lock roadmap rows: %w", err)
	}

	conflicts := make([]string, 0)
	for _, epicID := range epicIDs {
		var exists bool
		err := tx.QueryRowContext(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM roadmap_items
				WHERE product_id=$1 AND epic_id=$2 AND NOT (year=$3 AND quarter=$4)
			)
		`, productID, epicID, year, quarter).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check epic assignment: %w", err)
		}
		if exists {
			conflicts = append(conflicts, epicID)
		}
	}
	if len(conflicts) > 0 {
		return &QuarterConflictError{EpicIDs: conflicts}
	}

	keep := make([]string, 0, len(epicIDs))
	keep = append(keep, epicIDs...)
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM roadmap_items
		WHERE product_id=$1 AND year=$2 AND quarter=$3 AND NOT (epic_id = ANY($4))
	`, productID, year, quarter, keep); err != nil {
		return fmt.Errorf("remove deselected epics: %w", err)
	}

	for _, epicID := range epicIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO roadmap_items (product_id, year, quarter, epic_id)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (product_id, year, quarter, epic_id) DO NOTHING
		`, productID, year, quarter, epicID)
		if uniqueViolation(err) {
			// Lost the race to another quarter despite the pre-check.
			return &QuarterConflictError{EpicIDs: []string{epicID}}
		}
		if err != nil {
			return fmt.Errorf("insert roadmap item %s: %w", epicID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		if uniqueViolation(err) {
			return &QuarterConflictError{EpicIDs: epicIDs}
		}
		return fmt.Errorf("commit selection replace: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetRoadmapItem(ctx context.Context, productID string, year, quarter int, epicID string) (RoadmapItem, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+roadmapColumns+`
		FROM roadmap_items
		WHERE product_id=$1 AND year=$2 AND quarter=$3 AND epic_id=$4
	`, productID, year, quarter, epicID)
	item, err := scanRoadmapItem(row)
	if err != nil {
		return RoadmapItem{}, err
	}
	return item, nil
}

// UpdateRoadmapItem writes the editable fields of one item. Publishing state
// is untouched; edits to a published quarter never revert the flag.
func (s *PostgresStore) UpdateRoadmapItem(ctx context.Context, item RoadmapItem) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE roadmap_items
		SET reach=$5, impact=$6, confidence=$7, rice_score=$8, status=$9, start_date=$10, end_date=$11, updated_at=NOW()
		WHERE product_id=$1 AND year=$2 AND quarter=$3 AND epic_id=$4
	`, item.ProductID, item.Year, item.Quarter, item.EpicID,
		item.Reach, item.Impact, item.Confidence, item.RiceScore, item.Status, item.StartDate, item.EndDate)
	if err != nil {
		return fmt.Errorf("update roadmap item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update roadmap item rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetScoreField is the single-field auto-save path: one committed UPDATE per
// call. Field names are whitelisted; the rice cache is refreshed in the same
// statement.
func (s *PostgresStore) SetScoreField(ctx context.Context, productID string, year, quarter int, epicID, field string, value int, rice float64) error {
	var column string
	switch field {
	case "reach":
		column = "reach"
	case "impact":
		column = "impact"
	case "confidence":
		column = "confidence"
	default:
		return fmt.Errorf("unknown score field %q", field)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE roadmap_items
		SET `+column+`=$5, rice_score=$6, updated_at=NOW()
		WHERE product_id=$1 AND year=$2 AND quarter=$3 AND epic_id=$4
	`, productID, year, quarter, epicID, value, rice)
	if err != nil {
		return fmt.Errorf("set %s: %w", column, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set %s rows: %w", column, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) SetEffortRating(ctx context.Context, productID string, year, quarter int, epicID string, rating int, rice float64) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE roadmap_items
		SET effort_rating=$5, rice_score=$6, updated_at=NOW()
		WHERE product_id=$1 AND year=$2 AND quarter=$3 AND epic_id=$4
	`, productID, year, quarter, epicID, rating, rice)
	if err != nil {
		return fmt.Errorf("set effort rating: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set effort rating rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PublishQuarter flips every item in the quarter to published, regardless of
// status, and deletes nothing. Returns the item count so callers can report
// an empty quarter distinctly. Re-running on a published quarter is a no-op.
func (s *PostgresStore) PublishQuarter(ctx context.Context, productID string, year, quarter int) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin publish: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM roadmap_items WHERE product_id=$1 AND year=$2 AND quarter=$3
	`, productID, year, quarter).Scan(&count); err != nil {
		return 0, fmt.Errorf("count quarter items: %w", err)
	}
	if count == 0 {
		return 0, nil
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE roadmap_items SET published=TRUE, updated_at=NOW()
		WHERE product_id=$1 AND year=$2 AND quarter=$3 AND published=FALSE
	`, productID, year, quarter); err != nil {
		return 0, fmt.Errorf("publish quarter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit publish: %w", err)
	}
	return count, nil
}

// ---- teams and members ----

func (s *PostgresStore) ListTeams(ctx context.Context, productID string, year, quarter int) ([]Team, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, year, quarter, name, COALESCE(description, ''), is_active, created_at
		FROM teams
		WHERE product_id=$1 AND ($2=0 OR (year=$2 AND quarter=$3))
		ORDER BY name ASC
	`, productID, year, quarter)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	items := make([]Team, 0)
	for rows.Next() {
		var item Team
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Year, &item.Quarter, &item.Name, &item.Description, &item.IsActive, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate teams: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertTeam(ctx context.Context, team Team) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO teams (id, product_id, year, quarter, name, description, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, team.ID, team.ProductID, team.Year, team.Quarter, team.Name, team.Description, team.IsActive)
	if err != nil {
		return fmt.Errorf("insert team: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateTeam(ctx context.Context, team Team) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE teams SET name=$2, description=$3, is_active=$4 WHERE id=$1
	`, team.ID, team.Name, team.Description, team.IsActive)
	if err != nil {
		return fmt.Errorf("update team: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteTeam(ctx context.Context, teamID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM teams WHERE id=$1`, teamID)
	if err != nil {
		return fmt.Errorf("delete team: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTeamMembers(ctx context.Context, teamID string) ([]TeamMember, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, team_id, member_name, COALESCE(role, ''), created_at
		FROM team_members
		WHERE team_id=$1
		ORDER BY member_name ASC
	`, teamID)
	if err != nil {
		return nil, fmt.Errorf("list team members: %w", err)
	}
	defer rows.Close()

	items := make([]TeamMember, 0)
	for rows.Next() {
		var item TeamMember
		if err := rows.Scan(&item.ID, &item.TeamID, &item.MemberName, &item.Role, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan team member: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate team members: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertTeamMember(ctx context.Context, member TeamMember) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO team_members (id, team_id, member_name, role)
		VALUES ($1, $2, $3, NULLIF($4, ''))
	`, member.ID, member.TeamID, member.MemberName, member.Role)
	if err != nil {
		return fmt.Errorf("insert team member: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteTeamMember(ctx context.Context, memberID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM team_members WHERE id=$1`, memberID)
	if err != nil {
		return fmt.Errorf("delete team member: %w", err)
	}
	return nil
}

// ---- resource assignments ----

func (s *PostgresStore) ListMemberAssignments(ctx context.Context, productID, memberID string) ([]ResourceAssignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, user_story_id, member_id, start_date, end_date, created_at
		FROM resource_assignments
		WHERE product_id=$1 AND member_id=$2
		ORDER BY start_date ASC
	`, productID, memberID)
	if err != nil {
		return nil, fmt.Errorf("list member assignments: %w", err)
	}
	defer rows.Close()

	items := make([]ResourceAssignment, 0)
	for rows.Next() {
		var item ResourceAssignment
		if err := rows.Scan(&item.ID, &item.ProductID, &item.UserStoryID, &item.MemberID, &item.StartDate, &item.EndDate, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return items, nil
}

// InsertAssignment re-checks availability inside the write transaction. The
// client-side availability pass is only an optimization; this is the
// enforcement point. Ranges are inclusive on both ends. The in-tx check names
// the conflicting assignment; the resource_assignments_no_overlap exclusion
// constraint is the commit-time backstop for the race two first-time inserts
// can win simultaneously (no existing row to lock).
func (s *PostgresStore) InsertAssignment(ctx context.Context, assignment ResourceAssignment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assignment insert: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		SELECT 1 FROM resource_assignments WHERE member_id=$1 FOR UPDATE
	`, assignment.MemberID); err != nil {
		return fmt.Errorf("lock member assignments: %w", err)
	}

	var conflictID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM resource_assignments
		WHERE member_id=$1 AND start_date <= $3 AND $2 <= end_date
		LIMIT 1
	`, assignment.MemberID, assignment.StartDate, assignment.EndDate).Scan(&conflictID)
	if err == nil {
		return &OverlapError{AssignmentID: conflictID, MemberID: assignment.MemberID}
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check assignment overlap: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO resource_assignments (id, product_id, user_story_id, member_id, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, assignment.ID, assignment.ProductID, assignment.UserStoryID, assignment.MemberID, assignment.StartDate, assignment.EndDate); err != nil {
		if exclusionViolation(err) {
			return &OverlapError{MemberID: assignment.MemberID}
		}
		return fmt.Errorf("insert assignment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if exclusionViolation(err) {
			return &OverlapError{MemberID: assignment.MemberID}
		}
		return fmt.Errorf("commit assignment insert: %w", err)
	}
	return nil
}

// DeleteAssignment is idempotent: deleting a gone assignment succeeds.
func (s *PostgresStore) DeleteAssignment(ctx context.Context, productID, assignmentID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM resource_assignments WHERE product_id=$1 AND id=$2
	`, productID, assignmentID)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}
