package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

const migrationsDir = "../../db/migrations"

func migrationFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files
}

func TestMigrationFilesAreUpSQL(t *testing.T) {
	files := migrationFiles(t)
	if len(files) == 0 {
		t.Fatal("no migration files found")
	}
	for _, name := range files {
		if !strings.HasSuffix(name, ".up.sql") {
			t.Errorf("unexpected migration file %s: want .up.sql suffix", name)
		}
		if len(name) < 5 || name[4] != '_' {
			t.Errorf("migration %s does not start with a 4-digit version prefix", name)
		}
	}
}

func TestInitialMigrationCoversEngineTables(t *testing.T) {
	contents, err := os.ReadFile(filepath.Join(migrationsDir, "0001_init.up.sql"))
	if err != nil {
		t.Fatalf("read initial migration: %v", err)
	}
	sql := string(contents)

	for _, table := range []string{
		"epics",
		"capacity_plans",
		"capacity_entries",
		"effort_rating_configs",
		"roadmap_items",
		"teams",
		"team_members",
		"resource_assignments",
	} {
		if !strings.Contains(sql, "CREATE TABLE "+table) {
			t.Errorf("initial migration missing table %s", table)
		}
	}

	if !strings.Contains(sql, "roadmap_items_epic_exclusive") {
		t.Error("initial migration missing the quarter-exclusivity unique index")
	}
}

func TestOverlapGuardMigration(t *testing.T) {
	contents, err := os.ReadFile(filepath.Join(migrationsDir, "0003_assignment_overlap_guard.up.sql"))
	if err != nil {
		t.Fatalf("read overlap guard migration: %v", err)
	}
	sql := string(contents)

	if !strings.Contains(sql, "btree_gist") {
		t.Error("overlap guard migration missing the btree_gist extension")
	}
	if !strings.Contains(sql, "EXCLUDE USING gist") {
		t.Error("overlap guard migration missing the exclusion constraint")
	}
	if !strings.Contains(sql, "resource_assignments_no_overlap") {
		t.Error("overlap guard migration missing the constraint name the store maps to OverlapError")
	}
	if !strings.Contains(sql, "daterange(start_date, end_date, '[]')") {
		t.Error("overlap guard must use inclusive date ranges on both ends")
	}
}
