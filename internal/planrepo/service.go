// Package planrepo keeps an auditable history of capacity plan saves as git
// commits, one repository per product on the main branch.
package planrepo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// PlanSnapshot is the capacity plan content committed on every save.
type PlanSnapshot struct {
	ProductID  string          `json:"productId"`
	Year       int             `json:"year"`
	Quarter    int             `json:"quarter"`
	EffortUnit string          `json:"effortUnit"`
	Entries    json.RawMessage `json:"entries"`
}

// CommitInfo describes one plan save in the history.
type CommitInfo struct {
	Hash      string    `json:"hash"`
	Message   string    `json:"message"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
}

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

// CommitPlan records the plan snapshot for the quarter, initializing the
// product's repository on first use. Returns the resulting commit.
func (s *Service) CommitPlan(productID string, snapshot PlanSnapshot, author, message string) (CommitInfo, error) {
	lock := s.productLock(productID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := s.ensureRepo(productID)
	if err != nil {
		return CommitInfo{}, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return CommitInfo{}, fmt.Errorf("open worktree: %w", err)
	}

	payload, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return CommitInfo{}, fmt.Errorf("marshal plan snapshot: %w", err)
	}

	fileName := fmt.Sprintf("%d-Q%d.json", snapshot.Year, snapshot.Quarter)
	repoRoot := worktree.Filesystem.Root()
	if err := os.WriteFile(filepath.Join(repoRoot, fileName), append(payload, '\n'), 0o644); err != nil {
		return CommitInfo{}, fmt.Errorf("write plan snapshot: %w", err)
	}

	if _, err := worktree.Add(fileName); err != nil {
		return CommitInfo{}, fmt.Errorf("git add plan snapshot: %w", err)
	}

	hash, err := worktree.Commit(message, &git.CommitOptions{
		AllowEmptyCommits: true,
		Author: &object.Signature{
			Name:  author,
			Email: fmt.Sprintf("%s@local.quarterdeck.dev", sanitizeEmail(author)),
			When:  time.Now(),
		},
	})
	if err != nil {
		return CommitInfo{}, fmt.Errorf("commit plan snapshot: %w", err)
	}

	commitObj, err := repo.CommitObject(hash)
	if err != nil {
		return CommitInfo{}, fmt.Errorf("read commit object: %w", err)
	}
	return toCommitInfo(commitObj), nil
}

// History lists the most recent plan saves for the product, newest first.
// A product with no saves yet has empty history, not an error.
func (s *Service) History(productID string, limit int) ([]CommitInfo, error) {
	lock := s.productLock(productID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(productID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return []CommitInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open plan repo: %w", err)
	}

	ref, err := repo.Reference(plumbing.NewBranchReferenceName("main"), true)
	if err != nil {
		return nil, fmt.Errorf("resolve main: %w", err)
	}

	iter, err := repo.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	items := make([]CommitInfo, 0, limit)
	count := 0
	err = iter.ForEach(func(commitObj *object.Commit) error {
		items = append(items, toCommitInfo(commitObj))
		count++
		if limit > 0 && count >= limit {
			return io.EOF
		}
		return nil
	})
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("iterate log: %w", err)
	}
	return items, nil
}

// PlanAt reads a quarter's snapshot from a specific commit.
func (s *Service) PlanAt(productID, hash string, year, quarter int) (PlanSnapshot, error) {
	lock := s.productLock(productID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(productID))
	if err != nil {
		return PlanSnapshot{}, fmt.Errorf("open plan repo: %w", err)
	}

	resolved, err := resolveHash(repo, hash)
	if err != nil {
		return PlanSnapshot{}, err
	}
	commitObj, err := repo.CommitObject(resolved)
	if err != nil {
		return PlanSnapshot{}, fmt.Errorf("read commit %s: %w", hash, err)
	}

	file, err := commitObj.File(fmt.Sprintf("%d-Q%d.json", year, quarter))
	if err != nil {
		return PlanSnapshot{}, fmt.Errorf("load plan snapshot from commit: %w", err)
	}
	reader, err := file.Reader()
	if err != nil {
		return PlanSnapshot{}, fmt.Errorf("open snapshot reader: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return PlanSnapshot{}, fmt.Errorf("read snapshot bytes: %w", err)
	}

	var snapshot PlanSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return PlanSnapshot{}, fmt.Errorf("decode plan snapshot: %w", err)
	}
	return snapshot, nil
}

func (s *Service) ensureRepo(productID string) (*git.Repository, error) {
	path := s.repoPath(productID)
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open plan repo: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create plan repo dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init plan repo: %w", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))); err != nil {
		return nil, fmt.Errorf("set HEAD to main: %w", err)
	}
	return repo, nil
}

func (s *Service) repoPath(productID string) string {
	return filepath.Join(s.baseDir, productID)
}

func (s *Service) productLock(productID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[productID]
	if ok {
		return lock
	}
	lock = &sync.Mutex{}
	s.locks[productID] = lock
	return lock
}

func toCommitInfo(commitObj *object.Commit) CommitInfo {
	return CommitInfo{
		Hash:      commitObj.Hash.String()[:7],
		Message:   commitObj.Message,
		Author:    commitObj.Author.Name,
		CreatedAt: commitObj.Author.When,
	}
}

func sanitizeEmail(input string) string {
	runes := make([]rune, 0, len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			runes = append(runes, r)
			continue
		}
		if r == ' ' || r == '-' || r == '_' {
			runes = append(runes, '.')
		}
	}
	if len(runes) == 0 {
		return "planner"
	}
	return string(runes)
}

func resolveHash(repo *git.Repository, hash string) (plumbing.Hash, error) {
	if len(hash) == 40 {
		return plumbing.NewHash(hash), nil
	}
	resolved, err := repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolve hash %s: %w", hash, err)
	}
	return *resolved, nil
}
