package gitstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/gitscout/gitscout/pkg/config"
)

// Store answers read-only queries over a directory of git repositories.
// Repositories may be bare ("name.git") or regular checkouts; nested
// directories are supported and become slash-separated repository names.
type Store struct {
	config        *config.Config
	logger        *logrus.Logger
	root          string
	tracer        trace.Tracer
	mu            sync.RWMutex
	startTime     time.Time
	lastQueryTime time.Time
}

// New creates a new store rooted at cfg.Server.ReposDir
func New(cfg *config.Config, logger *logrus.Logger) (*Store, error) {
	info, err := os.Stat(cfg.Server.ReposDir)
	if err != nil {
		return nil, fmt.Errorf("repositories directory %s: %w", cfg.Server.ReposDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repositories directory %s is not a directory", cfg.Server.ReposDir)
	}

	return &Store{
		config:        cfg,
		logger:        logger,
		root:          cfg.Server.ReposDir,
		tracer:        otel.Tracer("gitscout"),
		startTime:     time.Now(),
		lastQueryTime: time.Now(),
	}, nil
}

// touch records query activity for idle-time reporting
func (s *Store) touch() {
	s.mu.Lock()
	s.lastQueryTime = time.Now()
	s.mu.Unlock()
}

// repositoryNames walks the root directory and returns the names of all git
// repositories found, sorted. A directory counts as a repository when it is
// bare (ends in ".git" or holds a HEAD file plus an objects dir) or contains
// a ".git" subdirectory. The walk does not descend into repositories.
func (s *Store) repositoryNames() ([]string, error) {
	var names []string
	seen := make(map[string]bool)
	var walk func(dir, prefix string) error
	walk = func(dir, prefix string) error {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			name := entry.Name()
			if prefix != "" {
				name = prefix + "/" + name
			}
			if isGitRepository(path) {
				// Sibling "name" and "name.git" layouts collapse to one name
				trimmed := strings.TrimSuffix(name, ".git")
				if !seen[trimmed] {
					seen[trimmed] = true
					names = append(names, trimmed)
				}
				continue
			}
			if err := walk(path, name); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(s.root, ""); err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func isGitRepository(path string) bool {
	if info, err := os.Stat(filepath.Join(path, ".git")); err == nil && info.IsDir() {
		return true
	}
	// Bare layout: HEAD file next to an objects directory
	if _, err := os.Stat(filepath.Join(path, "HEAD")); err != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(path, "objects"))
	return err == nil && info.IsDir()
}

// openRepository opens the named repository, trying both the plain and the
// bare ("name.git") directory layouts.
func (s *Store) openRepository(name string) (*git.Repository, error) {
	if name == "" || strings.Contains(name, "..") || filepath.IsAbs(name) {
		return nil, fmt.Errorf("%w: %q", ErrRepositoryNotFound, name)
	}
	for _, candidate := range []string{name, name + ".git"} {
		repo, err := git.PlainOpen(filepath.Join(s.root, filepath.FromSlash(candidate)))
		if err == nil {
			return repo, nil
		}
		if err != git.ErrRepositoryNotExists {
			return nil, fmt.Errorf("open repository %s: %w", name, err)
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrRepositoryNotFound, name)
}

// resolveRevision resolves a revision expression to a commit hash and the
// identifier reported back to clients: the full ref name when the expression
// named a branch or tag (or defaulted to HEAD), the hex hash otherwise.
func (s *Store) resolveRevision(repo *git.Repository, revision string) (plumbing.Hash, string, error) {
	if revision == "" {
		head, err := repo.Head()
		if err != nil {
			return plumbing.ZeroHash, "", fmt.Errorf("%w: repository has no commits", ErrRevisionNotFound)
		}
		if !head.Name().IsBranch() {
			// Detached HEAD has no usable ref name to report
			return head.Hash(), head.Hash().String(), nil
		}
		return head.Hash(), head.Name().String(), nil
	}

	candidates := []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(revision),
		plumbing.NewTagReferenceName(revision),
	}
	if strings.HasPrefix(revision, "refs/") {
		candidates = append([]plumbing.ReferenceName{plumbing.ReferenceName(revision)}, candidates...)
	}
	for _, name := range candidates {
		ref, err := repo.Reference(name, true)
		if err != nil {
			continue
		}
		hash := ref.Hash()
		// An annotated tag ref points at a tag object that must be peeled
		// to the commit it targets.
		if tag, err := repo.TagObject(hash); err == nil {
			commit, err := tag.Commit()
			if err != nil {
				return plumbing.ZeroHash, "", fmt.Errorf("%w: %q does not point at a commit", ErrRevisionNotFound, revision)
			}
			hash = commit.Hash
		}
		return hash, name.String(), nil
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return plumbing.ZeroHash, "", fmt.Errorf("%w: %q", ErrRevisionNotFound, revision)
	}
	return *hash, hash.String(), nil
}

// resolveQueryRepos expands the repos filter of a query. An empty filter
// means every repository that has commits. Explicitly named repositories must
// exist; duplicates are dropped so result groups stay unique per repository.
func (s *Store) resolveQueryRepos(repos []string) ([]string, error) {
	if len(repos) == 0 {
		return s.repositoryNames()
	}
	seen := make(map[string]bool, len(repos))
	var out []string
	for _, name := range repos {
		name = strings.TrimSuffix(strings.Trim(name, "/"), ".git")
		if name == "" || seen[name] {
			continue
		}
		if _, err := s.openRepository(name); err != nil {
			return nil, err
		}
		seen[name] = true
		out = append(out, name)
	}
	return out, nil
}

// clampLimit applies the configured default and ceiling to a query limit
func (s *Store) clampLimit(limit int) int {
	if limit <= 0 {
		limit = s.config.Search.DefaultLimit
	}
	if limit > s.config.Search.MaxLimit {
		limit = s.config.Search.MaxLimit
	}
	return limit
}
