package gitstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/gobwas/glob"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gitscout/gitscout/internal/models"
)

// FindFiles matches file paths against a glob pattern across repositories.
// The pattern is compiled with '/' as separator, so '*' and '?' stay within
// one path segment while '**' crosses directories. The limit caps the total
// number of returned paths across all repositories; LimitHit reports whether
// at least one further match existed beyond the cap.
func (s *Store) FindFiles(ctx context.Context, pattern string, repos []string, revision string, limit int) (*models.FindFilesResponse, error) {
	ctx, span := s.tracer.Start(ctx, "find_files")
	defer span.End()
	span.SetAttributes(
		attribute.String("pattern", pattern),
		attribute.Int("limit", limit),
	)
	s.touch()

	matcher, err := glob.Compile(pattern, '/')
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err)
	}

	names, err := s.resolveQueryRepos(repos)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	limit = s.clampLimit(limit)

	resp := models.NewFindFilesResponse(pattern)
	for _, name := range names {
		if resp.LimitHit {
			break
		}
		repo, err := s.openRepository(name)
		if err != nil {
			return nil, err
		}
		hash, revName, err := s.resolveRevision(repo, revision)
		if err != nil {
			// Repositories without commits simply contribute no matches,
			// unless the caller asked for a specific revision.
			if revision == "" {
				continue
			}
			return nil, err
		}
		commit, err := repo.CommitObject(hash)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a commit", ErrRevisionNotFound, revision)
		}
		tree, err := commit.Tree()
		if err != nil {
			return nil, fmt.Errorf("commit tree %s: %w", hash, err)
		}

		var files []string
		err = tree.Files().ForEach(func(f *object.File) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !matcher.Match(f.Name) {
				return nil
			}
			if resp.TotalCount >= limit {
				resp.LimitHit = true
				return storer.ErrStop
			}
			files = append(files, f.Name)
			resp.TotalCount++
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk tree of %s: %w", name, err)
		}
		if len(files) > 0 {
			sort.Strings(files)
			resp.Results = append(resp.Results, models.NewFindFilesResult(name, revName, files))
		}
	}

	span.SetAttributes(
		attribute.Int("matches", resp.TotalCount),
		attribute.Bool("limit_hit", resp.LimitHit),
	)
	return resp, nil
}
