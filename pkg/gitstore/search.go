package gitstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gitscout/gitscout/internal/models"
)

// SearchFiles scans text blobs for a case-insensitive substring and returns
// the matching lines grouped per repository. Binary blobs and blobs larger
// than search.max_file_size are skipped. The limit caps the total number of
// matching lines.
func (s *Store) SearchFiles(ctx context.Context, query string, repos []string, revision string, limit int) (*models.SearchFilesResponse, error) {
	ctx, span := s.tracer.Start(ctx, "search_files")
	defer span.End()
	span.SetAttributes(
		attribute.String("query", query),
		attribute.Int("limit", limit),
	)
	s.touch()

	names, err := s.resolveQueryRepos(repos)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	limit = s.clampLimit(limit)
	needle := strings.ToLower(query)

	resp := models.NewSearchFilesResponse(query)
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

		var matches []models.LineMatch
		err = tree.Files().ForEach(func(f *object.File) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if f.Size > s.config.Search.MaxFileSize {
				return nil
			}
			if binary, err := f.IsBinary(); err != nil || binary {
				return nil
			}
			lines, err := f.Lines()
			if err != nil {
				s.logger.Warnf("Skipping unreadable blob %s in %s: %v", f.Name, name, err)
				return nil
			}
			for i, line := range lines {
				if !strings.Contains(strings.ToLower(line), needle) {
					continue
				}
				if resp.TotalCount >= limit {
					resp.LimitHit = true
					return storer.ErrStop
				}
				matches = append(matches, models.LineMatch{
					File:       f.Name,
					LineNumber: i + 1,
					Line:       line,
				})
				resp.TotalCount++
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("search tree of %s: %w", name, err)
		}
		if len(matches) > 0 {
			resp.Results = append(resp.Results, models.SearchFilesResult{
				Repository: name,
				Revision:   revName,
				Matches:    matches,
			})
		}
	}

	span.SetAttributes(
		attribute.Int("matches", resp.TotalCount),
		attribute.Bool("limit_hit", resp.LimitHit),
	)
	return resp, nil
}

// SearchCommits walks history from each repository's HEAD in log order and
// matches a case-insensitive substring against commit messages and author
// identities.
func (s *Store) SearchCommits(ctx context.Context, query string, repos []string, limit int) (*models.SearchCommitsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "search_commits")
	defer span.End()
	span.SetAttributes(
		attribute.String("query", query),
		attribute.Int("limit", limit),
	)
	s.touch()

	names, err := s.resolveQueryRepos(repos)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	limit = s.clampLimit(limit)
	needle := strings.ToLower(query)

	resp := models.NewSearchCommitsResponse(query)
	for _, name := range names {
		if resp.LimitHit {
			break
		}
		repo, err := s.openRepository(name)
		if err != nil {
			return nil, err
		}
		head, err := repo.Head()
		if err != nil {
			continue // no commits to search
		}
		iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
		if err != nil {
			return nil, fmt.Errorf("log of %s: %w", name, err)
		}
		err = iter.ForEach(func(c *object.Commit) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !commitMatches(c, needle) {
				return nil
			}
			if resp.TotalCount >= limit {
				resp.LimitHit = true
				return storer.ErrStop
			}
			resp.Results = append(resp.Results, models.CommitMatch{
				Repository: name,
				SHA:        c.Hash.String(),
				Author: models.CommitAuthor{
					Name:  c.Author.Name,
					Email: c.Author.Email,
				},
				Date:    c.Author.When,
				Message: messageSummary(c.Message),
			})
			resp.TotalCount++
			return nil
		})
		iter.Close()
		if err != nil {
			return nil, fmt.Errorf("walk history of %s: %w", name, err)
		}
	}

	span.SetAttributes(
		attribute.Int("matches", resp.TotalCount),
		attribute.Bool("limit_hit", resp.LimitHit),
	)
	return resp, nil
}

func commitMatches(c *object.Commit, needle string) bool {
	return strings.Contains(strings.ToLower(c.Message), needle) ||
		strings.Contains(strings.ToLower(c.Author.Name), needle) ||
		strings.Contains(strings.ToLower(c.Author.Email), needle)
}

// messageSummary returns the subject line of a commit message
func messageSummary(message string) string {
	if i := strings.IndexByte(message, '\n'); i >= 0 {
		return strings.TrimSpace(message[:i])
	}
	return strings.TrimSpace(message)
}
