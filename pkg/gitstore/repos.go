package gitstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/gitscout/gitscout/internal/models"
)

// ListRepositories enumerates all repositories under the store root.
func (s *Store) ListRepositories(ctx context.Context) (*models.RepositoriesResponse, error) {
	_, span := s.tracer.Start(ctx, "list_repositories")
	defer span.End()
	s.touch()

	names, err := s.repositoryNames()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("repositories.count", len(names)))

	resp := &models.RepositoriesResponse{Repositories: []models.RepositoryInfo{}}
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info := models.RepositoryInfo{
			Name:        name,
			Description: s.repositoryDescription(name),
		}
		repo, err := s.openRepository(name)
		if err != nil {
			s.logger.Warnf("Skipping unreadable repository %s: %v", name, err)
			continue
		}
		if head, err := repo.Head(); err == nil {
			info.HasCommits = true
			info.DefaultBranch = head.Name().Short()
			if commit, err := repo.CommitObject(head.Hash()); err == nil {
				info.LastChange = commit.Committer.When
			}
		}
		resp.Repositories = append(resp.Repositories, info)
	}
	return resp, nil
}

// repositoryDescription reads the git description file, ignoring the
// boilerplate git writes into fresh repositories.
func (s *Store) repositoryDescription(name string) string {
	rel := filepath.FromSlash(name)
	for _, candidate := range []string{
		filepath.Join(s.root, rel, ".git", "description"),
		filepath.Join(s.root, rel+".git", "description"),
		filepath.Join(s.root, rel, "description"),
	} {
		data, err := os.ReadFile(candidate)
		if err != nil {
			continue
		}
		desc := strings.TrimSpace(string(data))
		if desc == "" || strings.HasPrefix(desc, "Unnamed repository") {
			return ""
		}
		return desc
	}
	return ""
}
