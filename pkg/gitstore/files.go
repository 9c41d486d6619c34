package gitstore

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gitscout/gitscout/internal/models"
)

// ListFiles lists one tree level of a repository at a revision. An empty
// path lists the repository root.
func (s *Store) ListFiles(ctx context.Context, repoName, revision, path string) (*models.TreeResponse, error) {
	_, span := s.tracer.Start(ctx, "list_files")
	defer span.End()
	span.SetAttributes(
		attribute.String("repository", repoName),
		attribute.String("path", path),
	)
	s.touch()

	repo, tree, revName, err := s.treeAt(repoName, revision)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	path = strings.Trim(path, "/")
	if path != "" {
		subtree, err := tree.Tree(path)
		if err != nil {
			if err == object.ErrDirectoryNotFound {
				return nil, fmt.Errorf("%w: %q", ErrPathNotFound, path)
			}
			return nil, fmt.Errorf("resolve tree %s: %w", path, err)
		}
		tree = subtree
	}

	resp := &models.TreeResponse{
		Repository: repoName,
		Revision:   revName,
		Path:       path,
		Entries:    []models.TreeEntry{},
	}
	for _, entry := range tree.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := models.TreeEntry{
			Name: entry.Name,
			Path: joinTreePath(path, entry.Name),
			Mode: entry.Mode.String(),
			SHA:  entry.Hash.String(),
		}
		switch entry.Mode {
		case filemode.Dir:
			item.Type = "tree"
		case filemode.Submodule:
			item.Type = "commit"
		default:
			item.Type = "blob"
			if blob, err := repo.BlobObject(entry.Hash); err == nil {
				item.Size = blob.Size
			}
		}
		resp.Entries = append(resp.Entries, item)
	}
	sort.Slice(resp.Entries, func(i, j int) bool {
		return resp.Entries[i].Name < resp.Entries[j].Name
	})
	return resp, nil
}

// ReadFile fetches one file at a revision. Binary blobs come back
// base64-encoded.
func (s *Store) ReadFile(ctx context.Context, repoName, revision, path string) (*models.FileResponse, error) {
	_, span := s.tracer.Start(ctx, "read_file")
	defer span.End()
	span.SetAttributes(
		attribute.String("repository", repoName),
		attribute.String("path", path),
	)
	s.touch()

	_, tree, revName, err := s.treeAt(repoName, revision)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	path = strings.Trim(path, "/")
	if path == "" {
		return nil, fmt.Errorf("%w: %q", ErrNotAFile, path)
	}
	file, err := tree.File(path)
	if err != nil {
		if err == object.ErrFileNotFound {
			// Distinguish a directory from a genuinely missing path
			if _, terr := tree.Tree(path); terr == nil {
				return nil, fmt.Errorf("%w: %q", ErrNotAFile, path)
			}
			return nil, fmt.Errorf("%w: %q", ErrPathNotFound, path)
		}
		return nil, fmt.Errorf("resolve file %s: %w", path, err)
	}

	resp := &models.FileResponse{
		Repository: repoName,
		Revision:   revName,
		Path:       path,
		SHA:        file.Hash.String(),
		Size:       file.Size,
	}

	binary, err := file.IsBinary()
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	if binary {
		reader, err := file.Reader()
		if err != nil {
			return nil, fmt.Errorf("read file %s: %w", path, err)
		}
		defer reader.Close()
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("read file %s: %w", path, err)
		}
		resp.Binary = true
		resp.Encoding = "base64"
		resp.Content = base64.StdEncoding.EncodeToString(data)
		return resp, nil
	}

	content, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	resp.Encoding = "utf-8"
	resp.Content = content
	return resp, nil
}

// treeAt opens a repository and returns the tree of the commit the revision
// resolves to, plus the client-facing revision identifier.
func (s *Store) treeAt(repoName, revision string) (*git.Repository, *object.Tree, string, error) {
	repo, err := s.openRepository(repoName)
	if err != nil {
		return nil, nil, "", err
	}
	hash, revName, err := s.resolveRevision(repo, revision)
	if err != nil {
		return nil, nil, "", err
	}
	commit, err := repo.CommitObject(hash)
	if err != nil {
		return nil, nil, "", fmt.Errorf("%w: %q is not a commit", ErrRevisionNotFound, revision)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, nil, "", fmt.Errorf("commit tree %s: %w", hash, err)
	}
	return repo, tree, revName, nil
}

func joinTreePath(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}
