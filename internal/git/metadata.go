package git

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// RepositoryMetadata describes the repository a scanned path belongs to.
type RepositoryMetadata struct {
	BranchName         *string `json:"branch,omitempty" yaml:"branch,omitempty"`
	CommitHash         *string `json:"commit,omitempty" yaml:"commit,omitempty"`
	RepositoryFullName *string `json:"repository,omitempty" yaml:"repository,omitempty"`
	Subfolder          string  `json:"subfolder,omitempty" yaml:"subfolder,omitempty"`
	RepoRootFolder     string  `json:"root" yaml:"root"`
}

// CollectRepositoryMetadata locates the work tree that contains sourceFolder
// and reads its HEAD and origin. When no repository is found the returned
// metadata still names sourceFolder as the root.
func CollectRepositoryMetadata(sourceFolder string) (*RepositoryMetadata, error) {
	if sourceFolder == "" {
		return &RepositoryMetadata{}, fmt.Errorf("source folder is not set")
	}
	if abs, err := filepath.Abs(sourceFolder); err == nil {
		sourceFolder = abs
	}
	md := &RepositoryMetadata{RepoRootFolder: filepath.Clean(sourceFolder)}

	repo, err := git.PlainOpenWithOptions(sourceFolder, &git.PlainOpenOptions{DetectDotGit: true})
	if stderrors.Is(err, git.ErrRepositoryNotExists) {
		return md, fmt.Errorf("source folder is not a git repository")
	}
	if err != nil {
		return md, fmt.Errorf("failed to open repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return md, fmt.Errorf("repository has no work tree: %w", err)
	}
	md.RepoRootFolder = filepath.Clean(wt.Filesystem.Root())
	if rel, err := filepath.Rel(md.RepoRootFolder, sourceFolder); err == nil && rel != "." {
		md.Subfolder = filepath.ToSlash(rel)
	}

	md.BranchName, md.CommitHash = headOf(repo)
	md.RepositoryFullName = originOf(repo)
	return md, nil
}

// headOf returns the checked out branch, nil when detached, and the HEAD commit.
func headOf(repo *git.Repository) (branch, commit *string) {
	head, err := repo.Head()
	if err != nil {
		return nil, nil
	}
	hash := head.Hash().String()
	if !head.Name().IsBranch() {
		return nil, &hash
	}
	name := head.Name().Short()
	return &name, &hash
}

// originOf returns the first origin URL without its ".git" suffix.
func originOf(repo *git.Repository) *string {
	remote, err := repo.Remote("origin")
	if err != nil {
		return nil
	}
	cfg := remote.Config()
	if cfg == nil || len(cfg.URLs) == 0 {
		return nil
	}
	url := strings.TrimSuffix(cfg.URLs[0], ".git")
	return &url
}

// Describe renders the metadata as "repo@branch (commit)" for status lines.
func (md *RepositoryMetadata) Describe() string {
	if md == nil {
		return ""
	}
	name := md.RepoRootFolder
	if md.RepositoryFullName != nil {
		name = *md.RepositoryFullName
	}
	if md.BranchName != nil {
		name += "@" + *md.BranchName
	}
	if md.CommitHash != nil && len(*md.CommitHash) >= 7 {
		name += fmt.Sprintf(" (%s)", (*md.CommitHash)[:7])
	}
	return name
}
