package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "api"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "api", "db.py"), []byte("q = 1\n"), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("src/api/db.py")
	require.NoError(t, err)
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Unix(1700000000, 0)},
	})
	require.NoError(t, err)

	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{"https://example.com/acme/shop.git"}})
	require.NoError(t, err)

	return dir, hash.String()
}

func TestCollectRepositoryMetadata(t *testing.T) {
	dir, commit := initRepo(t)

	md, err := CollectRepositoryMetadata(filepath.Join(dir, "src", "api"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Clean(dir), md.RepoRootFolder)
	assert.Equal(t, "src/api", md.Subfolder)
	require.NotNil(t, md.CommitHash)
	assert.Equal(t, commit, *md.CommitHash)
	require.NotNil(t, md.BranchName)
	assert.Equal(t, "master", *md.BranchName)
	require.NotNil(t, md.RepositoryFullName)
	assert.Equal(t, "https://example.com/acme/shop", *md.RepositoryFullName)
	assert.Equal(t, "https://example.com/acme/shop@master ("+commit[:7]+")", md.Describe())
}

func TestCollectRepositoryMetadataOutsideRepo(t *testing.T) {
	dir := t.TempDir()

	md, err := CollectRepositoryMetadata(dir)
	assert.EqualError(t, err, "source folder is not a git repository")
	assert.Equal(t, filepath.Clean(dir), md.RepoRootFolder)
	assert.Nil(t, md.CommitHash)

	_, err = CollectRepositoryMetadata("")
	assert.EqualError(t, err, "source folder is not set")
}

func TestCollectRepositoryMetadataDetachedHead(t *testing.T) {
	dir, commit := initRepo(t)

	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{Hash: plumbing.NewHash(commit)}))

	md, err := CollectRepositoryMetadata(dir)
	require.NoError(t, err)
	assert.Nil(t, md.BranchName)
	require.NotNil(t, md.CommitHash)
	assert.Equal(t, commit, *md.CommitHash)
	assert.Empty(t, md.Subfolder)
}
