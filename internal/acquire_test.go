package internal

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Open(ctx context.Context, path string) (Repository, error) {
	args := m.Called(ctx, path)
	repo, _ := args.Get(0).(Repository)
	return repo, args.Error(1)
}

func (m *mockBackend) Clone(ctx context.Context, remote, path string) (Repository, error) {
	args := m.Called(ctx, remote, path)
	repo, _ := args.Get(0).(Repository)
	return repo, args.Error(1)
}

func (m *mockBackend) Refresh(ctx context.Context, repo Repository) error {
	return m.Called(ctx, repo).Error(0)
}

// requireGit skips tests that clone over the file transport, which execs
// git-upload-pack.
func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

// commitFile adds one commit writing name to the repository at dir.
func commitFile(t *testing.T, dir, name, message string) {
	t.Helper()
	repo, err := git.PlainOpen(dir)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(message), 0644))
	_, err = wt.Add(name)
	require.NoError(t, err)
	_, err = wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "walker", Email: "walker@local", When: time.Now()},
	})
	require.NoError(t, err)
}

func headSummary(t *testing.T, repo Repository) string {
	t.Helper()
	head, err := repo.HeadCommit(context.Background())
	require.NoError(t, err)
	summary, err := head.Summary()
	require.NoError(t, err)
	return summary
}

type stubRepository struct {
	mockStore
	closed bool
}

func (s *stubRepository) Close() error {
	s.closed = true
	return nil
}

func TestParseLocation(t *testing.T) {
	hosts := DefaultRemoteHosts

	tests := []struct {
		raw    string
		remote bool
	}{
		{"https://github.com/kachayev/fn.py", true},
		{"http://example.com/repo.git", true},
		{"ssh://git@example.com/repo.git", true},
		{"git://example.com/repo.git", true},
		{"git@example.com:team/repo.git", true},
		{"github.com/kachayev/fn.py", true},
		{"gitlab.com/group/project", true},
		{"file:///srv/git/project", true},
		{"repos/fn.py", false},
		{"/srv/git/project", false},
		{".", false},
		{"./with@sign/dir:odd", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.remote, ParseLocation(tt.raw, hosts).Remote)
		})
	}
}

func TestLocationCachePath(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://github.com/kachayev/fn.py", "repos/fn.py"},
		{"https://github.com/kachayev/fn.py/", "repos/fn.py"},
		{"git@example.com:team/repo.git", "repos/repo.git"},
		{"git@example.com:solo", "repos/solo"},
		{"https://example.com/team/b?x=1", "repos/b"},
		{"https://example.com/team/b.git#main", "repos/b.git"},
		{"file:///srv/git/project/", "repos/project"},
	}

	for _, tt := range tests {
		got, err := Location{Raw: tt.raw, Remote: true}.CachePath("repos")
		require.NoError(t, err)
		assert.Equal(t, filepath.FromSlash(tt.want), got)
	}

	_, err := Location{Raw: "https://", Remote: true}.CachePath("repos")
	assert.ErrorIs(t, err, ErrInvalidLocation)
}

func TestAcquireLocalOpensDirectly(t *testing.T) {
	backend := new(mockBackend)
	repo := &stubRepository{}
	backend.On("Open", mock.Anything, "/srv/git/project").Return(repo, nil).Once()

	a := NewAcquirer(backend, backend, t.TempDir(), DefaultRemoteHosts, nil)
	got, err := a.Acquire(context.Background(), "/srv/git/project")

	require.NoError(t, err)
	assert.Same(t, repo, got)
	backend.AssertExpectations(t)
	backend.AssertNotCalled(t, "Clone", mock.Anything, mock.Anything, mock.Anything)
}

func TestAcquireRemoteClonesOnce(t *testing.T) {
	cacheDir := t.TempDir()
	url := "https://github.com/kachayev/fn.py"
	cachePath := filepath.Join(cacheDir, "fn.py")

	backend := new(mockBackend)
	repo := &stubRepository{}
	backend.On("Clone", mock.Anything, url, cachePath).Return(repo, nil).Once()
	backend.On("Open", mock.Anything, cachePath).Return(repo, nil).Once()

	a := NewAcquirer(backend, backend, cacheDir, DefaultRemoteHosts, nil)

	got, err := a.Acquire(context.Background(), url)
	require.NoError(t, err)
	assert.Same(t, repo, got)
	assert.DirExists(t, cachePath)
	backend.AssertNumberOfCalls(t, "Clone", 1)
	backend.AssertNotCalled(t, "Open", mock.Anything, mock.Anything)

	// the cache path now exists, so a second acquire must open it
	got, err = a.Acquire(context.Background(), url)
	require.NoError(t, err)
	assert.Same(t, repo, got)
	backend.AssertNumberOfCalls(t, "Clone", 1)
	backend.AssertNumberOfCalls(t, "Open", 1)
}

func TestAcquireExistingCacheSkipsClone(t *testing.T) {
	cacheDir := t.TempDir()
	cachePath := filepath.Join(cacheDir, "project")
	require.NoError(t, os.MkdirAll(cachePath, 0755))

	backend := new(mockBackend)
	backend.On("Open", mock.Anything, cachePath).Return(&stubRepository{}, nil).Once()

	a := NewAcquirer(backend, backend, cacheDir, DefaultRemoteHosts, nil)
	_, err := a.Acquire(context.Background(), "git@example.com:team/project")

	require.NoError(t, err)
	backend.AssertExpectations(t)
	backend.AssertNotCalled(t, "Clone", mock.Anything, mock.Anything, mock.Anything)
}

func TestAcquireCloneFailureCleansUp(t *testing.T) {
	cacheDir := t.TempDir()
	url := "https://gitlab.com/group/broken"
	cachePath := filepath.Join(cacheDir, "broken")

	backend := new(mockBackend)
	backend.On("Clone", mock.Anything, url, cachePath).Return(nil, errors.New("authentication required")).Once()

	a := NewAcquirer(backend, backend, cacheDir, DefaultRemoteHosts, nil)
	_, err := a.Acquire(context.Background(), url)

	var cloneErr *CloneError
	require.ErrorAs(t, err, &cloneErr)
	assert.Equal(t, url, cloneErr.URL)
	assert.Equal(t, cachePath, cloneErr.Path)
	assert.NoDirExists(t, cachePath)

	var openErr *OpenError
	assert.False(t, errors.As(err, &openErr))
	var resErr *ResolutionError
	assert.False(t, errors.As(err, &resErr))
}

func TestAcquireOpenFailure(t *testing.T) {
	backend := new(mockBackend)
	backend.On("Open", mock.Anything, "missing").Return(nil, os.ErrNotExist)

	a := NewAcquirer(backend, backend, t.TempDir(), DefaultRemoteHosts, nil)
	_, err := a.Acquire(context.Background(), "missing")

	var openErr *OpenError
	require.ErrorAs(t, err, &openErr)
	assert.Equal(t, "missing", openErr.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAcquireInvalidRemote(t *testing.T) {
	backend := new(mockBackend)
	a := NewAcquirer(backend, backend, t.TempDir(), DefaultRemoteHosts, nil)

	_, err := a.Acquire(context.Background(), "https://")

	assert.ErrorIs(t, err, ErrInvalidLocation)
	backend.AssertNotCalled(t, "Clone", mock.Anything, mock.Anything, mock.Anything)
}

func TestGitBackendOpen(t *testing.T) {
	dir := initDiskRepo(t, "only")
	backend := &GitBackend{}

	repo, err := backend.Open(context.Background(), dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	head, err := repo.HeadCommit(context.Background())
	require.NoError(t, err)
	summary, err := head.Summary()
	require.NoError(t, err)
	assert.Equal(t, "only", summary)

	_, err = backend.Open(context.Background(), t.TempDir())
	var openErr *OpenError
	assert.ErrorAs(t, err, &openErr)
}

func TestAcquireRefreshesCachedClone(t *testing.T) {
	cacheDir := t.TempDir()
	cachePath := filepath.Join(cacheDir, "project")
	require.NoError(t, os.MkdirAll(cachePath, 0755))

	repo := &stubRepository{}
	backend := new(mockBackend)
	backend.On("Open", mock.Anything, cachePath).Return(repo, nil).Once()
	backend.On("Refresh", mock.Anything, repo).Return(nil).Once()

	a := NewAcquirer(backend, backend, cacheDir, DefaultRemoteHosts, nil)
	a.SetRefresher(backend)

	got, err := a.Acquire(context.Background(), "https://github.com/team/project")
	require.NoError(t, err)
	assert.Same(t, repo, got)
	backend.AssertExpectations(t)
	backend.AssertNotCalled(t, "Clone", mock.Anything, mock.Anything, mock.Anything)
}

func TestAcquireWithoutRefresherOpensCacheAsIs(t *testing.T) {
	cacheDir := t.TempDir()
	cachePath := filepath.Join(cacheDir, "project")
	require.NoError(t, os.MkdirAll(cachePath, 0755))

	backend := new(mockBackend)
	backend.On("Open", mock.Anything, cachePath).Return(&stubRepository{}, nil).Once()

	a := NewAcquirer(backend, backend, cacheDir, DefaultRemoteHosts, nil)
	_, err := a.Acquire(context.Background(), "https://github.com/team/project")

	require.NoError(t, err)
	backend.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
}

func TestAcquireRefreshFailureClosesRepository(t *testing.T) {
	cacheDir := t.TempDir()
	cachePath := filepath.Join(cacheDir, "project")
	require.NoError(t, os.MkdirAll(cachePath, 0755))

	repo := &stubRepository{}
	backend := new(mockBackend)
	backend.On("Open", mock.Anything, cachePath).Return(repo, nil).Once()
	backend.On("Refresh", mock.Anything, repo).Return(errors.New("remote hung up")).Once()

	a := NewAcquirer(backend, backend, cacheDir, DefaultRemoteHosts, nil)
	a.SetRefresher(backend)

	_, err := a.Acquire(context.Background(), "https://github.com/team/project")

	var cloneErr *CloneError
	require.ErrorAs(t, err, &cloneErr)
	assert.Equal(t, cachePath, cloneErr.Path)
	assert.True(t, repo.closed)
	assert.DirExists(t, cachePath)
}

func TestGitBackendClone(t *testing.T) {
	requireGit(t)
	src := initDiskRepo(t, "one", "three")
	dest := filepath.Join(t.TempDir(), "clone")

	repo, err := (&GitBackend{}).Clone(context.Background(), src, dest)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	assert.Equal(t, "three", headSummary(t, repo))

	head, err := repo.HeadCommit(context.Background())
	require.NoError(t, err)
	tree, err := PeelToTree(context.Background(), repo, head)
	require.NoError(t, err)

	sizes := map[string]int64{}
	for blob, err := range NewTreeWalker(repo).Walk(context.Background(), tree) {
		require.NoError(t, err)
		sizes[blob.Path] = blob.Size
	}
	assert.Equal(t, map[string]int64{"filea.txt": 3, "fileb.txt": 5}, sizes)
	assert.FileExists(t, filepath.Join(dest, "fileb.txt"))
}

func TestGitBackendCloneFailure(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "clone")

	_, err := (&GitBackend{}).Clone(context.Background(), filepath.Join(t.TempDir(), "missing"), dest)

	var cloneErr *CloneError
	require.ErrorAs(t, err, &cloneErr)
	assert.Equal(t, dest, cloneErr.Path)
}

func TestAcquirerGitBackendReusesCache(t *testing.T) {
	requireGit(t)
	src := initDiskRepo(t, "first", "second")
	cacheDir := t.TempDir()
	backend := &GitBackend{}
	a := NewAcquirer(backend, backend, cacheDir, nil, nil)
	location := "file://" + filepath.ToSlash(src)

	repo, err := a.Acquire(context.Background(), location)
	require.NoError(t, err)
	assert.Equal(t, "second", headSummary(t, repo))
	require.NoError(t, repo.Close())
	assert.DirExists(t, filepath.Join(cacheDir, filepath.Base(src), ".git"))

	// without the source only the cached copy can satisfy this
	require.NoError(t, os.RemoveAll(src))

	repo, err = a.Acquire(context.Background(), location)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	assert.Equal(t, "second", headSummary(t, repo))
}

func TestAcquirerGitBackendRefreshPulls(t *testing.T) {
	requireGit(t)
	src := initDiskRepo(t, "first")
	backend := &GitBackend{}
	a := NewAcquirer(backend, backend, t.TempDir(), nil, nil)
	location := "file://" + filepath.ToSlash(src)

	repo, err := a.Acquire(context.Background(), location)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	commitFile(t, src, "later.txt", "second")

	repo, err = a.Acquire(context.Background(), location)
	require.NoError(t, err)
	assert.Equal(t, "first", headSummary(t, repo))
	require.NoError(t, repo.Close())

	a.SetRefresher(backend)
	repo, err = a.Acquire(context.Background(), location)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	assert.Equal(t, "second", headSummary(t, repo))

	// nothing new upstream
	require.NoError(t, backend.Refresh(context.Background(), repo))
}

func TestGitBackendRefreshRejectsForeignRepository(t *testing.T) {
	err := (&GitBackend{}).Refresh(context.Background(), &stubRepository{})
	assert.Error(t, err)
}
