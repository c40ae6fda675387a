package checker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gnoswap-labs/bplmatch/internal/bpl"
)

func sampleProgram(t *testing.T, assertion string) *bpl.Program {
	t.Helper()
	prog, err := bpl.Parse("p.bpl", "procedure p(a: int, b: int) { assert "+assertion+"; }")
	require.NoError(t, err)
	return prog
}

func TestCache(t *testing.T) {
	cacheDir := filepath.Join(t.TempDir(), "cache")
	cache, err := NewCache(cacheDir, 0)
	require.NoError(t, err)

	report := &Report{Failed: map[int]bool{3: true}, Verified: 1, Errors: 1, Output: "out"}

	t.Run("SaveAndLoad", func(t *testing.T) {
		require.NoError(t, cache.Set("key", report))

		loaded, found := cache.Get("key")
		require.True(t, found)
		assert.Equal(t, report, loaded)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, found := cache.Get("missing")
		assert.False(t, found)
	})

	t.Run("Persistence", func(t *testing.T) {
		reopened, err := NewCache(cacheDir, 0)
		require.NoError(t, err)

		loaded, found := reopened.Get("key")
		require.True(t, found)
		assert.Equal(t, report.Failed, loaded.Failed)
	})

	t.Run("CacheExpiration", func(t *testing.T) {
		cache.SetMaxAge(time.Millisecond)
		require.NoError(t, cache.Set("expiring", report))
		time.Sleep(10 * time.Millisecond)

		_, found := cache.Get("expiring")
		assert.False(t, found)
		cache.SetMaxAge(0)
	})

	t.Run("InvalidateAll", func(t *testing.T) {
		require.NoError(t, cache.Set("other", report))
		require.NotZero(t, cache.Len())

		cache.InvalidateAll()
		assert.Zero(t, cache.Len())
		_, found := cache.Get("other")
		assert.False(t, found)
	})
}

func TestCacheKey(t *testing.T) {
	t.Parallel()
	a := sampleProgram(t, "a == b")
	b := sampleProgram(t, "a == a")

	assert.Equal(t, CacheKey("boogie", a), CacheKey("boogie", sampleProgram(t, "a == b")))
	assert.NotEqual(t, CacheKey("boogie", a), CacheKey("boogie", b))
	assert.NotEqual(t, CacheKey("boogie", a), CacheKey("z3", a))
}

type mockChecker struct {
	mock.Mock
}

func (m *mockChecker) Check(ctx context.Context, path string, prog *bpl.Program) (*Report, error) {
	args := m.Called(ctx, path, prog)
	report, _ := args.Get(0).(*Report)
	return report, args.Error(1)
}

func TestCachedChecker(t *testing.T) {
	t.Parallel()
	cache, err := NewCache(t.TempDir(), time.Hour)
	require.NoError(t, err)
	prog := sampleProgram(t, "a == b")

	inner := new(mockChecker)
	inner.On("Check", mock.Anything, "p.bpl", prog).
		Return(&Report{Failed: map[int]bool{1: true}, Errors: 1}, nil).
		Once()

	cached := NewCached(zap.NewNop(), inner, "boogie", cache)
	first, err := cached.Check(context.Background(), "p.bpl", prog)
	require.NoError(t, err)
	second, err := cached.Check(context.Background(), "p.bpl", prog)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	inner.AssertNumberOfCalls(t, "Check", 1)
}

func TestCachedCheckerSkipsIncomplete(t *testing.T) {
	t.Parallel()
	cache, err := NewCache(t.TempDir(), 0)
	require.NoError(t, err)
	prog := sampleProgram(t, "a == b")

	inner := new(mockChecker)
	inner.On("Check", mock.Anything, mock.Anything, mock.Anything).
		Return(&Report{Failed: map[int]bool{}, Incomplete: true}, nil)

	cached := NewCached(zap.NewNop(), inner, "boogie", cache)
	for i := 0; i < 2; i++ {
		report, err := cached.Check(context.Background(), "p.bpl", prog)
		require.NoError(t, err)
		assert.True(t, report.Incomplete)
	}
	inner.AssertNumberOfCalls(t, "Check", 2)
	assert.Zero(t, cache.Len())
}

func TestCachedCheckerPropagatesErrors(t *testing.T) {
	t.Parallel()
	cache, err := NewCache(t.TempDir(), 0)
	require.NoError(t, err)

	inner := new(mockChecker)
	inner.On("Check", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, &CheckerError{Command: "boogie", Err: errNoSummary})

	_, err = NewCached(zap.NewNop(), inner, "boogie", cache).
		Check(context.Background(), "p.bpl", sampleProgram(t, "a == b"))
	assert.ErrorIs(t, err, errNoSummary)
	assert.Zero(t, cache.Len())
}
