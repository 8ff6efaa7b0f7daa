package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KOFI-GYIMAH/github-popularity/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ranking(names ...string) []models.RankedRepository {
	items := make([]models.RankedRepository, 0, len(names))
	for i, n := range names {
		items = append(items, models.RankedRepository{FullName: n, PopularityScore: float64(len(names) - i)})
	}
	return items
}

func countingCompute(calls *int32, result []models.RankedRepository) ComputeFunc {
	return func(ctx context.Context) ([]models.RankedRepository, error) {
		atomic.AddInt32(calls, 1)
		return result, nil
	}
}

func TestResultCache_GetOrCompute_HitSkipsCompute(t *testing.T) {
	c := New(time.Minute, 0)
	var calls int32
	compute := countingCompute(&calls, ranking("user/r1"))

	for i := 0; i < 3; i++ {
		items, err := c.GetOrCompute(context.Background(), "2023-01-01", "java", compute)
		require.NoError(t, err)
		assert.Equal(t, ranking("user/r1"), items)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, Stats{Entries: 1, Hits: 2, Misses: 1}, c.Stats())
}

func TestResultCache_KeysAreVerbatim(t *testing.T) {
	c := New(time.Minute, 0)
	var calls int32
	compute := countingCompute(&calls, ranking("user/r1"))

	keys := []Key{
		{"2023-01-01", "java"},
		{"2023-01-01", "Java"},
		{"2023-01-02", "java"},
		{"2023-1-1", "java"},
	}
	for _, k := range keys {
		_, err := c.GetOrCompute(context.Background(), k.Since, k.Language, compute)
		require.NoError(t, err)
	}

	assert.Equal(t, int32(len(keys)), atomic.LoadInt32(&calls))
}

func TestResultCache_EmptyResultsAreCached(t *testing.T) {
	c := New(time.Minute, 0)
	var calls int32
	compute := countingCompute(&calls, nil)

	for i := 0; i < 2; i++ {
		items, err := c.GetOrCompute(context.Background(), "2023-01-01", "cobol", compute)
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestResultCache_ErrorsAreNotCached(t *testing.T) {
	c := New(time.Minute, 0)
	var calls int32
	boom := errors.New("boom")

	compute := func(ctx context.Context) ([]models.RankedRepository, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, boom
		}
		return ranking("user/r1"), nil
	}

	_, err := c.GetOrCompute(context.Background(), "2023-01-01", "java", compute)
	assert.ErrorIs(t, err, boom)

	items, err := c.GetOrCompute(context.Background(), "2023-01-01", "java", compute)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestResultCache_Expiry(t *testing.T) {
	c := New(30*time.Millisecond, 0)
	var calls int32
	compute := countingCompute(&calls, ranking("user/r1"))

	_, err := c.GetOrCompute(context.Background(), "2023-01-01", "java", compute)
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	_, err = c.GetOrCompute(context.Background(), "2023-01-01", "java", compute)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestResultCache_BoundedEntries(t *testing.T) {
	c := New(time.Minute, 2)
	var calls int32
	compute := countingCompute(&calls, ranking("user/r1"))

	for _, lang := range []string{"go", "java", "rust"} {
		_, err := c.GetOrCompute(context.Background(), "2023-01-01", lang, compute)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, c.Stats().Entries)

	// * "go" was the least recently used key and got evicted
	_, err := c.GetOrCompute(context.Background(), "2023-01-01", "go", compute)
	require.NoError(t, err)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestResultCache_ConcurrentMissesShareOneComputation(t *testing.T) {
	c := New(time.Minute, 0)
	var calls int32
	release := make(chan struct{})

	compute := func(ctx context.Context) ([]models.RankedRepository, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return ranking("user/r1", "user/r2"), nil
	}

	var wg sync.WaitGroup
	results := make([][]models.RankedRepository, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			items, err := c.GetOrCompute(context.Background(), "2023-01-01", "java", compute)
			assert.NoError(t, err)
			results[i] = items
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, items := range results {
		assert.Equal(t, ranking("user/r1", "user/r2"), items)
	}
}

func TestResultCache_DifferentKeysDoNotBlockEachOther(t *testing.T) {
	c := New(time.Minute, 0)
	release := make(chan struct{})
	defer close(release)

	slow := func(ctx context.Context) ([]models.RankedRepository, error) {
		<-release
		return ranking("slow/repo"), nil
	}
	go c.GetOrCompute(context.Background(), "2023-01-01", "java", slow)

	done := make(chan struct{})
	go func() {
		defer close(done)
		var calls int32
		_, err := c.GetOrCompute(context.Background(), "2023-01-01", "go", countingCompute(&calls, ranking("fast/repo")))
		assert.NoError(t, err)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("a slow computation for one key blocked another key")
	}
}

func TestResultCache_ReturnedSlicesAreCopies(t *testing.T) {
	c := New(time.Minute, 0)
	var calls int32
	compute := countingCompute(&calls, ranking("user/r1"))

	items, err := c.GetOrCompute(context.Background(), "2023-01-01", "java", compute)
	require.NoError(t, err)
	items[0].FullName = "mutated"

	again, err := c.GetOrCompute(context.Background(), "2023-01-01", "java", compute)
	require.NoError(t, err)
	assert.Equal(t, "user/r1", again[0].FullName)
}

func TestResultCache_RefreshReplacesEntry(t *testing.T) {
	c := New(time.Minute, 0)
	var calls int32

	_, err := c.GetOrCompute(context.Background(), "2023-01-01", "java", countingCompute(&calls, ranking("old/repo")))
	require.NoError(t, err)

	fresh, err := c.Refresh(context.Background(), "2023-01-01", "java", countingCompute(&calls, ranking("new/repo")))
	require.NoError(t, err)
	assert.Equal(t, ranking("new/repo"), fresh)

	items, err := c.GetOrCompute(context.Background(), "2023-01-01", "java", countingCompute(&calls, ranking("never/used")))
	require.NoError(t, err)
	assert.Equal(t, ranking("new/repo"), items)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestResultCache_FailedRefreshKeepsOldEntry(t *testing.T) {
	c := New(time.Minute, 0)
	var calls int32

	_, err := c.GetOrCompute(context.Background(), "2023-01-01", "java", countingCompute(&calls, ranking("old/repo")))
	require.NoError(t, err)

	_, err = c.Refresh(context.Background(), "2023-01-01", "java", func(ctx context.Context) ([]models.RankedRepository, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)

	items, err := c.GetOrCompute(context.Background(), "2023-01-01", "java", countingCompute(&calls, nil))
	require.NoError(t, err)
	assert.Equal(t, ranking("old/repo"), items)
}

func TestResultCache_ComputationSurvivesCallerCancellation(t *testing.T) {
	c := New(time.Minute, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items, err := c.GetOrCompute(ctx, "2023-01-01", "java", func(ctx context.Context) ([]models.RankedRepository, error) {
		assert.NoError(t, ctx.Err())
		return ranking("user/r1"), nil
	})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestKey_String(t *testing.T) {
	assert.Equal(t, "2023-01-01|java", Key{Since: "2023-01-01", Language: "java"}.String())
}
