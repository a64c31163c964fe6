package fanout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRun_RespectsLimit(t *testing.T) {
	for _, tc := range []struct{ n, limit int }{{20, 5}, {3, 5}, {7, 1}, {50, 8}} {
		items := make([]int, tc.n)
		var active, peak atomic.Int32
		_, err := Run(context.Background(), items, tc.limit, func(ctx context.Context, i int, _ int) (int, error) {
			cur := active.Add(1)
			for {
				p := peak.Load()
				if cur <= p || peak.CompareAndSwap(p, cur) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			active.Add(-1)
			return i, nil
		})
		require.NoError(t, err)
		assert.LessOrEqual(t, int(peak.Load()), min(tc.n, tc.limit), "n=%d limit=%d", tc.n, tc.limit)
	}
}

func TestRun_ReachesLimit(t *testing.T) {
	// Every worker blocks until `limit` of them are in flight together.
	const limit = 4
	var wg sync.WaitGroup
	wg.Add(limit)
	items := make([]int, limit)
	out, err := Run(context.Background(), items, limit, func(ctx context.Context, i int, _ int) (int, error) {
		wg.Done()
		wg.Wait()
		return i, nil
	})
	require.NoError(t, err)
	assert.Len(t, Values(out), limit)
}

func TestRun_PositionalCorrelation(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6, 7}
	out, err := Run(context.Background(), items, 3, func(ctx context.Context, i int, item int) (string, error) {
		// Later items finish first.
		time.Sleep(time.Duration(len(items)-i) * 3 * time.Millisecond)
		return string(rune('a' + item)), nil
	})
	require.NoError(t, err)
	require.Len(t, out, len(items))
	for i, o := range out {
		require.True(t, o.OK())
		assert.Equal(t, string(rune('a'+i)), o.Value)
	}
}

func TestRun_PartialFailure(t *testing.T) {
	boom := errors.New("boom")
	items := []string{"a", "b", "c", "d", "e"}
	out, err := Run(context.Background(), items, 2, func(ctx context.Context, i int, item string) (string, error) {
		if i == 2 {
			return "", boom
		}
		return item + item, nil
	})
	require.NoError(t, err)
	require.Len(t, out, 5)
	for i, o := range out {
		if i == 2 {
			assert.ErrorIs(t, o.Err, boom)
			continue
		}
		assert.NoError(t, o.Err)
		assert.Equal(t, items[i]+items[i], o.Value)
	}
	assert.Equal(t, 1, Failures(out))
	assert.Equal(t, []string{"aa", "bb", "dd", "ee"}, Values(out))
}

func TestRun_PanicBecomesFailure(t *testing.T) {
	out, err := Run(context.Background(), []int{1, 2}, 2, func(ctx context.Context, i int, item int) (int, error) {
		if item == 1 {
			panic("bad item")
		}
		return item, nil
	})
	require.NoError(t, err)
	assert.Error(t, out[0].Err)
	assert.Equal(t, 2, out[1].Value)
}

func TestRun_EmptyItems(t *testing.T) {
	var calls atomic.Int32
	out, err := Run(context.Background(), []int{}, 5, func(ctx context.Context, i int, item int) (int, error) {
		calls.Add(1)
		return item, nil
	})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Zero(t, calls.Load())
}

func TestRun_InvalidLimit(t *testing.T) {
	for _, limit := range []int{0, -3} {
		var calls atomic.Int32
		_, err := Run(context.Background(), []int{1, 2}, limit, func(ctx context.Context, i int, item int) (int, error) {
			calls.Add(1)
			return item, nil
		})
		assert.ErrorIs(t, err, ErrInvalidLimit)
		assert.Zero(t, calls.Load())
	}
}

func TestRun_ExactlyOnce(t *testing.T) {
	const n = 200
	counts := make([]atomic.Int32, n)
	items := make([]int, n)
	for i := range items {
		items[i] = i
	}
	out, err := Run(context.Background(), items, 7, func(ctx context.Context, i int, item int) (int, error) {
		counts[item].Add(1)
		return item * 2, nil
	})
	require.NoError(t, err)
	require.Len(t, out, n)
	for i := range counts {
		assert.Equal(t, int32(1), counts[i].Load(), "item %d", i)
		assert.Equal(t, i*2, out[i].Value)
	}
}

func TestRun_CanceledContextFailsPendingItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	items := []int{0, 1, 2, 3}
	out, err := Run(ctx, items, 1, func(ctx context.Context, i int, item int) (int, error) {
		if i == 0 {
			close(started)
			cancel()
			<-ctx.Done()
			return 0, ctx.Err()
		}
		return item, nil
	})
	<-started
	require.NoError(t, err)
	require.Len(t, out, len(items))
	for _, o := range out {
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
}
