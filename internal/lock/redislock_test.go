package lock_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/vinicius77777/acai-do-max/internal/lock"
)

func newClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestWithLockSerialisesSameDescription(t *testing.T) {
	client, _ := newClient(t)
	locker := lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	key := lock.StockEntryKey("Açaí 500ml")

	var order []string
	var mu sync.Mutex
	firstDone := make(chan struct{})
	releaseFirst := make(chan struct{})

	go func() {
		err := locker.WithLock(ctx, key, 100*time.Millisecond, func(context.Context) error {
			mu.Lock()
			order = append(order, "first")
			mu.Unlock()
			close(firstDone)
			<-releaseFirst
			return nil
		})
		require.NoError(t, err)
	}()

	<-firstDone

	go func() {
		err := locker.WithLock(ctx, key, 100*time.Millisecond, func(context.Context) error {
			mu.Lock()
			order = append(order, "second")
			mu.Unlock()
			return nil
		})
		require.NoError(t, err)
	}()

	close(releaseFirst)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, 10*time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"first", "second"}, order)
}

func TestWithLockReleasesOnError(t *testing.T) {
	client, mr := newClient(t)
	locker := lock.Locker{R: client}
	key := lock.StockEntryKey("Granola")

	boom := errors.New("boom")
	err := locker.WithLock(context.Background(), key, time.Second, func(context.Context) error {
		require.True(t, mr.Exists(key))
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, mr.Exists(key))
}

func TestWithLockMaxWait(t *testing.T) {
	client, mr := newClient(t)
	key := lock.StockEntryKey("Granola")
	require.NoError(t, mr.Set(key, "someone-else"))

	locker := lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond, MaxWait: 30 * time.Millisecond}
	err := locker.WithLock(context.Background(), key, time.Second, func(context.Context) error {
		t.Fatal("callback must not run while the key is held")
		return nil
	})
	require.ErrorIs(t, err, lock.ErrTimeout)
}

func TestWithLockWithoutClient(t *testing.T) {
	err := lock.Locker{}.WithLock(context.Background(), "k", time.Second, func(context.Context) error { return nil })
	require.ErrorIs(t, err, lock.ErrNotConfigured)
}

func TestStockEntryKeyIsCaseSensitive(t *testing.T) {
	require.NotEqual(t, lock.StockEntryKey("Açaí"), lock.StockEntryKey("açaí"))
}
