package portal

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/careportal/internal/clock"
	"github.com/hackgods/careportal/internal/kv"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

// mockKV is a kv.Store whose behaviour is set per test.
type mockKV struct {
	GetFunc func(ctx context.Context, key string) ([]byte, error)
	SetFunc func(ctx context.Context, key string, value []byte) error

	SetCallCount int32
}

var _ kv.Store = (*mockKV)(nil)

func (m *mockKV) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	return nil, kv.ErrNotFound
}

func (m *mockKV) Set(ctx context.Context, key string, value []byte) error {
	atomic.AddInt32(&m.SetCallCount, 1)
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value)
	}
	return nil
}

func sequentialIDs() func() string {
	var n int64
	return func() string {
		return fmt.Sprintf("id-%d", atomic.AddInt64(&n, 1))
	}
}

func testOptions(c clock.Clock) Options {
	return Options{
		Clock: c,
		Faker: gofakeit.New(42),
		NewID: sequentialIDs(),
	}
}

func openTestStore(t *testing.T) (*Store, *kv.Memory, *clock.FakeClock) {
	t.Helper()
	c := clock.Fake(t0)
	mem := kv.NewMemory()
	s, err := Open(context.Background(), mem, testOptions(c))
	require.NoError(t, err)
	return s, mem, c
}

func findSlot(t *testing.T, s *Store, id string) Slot {
	t.Helper()
	slot, err := s.Slot(id)
	require.NoError(t, err)
	return slot
}
