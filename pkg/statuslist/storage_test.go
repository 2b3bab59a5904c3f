package statuslist

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sdjwtcore/pkg/logger"
)

// memStorage is a minimal in-memory StatusListStorage used to exercise the
// ETag contract; its ETag is just a monotonically incrementing revision.
type memStorage struct {
	mu  sync.Mutex
	sl  *StatusList
	rev int
}

func (m *memStorage) GetWithETag(_ context.Context, subject string) (*StatusList, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sl == nil {
		return nil, "", ErrStatusUnknown
	}
	return m.sl, strconv.Itoa(m.rev), nil
}

func (m *memStorage) TrySave(_ context.Context, subject string, sl *StatusList, etag string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if strconv.Itoa(m.rev) != etag {
		return "", ErrConcurrencyConflict
	}
	m.sl = sl
	m.rev++
	return strconv.Itoa(m.rev), nil
}

func TestUpdateStatusSucceeds(t *testing.T) {
	storage := &memStorage{sl: New([]uint8{0, 0, 0}), rev: 0}

	log := logger.NewSimple("statuslist-test")
	err := UpdateStatus(context.Background(), storage, "sub", func(sl *StatusList) error {
		return sl.Set(1, StatusInvalid)
	}, log)
	require.NoError(t, err)

	got, err := storage.sl.Get(1)
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, got)
	assert.Equal(t, 1, storage.rev)
}

func TestUpdateStatusRetriesOnConflict(t *testing.T) {
	storage := &memStorage{sl: New([]uint8{0, 0, 0}), rev: 0}

	calls := 0
	err := UpdateStatus(context.Background(), storage, "sub", func(sl *StatusList) error {
		calls++
		if calls == 1 {
			// simulate a concurrent writer landing between Get and Set
			storage.mu.Lock()
			storage.rev++
			storage.mu.Unlock()
		}
		return sl.Set(0, StatusSuspended)
	}, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, calls, 2)
}

func TestGetWithETagUnknownSubject(t *testing.T) {
	storage := &memStorage{}
	_, _, err := storage.GetWithETag(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrStatusUnknown)
}
