package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type mockExpirableStore struct {
	calls atomic.Int64
}

func (m *mockExpirableStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	m.calls.Add(1)
	return 2, nil
}

func TestSweeperDeletesExpiredRows(t *testing.T) {
	codes := &mockExpirableStore{}
	tokens := &mockExpirableStore{}
	sweeper := NewSweeperService(10*time.Millisecond, nil, codes, tokens)

	sweeper.Start(context.Background())
	defer sweeper.Stop()

	assert.Eventually(t, func() bool {
		return codes.calls.Load() > 0 && tokens.calls.Load() > 0
	}, time.Second, 5*time.Millisecond)
}

func TestSweeperStopIsIdempotent(t *testing.T) {
	sweeper := NewSweeperService(time.Minute, nil, &mockExpirableStore{}, &mockExpirableStore{})

	sweeper.Stop()
	sweeper.Start(context.Background())
	sweeper.Stop()
	sweeper.Stop()
}
