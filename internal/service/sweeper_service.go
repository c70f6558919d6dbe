package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type expirableStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// SweeperService opportunistically deletes expired authorization codes and
// refresh tokens. Lookups already treat expired rows as absent, so the sweep
// only reclaims space; its timing is never a correctness concern.
type SweeperService struct {
	stores   map[string]expirableStore
	interval time.Duration
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewSweeperService constructs a sweeper over the named stores.
func NewSweeperService(interval time.Duration, logger *zap.Logger, codes, tokens expirableStore) *SweeperService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return &SweeperService{
		stores: map[string]expirableStore{
			"authorization_codes": codes,
			"refresh_tokens":      tokens,
		},
		interval: interval,
		logger:   logger,
	}
}

// Start launches the background sweep loop. Safe to call once.
func (s *SweeperService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep(ctx)
			}
		}
	}()
}

// Stop cancels the loop and waits for it to exit.
func (s *SweeperService) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
}

func (s *SweeperService) sweep(ctx context.Context) {
	now := time.Now().UTC()
	for name, store := range s.stores {
		if store == nil {
			continue
		}
		n, err := store.DeleteExpired(ctx, now)
		if err != nil {
			s.logger.Warn("sweep failed", zap.String("store", name), zap.Error(err))
			continue
		}
		if n > 0 {
			s.logger.Debug("swept expired rows", zap.String("store", name), zap.Int64("deleted", n))
		}
	}
}
