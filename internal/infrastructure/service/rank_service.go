// Package service contains adapters that wrap infrastructure components
// with operational policies before handing them to the application layer.
package service

import (
	"context"
	"errors"

	"github.com/bilimhub/bilim-motivation-engine/internal/domain/signals"
	"github.com/bilimhub/bilim-motivation-engine/pkg/circuitbreaker"
	"github.com/bilimhub/bilim-motivation-engine/pkg/logger"
)

// RankService wraps a signals.RankReader with a circuit breaker. When the
// leaderboard cache starts failing, the breaker opens and rank lookups
// fail fast with signals.ErrRankUnavailable instead of stalling every
// evaluation call on a dead Redis.
type RankService struct {
	reader  signals.RankReader
	breaker *circuitbreaker.CircuitBreaker
	log     *logger.Logger
}

// NewRankService creates a breaker-guarded rank reader.
func NewRankService(reader signals.RankReader, log *logger.Logger) *RankService {
	s := &RankService{reader: reader, log: log}
	s.breaker = circuitbreaker.RankCacheBreaker(func(name string, from, to circuitbreaker.State) {
		if log != nil {
			log.Warn("rank cache breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()),
			)
		}
	})
	return s
}

// PercentileRank implements signals.RankReader. Breaker rejections and
// unavailable ranks both surface as signals.ErrRankUnavailable so callers
// have one degradation path.
func (s *RankService) PercentileRank(ctx context.Context, userID string) (float64, error) {
	var (
		rank    float64
		rankErr error
	)
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		r, err := s.reader.PercentileRank(ctx, userID)
		if err != nil {
			// A user missing from the leaderboard is a healthy answer,
			// not a cache failure; it must not trip the breaker.
			if errors.Is(err, signals.ErrRankUnavailable) {
				rankErr = err
				return nil
			}
			return err
		}
		rank = r
		return nil
	})
	if err == nil && rankErr != nil {
		return 0, rankErr
	}
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
			return 0, signals.ErrRankUnavailable
		}
		return 0, err
	}
	return rank, nil
}
