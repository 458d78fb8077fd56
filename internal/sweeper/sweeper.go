package sweeper

import (
	"context"
	"time"

	"github.com/phuslu/log"

	"github.com/jagdishsuthartawao/rider-tracking-backend/internal/store"
)

// Sweeper prunes location samples older than the retention horizon on a
// fixed period. A failed run is logged and the next run happens anyway.
type Sweeper struct {
	store   store.Store
	period  time.Duration
	horizon time.Duration
	log     log.Logger
}

func New(st store.Store, period, horizon time.Duration) *Sweeper {
	s := &Sweeper{store: st, period: period, horizon: horizon}
	s.log = log.DefaultLogger
	s.log.Context = log.NewContext(nil).Str("module", "sweeper").Value()
	return s
}

func (s *Sweeper) Run(ctx context.Context) {
	s.log.Info().Dur("period", s.period).Dur("horizon", s.horizon).Msg("starting retention sweeper")
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	t0 := time.Now()
	removed, err := s.store.PruneOlderThan(ctx, s.horizon)
	if err != nil {
		s.log.Error().Err(err).Msg("prune failed")
		return
	}
	s.log.Info().Int64("removed", removed).Dur("time_taken", time.Since(t0)).Msg("prune done")
}
