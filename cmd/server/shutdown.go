package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/missile"
	"github.com/RedstoneFuture/missilewars-sub001/internal/sim/scheduler"
)

// stopOnDone tears the server down once ctx ends: HTTP first, then the
// missile service, then the scheduler. The returned channel closes after the
// scheduler stops; main waits on it so its deferred closes run last.
func stopOnDone(ctx context.Context, timeout time.Duration, logger zerolog.Logger, srv *http.Server, svc *missile.Service, sched *scheduler.Scheduler) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		ctx2, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(ctx2); err != nil {
			logger.Warn().Err(err).Msg("http shutdown")
		}
		if err := svc.Shutdown(ctx2); err != nil {
			logger.Warn().Err(err).Msg("missile service shutdown")
		}
		sched.Stop()
	}()
	return done
}
