/*
Package supervise keeps a long-running serve function alive.

A serve function that returns an error is restarted after a delay; a longer delay is
used when the listen address is already taken, since that usually means an older
process is still shutting down.
*/
package supervise

import (
	"context"
	"errors"
	"syscall"
	"time"

	"erlobby/internal/pkg/logx"
)

// Options controls the restart delays.
type Options struct {
	// RestartDelay is the wait after an ordinary failure.
	RestartDelay time.Duration

	// AddrInUseDelay is the wait after a failure to bind the listen address.
	AddrInUseDelay time.Duration

	// sleep waits for d or until ctx is done. Tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

// Run calls serve until it returns nil or ctx is cancelled. Every error is logged and
// followed by a restart. Run returns ctx.Err() on cancellation and nil on a clean exit.
func Run(ctx context.Context, opts Options, serve func(ctx context.Context) error) error {
	if opts.sleep == nil {
		opts.sleep = sleep
	}

	for attempt := 1; ; attempt++ {
		err := serve(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			return nil
		}

		delay := opts.RestartDelay
		if IsAddrInUse(err) {
			delay = opts.AddrInUseDelay
			logx.Error(err, "Listen address is already in use, retrying", "attempt", attempt, "delay", delay.String())
		} else {
			logx.Error(err, "Server crashed, restarting", "attempt", attempt, "delay", delay.String())
		}

		if err := opts.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// IsAddrInUse reports whether err was caused by binding an address that is already taken.
func IsAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
