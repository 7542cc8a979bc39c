package supervise

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

func TestRunRestartsWithMatchingDelay(t *testing.T) {
	var delays []time.Duration
	opts := Options{RestartDelay: 2 * time.Second, AddrInUseDelay: 10 * time.Second, sleep: recordingSleep(&delays)}

	addrErr := &net.OpError{Op: "listen", Net: "tcp", Err: os.NewSyscallError("bind", syscall.EADDRINUSE)}
	failures := []error{errors.New("boom"), fmt.Errorf("starting server: %w", addrErr)}

	calls := 0
	err := Run(context.Background(), opts, func(context.Context) error {
		calls++
		if len(failures) > 0 {
			next := failures[0]
			failures = failures[1:]
			return next
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 10 * time.Second}, delays)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Run(ctx, Options{}, func(context.Context) error {
		calls++
		cancel()
		return errors.New("server closed")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRealSleepHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	assert.ErrorIs(t, sleep(ctx, time.Hour), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestIsAddrInUseOnRealListener(t *testing.T) {
	first, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer first.Close()

	_, err = net.Listen("tcp", first.Addr().String())
	require.Error(t, err)
	assert.True(t, IsAddrInUse(err))
	assert.False(t, IsAddrInUse(errors.New("other")))
}
