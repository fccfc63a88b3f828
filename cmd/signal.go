package cmd

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"

	"firestige.xyz/netmon/internal/log"
)

// watchSignals cancels the returned context on the first of sigs and then
// restores default handling, so a second signal terminates the process even
// while a capture read is blocked.
func watchSignals(parent context.Context, sigs ...os.Signal) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, sigs...)
	var released atomic.Bool
	context.AfterFunc(ctx, func() {
		stop()
		if !released.Load() && parent.Err() == nil {
			log.GetLogger().Warn("signal received, stopping at the next frame; send again to force exit")
		}
	})
	return ctx, func() {
		released.Store(true)
		stop()
	}
}
