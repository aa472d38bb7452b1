package signals

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
)

var (
	signalHandlers      []func()
	signalHandlersMutex sync.Mutex
)

// RegisterGracefulTerminationHandler adds fn to the handlers run when a context from
// NotifyContext ends. Handlers run in reverse registration order.
func RegisterGracefulTerminationHandler(fn func()) {
	signalHandlersMutex.Lock()
	defer signalHandlersMutex.Unlock()
	signalHandlers = append(signalHandlers, fn)
}

// NotifyContext returns a context cancelled on SIGINT or SIGTERM, or when parent ends.
// Registered handlers run once the context is done. Calling stop releases the signal
// notification without running them.
func NotifyContext(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	released := make(chan struct{})
	var once sync.Once
	go func() {
		select {
		case <-ctx.Done():
			// stop closes released before cancelling
			select {
			case <-released:
				return
			default:
			}
			runHandlers()
		case <-released:
		}
	}()
	return ctx, func() {
		once.Do(func() { close(released) })
		cancel()
	}
}

func runHandlers() {
	signalHandlersMutex.Lock()
	handlers := slices.Clone(signalHandlers)
	signalHandlers = nil
	signalHandlersMutex.Unlock()

	for _, fn := range slices.Backward(handlers) {
		fn()
	}
}
