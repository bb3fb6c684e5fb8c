package boundedcall

import (
	"context"
	"time"

	infraPrometheus "github.com/NeuralTrust/SMSGuard/pkg/infra/prometheus"
	"github.com/sirupsen/logrus"
)

type result[T any] struct {
	value T
	err   error
}

// Call races fn against timeout and degrades every failure to an absent
// result. The second return value reports presence: false means fn errored or
// the deadline fired first, and the caller must treat the signal as
// unavailable rather than fatal. The losing branch keeps running in the
// background; its result is discarded.
func Call[T any](
	ctx context.Context,
	logger *logrus.Logger,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) (T, error),
) (T, bool) {
	var zero T

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan result[T], 1)
	go func() {
		value, err := fn(callCtx)
		ch <- result[T]{value: value, err: err}
	}()

	handle := func(res result[T]) (T, bool) {
		if res.err != nil {
			logger.WithError(res.err).WithField("operation", name).Error("bounded call failed")
			infraPrometheus.BoundedCallFailures.WithLabelValues(name, "error").Inc()
			return zero, false
		}
		return res.value, true
	}

	select {
	case res := <-ch:
		return handle(res)
	case <-callCtx.Done():
		// The call may have finished in the same instant the deadline fired;
		// a completed result is not thrown away.
		select {
		case res := <-ch:
			return handle(res)
		default:
		}
		logger.WithFields(logrus.Fields{
			"operation": name,
			"timeout":   timeout.String(),
		}).Error("bounded call timed out")
		infraPrometheus.BoundedCallFailures.WithLabelValues(name, "timeout").Inc()
		return zero, false
	}
}
