package shuttle

import (
	"context"

	"github.com/DenisKolodin/shuttle/internal/breaker"
	"github.com/DenisKolodin/shuttle/internal/metrics"
	"github.com/DenisKolodin/shuttle/internal/slab"
	"github.com/DenisKolodin/shuttle/internal/wire"
)

// parkedWorker is what the suspension slab actually stores: a Worker plus
// the service name it was routed from, so a later Resume still reports
// accurate metrics and still runs through that service's circuit breaker.
type parkedWorker[T any] struct {
	worker  Worker[T]
	service string
}

// dispatchOptions configures one connection's dispatcher.
type dispatchOptions struct {
	slabCapacity int
	breakers     *breaker.Registry
}

// runSession drives the per-connection session loop: the outer (request)
// loop wrapping the inner (stream) loop. It returns when the connection is
// closed or broken, or when ctx is canceled between calls; any other error
// is handled internally (emit Fail, keep going).
func runSession[T any](ctx context.Context, sess *Context[T], suite *Suite[T], opts dispatchOptions) error {
	parked := slab.New[parkedWorker[T]](opts.slabCapacity)
	defer parked.Drain(func(parkedWorker[T]) {
		metrics.ParkedWorkers.Dec()
		parkedCount.Dec()
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := oneCall(sess, suite, parked, opts.breakers)
		if err == nil {
			continue
		}
		switch Kind(err) {
		case KindCanceledFailure:
			// Current call abandoned; parked workers untouched.
			continue
		case KindConnectionBrokenFailure, KindConnectionClosedFailure:
			return err
		default:
			sess.Log().Warn().Err(err).Msg("request processing caught an error")
			if sendErr := sess.Send(wire.Fail(err.Error())); sendErr != nil {
				if k := Kind(sendErr); k == KindConnectionBrokenFailure || k == KindConnectionClosedFailure {
					return sendErr
				}
			}
			continue
		}
	}
}

// oneCall runs exactly one full call cycle: acquiring a foreground worker
// (by Call+route+prepare, or by Resume from the slab) and streaming it to a
// terminal outcome. It returns nil once a terminal Output has been sent
// successfully.
func oneCall[T any](sess *Context[T], suite *Suite[T], parked *slab.Slab[parkedWorker[T]], breakers *breaker.Registry) error {
	rr, err := sess.RecvRequestOrResume()
	if err != nil {
		return err
	}

	if rr.IsResume {
		pw, ok := parked.Remove(rr.TaskID)
		if !ok {
			return errWorkerNotFound(rr.TaskID)
		}
		metrics.ParkedWorkers.Dec()
		parkedCount.Dec()
		return streamLoop(sess, pw.worker, pw.service, parked, breakers)
	}

	serviceName := rr.ServiceName
	worker, err := suite.route(serviceName, rr.Request)
	if err != nil {
		return errServiceNotFound(serviceName)
	}

	var shortcut Shortcut
	prepareErr := callThroughBreaker(breakers, serviceName, func() error {
		var err error
		shortcut, err = worker.Prepare(sess, rr.Request)
		return err
	})
	if prepareErr != nil {
		metrics.CallsTotal.WithLabelValues(serviceName, metrics.OutcomeFail).Inc()
		return errWorker(prepareErr)
	}

	switch shortcut.Kind {
	case KindShortcutDone:
		metrics.CallsTotal.WithLabelValues(serviceName, metrics.OutcomeDone).Inc()
		return sess.Send(wire.Done())
	case KindShortcutReject:
		metrics.CallsTotal.WithLabelValues(serviceName, metrics.OutcomeReject).Inc()
		return sess.Send(wire.Reject(shortcut.Reason))
	default: // KindTuned
		return streamLoop(sess, worker, serviceName, parked, breakers)
	}
}

// streamLoop runs the inner (stream) loop for one foreground worker until
// a terminal Realize variant, or a Suspend, takes it out of the foreground.
func streamLoop[T any](sess *Context[T], worker Worker[T], serviceName string, parked *slab.Slab[parkedWorker[T]], breakers *breaker.Registry) error {
	for {
		if err := sess.Send(wire.Ready()); err != nil {
			return err
		}

		nos, err := sess.RecvNextOrSuspend()
		if err != nil {
			return err
		}

		if nos.Suspend {
			id, err := parked.Insert(parkedWorker[T]{worker: worker, service: serviceName})
			if err != nil {
				metrics.CallsTotal.WithLabelValues(serviceName, metrics.OutcomeFail).Inc()
				return errCannotSuspend()
			}
			metrics.ParkedWorkers.Inc()
			parkedCount.Inc()
			metrics.CallsTotal.WithLabelValues(serviceName, metrics.OutcomeSuspended).Inc()
			return sess.Send(wire.Suspended(id))
		}

		var realized Realize
		realizeErr := callThroughBreaker(breakers, serviceName, func() error {
			var err error
			realized, err = worker.Realize(sess, nos.Request)
			return err
		})
		if realizeErr != nil {
			metrics.CallsTotal.WithLabelValues(serviceName, metrics.OutcomeFail).Inc()
			return errWorker(realizeErr)
		}

		switch realized.Kind {
		case KindOneItem:
			if err := sess.Send(wire.Item(realized.Item)); err != nil {
				return err
			}
		case KindOneItemAndDone:
			if err := sess.Send(wire.Item(realized.Item)); err != nil {
				return err
			}
			metrics.CallsTotal.WithLabelValues(serviceName, metrics.OutcomeDone).Inc()
			return sess.Send(wire.Done())
		case KindManyItems:
			if err := sendSequence(sess, realized.Seq); err != nil {
				return err
			}
		case KindManyItemsAndDone:
			if err := sendSequence(sess, realized.Seq); err != nil {
				return err
			}
			metrics.CallsTotal.WithLabelValues(serviceName, metrics.OutcomeDone).Inc()
			return sess.Send(wire.Done())
		case KindRealizeReject:
			metrics.CallsTotal.WithLabelValues(serviceName, metrics.OutcomeReject).Inc()
			return sess.Send(wire.Reject(realized.Reason))
		case KindRealizeDone:
			metrics.CallsTotal.WithLabelValues(serviceName, metrics.OutcomeDone).Inc()
			return sess.Send(wire.Done())
		case KindEmpty:
			// loop for another Ready/Next cycle, no emission.
		}
	}
}

func sendSequence[T any](sess *Context[T], seq Sequence) error {
	if seq == nil {
		return nil
	}
	var sendErr error
	for item := range seq {
		if sendErr = sess.Send(wire.Item(item)); sendErr != nil {
			break
		}
	}
	return sendErr
}

// callThroughBreaker runs fn, optionally gated by the service's circuit
// breaker. When the breaker is open, fn is never invoked and the breaker's
// own error is returned as if it were fn's error — the dispatcher treats a
// short-circuited call identically to a WorkerError.
func callThroughBreaker(breakers *breaker.Registry, service string, fn func() error) error {
	if breakers == nil {
		return fn()
	}
	return breakers.Call(service, fn)
}
