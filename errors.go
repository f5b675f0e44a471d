package shuttle

import "github.com/pkg/errors"

// ErrorKind classifies a dispatch error, so the outer loop boundary can
// decide whether to emit Fail and continue, or terminate the session.
type ErrorKind int

const (
	// KindWorkerErrorFailure marks a failure returned by a worker's Prepare
	// or Realize call.
	KindWorkerErrorFailure ErrorKind = iota + 1
	// KindServiceNotFoundFailure marks a Call naming an unregistered service.
	KindServiceNotFoundFailure
	// KindWorkerNotFoundFailure marks a Resume naming an unparked task id.
	KindWorkerNotFoundFailure
	// KindCanceledFailure marks a client Cancel.
	KindCanceledFailure
	// KindCannotSuspendFailure marks a Suspend attempt against a full slab.
	KindCannotSuspendFailure
	// KindMalformedFailure marks a frame the codec could not parse.
	KindMalformedFailure
	// KindUnexpectedInputFailure marks the wrong Input variant for the
	// dispatcher's current state.
	KindUnexpectedInputFailure
	// KindConnectionBrokenFailure marks a transport I/O failure on recv/send.
	KindConnectionBrokenFailure
	// KindConnectionClosedFailure marks an orderly client close.
	KindConnectionClosedFailure
)

// DispatchError is the error type every dispatcher code path returns, so
// the outer loop can classify it without string matching.
type DispatchError struct {
	Kind ErrorKind
	msg  string
	err  error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

// Unwrap exposes the underlying cause, if any, to errors.Is/errors.As.
func (e *DispatchError) Unwrap() error { return e.err }

func newDispatchError(kind ErrorKind, msg string, cause error) *DispatchError {
	return &DispatchError{Kind: kind, msg: msg, err: cause}
}

// ErrCanceled is returned by the session primitives when the client sends
// Cancel. The outer loop treats it specially: abandon the current call,
// keep the connection and any parked workers, and silently restart.
var ErrCanceled = newDispatchError(KindCanceledFailure, "shuttle: call canceled", nil)

func errServiceNotFound(name string) error {
	return newDispatchError(KindServiceNotFoundFailure, "shuttle: service not found", errors.Errorf("%q", name))
}

func errWorkerNotFound(taskID uint32) error {
	return newDispatchError(KindWorkerNotFoundFailure, "shuttle: worker not found", errors.Errorf("task_id %d", taskID))
}

func errCannotSuspend() error {
	return newDispatchError(KindCannotSuspendFailure, "shuttle: cannot suspend", nil)
}

func errMalformed(cause error) error {
	return newDispatchError(KindMalformedFailure, "shuttle: malformed frame", cause)
}

func errUnexpectedInput(where string) error {
	return newDispatchError(KindUnexpectedInputFailure, "shuttle: unexpected input at "+where, nil)
}

func errConnectionBroken(cause error) error {
	return newDispatchError(KindConnectionBrokenFailure, "shuttle: connection broken", cause)
}

func errConnectionClosed() error {
	return newDispatchError(KindConnectionClosedFailure, "shuttle: connection closed", nil)
}

func errWorker(cause error) error {
	return newDispatchError(KindWorkerErrorFailure, "shuttle: worker error", cause)
}

// Kind returns the DispatchError's ErrorKind for err, or 0 if err is not a
// *DispatchError at any level of its Unwrap chain.
func Kind(err error) ErrorKind {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}
