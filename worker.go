package shuttle

import "iter"

// Sequence is the lazy, finite, single-pass payload of
// RealizeManyItems/RealizeManyItemsAndDone: neither restartable nor
// cloneable, and never buffered eagerly. The dispatcher drains it exactly
// once, emitting one Item per element.
type Sequence = iter.Seq[Object]

// ShortcutKind discriminates the result of Worker.Prepare.
type ShortcutKind int

const (
	// KindTuned proceeds straight to the streaming Realize loop.
	KindTuned ShortcutKind = iota + 1
	// KindShortcutReject refuses the call before any Item is emitted.
	KindShortcutReject
	// KindShortcutDone completes the call with no streaming at all.
	KindShortcutDone
)

// Shortcut is the result of Worker.Prepare.
type Shortcut struct {
	Kind   ShortcutKind
	Reason string
}

// ShortcutTuned proceeds to the streaming Realize loop, the default
// Prepare behavior.
var ShortcutTuned = Shortcut{Kind: KindTuned}

// ShortcutDone completes the call immediately, with no Realize calls.
var ShortcutDone = Shortcut{Kind: KindShortcutDone}

// ShortcutReject refuses the call at prepare time, before any Item is
// emitted — the place Rights/Require permission checks belong.
func ShortcutReject(reason string) Shortcut {
	return Shortcut{Kind: KindShortcutReject, Reason: reason}
}

// RealizeKind discriminates the result of one Worker.Realize call.
type RealizeKind int

const (
	// KindOneItem emits exactly one Item, then loops for another Ready/Next cycle.
	KindOneItem RealizeKind = iota + 1
	// KindOneItemAndDone emits one Item, then Done, and terminates the worker.
	KindOneItemAndDone
	// KindManyItems emits an Item per element of Seq, then loops.
	KindManyItems
	// KindManyItemsAndDone drains Seq to Items, then Done, and terminates.
	KindManyItemsAndDone
	// KindRealizeReject emits Reject and terminates the worker.
	KindRealizeReject
	// KindRealizeDone emits Done and terminates the worker.
	KindRealizeDone
	// KindEmpty emits nothing and loops. Reserved for workers that need a
	// Realize call purely for its side effects on T.
	KindEmpty
)

// Realize is the result of one Worker.Realize call.
type Realize struct {
	Kind   RealizeKind
	Item   Object
	Seq    Sequence
	Reason string
}

// RealizeOneItem emits item, then loops for another Ready/Next cycle.
func RealizeOneItem(item Object) Realize { return Realize{Kind: KindOneItem, Item: item} }

// RealizeOneItemAndDone emits item, then Done, terminating the worker.
func RealizeOneItemAndDone(item Object) Realize {
	return Realize{Kind: KindOneItemAndDone, Item: item}
}

// RealizeManyItems emits one Item per element of seq, then loops. seq is
// drained exactly once; it must not be reused.
func RealizeManyItems(seq Sequence) Realize { return Realize{Kind: KindManyItems, Seq: seq} }

// RealizeManyItemsAndDone drains seq to Items, then Done, terminating the
// worker.
func RealizeManyItemsAndDone(seq Sequence) Realize {
	return Realize{Kind: KindManyItemsAndDone, Seq: seq}
}

// RealizeReject emits Reject(reason) and terminates the worker.
func RealizeReject(reason string) Realize {
	return Realize{Kind: KindRealizeReject, Reason: reason}
}

// RealizeDone emits Done and terminates the worker.
var RealizeDone = Realize{Kind: KindRealizeDone}

// RealizeEmpty emits nothing and loops.
var RealizeEmpty = Realize{Kind: KindEmpty}

// Worker is driven through one Prepare call and any number of Realize calls
// until a terminal outcome (Done, Reject, or the connection ending).
// Workers are single-owner: moved into the suspension slab on Suspend, and
// handed back uniquely on Resume.
type Worker[T any] interface {
	// Prepare is called exactly once, immediately after a Service routes
	// the call. Permission checks belong here — reject early, before any
	// Item is emitted.
	Prepare(ctx *Context[T], request Request) (Shortcut, error)
	// Realize is called once per Ready/Next cycle until it returns a
	// terminal Realize variant.
	Realize(ctx *Context[T], next *Request) (Realize, error)
}

// BaseWorker supplies the default Prepare behavior (proceed straight to
// streaming). Embed it in a Worker implementation that has no prepare-time
// checks of its own.
type BaseWorker[T any] struct{}

// Prepare always proceeds to streaming.
func (BaseWorker[T]) Prepare(*Context[T], Request) (Shortcut, error) {
	return ShortcutTuned, nil
}

// RejectWorker lets a Service deny a call uniformly after routing. Its
// first Realize call rejects with Reason; it is never asked to Realize
// twice because Reject is terminal.
type RejectWorker[T any] struct {
	BaseWorker[T]
	Reason string
}

// NewRejectWorker returns a Worker that rejects every call with reason.
func NewRejectWorker[T any](reason string) *RejectWorker[T] {
	return &RejectWorker[T]{Reason: reason}
}

// Realize always rejects.
func (w *RejectWorker[T]) Realize(*Context[T], *Request) (Realize, error) {
	return RealizeReject(w.Reason), nil
}
