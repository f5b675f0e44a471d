package main

import (
	shuttle "github.com/DenisKolodin/shuttle"
)

// sessionState is the per-connection state the demo suite accumulates: how
// many Realize steps each session has driven, by service name.
type sessionState struct {
	calls map[string]int
}

func newSessionState() sessionState {
	return sessionState{calls: make(map[string]int)}
}

func demoSuite() *shuttle.Suite[sessionState] {
	suite := shuttle.NewSuite(newSessionState)

	suite.Register("echo", shuttle.ServiceFunc[sessionState](func(shuttle.Request) shuttle.Worker[sessionState] {
		return &echoWorker{}
	}))
	suite.Register("count", shuttle.ServiceFunc[sessionState](func(req shuttle.Request) shuttle.Worker[sessionState] {
		return &countWorker{upto: intArg(req, "n", 3)}
	}))
	suite.Register("stats", shuttle.ServiceFunc[sessionState](func(shuttle.Request) shuttle.Worker[sessionState] {
		return &statsWorker{}
	}))

	return suite
}

// echoWorker streams every Next payload straight back, one Item per step,
// until the client sends an empty Next.
type echoWorker struct {
	shuttle.BaseWorker[sessionState]
}

func (w *echoWorker) Realize(ctx *shuttle.Context[sessionState], next *shuttle.Request) (shuttle.Realize, error) {
	if next == nil {
		return shuttle.RealizeDone, nil
	}
	ctx.State().calls["echo"]++
	return shuttle.RealizeOneItem(shuttle.Object(*next)), nil
}

// countWorker streams the integers 1..upto as one lazy sequence, then
// completes.
type countWorker struct {
	shuttle.BaseWorker[sessionState]
	upto int
}

func (w *countWorker) Realize(ctx *shuttle.Context[sessionState], _ *shuttle.Request) (shuttle.Realize, error) {
	ctx.State().calls["count"]++
	upto := w.upto
	return shuttle.RealizeManyItemsAndDone(func(yield func(shuttle.Object) bool) {
		for i := 1; i <= upto; i++ {
			if !yield(shuttle.Object{"value": i}) {
				return
			}
		}
	}), nil
}

// statsWorker reports the session's accumulated call counts. It requires the
// stats capability, checked at prepare time so a denied caller never sees a
// Ready.
type statsWorker struct{}

func (w *statsWorker) Prepare(ctx *shuttle.Context[sessionState], _ shuttle.Request) (shuttle.Shortcut, error) {
	if err := ctx.Require("stats"); err != nil {
		return shuttle.ShortcutReject("stats access denied"), nil
	}
	return shuttle.ShortcutTuned, nil
}

func (w *statsWorker) Realize(ctx *shuttle.Context[sessionState], _ *shuttle.Request) (shuttle.Realize, error) {
	counts := shuttle.Object{}
	for name, n := range ctx.State().calls {
		counts[name] = n
	}
	return shuttle.RealizeOneItemAndDone(counts), nil
}

// intArg pulls an integer argument out of a decoded request, tolerating the
// full spread of integer widths msgpack may have chosen on the wire.
func intArg(req shuttle.Request, key string, fallback int) int {
	switch v := req[key].(type) {
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}
