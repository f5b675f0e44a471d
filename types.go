// Package shuttle is a WebSocket-based request/response framework that
// multiplexes named service invocations over a single connection. A client
// opens a connection, calls a registered service by name, and exchanges a
// structured dialogue with a server-side Worker that may stream zero or
// more items back, suspend mid-stream to be resumed later by task id, or
// reject the call outright.
//
// The runtime model is one goroutine per connection, driving a strictly
// sequential prepare/realize worker protocol with an in-connection
// suspension slab for parked workers.
package shuttle

import "github.com/DenisKolodin/shuttle/internal/wire"

// Request is an opaque, deserialized value carrying arguments for one
// service call.
type Request = wire.Request

// Object is an opaque value representing one streamed result item.
type Object = wire.Object
