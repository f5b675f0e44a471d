package wire

import (
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrMalformed is returned by DecodeInput and DecodeOutput when a frame does
// not parse; DecodeInput also returns it for an out-of-range discriminant.
var ErrMalformed = errors.New("wire: malformed frame")

// EncodeOutput serializes an Output as a single binary WebSocket message.
// Encoding a well-formed value never fails; the returned error exists only
// to surface msgpack's own defensive checks (e.g. unsupported field types
// smuggled into Item/Object by a misbehaving worker).
func EncodeOutput(out Output) ([]byte, error) {
	b, err := msgpack.Marshal(&out)
	if err != nil {
		return nil, errors.Wrap(err, "wire: encode output")
	}
	return b, nil
}

// EncodeInput serializes an Input as a single binary WebSocket message. Used
// by clients talking to a shuttle server (the package tests act as one).
func EncodeInput(in Input) ([]byte, error) {
	b, err := msgpack.Marshal(&in)
	if err != nil {
		return nil, errors.Wrap(err, "wire: encode input")
	}
	return b, nil
}

// DecodeOutput parses one inbound binary WebSocket message into an Output.
// Used by clients; the dispatcher itself never decodes Output.
func DecodeOutput(frame []byte) (Output, error) {
	var out Output
	if err := msgpack.Unmarshal(frame, &out); err != nil {
		return Output{}, errors.Wrap(ErrMalformed, err.Error())
	}
	return out, nil
}

// DecodeInput parses one inbound binary WebSocket message into an Input.
// Any frame that does not parse as a known variant yields ErrMalformed,
// which the dispatcher surfaces to the client as Fail.
func DecodeInput(frame []byte) (Input, error) {
	var in Input
	if err := msgpack.Unmarshal(frame, &in); err != nil {
		return Input{}, errors.Wrap(ErrMalformed, err.Error())
	}
	switch in.Kind {
	case InputCall, InputResume, InputNext, InputSuspend, InputCancel:
	default:
		return Input{}, errors.Wrapf(ErrMalformed, "unknown input kind %d", in.Kind)
	}
	return in, nil
}
