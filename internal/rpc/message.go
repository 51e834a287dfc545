// Package rpc implements the MessagePack-RPC framing and dispatch
// layer: the three wire message shapes from spec.md §4.3/§6, and a
// per-client Session that decodes them off a reactor-driven socket
// and drives a Handler.
package rpc

import (
	"fmt"

	"github.com/prise-term/prise/internal/wire"
)

// Kind identifies which of the three MessagePack-RPC message shapes a
// decoded array represents: its own first element, per spec.md §6.
type Kind int

const (
	KindRequest      Kind = 0
	KindResponse     Kind = 1
	KindNotification Kind = 2
)

// Request is `[0, msgid, method, params]`.
type Request struct {
	ID     uint32
	Method string
	Params []wire.Value
}

// Response is `[1, msgid, error, result]`; exactly one of Error/Result
// is non-nil.
type Response struct {
	ID     uint32
	Error  wire.Value
	Result wire.Value
}

// Notification is `[2, method, params]`.
type Notification struct {
	Method string
	Params []wire.Value
}

func EncodeRequest(id uint32, method string, params []wire.Value) []byte {
	return wire.Encode(nil, wire.Arr([]wire.Value{
		wire.Uint(uint64(KindRequest)), wire.Uint(uint64(id)), wire.Str(method), wire.Arr(params),
	}))
}

func EncodeResponse(id uint32, errVal, result wire.Value) []byte {
	return wire.Encode(nil, wire.Arr([]wire.Value{
		wire.Uint(uint64(KindResponse)), wire.Uint(uint64(id)), errVal, result,
	}))
}

func EncodeNotification(method string, params []wire.Value) []byte {
	return wire.Encode(nil, wire.Arr([]wire.Value{
		wire.Uint(uint64(KindNotification)), wire.Str(method), wire.Arr(params),
	}))
}

// ErrProtocol marks a message that does not fit spec.md §6's wire
// shapes: wrong top-level type, wrong arity, or an unknown Kind tag.
// The RPC session contract is to close the offending client's
// connection on this error and leave every other client untouched.
type ErrProtocol struct{ Reason string }

func (e *ErrProtocol) Error() string { return "rpc: protocol violation: " + e.Reason }

// Decode interprets one top-level wire.Value as a Request, Response,
// or Notification.
func Decode(v wire.Value) (any, error) {
	if v.Kind() != wire.KindArray {
		return nil, &ErrProtocol{Reason: fmt.Sprintf("top-level message must be an array, got kind %d", v.Kind())}
	}
	arr := v.Arr()
	if len(arr) == 0 {
		return nil, &ErrProtocol{Reason: "empty message array"}
	}
	tag, ok := arr[0].Int64()
	if !ok {
		return nil, &ErrProtocol{Reason: "message type tag must be an integer"}
	}

	switch Kind(tag) {
	case KindRequest:
		if len(arr) != 4 {
			return nil, &ErrProtocol{Reason: "request must have 4 elements"}
		}
		id, ok := arr[1].Uint64()
		if !ok {
			return nil, &ErrProtocol{Reason: "request id must be an unsigned integer"}
		}
		if arr[2].Kind() != wire.KindString {
			return nil, &ErrProtocol{Reason: "request method must be a string"}
		}
		if arr[3].Kind() != wire.KindArray {
			return nil, &ErrProtocol{Reason: "request params must be an array"}
		}
		return Request{ID: uint32(id), Method: arr[2].Str(), Params: arr[3].Arr()}, nil
	case KindResponse:
		if len(arr) != 4 {
			return nil, &ErrProtocol{Reason: "response must have 4 elements"}
		}
		id, ok := arr[1].Uint64()
		if !ok {
			return nil, &ErrProtocol{Reason: "response id must be an unsigned integer"}
		}
		return Response{ID: uint32(id), Error: arr[2], Result: arr[3]}, nil
	case KindNotification:
		if len(arr) != 3 {
			return nil, &ErrProtocol{Reason: "notification must have 3 elements"}
		}
		if arr[1].Kind() != wire.KindString {
			return nil, &ErrProtocol{Reason: "notification method must be a string"}
		}
		if arr[2].Kind() != wire.KindArray {
			return nil, &ErrProtocol{Reason: "notification params must be an array"}
		}
		return Notification{Method: arr[1].Str(), Params: arr[2].Arr()}, nil
	default:
		return nil, &ErrProtocol{Reason: fmt.Sprintf("unknown message type tag %d", tag)}
	}
}
