package wire

// DecodeFrame decodes exactly one top-level value from buf and returns
// it, along with the number of leading bytes consumed. Concatenating
// two encoded values and calling DecodeFrame twice yields the two
// original values with zero bytes left over, satisfying the framing
// law in the wire contract: MessagePack-RPC carries no length prefix,
// the value's own encoding is the frame boundary.
//
// A truncated value returns (Value{}, 0, ErrNeedMore); callers must
// leave buf untouched and retry once more bytes have arrived.
func DecodeFrame(buf []byte) (Value, int, error) {
	return decodeAt(buf)
}
