package reduce

import (
	"encoding/binary"
	"fmt"

	"github.com/Rodario/dash/transport"
)

// customPayloadWidth bounds an encoded custom reduction value plus its
// 1-byte valid flag and 4-byte length prefix. Generous but fixed,
// because Allreduce's raw path exchanges same-size buffers across
// every unit; a value that does not fit is a caller error.
const customPayloadWidth = 256

// Marshal/Unmarshal are left to the caller rather than required via a
// generic constraint: Go type parameters can't express "T has a
// value-receiver MarshalMsg and a pointer-receiver UnmarshalMsg"
// cleanly, and msgp's code generator produces exactly that asymmetric
// pair. Callers are expected to wire msgp.AppendXxx/msgp.ReadXxxBytes
// (or generated *_gen.go marshalers) into these two functions.
type Marshal[T any] func(T) ([]byte, error)
type Unmarshal[T any] func([]byte) (T, error)

func encodeFrame[T any](v T, valid bool, marshal Marshal[T]) ([]byte, error) {
	data, err := marshal(v)
	if err != nil {
		return nil, err
	}
	if len(data) > customPayloadWidth-5 {
		return nil, fmt.Errorf("reduce: encoded value (%d bytes) exceeds custom payload width %d", len(data), customPayloadWidth)
	}
	frame := make([]byte, customPayloadWidth)
	if valid {
		frame[0] = 1
	}
	binary.LittleEndian.PutUint32(frame[1:5], uint32(len(data)))
	copy(frame[5:], data)
	return frame, nil
}

func decodeFrame[T any](frame []byte, unmarshal Unmarshal[T]) (T, bool, error) {
	valid := frame[0] != 0
	n := binary.LittleEndian.Uint32(frame[1:5])
	v, err := unmarshal(frame[5 : 5+n])
	return v, valid, err
}

// AccumulateCustom is spec §4.5's fallback: binop or T is not a
// recognized native (op, dtype) pair, so the collective exchanges an
// explicit (value, valid) payload and applies binop only when both
// operands are valid - the operand that is valid alone always wins,
// which is how an empty local range is tolerated without requiring
// the caller to supply an identity element.
func AccumulateCustom[T any](origin LocalRangeOrigin[T], init T, binop func(a, b T) T, marshal Marshal[T], unmarshal Unmarshal[T]) (T, error) {
	var zero T
	local := origin.LBegin()

	var localVal T
	valid := len(local) > 0
	if valid {
		localVal = local[0]
		for _, v := range local[1:] {
			localVal = binop(localVal, v)
		}
	}

	sendFrame, err := encodeFrame(localVal, valid, marshal)
	if err != nil {
		return zero, err
	}
	recvFrame := make([]byte, customPayloadWidth)

	combine := func(dst, a, b []byte) {
		va, validA, errA := decodeFrame(a, unmarshal)
		vb, validB, errB := decodeFrame(b, unmarshal)
		var res T
		var resValid bool
		switch {
		case errA == nil && validA && errB == nil && validB:
			res, resValid = binop(va, vb), true
		case errA == nil && validA:
			res, resValid = va, true
		case errB == nil && validB:
			res, resValid = vb, true
		}
		out, encErr := encodeFrame(res, resValid, marshal)
		if encErr != nil {
			// A value that round-tripped once but fails to re-encode is a
			// caller bug (oversized or non-deterministic marshal), not a
			// recoverable transport condition.
			panic(encErr)
		}
		copy(dst, out)
	}

	tm := origin.Team()
	if err := tm.Transport().Allreduce(sendFrame, recvFrame, customPayloadWidth, transport.DtypeRaw, transport.OpCustom, tm.ID(), uint64(tm.Size()), combine); err != nil {
		return zero, err
	}

	combined, combinedValid, err := decodeFrame(recvFrame, unmarshal)
	if err != nil {
		return zero, err
	}
	if !combinedValid {
		return init, nil
	}
	return binop(init, combined), nil
}
