// Package reduce implements the collective accumulate of spec §4.5:
// every unit folds its own local range with an operator, an all-reduce
// combines the per-unit partial results, and the caller's init value
// is folded in last.
package reduce

import (
	"fmt"
	"unsafe"

	"github.com/Rodario/dash/team"
	"github.com/Rodario/dash/transport"
)

// LocalRangeOrigin is anything Accumulate can fold: container.Array[T]
// and container.Matrix[T] satisfy it via their embedded local-slice
// and team accessors. The global-range form of spec §4.5 ("dispatches
// to local-range form after computing [local_begin, local_end) via the
// pattern") is exactly LBegin() - the pattern has already done that
// narrowing for us when the container was built.
type LocalRangeOrigin[T any] interface {
	LBegin() []T
	Team() *team.Team
}

func toBytes[T any](v T) []byte {
	b := make([]byte, unsafe.Sizeof(v))
	copy(b, unsafe.Slice((*byte)(unsafe.Pointer(&v)), unsafe.Sizeof(v)))
	return b
}

func fromBytes[T any](b []byte) T {
	var v T
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&v)), unsafe.Sizeof(v)), b)
	return v
}

// Accumulate folds origin's local range with op (one of the
// recognized native reductions - sum, product, min, max, bitwise
// and/or/xor, logical and/or), all-reduces the per-unit partials, and
// returns binop(init, combined) where binop is op itself. dtype must
// match T's wire representation (the same contract GlobalRef uses).
//
// A unit with an empty local range contributes op's identity element
// instead of folding nothing, so it never perturbs the collective
// result (spec §9's validity-flag concern does not arise for native
// ops, which always have an identity).
func Accumulate[T any](origin LocalRangeOrigin[T], init T, op transport.Op, dtype transport.Dtype) (T, error) {
	var zero T
	if op == transport.OpCustom {
		return zero, fmt.Errorf("reduce: op OpCustom requires AccumulateCustom")
	}
	w := transport.DtypeWidth(dtype)
	local := origin.LBegin()

	acc := make([]byte, w)
	if len(local) == 0 {
		id, err := transport.IdentityElement(dtype, op)
		if err != nil {
			return zero, err
		}
		copy(acc, id)
	} else {
		copy(acc, toBytes(local[0]))
		tmp := make([]byte, w)
		for _, v := range local[1:] {
			copy(tmp, toBytes(v))
			if err := transport.ApplyOp(acc, acc, tmp, dtype, op); err != nil {
				return zero, err
			}
		}
	}

	recv := make([]byte, w)
	tm := origin.Team()
	if err := tm.Transport().Allreduce(acc, recv, 1, dtype, op, tm.ID(), uint64(tm.Size()), nil); err != nil {
		return zero, err
	}

	out := make([]byte, w)
	if err := transport.ApplyOp(out, toBytes(init), recv, dtype, op); err != nil {
		return zero, err
	}
	return fromBytes[T](out), nil
}
