package transport

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DtypeWidth exposes dtypeWidth for callers (reduce.Accumulate's local
// fold) that need to size raw buffers without duplicating this table.
func DtypeWidth(dt Dtype) int { return dtypeWidth(dt) }

// ApplyOp exposes applyScalar so higher-level packages can fold local
// values with the same combine table Allreduce uses remotely, keeping
// the local fold and the collective combine semantically identical.
func ApplyOp(dst, a, b []byte, dtype Dtype, op Op) error { return applyScalar(dst, a, b, dtype, op) }

// IdentityElement returns the identity value of op over dtype, encoded
// the same way applyScalar reads operands. Used when a unit's local
// range is empty and it must still contribute a value to Allreduce
// that leaves every other unit's contribution unchanged.
func IdentityElement(dtype Dtype, op Op) ([]byte, error) {
	w := dtypeWidth(dtype)
	b := make([]byte, w)
	switch op {
	case OpSum, OpBOr, OpBXor, OpLOr:
		return b, nil
	case OpBAnd, OpLAnd:
		for i := range b {
			b[i] = 0xFF
		}
		return b, nil
	case OpProd:
		return encodeOne(dtype, b)
	case OpMin:
		return encodeExtreme(dtype, b, true)
	case OpMax:
		return encodeExtreme(dtype, b, false)
	default:
		return nil, fmt.Errorf("transport: op %v has no identity element", op)
	}
}

func encodeOne(dtype Dtype, b []byte) ([]byte, error) {
	switch dtype {
	case DtypeInt32, DtypeUint32:
		binary.LittleEndian.PutUint32(b, 1)
	case DtypeInt64, DtypeUint64:
		binary.LittleEndian.PutUint64(b, 1)
	case DtypeFloat32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(1))
	case DtypeFloat64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(1))
	case DtypeByte:
		b[0] = 1
	default:
		return nil, fmt.Errorf("transport: dtype %v has no product identity", dtype)
	}
	return b, nil
}

// encodeExtreme fills b with dtype's maximum representable value (if
// wantMax) or minimum (if !wantMax) - the identity elements for Min
// and Max respectively.
func encodeExtreme(dtype Dtype, b []byte, wantMax bool) ([]byte, error) {
	switch dtype {
	case DtypeInt32:
		v := int32(math.MaxInt32)
		if !wantMax {
			v = math.MinInt32
		}
		binary.LittleEndian.PutUint32(b, uint32(v))
	case DtypeUint32:
		v := uint32(math.MaxUint32)
		if !wantMax {
			v = 0
		}
		binary.LittleEndian.PutUint32(b, v)
	case DtypeInt64:
		v := int64(math.MaxInt64)
		if !wantMax {
			v = math.MinInt64
		}
		binary.LittleEndian.PutUint64(b, uint64(v))
	case DtypeUint64:
		v := uint64(math.MaxUint64)
		if !wantMax {
			v = 0
		}
		binary.LittleEndian.PutUint64(b, v)
	case DtypeFloat32:
		v := float32(math.MaxFloat32)
		if !wantMax {
			v = -math.MaxFloat32
		}
		binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	case DtypeFloat64:
		v := math.MaxFloat64
		if !wantMax {
			v = -math.MaxFloat64
		}
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	case DtypeByte:
		v := byte(0xFF)
		if !wantMax {
			v = 0
		}
		b[0] = v
	default:
		return nil, fmt.Errorf("transport: dtype %v has no min/max identity", dtype)
	}
	return b, nil
}

func dtypeWidth(dt Dtype) int {
	switch dt {
	case DtypeByte, DtypeRaw:
		return 1
	case DtypeInt32, DtypeUint32, DtypeFloat32:
		return 4
	case DtypeInt64, DtypeUint64, DtypeFloat64:
		return 8
	default:
		return 1
	}
}

// applyNativeOp combines n elements of dtype from a and b pairwise
// with op, writing into dst (dst may alias a). Used by Allreduce's
// fast path for the recognized reductions (spec §4.5).
func applyNativeOp(dst, a, b []byte, n int, dtype Dtype, op Op) error {
	w := dtypeWidth(dtype)
	for i := 0; i < n; i++ {
		off := i * w
		if err := applyScalar(dst[off:off+w], a[off:off+w], b[off:off+w], dtype, op); err != nil {
			return err
		}
	}
	return nil
}

func applyScalar(dst, a, b []byte, dtype Dtype, op Op) error {
	switch dtype {
	case DtypeInt32, DtypeUint32:
		x := binary.LittleEndian.Uint32(a)
		y := binary.LittleEndian.Uint32(b)
		var r uint32
		if dtype == DtypeInt32 {
			r = uint32(combineInt(int64(int32(x)), int64(int32(y)), op))
		} else {
			r = uint32(combineUint(uint64(x), uint64(y), op))
		}
		binary.LittleEndian.PutUint32(dst, r)
	case DtypeInt64, DtypeUint64:
		x := binary.LittleEndian.Uint64(a)
		y := binary.LittleEndian.Uint64(b)
		var r uint64
		if dtype == DtypeInt64 {
			r = uint64(combineInt(int64(x), int64(y), op))
		} else {
			r = combineUint(x, y, op)
		}
		binary.LittleEndian.PutUint64(dst, r)
	case DtypeFloat32:
		x := math.Float32frombits(binary.LittleEndian.Uint32(a))
		y := math.Float32frombits(binary.LittleEndian.Uint32(b))
		r := combineFloat(float64(x), float64(y), op)
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(r)))
	case DtypeFloat64:
		x := math.Float64frombits(binary.LittleEndian.Uint64(a))
		y := math.Float64frombits(binary.LittleEndian.Uint64(b))
		r := combineFloat(x, y, op)
		binary.LittleEndian.PutUint64(dst, math.Float64bits(r))
	case DtypeByte:
		dst[0] = byte(combineUint(uint64(a[0]), uint64(b[0]), op))
	default:
		return fmt.Errorf("transport: dtype %v has no native reduction", dtype)
	}
	return nil
}

func combineInt(x, y int64, op Op) int64 {
	switch op {
	case OpSum:
		return x + y
	case OpProd:
		return x * y
	case OpMin:
		if x < y {
			return x
		}
		return y
	case OpMax:
		if x > y {
			return x
		}
		return y
	case OpBAnd:
		return x & y
	case OpBOr:
		return x | y
	case OpBXor:
		return x ^ y
	case OpLAnd:
		return b2i(x != 0 && y != 0)
	case OpLOr:
		return b2i(x != 0 || y != 0)
	default:
		return y
	}
}

func combineUint(x, y uint64, op Op) uint64 {
	switch op {
	case OpSum:
		return x + y
	case OpProd:
		return x * y
	case OpMin:
		if x < y {
			return x
		}
		return y
	case OpMax:
		if x > y {
			return x
		}
		return y
	case OpBAnd:
		return x & y
	case OpBOr:
		return x | y
	case OpBXor:
		return x ^ y
	case OpLAnd:
		return uint64(b2i(x != 0 && y != 0))
	case OpLOr:
		return uint64(b2i(x != 0 || y != 0))
	default:
		return y
	}
}

func combineFloat(x, y float64, op Op) float64 {
	switch op {
	case OpSum:
		return x + y
	case OpProd:
		return x * y
	case OpMin:
		if x < y {
			return x
		}
		return y
	case OpMax:
		if x > y {
			return x
		}
		return y
	default:
		return y
	}
}

func b2i(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
