package protocol

import "errors"

var (
	ErrInvalidVLQ     = errors.New("invalid VLQ encoding")
	ErrBufferTooSmall = errors.New("buffer too small for VLQ")
)

// vlqLevels are the ranges that still fit after emitting the given number
// of 7-bit groups, most significant first.
var vlqLevels = [...]struct {
	shift  uint
	lo, hi int32
}{
	{28, -(1 << 26), 3 << 26},
	{21, -(1 << 19), 3 << 19},
	{14, -(1 << 12), 3 << 12},
	{7, -(1 << 5), 3 << 5},
}

// EncodeVLQInt appends v as a variable-length quantity: big-endian 7-bit
// groups with a continuation bit, sign carried by bits 5-6 of the first group.
func EncodeVLQInt(out OutputBuffer, v int32) {
	var buf [5]byte
	n := 0
	for _, l := range vlqLevels {
		if v < l.lo || v >= l.hi || n > 0 {
			buf[n] = byte((v>>l.shift)&0x7F) | 0x80
			n++
		}
	}
	buf[n] = byte(v & 0x7F)
	out.Output(buf[:n+1])
}

// EncodeVLQUint appends an unsigned value.
func EncodeVLQUint(out OutputBuffer, v uint32) {
	EncodeVLQInt(out, int32(v))
}

// DecodeVLQInt reads one value and advances data past it.
func DecodeVLQInt(data *[]byte) (int32, error) {
	d := *data
	if len(d) == 0 {
		return 0, ErrBufferTooSmall
	}
	c := uint32(d[0])
	v := c & 0x7F
	if c&0x60 == 0x60 {
		v |= ^uint32(0x1F)
	}
	i := 1
	for c&0x80 != 0 {
		if i >= len(d) {
			return 0, ErrBufferTooSmall
		}
		if i >= 5 {
			return 0, ErrInvalidVLQ
		}
		c = uint32(d[i])
		v = v<<7 | c&0x7F
		i++
	}
	*data = d[i:]
	return int32(v), nil
}

// DecodeVLQUint reads one unsigned value.
func DecodeVLQUint(data *[]byte) (uint32, error) {
	v, err := DecodeVLQInt(data)
	return uint32(v), err
}

// EncodeVLQBytes appends a length-prefixed byte string.
func EncodeVLQBytes(out OutputBuffer, b []byte) {
	EncodeVLQUint(out, uint32(len(b)))
	out.Output(b)
}

// DecodeVLQBytes reads a length-prefixed byte string. The result aliases data.
func DecodeVLQBytes(data *[]byte) ([]byte, error) {
	n, err := DecodeVLQUint(data)
	if err != nil {
		return nil, err
	}
	if uint32(len(*data)) < n {
		return nil, ErrBufferTooSmall
	}
	b := (*data)[:n]
	*data = (*data)[n:]
	return b, nil
}
