package core

// MaxFilterLength is the capacity of every RunningFilter.
const MaxFilterLength = 64

// RunningFilter is a fixed-capacity moving sum. The sum is maintained
// incrementally: sum == Σ buf[:length] at all times.
type RunningFilter struct {
	buf    [MaxFilterLength]int32
	length int
	index  int
	sum    int32
}

// Init sets the window length and clears the filter.
func (f *RunningFilter) Init(length int) error {
	if length < 1 || length > MaxFilterLength {
		return ErrInvalidFilterLength
	}
	f.length = length
	f.Reset()
	return nil
}

// Reset zeroes the window, the sum and the write index.
func (f *RunningFilter) Reset() {
	f.buf = [MaxFilterLength]int32{}
	f.sum = 0
	f.index = 0
}

// Push replaces the oldest sample with v and returns the new sum.
func (f *RunningFilter) Push(v int32) int32 {
	f.sum += v - f.buf[f.index]
	f.buf[f.index] = v
	f.index++
	if f.index >= f.length {
		f.index = 0
	}
	return f.sum
}

// Sum returns the sum of the window.
func (f *RunningFilter) Sum() int32 { return f.sum }

// Len returns the window length.
func (f *RunningFilter) Len() int { return f.length }

// Average returns the truncated mean of the window.
func (f *RunningFilter) Average() int32 {
	if f.length == 0 {
		return 0
	}
	return f.sum / int32(f.length)
}
