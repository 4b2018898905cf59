package core

// CurrentFilterLength is the averaging window of the motor current.
const CurrentFilterLength = 64

// CurrentFilter averages the current channel after removing the offset
// measured at zero throttle. It is never reset by commutation.
type CurrentFilter struct {
	zero   int16
	filter RunningFilter
}

// NewCurrentFilter returns an empty filter with a zero offset.
func NewCurrentFilter() *CurrentFilter {
	c := &CurrentFilter{}
	c.filter.Init(CurrentFilterLength)
	return c
}

// SetZero sets the quiescent current reading.
func (c *CurrentFilter) SetZero(zero int16) { c.zero = zero }

// Zero returns the quiescent current reading.
func (c *CurrentFilter) Zero() int16 { return c.zero }

// Update pushes one raw reading and returns the new average.
func (c *CurrentFilter) Update(raw int16) int32 {
	c.filter.Push(int32(raw) - int32(c.zero))
	return c.filter.Average()
}

// Average returns the current moving average.
func (c *CurrentFilter) Average() int32 { return c.filter.Average() }
