package core

import "sync/atomic"

// SampleFrame is one ADC scan: current, then phases A, B and C.
type SampleFrame [NumSampleChannels]int16

// Current returns the current-channel reading.
func (f *SampleFrame) Current() int16 { return f[ChannelCurrent] }

// Phase returns the reading of one motor phase.
func (f *SampleFrame) Phase(p Phase) int16 { return f[ChannelPhaseA+ADCChannel(p)] }

// SampleBuffer tracks which half of the DMA double buffer holds valid data.
type SampleBuffer struct {
	dma      SampleDMA
	last     BufferHalf
	badFlips atomic.Uint32
	spurious atomic.Uint32
}

// NewSampleBuffer wraps a DMA engine.
func NewSampleBuffer(dma SampleDMA) *SampleBuffer {
	return &SampleBuffer{dma: dma}
}

// Acquire selects the half that just completed and clears its flag. It
// returns ok=false for a spurious interrupt (no completion flag) and for a
// bad flip (same half as last time); neither frame may be filtered.
func (b *SampleBuffer) Acquire() (frame *SampleFrame, ok bool) {
	flags := b.dma.Flags()

	var half BufferHalf
	switch {
	case flags&FlagFull != 0:
		half = HalfUpper
		b.dma.ClearFlags(FlagFull)
	case flags&FlagHalf != 0:
		half = HalfLower
		b.dma.ClearFlags(FlagHalf)
	default:
		b.dma.ClearFlags(FlagError)
		b.spurious.Add(1)
		return nil, false
	}

	if half == b.last {
		b.badFlips.Add(1)
		return nil, false
	}
	b.last = half
	return b.dma.Frame(half), true
}

// Last returns the half used by the previous valid interrupt.
func (b *SampleBuffer) Last() BufferHalf { return b.last }

// BadFlips returns how many interrupts saw the DMA fail to swap halves.
func (b *SampleBuffer) BadFlips() uint32 { return b.badFlips.Load() }

// Spurious returns how many interrupts carried no completion flag.
func (b *SampleBuffer) Spurious() uint32 { return b.spurious.Load() }
