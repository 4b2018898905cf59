package core

// ADCChannel identifies a logical ADC input.
type ADCChannel uint8

// Channel assignment shared by the DMA scan and the one-shot reads used by
// the self-test.
const (
	ChannelCurrent ADCChannel = 0
	ChannelPhaseA  ADCChannel = 1
	ChannelPhaseB  ADCChannel = 2
	ChannelPhaseC  ADCChannel = 3

	NumSampleChannels = 4
)

// DMAFlags mirrors the completion/error flags of the ADC DMA channel.
type DMAFlags uint8

const (
	// FlagHalf is raised when the lower half of the double buffer is complete.
	FlagHalf DMAFlags = 1 << 0
	// FlagFull is raised when the upper half of the double buffer is complete.
	FlagFull DMAFlags = 1 << 1
	// FlagError is the generic channel flag, cleared on spurious interrupts.
	FlagError DMAFlags = 1 << 2
)

// BufferHalf selects one half of the DMA double buffer.
type BufferHalf uint8

const (
	HalfNone BufferHalf = iota
	HalfLower
	HalfUpper
)

// SampleDMA is the abstract view of the ADC DMA engine filling a double
// buffer with one SampleFrame per half.
type SampleDMA interface {
	// Flags returns the pending completion flags.
	Flags() DMAFlags

	// ClearFlags acknowledges the given flags.
	ClearFlags(f DMAFlags)

	// Frame returns a stable pointer to the given half. The contents are only
	// valid between the flag clear and the next DMA write into that half.
	Frame(h BufferHalf) *SampleFrame
}

// ADCReader performs blocking one-shot conversions. Used by the self-test
// before DMA sampling is started.
type ADCReader interface {
	ReadChannel(ch ADCChannel) (int16, error)
}
