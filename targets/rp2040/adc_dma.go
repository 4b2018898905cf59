//go:build rp2040

package main

import (
	"device/rp"
	"errors"
	"machine"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"goesc/core"
)

// DMA peripheral memory map. Channels are 0x40 apart.
const (
	dmaBase        = 0x50000000
	dmaChanStride  = 0x40
	dmaReadAddr    = 0x00
	dmaWriteAddr   = 0x04
	dmaTransCount  = 0x08
	dmaCtrlTrig    = 0x0C
	dmaAl1Ctrl     = 0x10
	dmaINTE0       = dmaBase + 0x404
	dmaINTS0       = dmaBase + 0x40C
	dmaChanAbort   = dmaBase + 0x444
	dreqADC        = 36
	sampleDMALower = 0
	sampleDMAUpper = 1
)

// CTRL_TRIG fields
const (
	dmaCtrlEn         = 1 << 0
	dmaCtrlHighPrio   = 1 << 1
	dmaCtrlSizeHalf   = 1 << 2
	dmaCtrlIncrWrite  = 1 << 5
	dmaCtrlChainToPos = 11
	dmaCtrlTreqPos    = 15
)

// ADC clock is 48MHz; one conversion takes at least 96 cycles.
const (
	adcClock      = 48000000
	adcMinCycles  = 96
	adcReadTimout = 10000 // polling iterations
)

var errADCTimeout = errors.New("adc conversion timeout")

func dmaReg(ch, off uintptr) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(uintptr(dmaBase + ch*dmaChanStride + off)))
}

var (
	dmaInte0 = (*volatile.Register32)(unsafe.Pointer(uintptr(dmaINTE0)))
	dmaInts0 = (*volatile.Register32)(unsafe.Pointer(uintptr(dmaINTS0)))
	dmaAbort = (*volatile.Register32)(unsafe.Pointer(uintptr(dmaChanAbort)))
)

// adcDMA samples current and the three phases in ADC round-robin order into
// a two-frame buffer. Two chained DMA channels each fill one half; their
// completion interrupts raise the half/full flags.
type adcDMA struct {
	buf   [2]core.SampleFrame
	flags volatile.Register32
	rate  uint32
	isr   *core.SamplingISR
}

var sampler adcDMA

// InitADC configures the four analog inputs for single reads.
func (a *adcDMA) InitADC() {
	machine.InitADC()
	for _, pin := range []machine.Pin{machine.ADC0, machine.ADC1, machine.ADC2, machine.ADC3} {
		adc := machine.ADC{Pin: pin}
		adc.Configure(machine.ADCConfig{})
	}
}

// ReadChannel does one blocking conversion. Only valid before Start.
func (a *adcDMA) ReadChannel(ch core.ADCChannel) (int16, error) {
	rp.ADC.CS.ReplaceBits(uint32(ch)<<rp.ADC_CS_AINSEL_Pos, rp.ADC_CS_AINSEL_Msk, 0)
	rp.ADC.CS.SetBits(rp.ADC_CS_START_ONCE)
	for i := 0; !rp.ADC.CS.HasBits(rp.ADC_CS_READY); i++ {
		if i > adcReadTimout {
			return 0, errADCTimeout
		}
	}
	return int16(rp.ADC.RESULT.Get() & 0xFFF), nil
}

// Flags, ClearFlags and Frame implement core.SampleDMA.
func (a *adcDMA) Flags() core.DMAFlags { return core.DMAFlags(a.flags.Get()) }

func (a *adcDMA) ClearFlags(f core.DMAFlags) {
	a.flags.Set(a.flags.Get() &^ uint32(f))
}

func (a *adcDMA) Frame(h core.BufferHalf) *core.SampleFrame {
	if h == core.HalfUpper {
		return &a.buf[1]
	}
	return &a.buf[0]
}

// Start begins free-running conversion at frameRate frames per second and
// calls isr from the DMA interrupt for every completed frame.
func (a *adcDMA) Start(frameRate uint32, isr *core.SamplingISR) {
	a.isr = isr
	a.rate = frameRate

	rp.RESETS.RESET.ClearBits(rp.RESETS_RESET_DMA)
	for !rp.RESETS.RESET_DONE.HasBits(rp.RESETS_RESET_DONE_DMA) {
	}

	// ADC: round robin over inputs 0..3, FIFO with DREQ at one sample.
	div := uint32(adcClock/(frameRate*core.NumSampleChannels)) - 1
	if div < adcMinCycles {
		div = adcMinCycles
	}
	rp.ADC.DIV.Set(div << rp.ADC_DIV_INT_Pos)
	rp.ADC.FCS.Set(rp.ADC_FCS_EN | rp.ADC_FCS_DREQ_EN | 1<<rp.ADC_FCS_THRESH_Pos)
	rp.ADC.CS.ReplaceBits(0xF<<rp.ADC_CS_RROBIN_Pos, rp.ADC_CS_RROBIN_Msk, 0)
	rp.ADC.CS.ReplaceBits(0, rp.ADC_CS_AINSEL_Msk, 0)

	fifo := uint32(uintptr(unsafe.Pointer(&rp.ADC.FIFO)))
	for ch := uintptr(sampleDMALower); ch <= sampleDMAUpper; ch++ {
		other := ch ^ 1
		dmaReg(ch, dmaReadAddr).Set(fifo)
		dmaReg(ch, dmaWriteAddr).Set(uint32(uintptr(unsafe.Pointer(&a.buf[ch]))))
		dmaReg(ch, dmaTransCount).Set(core.NumSampleChannels)
		// AL1_CTRL does not trigger.
		dmaReg(ch, dmaAl1Ctrl).Set(dmaCtrlEn | dmaCtrlHighPrio | dmaCtrlSizeHalf | dmaCtrlIncrWrite |
			uint32(other)<<dmaCtrlChainToPos | dreqADC<<dmaCtrlTreqPos)
	}
	dmaInte0.SetBits(1<<sampleDMALower | 1<<sampleDMAUpper)

	intr := interrupt.New(rp.IRQ_DMA_IRQ_0, dmaIRQ)
	intr.SetPriority(0x00)
	intr.Enable()

	// Trigger the lower half, then start conversions.
	dmaReg(sampleDMALower, dmaCtrlTrig).Set(dmaReg(sampleDMALower, dmaAl1Ctrl).Get())
	rp.ADC.CS.SetBits(rp.ADC_CS_START_MANY)
}

// Stop halts conversion and both channels.
func (a *adcDMA) Stop() {
	rp.ADC.CS.ClearBits(rp.ADC_CS_START_MANY)
	dmaAbort.Set(1<<sampleDMALower | 1<<sampleDMAUpper)
	for dmaAbort.Get() != 0 {
	}
	rp.ADC.FCS.SetBits(rp.ADC_FCS_ERR | rp.ADC_FCS_OVER | rp.ADC_FCS_UNDER)
}

// dmaIRQ is the sampling-complete interrupt. It re-arms the finished
// channel's write address, raises the matching flag and runs the handler.
func dmaIRQ(interrupt.Interrupt) {
	ints := dmaInts0.Get()
	dmaInts0.Set(ints)

	var f core.DMAFlags
	if ints&(1<<sampleDMALower) != 0 {
		dmaReg(sampleDMALower, dmaWriteAddr).Set(uint32(uintptr(unsafe.Pointer(&sampler.buf[0]))))
		f |= core.FlagHalf
	}
	if ints&(1<<sampleDMAUpper) != 0 {
		dmaReg(sampleDMAUpper, dmaWriteAddr).Set(uint32(uintptr(unsafe.Pointer(&sampler.buf[1]))))
		f |= core.FlagFull
	}
	if f == 0 {
		f = core.FlagError
	}
	sampler.flags.Set(sampler.flags.Get() | uint32(f))

	UpdateSystemTime()
	if sampler.isr != nil {
		sampler.isr.Handle()
	}
}
