//go:build tinygo

package core

import "sync/atomic"

// The sampling interrupt reads the clock while the main loop updates it.
var systemTicksValue uint32

func getSystemTicks() uint32 {
	return atomic.LoadUint32(&systemTicksValue)
}

func setSystemTicks(ticks uint32) {
	atomic.StoreUint32(&systemTicksValue, ticks)
}
