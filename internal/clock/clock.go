package clock

import "time"

// NowFunc returns current time. Override in tests so case durations and
// report timings stay deterministic.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }
