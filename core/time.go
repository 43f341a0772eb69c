package core

import (
	"time"
)

// NewTime creates a new time service
func NewTime(cfg TimeConfiguration) Time {
	var interval time.Duration
	if cfg.FramesPerSecond == 0 {
		interval = time.Nanosecond
	} else {
		interval = time.Second / (time.Duration)(cfg.FramesPerSecond)
	}

	return Time{
		fps:       cfg.FramesPerSecond,
		fpsTicker: time.NewTicker(interval),
	}
}

// Time contains all the time services and tickers
type Time struct {
	fps       int
	fpsTicker *time.Ticker
}

// Fps gets the set frames per second
func (t *Time) Fps() int {
	return t.fps
}

// FpsTicker gets the initialized fps ticker
func (t *Time) FpsTicker() *time.Ticker {
	return t.fpsTicker
}

// NewFrameCounter creates a counter that averages the frame rate
// over the given reporting interval.
func NewFrameCounter(interval time.Duration) *FrameCounter {
	return &FrameCounter{
		interval: interval,
		last:     time.Now(),
	}
}

// FrameCounter accumulates frame ticks and reports an averaged
// rate once per interval. Drives the window title FPS readout.
type FrameCounter struct {
	interval time.Duration
	last     time.Time
	frames   int
}

// Tick records one finished frame. It returns the averaged rate and
// true once per interval, zero and false otherwise.
func (c *FrameCounter) Tick() (float64, bool) {
	c.frames++
	elapsed := time.Since(c.last)
	if elapsed < c.interval {
		return 0, false
	}
	rate := float64(c.frames) / elapsed.Seconds()
	c.frames = 0
	c.last = time.Now()
	return rate, true
}
