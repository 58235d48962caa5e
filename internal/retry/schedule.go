package retry

import "time"

// Schedule yields the wait after each retransmission.  Next(i) is
// called after send i (0-based); ok=false ends the schedule.
type Schedule interface {
	Next(i int) (d time.Duration, ok bool)
}

// ScheduleFunc adapts a function to [Schedule].
type ScheduleFunc func(i int) (time.Duration, bool)

// Next implements [Schedule].
func (f ScheduleFunc) Next(i int) (time.Duration, bool) { return f(i) }

// Delays is an explicit list of waits: one send per entry, each
// followed by that entry's delay.
type Delays []time.Duration

// Next implements [Schedule].
func (d Delays) Next(i int) (time.Duration, bool) {
	if i < 0 || i >= len(d) {
		return 0, false
	}
	return d[i], true
}

// Fixed waits Interval after each of Count sends.  Count 0 repeats
// until the caller stops.
type Fixed struct {
	Interval time.Duration
	Count    int
}

// Next implements [Schedule].
func (f Fixed) Next(i int) (time.Duration, bool) {
	if f.Count > 0 && i >= f.Count {
		return 0, false
	}
	return f.Interval, true
}

// MillisDelays converts millisecond counts, the unit the config file and
// CLI use, into a [Delays] schedule.
func MillisDelays(ms ...uint64) Delays {
	out := make(Delays, len(ms))
	for i, m := range ms {
		out[i] = time.Duration(m) * time.Millisecond
	}
	return out
}
