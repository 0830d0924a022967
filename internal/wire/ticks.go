package wire

import "time"

// nanosPerTick is the tick resolution: 100 nanoseconds per tick.
const nanosPerTick = 100

// ticksPerSecond is the number of ticks in one second.
const ticksPerSecond = 1e9 / nanosPerTick

// unixEpochTicks is the tick count of 1970-01-01 UTC measured from the zero
// of the tick encoding, midnight 0001-01-01 UTC. Conversions go through Unix
// time because a time.Duration cannot span the years since that zero.
const unixEpochTicks = 621355968000000000

// ticksFromTime converts t to the wire's 100-ns-tick-since-epoch encoding.
func ticksFromTime(t time.Time) int64 {
	u := t.UTC()
	return unixEpochTicks + u.Unix()*ticksPerSecond + int64(u.Nanosecond())/nanosPerTick
}

// timeFromTicks converts the wire's tick encoding back to a time.Time.
func timeFromTicks(ticks int64) time.Time {
	d := ticks - unixEpochTicks
	return time.Unix(d/ticksPerSecond, (d%ticksPerSecond)*nanosPerTick).UTC()
}
