package dispatch

import "time"

// Pace bounds for the adaptive inter-keystroke delay. The floor keeps
// even healthy targets from being flooded; the ceiling keeps a flaky
// stretch from degrading sends into slow motion forever.
const (
	paceFloor   = 5 * time.Millisecond
	paceCeiling = 50 * time.Millisecond
)

// NextPace adapts the inter-keystroke delay after a send. Successes speed
// up by 10%, failures back off by 50%, clamped to [paceFloor,
// paceCeiling]. Pure function; the caller owns where the pace lives.
func NextPace(cur time.Duration, ok bool) time.Duration {
	if cur <= 0 {
		cur = paceFloor
	}
	var next time.Duration
	if ok {
		next = cur * 9 / 10
	} else {
		next = cur * 3 / 2
	}
	if next < paceFloor {
		next = paceFloor
	}
	if next > paceCeiling {
		next = paceCeiling
	}
	return next
}
