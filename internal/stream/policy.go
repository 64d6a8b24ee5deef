package stream

import "time"

const (
	defaultFloor       = time.Second
	defaultCeiling     = 30 * time.Second
	defaultMaxAttempts = 10
)

// Policy bounds reconnect backoff.
type Policy struct {
	Floor       time.Duration // delay before the first retry
	Ceiling     time.Duration // delay never grows past this
	MaxAttempts int           // failures tolerated before giving up
}

// DefaultPolicy returns 1s doubling to 30s, 10 attempts.
func DefaultPolicy() Policy {
	return Policy{Floor: defaultFloor, Ceiling: defaultCeiling, MaxAttempts: defaultMaxAttempts}
}

func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.Floor <= 0 {
		p.Floor = def.Floor
	}
	if p.Ceiling < p.Floor {
		p.Ceiling = p.Floor
	}
	if p.MaxAttempts < 0 {
		p.MaxAttempts = 0
	}
	return p
}

// next doubles d, capped at Ceiling.
func (p Policy) next(d time.Duration) time.Duration {
	if d >= p.Ceiling/2 {
		return p.Ceiling
	}
	return d * 2
}

// DelayAfter returns the delay that will be used after failures consecutive
// failures: min(Floor * 2^failures, Ceiling).
func (p Policy) DelayAfter(failures int) time.Duration {
	p = p.normalized()
	d := p.Floor
	for i := 0; i < failures && d < p.Ceiling; i++ {
		d = p.next(d)
	}
	return d
}
