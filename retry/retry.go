/*
Package retry implements the bounded exponential-backoff delay
sequence the ConnectionManager consults between reconnect attempts.
Each step's delay is read from a cenkalti/backoff ExponentialBackOff
seeded with the current interval; the doubling and the clamp at max
are computed in Next.
*/
package retry

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Schedule produces successive reconnect delays, doubling from min up
// to max, for a bounded number of attempts. A Schedule is an
// immutable value; Next returns the delay to use now together with
// the schedule to consult after that attempt fails, or ok=false once
// the attempt budget is exhausted.
type Schedule struct {
	remaining int
	current   time.Duration
	max       time.Duration
}

// New constructs a Schedule allowing maxReconnections subsequent
// attempts after the first connect fails, with delays starting at min
// and doubling up to max. maxReconnections == 0 yields a Schedule
// whose first Next returns ok=false, matching the "terminate
// immediately" requirement for a zero reconnect budget.
func New(maxReconnections int, min, max time.Duration) *Schedule {
	return &Schedule{remaining: maxReconnections, current: min, max: max}
}

// Next reports whether another reconnect attempt remains, and if so,
// the delay to wait before it and the schedule to use after that
// attempt too fails. The delay for this step is the first interval of
// a fresh ExponentialBackOff seeded with the current interval and no
// randomization, which is the current interval itself; the next
// schedule's interval is current doubled, clamped to max.
func (s *Schedule) Next() (delay time.Duration, next *Schedule, ok bool) {
	if s.remaining <= 0 {
		return 0, nil, false
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.current
	b.MaxInterval = s.max
	b.RandomizationFactor = 0
	b.Reset()
	delay = b.NextBackOff()

	nextCurrent := s.current * 2
	if nextCurrent > s.max {
		nextCurrent = s.max
	}

	return delay, &Schedule{remaining: s.remaining - 1, current: nextCurrent, max: s.max}, true
}

// Remaining reports the number of further attempts this schedule
// permits.
func (s *Schedule) Remaining() int { return s.remaining }
