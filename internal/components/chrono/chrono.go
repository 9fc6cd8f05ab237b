package chrono

import (
	"sync"
	"time"
	// the zone database is embedded for hosts without one
	_ "time/tzdata"
)

// API is the source of "now" for everything that timestamps data.
//
// note: fault injection point
type API interface {
	Now() time.Time
	Location() *time.Location
}

// StandardImpl is the wall clock, in the timezone of the retailer.
type StandardImpl struct {
	location *time.Location
}

func NewStandardImpl() (StandardImpl, error) {
	// the retailer (and the naive timestamps of old databases) live in eastern time
	location, err := time.LoadLocation("America/Toronto")
	if err != nil {
		return StandardImpl{}, err
	}
	return StandardImpl{location: location}, nil
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardImpl) Location() *time.Location {
	return s.location
}

// FakeClock returns `start` on the first call to Now() and advances by `step`
// on every following call, so consecutive timestamps are strictly increasing.
type FakeClock struct {
	mutex   sync.Mutex
	current time.Time
	step    time.Duration
}

func NewFakeClock(start time.Time, step time.Duration) *FakeClock {
	return &FakeClock{current: start, step: step}
}

func (c *FakeClock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	now := c.current
	c.current = c.current.Add(c.step)
	return now
}

func (c *FakeClock) Location() *time.Location {
	return c.current.Location()
}

// Advance moves the clock forward without producing a timestamp.
func (c *FakeClock) Advance(d time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.current = c.current.Add(d)
}
