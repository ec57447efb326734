package clock

import "time"

// Config controls the booking calendar
type Config struct {
	Location      *time.Location
	NightStart    int // hour, inclusive
	NightEnd      int // hour, exclusive
	BusinessStart int // hour delayed pushes are released at
}

// DefaultConfig returns a 22:00-07:00 night window in UTC
func DefaultConfig() Config {
	return Config{
		Location:      time.UTC,
		NightStart:    22,
		NightEnd:      7,
		BusinessStart: 7,
	}
}

// Clock implements the time and expiry policy used by bookings
type Clock struct {
	cfg Config
	now func() time.Time
}

// New creates a Clock reading the system time
func New(cfg Config) *Clock {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Clock{cfg: cfg, now: time.Now}
}

// WithNow returns a copy of the clock using fn as its time source
func (c *Clock) WithNow(fn func() time.Time) *Clock {
	return &Clock{cfg: c.cfg, now: fn}
}

func (c *Clock) Now() time.Time {
	return c.now().In(c.cfg.Location)
}

func (c *Clock) Location() *time.Location {
	return c.cfg.Location
}

// WillExpireAt returns the moment an unaccepted job stops being offered.
func (c *Clock) WillExpireAt(due, createdAt time.Time) time.Time {
	lead := due.Sub(createdAt)
	switch {
	case lead <= 90*time.Minute:
		return due
	case lead <= 24*time.Hour:
		return createdAt.Add(90 * time.Minute)
	case lead <= 72*time.Hour:
		return createdAt.Add(16 * time.Hour)
	default:
		return due.Add(-48 * time.Hour)
	}
}

// IsNightTime reports whether the current local hour falls in the night window.
func (c *Clock) IsNightTime() bool {
	return c.isNight(c.Now().Hour())
}

func (c *Clock) isNight(hour int) bool {
	if c.cfg.NightStart <= c.cfg.NightEnd {
		return hour >= c.cfg.NightStart && hour < c.cfg.NightEnd
	}
	return hour >= c.cfg.NightStart || hour < c.cfg.NightEnd
}

// NextBusinessTime is the next occurrence of the business start hour.
func (c *Clock) NextBusinessTime() time.Time {
	now := c.Now()
	next := time.Date(now.Year(), now.Month(), now.Day(), c.cfg.BusinessStart, 0, 0, 0, c.cfg.Location)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
