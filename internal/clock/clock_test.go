package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedAt(t time.Time) *Clock {
	return New(DefaultConfig()).WithNow(func() time.Time { return t })
}

func TestWillExpireAt(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c := fixedAt(created)

	tests := []struct {
		name string
		lead time.Duration
		want time.Time
	}{
		{"within 90 minutes expires at due", 60 * time.Minute, created.Add(60 * time.Minute)},
		{"exactly 90 minutes", 90 * time.Minute, created.Add(90 * time.Minute)},
		{"same day", 5 * time.Hour, created.Add(90 * time.Minute)},
		{"within three days", 48 * time.Hour, created.Add(16 * time.Hour)},
		{"far future", 10 * 24 * time.Hour, created.Add(8 * 24 * time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.WillExpireAt(created.Add(tt.lead), created))
		})
	}
}

func TestIsNightTime(t *testing.T) {
	tests := []struct {
		hour int
		want bool
	}{
		{21, false},
		{22, true},
		{23, true},
		{0, true},
		{6, true},
		{7, false},
		{12, false},
	}

	for _, tt := range tests {
		c := fixedAt(time.Date(2026, 3, 1, tt.hour, 30, 0, 0, time.UTC))
		assert.Equal(t, tt.want, c.IsNightTime(), "hour %d", tt.hour)
	}
}

func TestNextBusinessTime(t *testing.T) {
	late := fixedAt(time.Date(2026, 3, 1, 23, 15, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC), late.NextBusinessTime())

	early := fixedAt(time.Date(2026, 3, 2, 3, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC), early.NextBusinessTime())
}

func TestLocation(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	c := New(Config{Location: loc, NightStart: 22, NightEnd: 7, BusinessStart: 7}).
		WithNow(func() time.Time { return time.Date(2026, 3, 1, 21, 30, 0, 0, time.UTC) })

	assert.Equal(t, loc, c.Now().Location())
	assert.True(t, c.IsNightTime())
}
