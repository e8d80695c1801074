package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		input   string
		want    TimeOfDay
		wantErr bool
	}{
		{"00:00", 0, false},
		{"08:00", 480, false},
		{"20:30", 1230, false},
		{"24:00", 1440, false},
		{"24:01", 0, true},
		{"25:00", 0, true},
		{"08:60", 0, true},
		{"8", 0, true},
		{"ab:cd", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
			continue
		}
		assert.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestTimeOfDayString(t *testing.T) {
	assert.Equal(t, "08:05", TimeOfDay(485).String())
	assert.Equal(t, "00:00", TimeOfDay(0).String())
	assert.Equal(t, "23:59", TimeOfDay(23*60+59).String())
}

func TestIntervalOverlaps(t *testing.T) {
	base := Interval{Start: 600, End: 720} // 10:00-12:00

	tests := []struct {
		name  string
		other Interval
		want  bool
	}{
		{"identical", Interval{600, 720}, true},
		{"contained", Interval{630, 660}, true},
		{"overlap left", Interval{540, 660}, true},
		{"overlap right", Interval{660, 780}, true},
		{"touching before", Interval{540, 600}, false},
		{"touching after", Interval{720, 780}, false},
		{"disjoint", Interval{780, 840}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base))
		})
	}
}

func TestBookingBlocks(t *testing.T) {
	b := Booking{Status: BookingPending}
	assert.True(t, b.Blocks())
	b.Status = BookingApproved
	assert.True(t, b.Blocks())
	b.Status = BookingRejected
	assert.False(t, b.Blocks())
	b.Status = BookingCancelled
	assert.False(t, b.Blocks())
}

func TestBookingOverlapsWith(t *testing.T) {
	first := &Booking{Start: 600, End: 720}
	second := &Booking{Start: 660, End: 780}
	third := &Booking{Start: 720, End: 780}

	assert.True(t, first.OverlapsWith(second))
	assert.False(t, first.OverlapsWith(third))
}

func TestOnDate(t *testing.T) {
	date := time.Date(2026, 3, 14, 17, 45, 0, 0, time.UTC)
	got := TimeOfDay(600).OnDate(date)
	assert.Equal(t, time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), got)
}

func TestDateOnlyNormalizesZones(t *testing.T) {
	// A wire date parses to UTC midnight; a wall clock carries the server
	// zone. Same calendar day must compare equal either way.
	wire := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	west := time.Date(2026, 3, 14, 22, 0, 0, 0, time.FixedZone("UTC-5", -5*3600))
	east := time.Date(2026, 3, 14, 1, 0, 0, 0, time.FixedZone("UTC+5:30", 5*3600+1800))

	assert.True(t, DateOnly(wire).Equal(DateOnly(west)))
	assert.True(t, DateOnly(wire).Equal(DateOnly(east)))
	assert.False(t, DateOnly(wire).After(DateOnly(west)))
	assert.False(t, DateOnly(wire).Before(DateOnly(east)))
}
