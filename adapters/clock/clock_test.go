package clock_test

import (
	"testing"
	"time"

	"github.com/artpar/clubdues/adapters/clock"
)

func TestReal_Now(t *testing.T) {
	c := clock.Real{}

	before := time.Now()
	got := c.Now()
	after := time.Now()

	if got.Before(before) || got.After(after) {
		t.Errorf("Now() = %v, expected between %v and %v", got, before, after)
	}
}

func TestReal_NowInLocation(t *testing.T) {
	loc := time.FixedZone("club", -3*60*60)
	got := clock.Real{Location: loc}.Now()

	if got.Location() != loc {
		t.Errorf("Location = %v, want %v", got.Location(), loc)
	}
}

func TestFake_SetAndAddDays(t *testing.T) {
	c := clock.NewFake(time.Date(2024, 1, 31, 9, 0, 0, 0, time.UTC))

	c.AddDays(1)
	if want := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC); !c.Now().Equal(want) {
		t.Errorf("after AddDays(1) Now() = %v, want %v", c.Now(), want)
	}

	next := time.Date(2025, 12, 25, 10, 30, 0, 0, time.UTC)
	c.Set(next)
	if !c.Now().Equal(next) {
		t.Errorf("Now() = %v, want %v", c.Now(), next)
	}
}

func TestToday(t *testing.T) {
	// 02:00 UTC on Feb 5 is still Feb 4 three hours west of UTC.
	now := time.Date(2024, 2, 5, 2, 0, 0, 0, time.UTC)
	west := time.FixedZone("west", -3*60*60)

	tests := []struct {
		name string
		loc  *time.Location
		want time.Time
	}{
		{"utc", time.UTC, time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)},
		{"nil location", nil, time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)},
		{"west of utc", west, time.Date(2024, 2, 4, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clock.Today(now, tt.loc)
			if !got.Equal(tt.want) || got.Location() != time.UTC {
				t.Errorf("Today() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFake_ConcurrentAccess(t *testing.T) {
	c := clock.NewFake(time.Now())

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_ = c.Now()
				c.AddDays(1)
			}
			done <- true
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}
