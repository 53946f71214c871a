package session

import (
	"testing"
	"time"

	"SignalDesk/internal/domain/models"
)

func et(t *testing.T, year int, month time.Month, day, hour, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load tz: %v", err)
	}
	return time.Date(year, month, day, hour, min, 0, 0, loc)
}

func TestTimetable(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		want models.MarketSession
	}{
		{"saturday midday", et(t, 2025, time.March, 8, 11, 0), models.SessionClosed},
		{"sunday morning", et(t, 2025, time.March, 9, 10, 0), models.SessionClosed},
		{"weekday premarket", et(t, 2025, time.March, 5, 7, 0), models.SessionPre},
		{"premarket open edge", et(t, 2025, time.March, 5, 4, 0), models.SessionPre},
		{"regular open edge", et(t, 2025, time.March, 5, 9, 30), models.SessionRegular},
		{"regular midday", et(t, 2025, time.March, 5, 12, 30), models.SessionRegular},
		{"post open edge", et(t, 2025, time.March, 5, 16, 0), models.SessionPost},
		{"post evening", et(t, 2025, time.March, 5, 19, 59), models.SessionPost},
		{"late night", et(t, 2025, time.March, 5, 21, 0), models.SessionClosed},
		{"early night", et(t, 2025, time.March, 5, 3, 59), models.SessionClosed},
	}
	for _, tc := range cases {
		if got := Classify(tc.at, nil); got != tc.want {
			t.Fatalf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestFreshHintTrusted(t *testing.T) {
	now := et(t, 2025, time.March, 5, 10, 0) // Wednesday, regular hours
	hint := &models.SessionHint{State: models.SessionRegular, At: now.Add(-5 * time.Second)}
	if got := Classify(now, hint); got != models.SessionRegular {
		t.Fatalf("got %s, want REG", got)
	}
	// A fresh non-REG hint wins over the timetable.
	hint = &models.SessionHint{State: models.SessionPost, At: now.Add(-5 * time.Second)}
	if got := Classify(now, hint); got != models.SessionPost {
		t.Fatalf("got %s, want POST", got)
	}
}

func TestRegHintRevalidatedAgainstLocalHours(t *testing.T) {
	// Saturday: a fresh REG hint must be downgraded to CLOSED.
	now := et(t, 2025, time.March, 8, 11, 0)
	hint := &models.SessionHint{State: models.SessionRegular, At: now.Add(-5 * time.Second)}
	if got := Classify(now, hint); got != models.SessionClosed {
		t.Fatalf("got %s, want CLOSED", got)
	}
	// Weekday evening: same downgrade.
	now = et(t, 2025, time.March, 5, 18, 0)
	hint = &models.SessionHint{State: models.SessionRegular, At: now.Add(-5 * time.Second)}
	if got := Classify(now, hint); got != models.SessionClosed {
		t.Fatalf("got %s, want CLOSED", got)
	}
}

func TestExpiredHintFallsBackToTimetable(t *testing.T) {
	now := et(t, 2025, time.March, 5, 18, 0) // Wednesday evening -> POST
	hint := &models.SessionHint{State: models.SessionRegular, At: now.Add(-45 * time.Second)}
	if got := Classify(now, hint); got != models.SessionPost {
		t.Fatalf("got %s, want POST", got)
	}
}
