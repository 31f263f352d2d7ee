package streak

import (
	"testing"
	"time"

	"github.com/weboryskills/practice/internal/domain"
)

func ist(t *testing.T) *time.Location {
	t.Helper()
	loc, err := ParseOffset("+05:30")
	if err != nil {
		t.Fatalf("ParseOffset() error = %v", err)
	}
	return loc
}

func ptr(t time.Time) *time.Time { return &t }

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"+05:30", 5*3600 + 30*60, false},
		{"+0530", 5*3600 + 30*60, false},
		{"-08:00", -8 * 3600, false},
		{"+02", 2 * 3600, false},
		{"Z", 0, false},
		{"UTC", 0, false},
		{"", 0, false},
		{"05:30", 0, true},
		{"+5:3", 0, true},
		{"+15:00", 0, true},
		{"+05:75", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			loc, err := ParseOffset(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOffset(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			_, off := time.Date(2025, 1, 1, 0, 0, 0, 0, loc).Zone()
			if off != tt.want {
				t.Errorf("offset = %d; want %d", off, tt.want)
			}
		})
	}
}

func TestCalendar_Advance(t *testing.T) {
	loc := ist(t)
	cal := Calendar{Location: loc, Tolerance: 25 * time.Hour, Bonus: 10}
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, loc)

	tests := []struct {
		name      string
		in        domain.Streak
		wantCount int
		wantBonus int
		wantTr    Transition
	}{
		{
			name:      "first ever session",
			in:        domain.Streak{},
			wantCount: 1,
			wantBonus: 0,
			wantTr:    Reset,
		},
		{
			name:      "same day is a no-op",
			in:        domain.Streak{Count: 4, LastActiveDate: ptr(time.Date(2025, 3, 10, 0, 5, 0, 0, loc))},
			wantCount: 4,
			wantBonus: 0,
			wantTr:    SameDay,
		},
		{
			name:      "yesterday continues",
			in:        domain.Streak{Count: 4, LastActiveDate: ptr(time.Date(2025, 3, 9, 23, 59, 0, 0, loc))},
			wantCount: 5,
			wantBonus: 10,
			wantTr:    Continued,
		},
		{
			name:      "yesterday early morning continues",
			in:        domain.Streak{Count: 1, LastActiveDate: ptr(time.Date(2025, 3, 9, 0, 1, 0, 0, loc))},
			wantCount: 2,
			wantBonus: 10,
			wantTr:    Continued,
		},
		{
			name:      "two days back resets",
			in:        domain.Streak{Count: 9, LastActiveDate: ptr(time.Date(2025, 3, 8, 23, 59, 0, 0, loc))},
			wantCount: 1,
			wantBonus: 0,
			wantTr:    Reset,
		},
		{
			name:      "continuing a zero count gives no bonus",
			in:        domain.Streak{Count: 0, LastActiveDate: ptr(time.Date(2025, 3, 9, 12, 0, 0, 0, loc))},
			wantCount: 1,
			wantBonus: 0,
			wantTr:    Continued,
		},
		{
			name:      "future last active counts as today",
			in:        domain.Streak{Count: 3, LastActiveDate: ptr(time.Date(2025, 3, 11, 9, 0, 0, 0, loc))},
			wantCount: 3,
			wantBonus: 0,
			wantTr:    SameDay,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, bonus, tr := cal.Advance(tt.in, now)
			if got.Count != tt.wantCount {
				t.Errorf("Count = %d; want %d", got.Count, tt.wantCount)
			}
			if bonus != tt.wantBonus {
				t.Errorf("bonus = %d; want %d", bonus, tt.wantBonus)
			}
			if tr != tt.wantTr {
				t.Errorf("transition = %q; want %q", tr, tt.wantTr)
			}
			if tr == SameDay {
				if got.LastActiveDate != tt.in.LastActiveDate {
					t.Error("same-day advance must not touch LastActiveDate")
				}
			} else if got.LastActiveDate == nil || !got.LastActiveDate.Equal(now) {
				t.Errorf("LastActiveDate = %v; want %v", got.LastActiveDate, now)
			}
		})
	}
}

func TestCalendar_Advance_OffsetDecidesMidnight(t *testing.T) {
	cal := DefaultCalendar()

	// 20:00 UTC on the 9th is already 01:30 on the 10th in UTC+05:30.
	last := time.Date(2025, 3, 9, 17, 0, 0, 0, time.UTC) // 22:30 IST on the 9th
	now := time.Date(2025, 3, 9, 20, 0, 0, 0, time.UTC)

	got, bonus, tr := cal.Advance(domain.Streak{Count: 2, LastActiveDate: &last}, now)
	if tr != Continued {
		t.Fatalf("transition = %q; want %q", tr, Continued)
	}
	if got.Count != 3 || bonus != DefaultBonus {
		t.Errorf("Count = %d, bonus = %d; want 3, %d", got.Count, bonus, DefaultBonus)
	}

	utc := Calendar{Location: time.UTC, Tolerance: DefaultTolerance, Bonus: DefaultBonus}
	_, _, tr = utc.Advance(domain.Streak{Count: 2, LastActiveDate: &last}, now)
	if tr != SameDay {
		t.Errorf("UTC calendar transition = %q; want %q", tr, SameDay)
	}
}

func TestCalendar_Advance_SecondSessionSameDay(t *testing.T) {
	cal := DefaultCalendar()
	loc := cal.Location
	yesterday := time.Date(2025, 3, 9, 10, 0, 0, 0, loc)

	first, bonus, _ := cal.Advance(domain.Streak{Count: 1, LastActiveDate: &yesterday},
		time.Date(2025, 3, 10, 9, 0, 0, 0, loc))
	if first.Count != 2 || bonus != 10 {
		t.Fatalf("first = %d/%d; want 2/10", first.Count, bonus)
	}

	second, bonus, tr := cal.Advance(first, time.Date(2025, 3, 10, 22, 0, 0, 0, loc))
	if tr != SameDay || second.Count != 2 || bonus != 0 {
		t.Errorf("second = %d/%d/%s; want 2/0/same_day", second.Count, bonus, tr)
	}
}

func TestCalendar_Day(t *testing.T) {
	cal := DefaultCalendar()
	got := cal.Day(time.Date(2025, 3, 9, 19, 0, 0, 0, time.UTC))
	want := time.Date(2025, 3, 10, 0, 0, 0, 0, cal.Location)
	if !got.Equal(want) {
		t.Errorf("Day() = %v; want %v", got, want)
	}
}
