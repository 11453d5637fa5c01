package catalog

import (
	"testing"
	"time"

	"github.com/Domenick1991/slotbooking/config"
	"github.com/Domenick1991/slotbooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"08:00", 8 * time.Hour, false},
		{"17:30", 17*time.Hour + 30*time.Minute, false},
		{"00:00", 0, false},
		{"24:00", 24 * time.Hour, false},
		{"24:01", 0, true},
		{"8", 0, true},
		{"ab:00", 0, true},
		{"12:60", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSchedule(t *testing.T) {
	cfg := config.CatalogConfig{
		Location:      "Europe/Berlin",
		MaxWindowDays: 7,
		BusinessHours: map[string]config.BusinessHours{
			"appointment": {Open: "09:00", Close: "12:00", Weekdays: []string{"Mon", "wednesday"}},
		},
	}
	s, err := ParseSchedule(cfg)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", s.Location.String())
	assert.Equal(t, 7*24*time.Hour, s.MaxWindow)

	h := s.Hours[domain.ResourceClassAppointment]
	assert.Equal(t, 9*time.Hour, h.Open)
	assert.Equal(t, 12*time.Hour, h.Close)
	assert.Equal(t, map[time.Weekday]bool{time.Monday: true, time.Wednesday: true}, h.Weekdays)
}

func TestParseSchedule_Invalid(t *testing.T) {
	tests := map[string]config.CatalogConfig{
		"unknown class": {Location: "UTC", BusinessHours: map[string]config.BusinessHours{
			"boat": {Open: "09:00", Close: "10:00", Weekdays: []string{"mon"}},
		}},
		"close before open": {Location: "UTC", BusinessHours: map[string]config.BusinessHours{
			"parking": {Open: "10:00", Close: "09:00", Weekdays: []string{"mon"}},
		}},
		"bad weekday": {Location: "UTC", BusinessHours: map[string]config.BusinessHours{
			"parking": {Open: "09:00", Close: "10:00", Weekdays: []string{"someday"}},
		}},
		"no weekdays": {Location: "UTC", BusinessHours: map[string]config.BusinessHours{
			"parking": {Open: "09:00", Close: "10:00"},
		}},
		"bad location": {Location: "Mars/Olympus"},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSchedule(cfg)
			assert.Error(t, err)
		})
	}
}

func TestHoursWindows(t *testing.T) {
	h := Hours{Open: 8 * time.Hour, Close: 17 * time.Hour, Weekdays: map[time.Weekday]bool{time.Friday: true, time.Monday: true}}
	// 2030-01-04 is a Friday.
	from := time.Date(2030, 1, 4, 12, 0, 0, 0, time.UTC)
	to := time.Date(2030, 1, 7, 10, 0, 0, 0, time.UTC)

	got := h.windows(time.UTC, from, to)
	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2030, 1, 4, 8, 0, 0, 0, time.UTC), got[0][0])
	assert.Equal(t, time.Date(2030, 1, 4, 17, 0, 0, 0, time.UTC), got[0][1])
	assert.Equal(t, time.Date(2030, 1, 7, 8, 0, 0, 0, time.UTC), got[1][0])
}

func TestHoursWindows_DSTKeepsWallClock(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)
	h := Hours{Open: 9 * time.Hour, Close: 10 * time.Hour, Weekdays: map[time.Weekday]bool{time.Sunday: true}}

	// Clocks go forward on 2030-03-31.
	from := time.Date(2030, 3, 31, 0, 0, 0, 0, berlin)
	got := h.windows(berlin, from, from.Add(24*time.Hour))
	require.Len(t, got, 1)
	assert.Equal(t, 9, got[0][0].Hour())
	assert.Equal(t, time.Date(2030, 3, 31, 7, 0, 0, 0, time.UTC), got[0][0].UTC())
}
