package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/slotbooking/config"
	"github.com/Domenick1991/slotbooking/internal/domain"
)

// Hours are the opening hours of one resource class, as offsets from local midnight.
type Hours struct {
	Open     time.Duration
	Close    time.Duration
	Weekdays map[time.Weekday]bool
}

type Schedule struct {
	Location  *time.Location
	Hours     map[domain.ResourceClass]Hours
	MaxWindow time.Duration
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

func ParseSchedule(cfg config.CatalogConfig) (Schedule, error) {
	loc, err := time.LoadLocation(cfg.Location)
	if err != nil {
		return Schedule{}, fmt.Errorf("catalog location: %w", err)
	}

	s := Schedule{
		Location:  loc,
		Hours:     make(map[domain.ResourceClass]Hours, len(cfg.BusinessHours)),
		MaxWindow: time.Duration(cfg.MaxWindowDays) * 24 * time.Hour,
	}
	for class, bh := range cfg.BusinessHours {
		rc := domain.ResourceClass(class)
		if !rc.Valid() {
			return Schedule{}, fmt.Errorf("business hours: unknown resource class %q", class)
		}
		h, err := parseHours(bh)
		if err != nil {
			return Schedule{}, fmt.Errorf("business hours %s: %w", class, err)
		}
		s.Hours[rc] = h
	}
	return s, nil
}

func parseHours(bh config.BusinessHours) (Hours, error) {
	open, err := parseClock(bh.Open)
	if err != nil {
		return Hours{}, fmt.Errorf("open: %w", err)
	}
	closing, err := parseClock(bh.Close)
	if err != nil {
		return Hours{}, fmt.Errorf("close: %w", err)
	}
	if closing <= open {
		return Hours{}, fmt.Errorf("close %s is not after open %s", bh.Close, bh.Open)
	}

	h := Hours{Open: open, Close: closing, Weekdays: make(map[time.Weekday]bool, len(bh.Weekdays))}
	for _, d := range bh.Weekdays {
		key := strings.ToLower(strings.TrimSpace(d))
		if len(key) > 3 {
			key = key[:3]
		}
		wd, ok := weekdays[key]
		if !ok {
			return Hours{}, fmt.Errorf("unknown weekday %q", d)
		}
		h.Weekdays[wd] = true
	}
	if len(h.Weekdays) == 0 {
		return Hours{}, errors.New("no weekdays")
	}
	return h, nil
}

// parseClock reads "HH:MM"; "24:00" is accepted as end of day.
func parseClock(s string) (time.Duration, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

// windows yields the opening interval of every open day that intersects
// [from, to), in the schedule's location.
func (h Hours) windows(loc *time.Location, from, to time.Time) [][2]time.Time {
	var out [][2]time.Time
	local := from.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	for ; day.Before(to); day = time.Date(day.Year(), day.Month(), day.Day()+1, 0, 0, 0, 0, loc) {
		if !h.Weekdays[day.Weekday()] {
			continue
		}
		open := atOffset(day, h.Open)
		closing := atOffset(day, h.Close)
		if !closing.After(from) || !open.Before(to) {
			continue
		}
		out = append(out, [2]time.Time{open, closing})
	}
	return out
}

// atOffset resolves a wall-clock offset on day through time.Date so DST days
// keep their nominal opening time.
func atOffset(day time.Time, off time.Duration) time.Time {
	h := int(off / time.Hour)
	m := int((off % time.Hour) / time.Minute)
	return time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, day.Location())
}
