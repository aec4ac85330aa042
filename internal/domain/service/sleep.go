// Package service provides implementations of domain services that implement core business logic
// This package depends only on domain models (not infrastructure implementations).
package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Miquel-TA/cat-feeder/internal/domain/model"
)

// SleepSchedule evaluates whether actuation is suppressed at a given instant.
// The schedule holds only configuration; Evaluate is a pure function of its
// argument, so two calls with the same instant always agree. Start and end
// are wall-clock local times and the offset is recomputed per evaluation,
// which keeps verdicts correct across daylight-saving shifts.
type SleepSchedule struct {
	startHour, startMin int
	endHour, endMin     int
	loc                 *time.Location
	enabled             bool
}

// NewSleepSchedule parses "HH:MM" start/end times. A start later than the
// end means the window spans midnight.
func NewSleepSchedule(start, end string, loc *time.Location, enabled bool) (*SleepSchedule, error) {
	sh, sm, err := parseClock(start)
	if err != nil {
		return nil, fmt.Errorf("invalid sleep start %q: %w", start, err)
	}
	eh, em, err := parseClock(end)
	if err != nil {
		return nil, fmt.Errorf("invalid sleep end %q: %w", end, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SleepSchedule{
		startHour: sh, startMin: sm,
		endHour: eh, endMin: em,
		loc:     loc,
		enabled: enabled,
	}, nil
}

// Evaluate reports whether the instant falls inside the sleep window and the
// nearest window boundary strictly after it.
func (s *SleepSchedule) Evaluate(t time.Time) model.SleepVerdict {
	local := t.In(s.loc)
	if !s.enabled {
		return model.SleepVerdict{
			Suppressed:     false,
			NextTransition: s.nextBoundary(local, s.startHour, s.startMin),
		}
	}

	now := secondOfDay(local)
	start := s.startHour*3600 + s.startMin*60
	end := s.endHour*3600 + s.endMin*60

	var suppressed bool
	if start > end {
		// Window spans midnight.
		suppressed = now >= start || now < end
	} else {
		suppressed = now >= start && now < end
	}

	verdict := model.SleepVerdict{Suppressed: suppressed}
	if suppressed {
		verdict.NextTransition = s.nextBoundary(local, s.endHour, s.endMin)
	} else {
		verdict.NextTransition = s.nextBoundary(local, s.startHour, s.startMin)
	}
	return verdict
}

// nextBoundary returns the first instant strictly after t whose local
// wall-clock time equals hh:mm. time.Date renormalizes the rolled-over day,
// so DST gaps resolve to the zone's actual offset on that date.
func (s *SleepSchedule) nextBoundary(t time.Time, hh, mm int) time.Time {
	next := time.Date(t.Year(), t.Month(), t.Day(), hh, mm, 0, 0, s.loc)
	if !next.After(t) {
		next = time.Date(t.Year(), t.Month(), t.Day()+1, hh, mm, 0, 0, s.loc)
	}
	return next
}

func secondOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

func parseClock(v string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("want HH:MM")
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("bad hour")
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("bad minute")
	}
	return hour, minute, nil
}
