package cron

import (
	"fmt"
	"time"

	"github.com/angelmondragon/stockflow-backend/pkg/config"
)

// Schedule decides when the next cycle fires. A daily schedule fires at a
// fixed wall-clock time in Location; otherwise cycles are Interval apart.
type Schedule struct {
	Daily    bool
	Hour     int
	Minute   int
	Location *time.Location
	Interval time.Duration
}

// ScheduleFromConfig builds the review schedule from configuration.
func ScheduleFromConfig(cfg config.ReviewConfig) (Schedule, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Schedule{}, err
	}
	hour, minute, daily, err := cfg.DailyTime()
	if err != nil {
		return Schedule{}, err
	}
	return Schedule{Daily: daily, Hour: hour, Minute: minute, Location: loc, Interval: cfg.Interval}, nil
}

func (s Schedule) validate() error {
	if s.Daily {
		if s.Hour < 0 || s.Hour > 23 || s.Minute < 0 || s.Minute > 59 {
			return fmt.Errorf("invalid daily run time %02d:%02d", s.Hour, s.Minute)
		}
		return nil
	}
	if s.Interval <= 0 {
		return fmt.Errorf("schedule interval must be positive")
	}
	return nil
}

// Next returns the first fire time strictly after now.
func (s Schedule) Next(now time.Time) time.Time {
	if !s.Daily {
		return now.Add(s.Interval)
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), s.Hour, s.Minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, s.Hour, s.Minute, 0, 0, loc)
	}
	return next
}

func (s Schedule) String() string {
	if !s.Daily {
		return "every " + s.Interval.String()
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	return fmt.Sprintf("daily at %02d:%02d %s", s.Hour, s.Minute, loc)
}
