/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package timetable resolves which station feeds a channel at a given instant
// from a weekly timetable.
package timetable

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrScheduleGap is returned when no slot covers the queried instant
	// and none ever will: the timetable leaves that time of day unassigned.
	ErrScheduleGap = errors.New("no station scheduled at this time")

	// ErrSlotBoundary is returned when the instant equals a slot start or
	// end exactly. Both comparisons are strict, so such an instant matches
	// nothing, but a query a moment later resolves normally; callers retry
	// on the next tick instead of treating the miss as a coverage hole.
	ErrSlotBoundary = errors.New("instant falls on a slot boundary")

	// ErrScheduleConfig indicates the timetable itself is misconfigured,
	// e.g. a weekday not covered by any weekday set.
	ErrScheduleConfig = errors.New("timetable misconfigured")
)

// endOfDaySeconds is the sentinel a "00:00" slot end maps to.
const endOfDaySeconds = 23*3600 + 59*60 + 59

// Slot is one scheduled block within a day.
type Slot struct {
	Start   string `yaml:"start"`
	End     string `yaml:"end"`
	Station string `yaml:"station"`

	startSec int
	endSec   int
}

// DaySchedule assigns an ordered slot sequence to a set of weekdays.
type DaySchedule struct {
	Days  []string `yaml:"days"`
	Slots []Slot   `yaml:"slots"`

	weekdays []time.Weekday
}

// Timetable is a compiled weekly schedule for one channel.
type Timetable struct {
	schedules []DaySchedule
	byDay     map[time.Weekday]int
}

// Span is a resolved schedule entry anchored to the date of the query.
type Span struct {
	Start   time.Time
	End     time.Time
	Station string
}

var weekdayNames = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// New compiles and validates the given day schedules. Every weekday must be
// covered by exactly one schedule, time strings must be HH:MM, and slot
// sequences must be ordered and non-overlapping.
func New(schedules []DaySchedule) (*Timetable, error) {
	if len(schedules) == 0 {
		return nil, fmt.Errorf("%w: empty timetable", ErrScheduleConfig)
	}

	tt := &Timetable{
		schedules: make([]DaySchedule, len(schedules)),
		byDay:     make(map[time.Weekday]int),
	}
	copy(tt.schedules, schedules)

	for i := range tt.schedules {
		sched := &tt.schedules[i]
		if len(sched.Slots) == 0 {
			return nil, fmt.Errorf("%w: weekday set %v has no slots", ErrScheduleConfig, sched.Days)
		}
		for _, name := range sched.Days {
			day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
			if !ok {
				return nil, fmt.Errorf("%w: unknown weekday %q", ErrScheduleConfig, name)
			}
			if _, dup := tt.byDay[day]; dup {
				return nil, fmt.Errorf("%w: weekday %s covered by more than one set", ErrScheduleConfig, day)
			}
			tt.byDay[day] = i
			sched.weekdays = append(sched.weekdays, day)
		}

		prevEnd := -1
		for j := range sched.Slots {
			slot := &sched.Slots[j]
			startSec, err := parseClock(slot.Start)
			if err != nil {
				return nil, err
			}
			endSec, err := parseClock(slot.End)
			if err != nil {
				return nil, err
			}
			// An end at or before the start (typically "00:00") means "until
			// end of day". The early-morning remainder of a wrapped range is
			// not covered; overnight slots only run to 23:59:59.
			if endSec <= startSec {
				endSec = endOfDaySeconds
			}
			if startSec < prevEnd {
				return nil, fmt.Errorf("%w: slot %s-%s overlaps the previous slot", ErrScheduleConfig, slot.Start, slot.End)
			}
			if slot.Station == "" {
				return nil, fmt.Errorf("%w: slot %s-%s has no station", ErrScheduleConfig, slot.Start, slot.End)
			}
			slot.startSec = startSec
			slot.endSec = endSec
			prevEnd = endSec
		}
	}

	for day := time.Sunday; day <= time.Saturday; day++ {
		if _, ok := tt.byDay[day]; !ok {
			return nil, fmt.Errorf("%w: weekday %s not covered", ErrScheduleConfig, day)
		}
	}

	return tt, nil
}

// parseClock parses an HH:MM string into seconds since midnight. Anything
// that is not exactly one colon between two integers is a configuration error.
func parseClock(s string) (int, error) {
	if strings.Count(s, ":") != 1 {
		return 0, fmt.Errorf("%w: time %q must be HH:MM", ErrScheduleConfig, s)
	}
	parts := strings.SplitN(s, ":", 2)
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: bad hour in %q", ErrScheduleConfig, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: bad minute in %q", ErrScheduleConfig, s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: time %q out of range", ErrScheduleConfig, s)
	}
	return hour*3600 + minute*60, nil
}

// Resolve returns the slot covering the given instant, anchored to its date.
// Comparisons are strict on both boundaries: the exact start or end instant
// of a slot matches nothing and resolves to ErrSlotBoundary, anything else
// outside every slot to ErrScheduleGap.
func (t *Timetable) Resolve(at time.Time) (Span, error) {
	idx, ok := t.byDay[at.Weekday()]
	if !ok {
		return Span{}, fmt.Errorf("%w: weekday %s not covered", ErrScheduleConfig, at.Weekday())
	}

	sec := at.Hour()*3600 + at.Minute()*60 + at.Second()
	midnight := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, at.Location())
	onBoundary := false
	for _, slot := range t.schedules[idx].Slots {
		if slot.startSec < sec && sec < slot.endSec {
			return Span{
				Start:   midnight.Add(time.Duration(slot.startSec) * time.Second),
				End:     midnight.Add(time.Duration(slot.endSec) * time.Second),
				Station: slot.Station,
			}, nil
		}
		if sec == slot.startSec || sec == slot.endSec {
			onBoundary = true
		}
	}
	if onBoundary {
		return Span{}, fmt.Errorf("%w: %s", ErrSlotBoundary, at.Format("15:04:05"))
	}
	return Span{}, fmt.Errorf("%w: %s", ErrScheduleGap, at.Format("15:04:05"))
}

// Stations returns the distinct station names referenced by the timetable,
// in first-appearance order.
func (t *Timetable) Stations() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, sched := range t.schedules {
		for _, slot := range sched.Slots {
			if _, ok := seen[slot.Station]; ok {
				continue
			}
			seen[slot.Station] = struct{}{}
			names = append(names, slot.Station)
		}
	}
	return names
}

// Schedules exposes the compiled day schedules, for config generation.
func (t *Timetable) Schedules() []DaySchedule {
	return t.schedules
}

// Weekdays returns the parsed weekdays of a day schedule.
func (d DaySchedule) Weekdays() []time.Weekday { return d.weekdays }
