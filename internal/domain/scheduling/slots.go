package scheduling

import (
	"time"

	"github.com/hms/hms/internal/platform/apperr"
)

// SlotInterval is the length of a consultation slot.
const SlotInterval = 20 * time.Minute

const clockLayout = "15:04"

// SlotView is one generated slot with its availability.
type SlotView struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// NormalizeClock parses a clock string and renders it as HH:MM, dropping any
// seconds so slot comparison happens at minute granularity.
func NormalizeClock(s string) (string, error) {
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(clockLayout), nil
		}
	}
	return "", apperr.Validation("Invalid time: %s", s)
}

// GenerateSlots walks the doctor's shift in SlotInterval steps and marks each
// slot against the booked times. The shift end is exclusive: a shift ending
// 12:00 yields no 12:00 slot. Booked times must already be normalized HH:MM;
// cancelled appointments must not appear in them.
func GenerateSlots(shiftStart, shiftEnd string, booked []string) ([]SlotView, error) {
	start, err := time.Parse(clockLayout, shiftStart)
	if err != nil {
		return nil, apperr.Validation("Invalid shift start: %s", shiftStart)
	}
	end, err := time.Parse(clockLayout, shiftEnd)
	if err != nil {
		return nil, apperr.Validation("Invalid shift end: %s", shiftEnd)
	}

	taken := make(map[string]bool, len(booked))
	for _, b := range booked {
		taken[b] = true
	}

	var slots []SlotView
	for current := start; current.Before(end); current = current.Add(SlotInterval) {
		ts := current.Format(clockLayout)
		slots = append(slots, SlotView{Time: ts, Available: !taken[ts]})
	}
	return slots, nil
}

// FreeTimes filters generated slots down to the available times.
func FreeTimes(slots []SlotView) []string {
	free := make([]string, 0, len(slots))
	for _, sl := range slots {
		if sl.Available {
			free = append(free, sl.Time)
		}
	}
	return free
}
