package appointment

import (
	"strings"
	"time"

	"procounsellor/models"
)

// SlotDuration is the fixed length of every appointment.
const SlotDuration = 30 * time.Minute

// Slot is a validated booking window.
type Slot struct {
	Date      string
	StartTime string
	EndTime   string
	Start     time.Time
	End       time.Time
}

func parseOfficeTime(value string) (time.Time, bool) {
	for _, layout := range []string{models.TimeLayout, "15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func onDate(day time.Time, clock time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, day.Location())
}

func worksOn(c models.Counsellor, weekday time.Weekday) bool {
	for _, d := range c.WorkingDays {
		if strings.EqualFold(strings.TrimSpace(d), weekday.String()) {
			return true
		}
	}
	return false
}

// CheckSlot applies the availability policy to (date, startTime) evaluated at now in loc.
// It returns a *RequestError for malformed input and a *PolicyError when the slot is
// outside the counsellor's working window, off the 30 minute grid, or not strictly
// in the future.
//
// Starts must fall on the grid anchored at the counsellor's office start: with office
// hours from 09:00, a 09:15 start inside working hours still fails with ReasonOffGrid.
func CheckSlot(c models.Counsellor, date, startTime string, now time.Time, loc *time.Location) (Slot, error) {
	day, err := time.ParseInLocation(models.DateLayout, date, loc)
	if err != nil {
		return Slot{}, &RequestError{Field: "date", Message: "must be a calendar date in YYYY-MM-DD format", Err: ErrInvalidDate}
	}
	clock, err := time.Parse(models.TimeLayout, startTime)
	if err != nil {
		return Slot{}, invalid("startTime", "must be a time in HH:mm format")
	}

	if !worksOn(c, day.Weekday()) {
		return Slot{}, outsidePolicy(ReasonWrongDay, "counsellor not available on %s", day.Weekday())
	}

	officeStart, okStart := parseOfficeTime(c.OfficeStartTime)
	officeEnd, okEnd := parseOfficeTime(c.OfficeEndTime)
	if !okStart || !okEnd {
		return Slot{}, outsidePolicy(ReasonOutsideHours, "counsellor has no office hours configured")
	}

	start := onDate(day, clock)
	end := start.Add(SlotDuration)
	opens := onDate(day, officeStart)
	closes := onDate(day, officeEnd)
	if start.Before(opens) || end.After(closes) {
		return Slot{}, outsidePolicy(ReasonOutsideHours, "requested time [%s - %s] is outside working hours [%s - %s]",
			start.Format(models.TimeLayout), end.Format(models.TimeLayout),
			opens.Format(models.TimeLayout), closes.Format(models.TimeLayout))
	}
	if start.Sub(opens)%SlotDuration != 0 {
		return Slot{}, outsidePolicy(ReasonOffGrid, "slots start every %d minutes from %s",
			int(SlotDuration.Minutes()), opens.Format(models.TimeLayout))
	}
	if !start.After(now) {
		return Slot{}, outsidePolicy(ReasonInPast, "cannot book an appointment in the past")
	}

	return Slot{
		Date:      date,
		StartTime: start.Format(models.TimeLayout),
		EndTime:   end.Format(models.TimeLayout),
		Start:     start,
		End:       end,
	}, nil
}

// IsSlotAllowed reports whether CheckSlot accepts the slot.
func IsSlotAllowed(c models.Counsellor, date, startTime string, now time.Time, loc *time.Location) bool {
	_, err := CheckSlot(c, date, startTime, now, loc)
	return err == nil
}
