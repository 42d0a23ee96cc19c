// Package scheduling drives the appointment booking workflow: doctor,
// date, slot, reason, submission. It owns the draft, the slot fetch with
// its stale-response guard, and the submission payload.
package scheduling

import (
	"fmt"
	"strings"
	"time"

	"github.com/vaishnavimodi30/healthsphere-portal/internal/upstream"
)

const (
	dateLayout        = "2006-01-02"
	appointmentType   = "CONSULTATION"
	appointmentStatus = "SCHEDULED"
)

// Draft is the in-progress booking input. It is owned by exactly one
// workflow and reset to empty on successful submission.
type Draft struct {
	DoctorID upstream.ID `json:"doctorId,omitempty"`
	Date     string      `json:"date,omitempty"`
	Slot     string      `json:"slot,omitempty"`
	Reason   string      `json:"reason,omitempty"`
}

// ValidationError lists the required fields missing from a submission
// attempt. It is raised locally, before any network call.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("scheduling: missing required fields: %s", strings.Join(e.Missing, ", "))
}

// missingFields reports which of the four required inputs are absent.
func (d *Draft) missingFields() []string {
	var missing []string
	if d.DoctorID == 0 {
		missing = append(missing, "doctorId")
	}
	if d.Date == "" {
		missing = append(missing, "date")
	}
	if d.Slot == "" {
		missing = append(missing, "slot")
	}
	if strings.TrimSpace(d.Reason) == "" {
		missing = append(missing, "reason")
	}
	return missing
}

// payload freezes a complete draft into the submission payload.
func (d *Draft) payload(patientID string) (upstream.BookingRequest, error) {
	if missing := d.missingFields(); len(missing) > 0 {
		return upstream.BookingRequest{}, &ValidationError{Missing: missing}
	}
	return upstream.BookingRequest{
		DoctorID:            d.DoctorID,
		PatientID:           patientID,
		AppointmentDateTime: d.Date + "T" + d.Slot + ":00",
		Type:                appointmentType,
		Reason:              strings.TrimSpace(d.Reason),
		Status:              appointmentStatus,
	}, nil
}

// DateWindow is the allowed booking range: today through today plus the
// configured number of days, inclusive.
type DateWindow struct {
	Days int
	now  func() time.Time
}

// NewDateWindow builds the window used at input-selection time.
func NewDateWindow(days int) DateWindow {
	if days <= 0 {
		days = 31
	}
	return DateWindow{Days: days, now: time.Now}
}

// Contains reports whether the given date (YYYY-MM-DD) falls inside the
// window. A malformed date never does.
func (w DateWindow) Contains(date string) bool {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return false
	}
	today := w.now().Truncate(24 * time.Hour)
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	last := today.AddDate(0, 0, w.Days)
	return !d.Before(today) && !d.After(last)
}
