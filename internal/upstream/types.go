package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ID decodes from either a JSON number or a numeric string; backends have
// shipped both.
type ID int64

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("upstream: non-numeric id %q", s)
		}
		*id = ID(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n)
	return nil
}

// DoctorSummary is the read-only directory projection of a doctor. It is
// refetched per listing request; there is no local cache.
type DoctorSummary struct {
	ID             ID     `json:"doctorId"`
	Name           string `json:"name"`
	Specialization string `json:"specialization,omitempty"`
}

// UnmarshalJSON tolerates the id living under "doctorId" or plain "id".
func (d *DoctorSummary) UnmarshalJSON(data []byte) error {
	var raw struct {
		DoctorID       *ID    `json:"doctorId"`
		AltID          *ID    `json:"id"`
		Name           string `json:"name"`
		Specialization string `json:"specialization"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Name = raw.Name
	d.Specialization = raw.Specialization
	switch {
	case raw.DoctorID != nil:
		d.ID = *raw.DoctorID
	case raw.AltID != nil:
		d.ID = *raw.AltID
	}
	return nil
}

// BookingRequest is the appointment submission payload.
type BookingRequest struct {
	DoctorID            ID     `json:"doctorId"`
	PatientID           string `json:"patientId"`
	AppointmentDateTime string `json:"appointmentDateTime"`
	Type                string `json:"type"`
	Reason              string `json:"reason"`
	Status              string `json:"status"`
}

// Appointment is one scheduled appointment as reported by the backend.
type Appointment struct {
	ID                  ID     `json:"id"`
	DoctorID            ID     `json:"doctorId"`
	PatientID           string `json:"patientId"`
	AppointmentDateTime string `json:"appointmentDateTime"`
	Type                string `json:"type"`
	Reason              string `json:"reason"`
	Status              string `json:"status"`
}

// MedicalRecord is a read-only record entry for the record viewer.
type MedicalRecord struct {
	ID          ID     `json:"id"`
	RecordType  string `json:"recordType,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	RecordDate  string `json:"recordDate,omitempty"`
	DoctorName  string `json:"doctorName,omitempty"`
}

// LoginResult is the decoded outcome of a credential exchange.
type LoginResult struct {
	Token       string
	SubjectID   string
	DisplayName string
	Role        string
}
