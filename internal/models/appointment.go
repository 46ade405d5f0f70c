package models

import (
	"time"
)

// StartLayout is the minute-resolution layout appointment times are carried
// in. Reminder matching is a string equality test at this granularity, so
// date, start time and period must round-trip through it unchanged.
const StartLayout = "January 2, 2006 3:04 PM"

const DateLayout = "January 2, 2006"

type Appointment struct {
	ID         string            `json:"id" dynamodbav:"id"`
	Client     AppointmentClient `json:"client" dynamodbav:"client"`
	Date       string            `json:"date" dynamodbav:"date"`             // "June 2, 2024"
	StartTime  string            `json:"start_time" dynamodbav:"start_time"` // "3:00"
	Period     string            `json:"period" dynamodbav:"period"`         // "AM" or "PM"
	Confirmed  bool              `json:"confirmed" dynamodbav:"confirmed"`
	Treatments []Treatment       `json:"treatments,omitempty" dynamodbav:"treatments,omitempty"`
	AddOns     []AddOn           `json:"add_ons,omitempty" dynamodbav:"add_ons,omitempty"`
	CreatedAt  time.Time         `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at" dynamodbav:"updated_at"`
}

// AppointmentClient is the denormalized slice of the owning client that
// reminders and confirmation matching need.
type AppointmentClient struct {
	ID          string `json:"id" dynamodbav:"id"`
	FirstName   string `json:"first_name" dynamodbav:"first_name"`
	PhoneNumber string `json:"phone_number" dynamodbav:"phone_number"`
}

type Treatment struct {
	Name     string  `json:"name" dynamodbav:"name"`
	Price    float64 `json:"price" dynamodbav:"price"`
	Duration int     `json:"duration" dynamodbav:"duration"` // minutes
}

type AddOn struct {
	Name     string  `json:"name" dynamodbav:"name"`
	Price    float64 `json:"price" dynamodbav:"price"`
	Duration int     `json:"duration" dynamodbav:"duration"`
}

// StartAt parses the appointment moment in the server's local time zone.
func (a *Appointment) StartAt() (time.Time, error) {
	return time.ParseInLocation(StartLayout, a.Date+" "+a.StartTime+" "+a.Period, time.Local)
}

func (a *Appointment) GetPK() string {
	return "APPOINTMENT#" + a.ID
}

func (a *Appointment) GetSK() string {
	return "METADATA"
}
