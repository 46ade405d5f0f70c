package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/glowlabs/glowlabs/internal/messaging"
	"github.com/glowlabs/glowlabs/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	OffsetDayPrior  = "day"
	OffsetHourPrior = "hour"

	// Marker TTLs outlive the window they guard by an hour.
	dayMarkerTTL  = 25 * time.Hour
	hourMarkerTTL = 2 * time.Hour
)

type AppointmentLister interface {
	ListAll(ctx context.Context) ([]models.Appointment, error)
}

// ReminderScheduler sends at most one day-prior and one hour-prior text per
// appointment. A match is minute-granularity equality between "now" and the
// appointment moment minus the offset, both rendered through the same layout,
// exactly as a once-per-minute tick expects. Redis markers make a repeated
// tick at the matching minute a no-op.
type ReminderScheduler struct {
	appointments AppointmentLister
	markers      ReminderMarkers
	messenger    messaging.Messenger
	fromNumber   string
	interval     time.Duration
	now          func() time.Time
	logger       *logrus.Logger
}

func NewReminderScheduler(
	appointments AppointmentLister,
	markers ReminderMarkers,
	messenger messaging.Messenger,
	fromNumber string,
	interval time.Duration,
	logger *logrus.Logger,
) *ReminderScheduler {
	return &ReminderScheduler{
		appointments: appointments,
		markers:      markers,
		messenger:    messenger,
		fromNumber:   fromNumber,
		interval:     interval,
		now:          time.Now,
		logger:       logger,
	}
}

// Run executes ticks until the context is cancelled. Ticks are processed
// synchronously, so a slow tick delays the next one rather than overlapping it.
func (s *ReminderScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.WithField("interval", s.interval.String()).Info("Reminder scheduler started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reminder scheduler stopping")
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				// Store failure aborts the tick; the next tick retries.
				s.logger.WithError(err).Error("Reminder tick aborted")
			}
		}
	}
}

// Tick loads all appointments and dispatches reminders for the matching
// window. Day-prior matches take the whole tick: hour-prior matches are only
// considered when no day-prior match exists.
func (s *ReminderScheduler) Tick(ctx context.Context) error {
	now := s.now().Format(models.StartLayout)

	appointments, err := s.appointments.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load appointments: %w", err)
	}

	var dayPrior, hourPrior []models.Appointment
	for _, a := range appointments {
		start, err := a.StartAt()
		if err != nil {
			s.logger.WithField("appointment_id", a.ID).WithError(err).Warn("Skipping appointment with unparseable start")
			continue
		}

		switch now {
		case start.Add(-24 * time.Hour).Format(models.StartLayout):
			dayPrior = append(dayPrior, a)
		case start.Add(-time.Hour).Format(models.StartLayout):
			hourPrior = append(hourPrior, a)
		}
	}

	if len(dayPrior) > 0 {
		s.dispatch(ctx, dayPrior, OffsetDayPrior, dayMarkerTTL)
		return nil
	}
	if len(hourPrior) > 0 {
		s.dispatch(ctx, hourPrior, OffsetHourPrior, hourMarkerTTL)
	}
	return nil
}

// dispatch sends one message per appointment. A single send failure is logged
// and does not abort the rest of the batch; no in-tick retry.
func (s *ReminderScheduler) dispatch(ctx context.Context, appointments []models.Appointment, offset string, markerTTL time.Duration) {
	for _, a := range appointments {
		logger := s.logger.WithFields(logrus.Fields{
			"appointment_id": a.ID,
			"offset":         offset,
		})

		sent, err := s.markers.AlreadySent(ctx, a.ID, offset)
		if err != nil {
			logger.WithError(err).Warn("Failed to check reminder marker, sending anyway")
		} else if sent {
			logger.Debug("Reminder already sent, skipping")
			continue
		}

		to, err := messaging.NormalizePhone(a.Client.PhoneNumber)
		if err != nil {
			logger.WithError(err).Error("Skipping reminder for unusable phone number")
			continue
		}

		var body string
		if offset == OffsetDayPrior {
			body = dayPriorBody(&a)
		} else {
			body = hourPriorBody(&a)
		}

		sid, err := s.messenger.Send(ctx, to, s.fromNumber, body)
		if err != nil {
			logger.WithError(err).Error("Failed to send reminder")
			continue
		}

		if err := s.markers.MarkSent(ctx, a.ID, offset, markerTTL); err != nil {
			logger.WithError(err).Warn("Failed to record reminder marker")
		}

		logger.WithField("delivery_id", sid).Info("Reminder sent")
	}
}

func dayPriorBody(a *models.Appointment) string {
	msg := fmt.Sprintf(
		"Hi, %s! This is a reminder for your Glow Labs appointment tomorrow, %s at %s. ",
		displayName(a.Client.FirstName),
		prettyDate(a.Date),
		a.StartTime+" "+a.Period,
	)
	if !a.Confirmed {
		return msg + "Reply Y to Confirm."
	}
	return msg + "See you then!"
}

func hourPriorBody(a *models.Appointment) string {
	msg := fmt.Sprintf(
		"Hi, %s! We look forward to seeing you at your Glow Labs appointment today at %s. ",
		displayName(a.Client.FirstName),
		a.StartTime+" "+a.Period,
	)
	if !a.Confirmed {
		return msg + "Reply Y to Confirm."
	}
	return msg + "Have a great day!"
}

func displayName(first string) string {
	if first == "" {
		return "there"
	}
	r, size := utf8.DecodeRuneInString(first)
	return string(unicode.ToUpper(r)) + strings.ToLower(first[size:])
}

// prettyDate renders "June 2, 2024" as "Sunday, June 2nd, 2024". On parse
// failure the stored date is used as-is.
func prettyDate(date string) string {
	t, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("Monday, January ") + ordinal(t.Day()) + t.Format(", 2006")
}

func ordinal(day int) string {
	suffix := "th"
	switch {
	case day%100 >= 11 && day%100 <= 13:
	case day%10 == 1:
		suffix = "st"
	case day%10 == 2:
		suffix = "nd"
	case day%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", day, suffix)
}
