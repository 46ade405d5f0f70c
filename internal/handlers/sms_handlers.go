package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/glowlabs/glowlabs/internal/messaging"
	"github.com/glowlabs/glowlabs/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go/twiml"
)

type AppointmentBook interface {
	ListAll(ctx context.Context) ([]models.Appointment, error)
	SetConfirmed(ctx context.Context, id string, confirmed bool) error
}

// SMSHandlers receives confirmation replies from the message provider's
// inbound webhook.
type SMSHandlers struct {
	appointments AppointmentBook
	now          func() time.Time
	logger       *logrus.Logger
}

func NewSMSHandlers(appointments AppointmentBook, logger *logrus.Logger) *SMSHandlers {
	return &SMSHandlers{
		appointments: appointments,
		now:          time.Now,
		logger:       logger,
	}
}

// SMSResponse matches the sender to their upcoming unconfirmed appointments
// and, on an affirmative reply, confirms them all. The reply acknowledgment
// is singular or plural to match; anything else, or no match, gets no reply.
func (h *SMSHandlers) SMSResponse(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("From")
	body := strings.TrimSpace(r.URL.Query().Get("Body"))

	if !isAffirmative(body) {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	sender, err := messaging.NormalizePhone(from)
	if err != nil {
		h.logger.WithField("from", from).Debug("Inbound message from unparseable number")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	appointments, err := h.appointments.ListAll(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to load appointments for confirmation")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	now := h.now()
	confirmed := 0
	for _, a := range appointments {
		clientPhone, err := messaging.NormalizePhone(a.Client.PhoneNumber)
		if err != nil || clientPhone != sender {
			continue
		}

		start, err := a.StartAt()
		if err != nil || !start.After(now) {
			continue
		}

		if a.Confirmed {
			// Already confirmed appointments are left alone.
			continue
		}

		if err := h.appointments.SetConfirmed(r.Context(), a.ID, true); err != nil {
			h.logger.WithError(err).WithField("appointment_id", a.ID).Error("Failed to confirm appointment")
			continue
		}
		confirmed++
	}

	if confirmed == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	// Wording follows the count actually written, not the matched set: a
	// failed write on one of several matches leaves the reply singular.
	message := "Thank you, your appointment has been confirmed!"
	if confirmed > 1 {
		message = "Thank you, your appointments have been confirmed!"
	}

	out, err := twiml.Messages([]twiml.Element{&twiml.MessagingMessage{Body: message}})
	if err != nil {
		h.logger.WithError(err).Error("Failed to build reply")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(out))
}

func isAffirmative(body string) bool {
	return strings.EqualFold(body, "y") || strings.EqualFold(body, "yes")
}
