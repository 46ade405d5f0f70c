package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/glowlabs/glowlabs/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeAppointmentBook struct {
	appointments []models.Appointment
	listErr      error
	confirmed    []string
	confirmErr   map[string]error
}

func (b *fakeAppointmentBook) ListAll(ctx context.Context) ([]models.Appointment, error) {
	if b.listErr != nil {
		return nil, b.listErr
	}
	return b.appointments, nil
}

func (b *fakeAppointmentBook) SetConfirmed(ctx context.Context, id string, confirmed bool) error {
	if err, ok := b.confirmErr[id]; ok {
		return err
	}
	b.confirmed = append(b.confirmed, id)
	return nil
}

func smsAppointment(id, phone string, start time.Time, confirmed bool) models.Appointment {
	return models.Appointment{
		ID: id,
		Client: models.AppointmentClient{
			ID:          "client-" + id,
			FirstName:   "jane",
			PhoneNumber: phone,
		},
		Date:      start.Format(models.DateLayout),
		StartTime: start.Format("3:04"),
		Period:    start.Format("PM"),
		Confirmed: confirmed,
	}
}

func newSMSTestHandlers(book *fakeAppointmentBook, now time.Time) *SMSHandlers {
	h := NewSMSHandlers(book, testLogger())
	h.now = func() time.Time { return now }
	return h
}

func smsRequest(from, body string) *http.Request {
	q := url.Values{}
	q.Set("From", from)
	q.Set("Body", body)
	return httptest.NewRequest(http.MethodGet, "/smsresponse?"+q.Encode(), nil)
}

func TestSMSResponseConfirmsSingleAppointment(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.Local)
	book := &fakeAppointmentBook{appointments: []models.Appointment{
		smsAppointment("appt-1", "+15551234567", now.Add(24*time.Hour), false),
	}}
	h := newSMSTestHandlers(book, now)

	rec := httptest.NewRecorder()
	h.SMSResponse(rec, smsRequest("+15551234567", "Y"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<Response>")
	assert.Contains(t, rec.Body.String(),
		"<Message>Thank you, your appointment has been confirmed!</Message>")
	assert.Equal(t, []string{"appt-1"}, book.confirmed)
}

func TestSMSResponseConfirmsMultipleAppointmentsPlural(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.Local)
	book := &fakeAppointmentBook{appointments: []models.Appointment{
		smsAppointment("appt-1", "+15551234567", now.Add(24*time.Hour), false),
		smsAppointment("appt-2", "+15551234567", now.Add(48*time.Hour), false),
	}}
	h := newSMSTestHandlers(book, now)

	rec := httptest.NewRecorder()
	h.SMSResponse(rec, smsRequest("+15551234567", "yes"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(),
		"<Message>Thank you, your appointments have been confirmed!</Message>")
	assert.Len(t, book.confirmed, 2)
}

func TestSMSResponseIgnoresNonAffirmativeReply(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.Local)
	book := &fakeAppointmentBook{appointments: []models.Appointment{
		smsAppointment("appt-1", "+15551234567", now.Add(24*time.Hour), false),
	}}
	h := newSMSTestHandlers(book, now)

	rec := httptest.NewRecorder()
	h.SMSResponse(rec, smsRequest("+15551234567", "no thanks"))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, book.confirmed)
}

func TestSMSResponseSkipsPastAndConfirmedAppointments(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.Local)
	book := &fakeAppointmentBook{appointments: []models.Appointment{
		smsAppointment("appt-past", "+15551234567", now.Add(-24*time.Hour), false),
		smsAppointment("appt-done", "+15551234567", now.Add(24*time.Hour), true),
		smsAppointment("appt-open", "+15551234567", now.Add(48*time.Hour), false),
	}}
	h := newSMSTestHandlers(book, now)

	rec := httptest.NewRecorder()
	h.SMSResponse(rec, smsRequest("+15551234567", "Y"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "your appointment has been confirmed")
	assert.Equal(t, []string{"appt-open"}, book.confirmed)
}

func TestSMSResponseMatchesDifferentlyFormattedNumbers(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.Local)
	book := &fakeAppointmentBook{appointments: []models.Appointment{
		smsAppointment("appt-1", "(555) 123-4567", now.Add(24*time.Hour), false),
	}}
	h := newSMSTestHandlers(book, now)

	rec := httptest.NewRecorder()
	h.SMSResponse(rec, smsRequest("+15551234567", "Y"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"appt-1"}, book.confirmed)
}

func TestSMSResponseNoMatchingAppointment(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.Local)
	book := &fakeAppointmentBook{appointments: []models.Appointment{
		smsAppointment("appt-1", "+15559999999", now.Add(24*time.Hour), false),
	}}
	h := newSMSTestHandlers(book, now)

	rec := httptest.NewRecorder()
	h.SMSResponse(rec, smsRequest("+15551234567", "Y"))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestSMSResponseStoreFailure(t *testing.T) {
	book := &fakeAppointmentBook{listErr: errors.New("table offline")}
	h := newSMSTestHandlers(book, time.Now())

	rec := httptest.NewRecorder()
	h.SMSResponse(rec, smsRequest("+15551234567", "Y"))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSMSResponseConfirmFailureContinues(t *testing.T) {
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.Local)
	book := &fakeAppointmentBook{
		appointments: []models.Appointment{
			smsAppointment("appt-1", "+15551234567", now.Add(24*time.Hour), false),
			smsAppointment("appt-2", "+15551234567", now.Add(48*time.Hour), false),
		},
		confirmErr: map[string]error{"appt-1": errors.New("conditional check failed")},
	}
	h := newSMSTestHandlers(book, now)

	rec := httptest.NewRecorder()
	h.SMSResponse(rec, smsRequest("+15551234567", "Y"))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "your appointment has been confirmed",
		"the reply wording counts written confirmations, so a failed write keeps it singular")
	assert.Equal(t, []string{"appt-2"}, book.confirmed)
}
