package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/glowlabs/glowlabs/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	appointments []models.Appointment
	err          error
}

func (l *fakeLister) ListAll(ctx context.Context) ([]models.Appointment, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.appointments, nil
}

type fakeMarkers struct {
	sent     map[string]bool
	checkErr error
	markErr  error
}

func newFakeMarkers() *fakeMarkers {
	return &fakeMarkers{sent: make(map[string]bool)}
}

func (m *fakeMarkers) AlreadySent(ctx context.Context, appointmentID, offset string) (bool, error) {
	if m.checkErr != nil {
		return false, m.checkErr
	}
	return m.sent[offset+":"+appointmentID], nil
}

func (m *fakeMarkers) MarkSent(ctx context.Context, appointmentID, offset string, ttl time.Duration) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.sent[offset+":"+appointmentID] = true
	return nil
}

type sentMessage struct {
	To   string
	Body string
}

type fakeMessenger struct {
	sent    []sentMessage
	failFor map[string]error
}

func (m *fakeMessenger) Send(ctx context.Context, to, from, body string) (string, error) {
	if err, ok := m.failFor[to]; ok {
		return "", err
	}
	m.sent = append(m.sent, sentMessage{To: to, Body: body})
	return "SM123", nil
}

func newTestScheduler(lister *fakeLister, markers ReminderMarkers, messenger *fakeMessenger, now time.Time) *ReminderScheduler {
	s := NewReminderScheduler(lister, markers, messenger, "+15550000000", time.Minute, testLogger())
	s.now = func() time.Time { return now }
	return s
}

func testAppointment(id, firstName, phone string, start time.Time, confirmed bool) models.Appointment {
	return models.Appointment{
		ID: id,
		Client: models.AppointmentClient{
			ID:          "client-" + id,
			FirstName:   firstName,
			PhoneNumber: phone,
		},
		Date:      start.Format(models.DateLayout),
		StartTime: start.Format("3:04"),
		Period:    start.Format("PM"),
		Confirmed: confirmed,
	}
}

func TestTickSendsDayPriorReminder(t *testing.T) {
	start := time.Date(2024, time.June, 2, 15, 0, 0, 0, time.Local)
	lister := &fakeLister{appointments: []models.Appointment{
		testAppointment("appt-1", "jane", "+15551234567", start, false),
	}}
	markers := newFakeMarkers()
	messenger := &fakeMessenger{}
	s := newTestScheduler(lister, markers, messenger, start.Add(-24*time.Hour))

	require.NoError(t, s.Tick(context.Background()))

	require.Len(t, messenger.sent, 1)
	assert.Equal(t, "+15551234567", messenger.sent[0].To)
	assert.Contains(t, messenger.sent[0].Body, "Hi, Jane!")
	assert.Contains(t, messenger.sent[0].Body, "tomorrow, Sunday, June 2nd, 2024 at 3:00 PM")
	assert.Contains(t, messenger.sent[0].Body, "Reply Y to Confirm.")
	assert.True(t, markers.sent["day:appt-1"])
}

func TestTickSendsHourPriorReminder(t *testing.T) {
	start := time.Date(2024, time.June, 2, 15, 0, 0, 0, time.Local)
	lister := &fakeLister{appointments: []models.Appointment{
		testAppointment("appt-1", "jane", "+15551234567", start, true),
	}}
	markers := newFakeMarkers()
	messenger := &fakeMessenger{}
	s := newTestScheduler(lister, markers, messenger, start.Add(-time.Hour))

	require.NoError(t, s.Tick(context.Background()))

	require.Len(t, messenger.sent, 1)
	assert.Contains(t, messenger.sent[0].Body, "today at 3:00 PM")
	assert.Contains(t, messenger.sent[0].Body, "Have a great day!")
	assert.NotContains(t, messenger.sent[0].Body, "Reply Y")
	assert.True(t, markers.sent["hour:appt-1"])
}

func TestTickNoMatchSendsNothing(t *testing.T) {
	start := time.Date(2024, time.June, 2, 15, 0, 0, 0, time.Local)
	lister := &fakeLister{appointments: []models.Appointment{
		testAppointment("appt-1", "jane", "+15551234567", start, false),
	}}
	messenger := &fakeMessenger{}
	s := newTestScheduler(lister, newFakeMarkers(), messenger, start.Add(-3*time.Hour))

	require.NoError(t, s.Tick(context.Background()))
	assert.Empty(t, messenger.sent)
}

func TestTickIsIdempotentAcrossRepeats(t *testing.T) {
	start := time.Date(2024, time.June, 2, 15, 0, 0, 0, time.Local)
	lister := &fakeLister{appointments: []models.Appointment{
		testAppointment("appt-1", "jane", "+15551234567", start, false),
	}}
	markers := newFakeMarkers()
	messenger := &fakeMessenger{}
	s := newTestScheduler(lister, markers, messenger, start.Add(-24*time.Hour))

	require.NoError(t, s.Tick(context.Background()))
	require.NoError(t, s.Tick(context.Background()))

	assert.Len(t, messenger.sent, 1, "a repeated tick at the matching minute must not double-send")
}

func TestTickDayPriorPreemptsHourPrior(t *testing.T) {
	now := time.Date(2024, time.June, 1, 15, 0, 0, 0, time.Local)
	lister := &fakeLister{appointments: []models.Appointment{
		testAppointment("appt-day", "jane", "+15551234567", now.Add(24*time.Hour), false),
		testAppointment("appt-hour", "mary", "+15557654321", now.Add(time.Hour), false),
	}}
	markers := newFakeMarkers()
	messenger := &fakeMessenger{}
	s := newTestScheduler(lister, markers, messenger, now)

	require.NoError(t, s.Tick(context.Background()))

	require.Len(t, messenger.sent, 1)
	assert.Equal(t, "+15551234567", messenger.sent[0].To)
	assert.False(t, markers.sent["hour:appt-hour"], "hour-prior reminders wait out a day-prior tick")
}

func TestTickSendFailureDoesNotAbortBatch(t *testing.T) {
	start := time.Date(2024, time.June, 2, 15, 0, 0, 0, time.Local)
	lister := &fakeLister{appointments: []models.Appointment{
		testAppointment("appt-1", "jane", "+15551234567", start, false),
		testAppointment("appt-2", "mary", "+15557654321", start, false),
	}}
	markers := newFakeMarkers()
	messenger := &fakeMessenger{failFor: map[string]error{
		"+15551234567": errors.New("carrier rejected"),
	}}
	s := newTestScheduler(lister, markers, messenger, start.Add(-24*time.Hour))

	require.NoError(t, s.Tick(context.Background()))

	require.Len(t, messenger.sent, 1)
	assert.Equal(t, "+15557654321", messenger.sent[0].To)
	assert.False(t, markers.sent["day:appt-1"], "a failed send must leave no marker")
	assert.True(t, markers.sent["day:appt-2"])
}

func TestTickMarkerCheckFailureSendsAnyway(t *testing.T) {
	start := time.Date(2024, time.June, 2, 15, 0, 0, 0, time.Local)
	lister := &fakeLister{appointments: []models.Appointment{
		testAppointment("appt-1", "jane", "+15551234567", start, false),
	}}
	markers := newFakeMarkers()
	markers.checkErr = errors.New("redis down")
	messenger := &fakeMessenger{}
	s := newTestScheduler(lister, markers, messenger, start.Add(-24*time.Hour))

	require.NoError(t, s.Tick(context.Background()))
	assert.Len(t, messenger.sent, 1)
}

func TestTickListFailureAborts(t *testing.T) {
	lister := &fakeLister{err: errors.New("table offline")}
	messenger := &fakeMessenger{}
	s := newTestScheduler(lister, newFakeMarkers(), messenger, time.Now())

	err := s.Tick(context.Background())
	assert.Error(t, err)
	assert.Empty(t, messenger.sent)
}

func TestTickSkipsUnusablePhoneNumber(t *testing.T) {
	start := time.Date(2024, time.June, 2, 15, 0, 0, 0, time.Local)
	lister := &fakeLister{appointments: []models.Appointment{
		testAppointment("appt-1", "jane", "12", start, false),
		testAppointment("appt-2", "mary", "+15557654321", start, false),
	}}
	messenger := &fakeMessenger{}
	s := newTestScheduler(lister, newFakeMarkers(), messenger, start.Add(-24*time.Hour))

	require.NoError(t, s.Tick(context.Background()))
	require.Len(t, messenger.sent, 1)
	assert.Equal(t, "+15557654321", messenger.sent[0].To)
}

func TestReminderBodies(t *testing.T) {
	appt := testAppointment("appt-1", "jane", "+15551234567",
		time.Date(2024, time.June, 2, 15, 0, 0, 0, time.Local), false)

	day := dayPriorBody(&appt)
	assert.Equal(t,
		"Hi, Jane! This is a reminder for your Glow Labs appointment tomorrow, "+
			"Sunday, June 2nd, 2024 at 3:00 PM. Reply Y to Confirm.", day)

	appt.Confirmed = true
	assert.True(t, strings.HasSuffix(dayPriorBody(&appt), "See you then!"))

	hour := hourPriorBody(&appt)
	assert.Equal(t,
		"Hi, Jane! We look forward to seeing you at your Glow Labs appointment "+
			"today at 3:00 PM. Have a great day!", hour)
}

func TestDisplayNameCapitalizesFirstRune(t *testing.T) {
	assert.Equal(t, "Jane", displayName("jane"))
	assert.Equal(t, "Jane", displayName("JANE"))
	assert.Equal(t, "Élodie", displayName("élodie"))
	assert.Equal(t, "Ólafur", displayName("ólafur"))
	assert.Equal(t, "there", displayName(""))
}

func TestOrdinalSuffixes(t *testing.T) {
	cases := map[int]string{
		1: "1st", 2: "2nd", 3: "3rd", 4: "4th",
		11: "11th", 12: "12th", 13: "13th",
		21: "21st", 22: "22nd", 23: "23rd", 31: "31st",
	}
	for day, want := range cases {
		assert.Equal(t, want, ordinal(day))
	}
}
