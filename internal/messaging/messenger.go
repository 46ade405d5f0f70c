package messaging

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Messenger sends one outbound text message and returns the provider's
// delivery id.
type Messenger interface {
	Send(ctx context.Context, to, from, body string) (string, error)
}

// TwilioMessenger sends SMS through the Twilio REST API.
type TwilioMessenger struct {
	client *twilio.RestClient
	logger *logrus.Logger
}

func NewTwilioMessenger(accountSID, authToken string, logger *logrus.Logger) *TwilioMessenger {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioMessenger{client: client, logger: logger}
}

func (m *TwilioMessenger) Send(ctx context.Context, to, from, body string) (string, error) {
	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(from)
	params.SetBody(body)

	resp, err := m.client.Api.CreateMessage(params)
	if err != nil {
		m.logger.WithError(err).WithField("to", to).Error("Failed to send text message")
		return "", err
	}

	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	return sid, nil
}
