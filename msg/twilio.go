package msg

import (
	"errors"

	"github.com/kevinburke/twilio-go"
)

// Twilio can be used to send alerts through Twilio
type Twilio struct {
	twilioClient *twilio.Client
	smsFrom      string
	smsTo        []string
}

// NewTwilio creates a new messenger object that texts every number in
// smsTo.
func NewTwilio(twilioSid, twilioAuth, smsFrom string, smsTo []string) *Twilio {
	return &Twilio{
		twilioClient: twilio.NewClient(twilioSid, twilioAuth, nil),
		smsFrom:      smsFrom,
		smsTo:        smsTo,
	}
}

// Notify sends the alert as a sms message. Delivery continues past
// individual failures; the last error is returned.
func (m *Twilio) Notify(_, message string) error {
	if m.twilioClient == nil {
		return errors.New("Twilio not set up")
	}

	var lastErr error
	for _, to := range m.smsTo {
		ret, err := m.twilioClient.Messages.SendMessage(m.smsFrom, to, message, nil)
		if err != nil {
			lastErr = err
			continue
		}

		if ret.ErrorCode != 0 {
			lastErr = errors.New(ret.ErrorMessage)
		}
	}

	return lastErr
}
