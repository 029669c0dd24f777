package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twilio/twilio-go"
	twilioclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Carrier error codes that indicate the destination itself is bad:
// 21211 invalid 'To' number, 21408 permission not enabled for region,
// 21610 recipient unsubscribed, 21614 'To' is not a mobile number.
var permanentErrorCodes = map[int]bool{
	21211: true,
	21408: true,
	21610: true,
	21614: true,
}

// TwilioConfig holds carrier credentials
type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string
	Timeout    time.Duration
}

// messageCreator is the slice of the Twilio SDK the sender drives.
type messageCreator interface {
	CreateMessage(params *openapi.CreateMessageParams) (*openapi.ApiV2010Message, error)
}

// TwilioSender sends SMS through the Twilio Messages API.
type TwilioSender struct {
	config *TwilioConfig
	api    messageCreator
	logger *slog.Logger
}

// NewTwilioSender creates a new TwilioSender instance
func NewTwilioSender(config *TwilioConfig, logger *slog.Logger) *TwilioSender {
	restClient := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: config.AccountSID,
		Password: config.AuthToken,
	})

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	restClient.Client.SetTimeout(timeout)

	return &TwilioSender{
		config: config,
		api:    restClient.Api,
		logger: logger,
	}
}

// Send posts one message to the carrier and returns the provider message
// id. Carrier rejections come back as *SendError with the permanence
// classification applied; transport errors are returned as-is.
func (s *TwilioSender) Send(ctx context.Context, to, body string) (string, error) {
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.config.FromNumber)
	params.SetBody(body)

	msg, err := s.api.CreateMessage(params)
	if err != nil {
		var restErr *twilioclient.TwilioRestError
		if errors.As(err, &restErr) {
			return "", &SendError{
				Code:      restErr.Code,
				Message:   restErr.Message,
				Permanent: permanentErrorCodes[restErr.Code],
			}
		}
		return "", fmt.Errorf("carrier request failed: %w", err)
	}

	sid := ""
	if msg.Sid != nil {
		sid = *msg.Sid
	}

	s.logger.Debug("Carrier accepted message",
		slog.String("sid", sid),
		slog.String("to", to),
	)

	return sid, nil
}
