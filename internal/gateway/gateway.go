package gateway

import (
	"context"
	"errors"
	"fmt"
)

// Sender is the outbound carrier capability: send a text message to an
// E.164 phone number and get back the provider's message id.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// SendError is a delivery rejection reported by the carrier. Permanent
// rejections (invalid number, recipient opted out) must not be retried;
// everything else is treated as transient and retried up to the cap.
type SendError struct {
	Code      int
	Message   string
	Permanent bool
}

func (e *SendError) Error() string {
	return fmt.Sprintf("carrier rejected message (code %d): %s", e.Code, e.Message)
}

// IsPermanent reports whether err is a carrier rejection that retrying
// can never fix.
func IsPermanent(err error) bool {
	var sendErr *SendError
	return errors.As(err, &sendErr) && sendErr.Permanent
}
