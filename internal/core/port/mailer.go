package port

import "context"

// Mailer delivers verification codes. Implementations are opaque beyond this
// contract; a nil error means the message was accepted for delivery.
type Mailer interface {
	Send(ctx context.Context, email, code string) error
}
