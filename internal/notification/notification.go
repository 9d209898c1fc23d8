package notification

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	// KindOtpSms indicates a one-time code delivered over SMS.
	KindOtpSms = "otp_sms"
	// KindOtpEmail indicates a one-time code delivered over email.
	KindOtpEmail = "otp_email"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	Destination string
	Body        string
}

// Notifier delivers notifications to downstream systems. Delivery is
// fire-and-forget from the caller's perspective; the implementation owns
// any retry policy.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// SendOtpSms dispatches a one-time code to a phone number.
func SendOtpSms(ctx context.Context, n Notifier, phone, code string) error {
	return n.Send(ctx, Message{
		Kind:        KindOtpSms,
		Destination: phone,
		Body:        fmt.Sprintf("Your Mandi verification code is %s", code),
	})
}

// SendOtpEmail dispatches a one-time code to an email address.
func SendOtpEmail(ctx context.Context, n Notifier, email, code string) error {
	return n.Send(ctx, Message{
		Kind:        KindOtpEmail,
		Destination: email,
		Body:        fmt.Sprintf("Your Mandi verification code is %s", code),
	})
}

// LoggerNotifier is a stub implementation that writes notifications to the
// logger. The code itself is never logged.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier stub.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message metadata to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification dispatched", "kind", message.Kind, "destination", message.Destination)
	return nil
}
