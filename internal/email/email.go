package email

import (
	"context"
	"encoding/json"

	"github.com/Domenick1991/slotbooking/internal/kafka"
	"go.uber.org/zap"
)

// Sender delivers reservation notices. Delivery is a structured log line; the
// recipient comes from the subject details captured at confirmation.
type Sender struct {
	logger *zap.Logger
}

func NewSender(logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{logger: logger}
}

type contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Recipient extracts an email address or phone number from subject details.
func Recipient(details json.RawMessage) string {
	if len(details) == 0 {
		return ""
	}
	var c contact
	if err := json.Unmarshal(details, &c); err != nil {
		return ""
	}
	if c.Email != "" {
		return c.Email
	}
	return c.Phone
}

func (s *Sender) Send(ctx context.Context, event kafka.ReservationEvent) error {
	to := Recipient(event.SubjectDetails)
	if to == "" {
		s.logger.Info("no contact for reservation notice",
			zap.String("reservation_id", event.ReservationID),
			zap.String("type", event.Type))
		return nil
	}

	s.logger.Info("reservation notice sent",
		zap.String("to", to),
		zap.String("type", event.Type),
		zap.String("reservation_id", event.ReservationID),
		zap.String("resource", event.ResourceIdentifier),
		zap.Time("start_time", event.StartTime))
	return ctx.Err()
}
