package adapters

import (
	"context"
	"log/slog"

	"placet/internal/release"
)

// LogDeliverer acknowledges delivery by logging the approved payload. It
// stands in for the SMTP/Graph transport, which lives outside this service.
type LogDeliverer struct {
	logger *slog.Logger
}

func NewLogDeliverer(logger *slog.Logger) *LogDeliverer {
	return &LogDeliverer{logger: logger}
}

func (d *LogDeliverer) Deliver(ctx context.Context, payload release.EmailPayload) (string, error) {
	d.logger.InfoContext(ctx, "payload handed to delivery",
		"to", payload.To,
		"subject", payload.Subject,
		"attachments", len(payload.Attachments),
	)
	return "accepted", nil
}
