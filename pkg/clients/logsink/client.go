package logsink

import (
	"context"

	"go.uber.org/zap"

	"github.com/spidr/estimate-form/pkg/models"
)

// Message is the log message every submission is written under
const Message = "Submitted Form Data"

// Client defines the interface for the submission log sink
type Client interface {
	Record(ctx context.Context, record models.SubmittedRecord) error
}

type clientImpl struct {
	logger *zap.Logger
}

// NewClient creates a sink that writes each submission as one structured
// zap entry on a logger named "submission"
func NewClient(logger *zap.Logger) Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &clientImpl{
		logger: logger.Named("submission"),
	}
}

// Record writes the entry even when ctx is already done
func (c *clientImpl) Record(ctx context.Context, record models.SubmittedRecord) error {
	c.logger.Info(Message,
		zap.String(models.FieldFirstName, record.FirstName),
		zap.String(models.FieldLastName, record.LastName),
		zap.String(models.FieldContact, record.Contact),
		zap.String(models.FieldEmail, record.Email),
		zap.String(models.FieldEstimate, record.Estimate),
		zap.String(models.FieldSpidrPin, record.SpidrPin),
	)
	return nil
}
