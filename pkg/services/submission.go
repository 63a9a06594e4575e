package services

import (
	"context"
	"fmt"

	"github.com/spidr/estimate-form/pkg/models"
)

// ProcessSubmission applies a complete form post to the session, field by
// field in form order, then submits it
func ProcessSubmission(ctx context.Context, session *Session, raw models.RawSubmission) (models.SubmittedRecord, error) {
	for _, kv := range raw.Values() {
		if err := session.Change(kv[0], kv[1]); err != nil {
			return models.SubmittedRecord{}, fmt.Errorf("error applying %s: %w", kv[0], err)
		}
	}
	return session.Submit(ctx)
}
