package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/tobyn/brandlens/internal/storage"
)

// ReportArchiver writes the full result document of a completed session to
// object storage as JSON, keyed by session ID.
type ReportArchiver struct {
	store storage.ObjectStorage
}

func NewReportArchiver(store storage.ObjectStorage) *ReportArchiver {
	return &ReportArchiver{store: store}
}

// Archive serializes and uploads a session report. The object key is stable
// so re-archiving a session overwrites the previous report.
func (a *ReportArchiver) Archive(ctx context.Context, result *TrackingResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	key := fmt.Sprintf("reports/%s.json", result.Session.ID)
	if err := a.store.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return fmt.Errorf("failed to archive report %s: %w", key, err)
	}
	return nil
}
