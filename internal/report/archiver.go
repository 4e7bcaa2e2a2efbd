// Package report renders and archives periodic status reports.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/parityarb/paritybot/internal/domain"
	"github.com/parityarb/paritybot/internal/engine"
)

// Snapshot is the archived report payload: risk counters plus per-market
// positions at one point in time.
type Snapshot struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Risk        domain.RiskStatus `json:"risk"`
	Strategy    engine.State      `json:"strategy"`
}

// Archiver writes snapshots to blob storage under date-partitioned keys.
type Archiver struct {
	writer domain.ReportWriter
	prefix string
	logger *slog.Logger
}

// NewArchiver creates an Archiver writing under the given key prefix.
func NewArchiver(writer domain.ReportWriter, prefix string, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		prefix: prefix,
		logger: logger.With(slog.String("component", "report_archiver")),
	}
}

// Archive renders snap as JSON and uploads it. Keys look like
// {prefix}/2026/08/23/status-153000.json so daily reports group naturally.
func (a *Archiver) Archive(ctx context.Context, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal snapshot: %w", err)
	}

	key := fmt.Sprintf("%s/%s/status-%s.json",
		a.prefix,
		snap.GeneratedAt.UTC().Format("2006/01/02"),
		snap.GeneratedAt.UTC().Format("150405"),
	)

	if err := a.writer.Put(ctx, key, data, "application/json"); err != nil {
		return fmt.Errorf("report: archive %s: %w", key, err)
	}

	a.logger.Info("report archived", slog.String("key", key), slog.Int("bytes", len(data)))
	return nil
}
