package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Valerijkk/defect-tracker-lite/internal/observability"
)

// Snapshot is the full exported state of the tracker at one instant.
type Snapshot struct {
	TakenAt  time.Time         `json:"taken_at"`
	Users    []json.RawMessage `json:"users"`
	Projects []json.RawMessage `json:"projects"`
	Defects  []json.RawMessage `json:"defects"`
}

type Source interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Exporter periodically dumps a snapshot to a timestamped file so operators
// can restore state without touching the live database.
type Exporter struct {
	dir      string
	interval time.Duration
	src      Source
	obs      *observability.Prom
	log      *slog.Logger
}

func NewExporter(dir string, interval time.Duration, src Source, obs *observability.Prom, log *slog.Logger) *Exporter {
	return &Exporter{
		dir:      dir,
		interval: interval,
		src:      src,
		obs:      obs,
		log:      log,
	}
}

// Run exports once at startup and then on every tick until the context is
// cancelled. A failed export is logged and retried next tick, never fatal.
func (e *Exporter) Run(ctx context.Context) {
	e.exportAndLog(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("backup exporter stopping")
			return

		case <-ticker.C:
			e.exportAndLog(ctx)
		}
	}
}

func (e *Exporter) exportAndLog(ctx context.Context) {
	start := time.Now()
	path, err := e.Export(ctx)

	if err != nil {
		if e.obs != nil {
			e.obs.BackupsTotal.WithLabelValues("failed").Inc()
		}
		e.log.Error("backup failed", "err", err)
		return
	}

	if e.obs != nil {
		e.obs.BackupsTotal.WithLabelValues("ok").Inc()
		e.obs.BackupDuration.Observe(time.Since(start).Seconds())
	}
	e.log.Info("backup created", "path", path)
}

// Export writes one snapshot file and returns its path.
func (e *Exporter) Export(ctx context.Context) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", err
	}

	snap, err := e.src.Snapshot(ctx)

	if err != nil {
		return "", err
	}

	path := filepath.Join(e.dir, FileName(snap.TakenAt))

	data, err := json.MarshalIndent(snap, "", "  ")

	if err != nil {
		return "", err
	}

	// write to a temp name first so a crash never leaves a half backup
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", err
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}

	return path, nil
}

func FileName(ts time.Time) string {
	return fmt.Sprintf("app-%s.json", ts.UTC().Format("20060102-150405"))
}
