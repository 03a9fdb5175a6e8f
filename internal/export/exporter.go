package export

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"zenexport/internal/clock"
	"zenexport/internal/domain"
	"zenexport/internal/logging"
)

// UserResolver builds the user directory for a set of roles.
type UserResolver interface {
	ResolveUsers(ctx context.Context, roles []string) (*domain.Directory, error)
}

// AccessLogSource lists the access logs of a window.
type AccessLogSource interface {
	FetchAccessLogs(ctx context.Context, w domain.TimeWindow) ([]domain.AccessLog, error)
}

// Uploader mirrors a finished export file and returns where it was stored.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// Recorder is told the outcome of every export.
type Recorder interface {
	ObserveExport(format string, records int, err error)
}

// Options configures an Exporter.
type Options struct {
	OutDir string
	Format Format

	// Writer overrides the writer chosen by Format.
	Writer   Writer
	Uploader Uploader
	Recorder Recorder
	Logger   *slog.Logger
	Clock    clock.Clock
}

// Exporter writes one file per time window.
type Exporter struct {
	users    UserResolver
	logs     AccessLogSource
	outDir   string
	format   Format
	writer   Writer
	uploader Uploader
	recorder Recorder
	logger   *slog.Logger
}

// NewExporter creates an Exporter. Format defaults to CSV and OutDir to the
// working directory.
func NewExporter(users UserResolver, logs AccessLogSource, opts Options) (*Exporter, error) {
	format := opts.Format
	if format == "" {
		format = FormatCSV
	}
	writer := opts.Writer
	if writer == nil {
		w, err := NewWriter(format, opts.Clock)
		if err != nil {
			return nil, err
		}
		writer = w
	}
	outDir := opts.OutDir
	if outDir == "" {
		outDir = "."
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		users:    users,
		logs:     logs,
		outDir:   outDir,
		format:   format,
		writer:   writer,
		uploader: opts.Uploader,
		recorder: opts.Recorder,
		logger:   logger,
	}, nil
}

// ExportWindow resolves the admin and agent directory, fetches every access
// log in w, attaches each log's user identity and writes the result. It
// returns the path of the written file.
func (e *Exporter) ExportWindow(ctx context.Context, w domain.TimeWindow) (string, error) {
	path, records, err := e.export(ctx, w)
	if e.recorder != nil {
		e.recorder.ObserveExport(string(e.format), records, err)
	}
	return path, err
}

func (e *Exporter) export(ctx context.Context, w domain.TimeWindow) (string, int, error) {
	logger := logging.FromContext(ctx, e.logger)

	dir, err := e.users.ResolveUsers(ctx, domain.ExportRoles)
	if err != nil {
		return "", 0, err
	}
	logs, err := e.logs.FetchAccessLogs(ctx, w)
	if err != nil {
		return "", 0, err
	}
	for i := range logs {
		logs[i].Enrich(dir)
	}

	path := filepath.Join(e.outDir, FileName(w, e.format))
	if err := e.writer.Write(ctx, path, w, logs); err != nil {
		return "", 0, fmt.Errorf("write export: %w", err)
	}
	logging.Success(ctx, logger, "Data exported to "+path, "records", len(logs), "users", dir.Len())

	if e.uploader != nil {
		location, err := e.uploader.Upload(ctx, path)
		if err != nil {
			logger.Warn(fmt.Sprintf("Error: upload failed: %v", err), "path", path)
		} else {
			logger.Info("Mirrored export to "+location, "path", path)
		}
	}
	return path, len(logs), nil
}
