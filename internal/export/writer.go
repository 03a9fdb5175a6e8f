package export

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"zenexport/internal/clock"
	"zenexport/internal/db"
	"zenexport/internal/domain"
)

// Writer serializes the enriched records of window w to path, replacing any
// existing file.
type Writer interface {
	Write(ctx context.Context, path string, w domain.TimeWindow, logs []domain.AccessLog) error
}

// NewWriter returns the Writer for f. clk stamps SQLite exports.
func NewWriter(f Format, clk clock.Clock) (Writer, error) {
	switch f {
	case FormatCSV:
		return CSVWriter{}, nil
	case FormatJSON:
		return JSONWriter{}, nil
	case FormatSQLite:
		if clk == nil {
			clk = clock.Real{}
		}
		return SQLiteWriter{Clock: clk}, nil
	default:
		return nil, domain.ErrValidation("unsupported format %q: use csv, json or sqlite", string(f))
	}
}

// CSVWriter writes a header row followed by one row per record.
type CSVWriter struct{}

// Write implements Writer.
func (CSVWriter) Write(_ context.Context, path string, _ domain.TimeWindow, logs []domain.AccessLog) error {
	return writeFileAtomic(path, func(out io.Writer) error {
		cw := csv.NewWriter(out)
		if err := cw.Write(domain.AccessLogHeader); err != nil {
			return err
		}
		for _, l := range logs {
			if err := cw.Write(l.CSVRow()); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// JSONWriter writes the records as an array indented by two spaces.
type JSONWriter struct{}

// Write implements Writer.
func (JSONWriter) Write(_ context.Context, path string, _ domain.TimeWindow, logs []domain.AccessLog) error {
	if logs == nil {
		logs = []domain.AccessLog{}
	}
	return writeFileAtomic(path, func(out io.Writer) error {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(logs)
	})
}

// SQLiteWriter writes the records into a fresh SQLite database file.
type SQLiteWriter struct {
	Clock clock.Clock
}

// Write implements Writer.
func (s SQLiteWriter) Write(ctx context.Context, path string, w domain.TimeWindow, logs []domain.AccessLog) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	conn, err := db.OpenSQLite(ctx, tmpPath)
	if err != nil {
		return err
	}
	if err := db.RunMigrations(ctx, conn); err != nil {
		_ = conn.Close()
		return err
	}
	now := time.Now().UTC()
	if s.Clock != nil {
		now = s.Clock.Now()
	}
	if err := db.SaveExport(ctx, conn, w, logs, now); err != nil {
		_ = conn.Close()
		return err
	}
	if err := conn.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmpPath, err)
	}
	return nil
}

// writeFileAtomic writes to a temp file next to path and renames it over
// path, so readers see either the old file or the complete new one.
func writeFileAtomic(path string, write func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	buf := bufio.NewWriter(tmp)
	if err = write(buf); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = buf.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmpPath, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err = os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpPath, err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmpPath, err)
	}
	return nil
}
