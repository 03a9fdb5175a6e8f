package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"zenexport/internal/domain"
)

const insertAccessLog = `INSERT INTO access_logs
	(id, timestamp, user_id, user_name, user_email, ip_address, method, url, status, raw)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const insertExportWindow = `INSERT INTO export_window
	(window_start, window_end, records, exported_at) VALUES (?, ?, ?, ?)`

// SaveExport stores logs in API order together with the window they cover,
// in one transaction.
func SaveExport(ctx context.Context, db *sql.DB, w domain.TimeWindow, logs []domain.AccessLog, exportedAt time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, insertAccessLog)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close() //nolint:errcheck

	for _, l := range logs {
		raw, err := json.Marshal(l)
		if err != nil {
			return fmt.Errorf("encode access log %s: %w", l.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			l.ID, l.Timestamp, l.UserID, l.MappedUser.Name, l.MappedUser.Email,
			l.IPAddress, l.Method, l.URL, l.Status, string(raw),
		); err != nil {
			return fmt.Errorf("insert access log %s: %w", l.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, insertExportWindow,
		w.StartString(), w.EndString(), len(logs), exportedAt.UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("insert export window: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
