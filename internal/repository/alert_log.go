package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	pkgch "QuantPulse/pkg/clickhouse"
)

const alertsTable = "quantpulse.drift_alerts"

// ClickHouseAlertLog stores drift alerts. Resolution uses a lightweight
// mutation; alert volume is low enough that this stays cheap.
type ClickHouseAlertLog struct {
	db *sql.DB
}

func NewClickHouseAlertLog(ch *pkgch.Client) domrepo.AlertLog {
	return &ClickHouseAlertLog{db: ch.DB()}
}

func (l *ClickHouseAlertLog) Append(ctx context.Context, alert models.DriftAlert) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, type, severity, message, resolved) VALUES (?, ?, ?, ?, 0)", alertsTable)
	if _, err := l.db.ExecContext(ctx, q,
		time.UnixMilli(alert.Timestamp),
		alert.Type,
		alert.Severity,
		alert.Message,
	); err != nil {
		return fmt.Errorf("append alert: %w", err)
	}
	return nil
}

// Unresolved returns open alerts newest first.
func (l *ClickHouseAlertLog) Unresolved(ctx context.Context, limit int) ([]models.DriftAlert, error) {
	q := fmt.Sprintf(`
        SELECT ts, type, severity, message
        FROM %s
        WHERE resolved = 0
        ORDER BY ts DESC
        LIMIT ?
    `, alertsTable)
	rows, err := l.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("unresolved alerts: %w", err)
	}
	defer rows.Close()

	out := make([]models.DriftAlert, 0, limit)
	for rows.Next() {
		var a models.DriftAlert
		var ts time.Time
		if err := rows.Scan(&ts, &a.Type, &a.Severity, &a.Message); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.Timestamp = ts.UnixMilli()
		out = append(out, a)
	}
	return out, rows.Err()
}

// Resolve marks alerts of the given type created at or before the cutoff.
func (l *ClickHouseAlertLog) Resolve(ctx context.Context, alertType string, before int64) error {
	q := fmt.Sprintf("ALTER TABLE %s UPDATE resolved = 1 WHERE type = ? AND ts <= ?", alertsTable)
	if _, err := l.db.ExecContext(ctx, q, alertType, time.UnixMilli(before)); err != nil {
		return fmt.Errorf("resolve alerts: %w", err)
	}
	return nil
}
