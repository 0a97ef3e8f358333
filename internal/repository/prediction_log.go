package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	pkgch "QuantPulse/pkg/clickhouse"
)

const predictionTable = "quantpulse.prediction_log"

// ClickHousePredictionLog is the append-only prediction record. Rows are
// inserted once and never updated.
type ClickHousePredictionLog struct {
	db *sql.DB
}

func NewClickHousePredictionLog(ch *pkgch.Client) domrepo.PredictionLog {
	return &ClickHousePredictionLog{db: ch.DB()}
}

func (l *ClickHousePredictionLog) Append(ctx context.Context, rec models.PredictionRecord) error {
	features, err := json.Marshal(rec.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, prediction, confidence, latency_ms, model_version, features) VALUES (?, ?, ?, ?, ?, ?, ?)",
		predictionTable)
	if _, err := l.db.ExecContext(ctx, q,
		time.UnixMilli(rec.Timestamp),
		rec.Symbol,
		rec.Prediction,
		rec.Confidence,
		rec.LatencyMs,
		rec.ModelVersion,
		string(features),
	); err != nil {
		return fmt.Errorf("append prediction: %w", err)
	}
	return nil
}

// Recent returns the last n predictions ordered oldest first.
func (l *ClickHousePredictionLog) Recent(ctx context.Context, n int) ([]models.PredictionRecord, error) {
	q := fmt.Sprintf(`
        SELECT ts, symbol, prediction, confidence, latency_ms, model_version, features
        FROM %s
        ORDER BY ts DESC
        LIMIT ?
    `, predictionTable)
	rows, err := l.db.QueryContext(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("recent predictions: %w", err)
	}
	defer rows.Close()

	tmp := make([]models.PredictionRecord, 0, n)
	for rows.Next() {
		var rec models.PredictionRecord
		var ts time.Time
		var features string
		if err := rows.Scan(&ts, &rec.Symbol, &rec.Prediction, &rec.Confidence, &rec.LatencyMs, &rec.ModelVersion, &features); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		rec.Timestamp = ts.UnixMilli()
		if features != "" {
			if err := json.Unmarshal([]byte(features), &rec.Features); err != nil {
				return nil, fmt.Errorf("unmarshal features: %w", err)
			}
		}
		tmp = append(tmp, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	// reverse to ASC
	for i, j := 0, len(tmp)-1; i < j; i, j = i+1, j-1 {
		tmp[i], tmp[j] = tmp[j], tmp[i]
	}
	return tmp, nil
}
