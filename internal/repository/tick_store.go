package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	pkgch "QuantPulse/pkg/clickhouse"
)

const (
	ticksTable = "quantpulse.rt_ticks_raw"
	booksTable = "quantpulse.rt_books"
)

// ClickHouseTickStore implements TickStore on ClickHouse. Books land in a
// ReplacingMergeTree keyed by (symbol, exchange) so the engine collapses to
// latest-wins on merge.
type ClickHouseTickStore struct {
	db *sql.DB
}

func NewClickHouseTickStore(ch *pkgch.Client) domrepo.TickStore {
	return &ClickHouseTickStore{db: ch.DB()}
}

func (s *ClickHouseTickStore) StoreTicks(ctx context.Context, ticks []models.Tick) error {
	if len(ticks) == 0 {
		return nil
	}
	// Multi-row VALUES to reduce round-trips; 2000 rows per chunk.
	const chunkSize = 2000
	for start := 0; start < len(ticks); start += chunkSize {
		end := start + chunkSize
		if end > len(ticks) {
			end = len(ticks)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*8)
		for _, t := range ticks[start:end] {
			if t.Symbol == "" || t.Timestamp == 0 {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				time.UnixMilli(t.Timestamp),
				t.Symbol,
				t.Exchange,
				t.Price,
				t.Volume,
				t.Bid,
				t.Ask,
				boolToUInt8(t.HasQuote),
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, symbol, exchange, price, volume, bid, ask, has_quote) VALUES %s",
			ticksTable, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("insert ticks: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseTickStore) StoreBooks(ctx context.Context, books []models.OrderBookSnapshot) error {
	if len(books) == 0 {
		return nil
	}
	values := make([]string, 0, len(books))
	args := make([]interface{}, 0, len(books)*5)
	for _, b := range books {
		if b.Symbol == "" || b.Timestamp == 0 {
			continue
		}
		bids, err := json.Marshal(b.Bids)
		if err != nil {
			return fmt.Errorf("marshal bids %s: %w", b.Symbol, err)
		}
		asks, err := json.Marshal(b.Asks)
		if err != nil {
			return fmt.Errorf("marshal asks %s: %w", b.Symbol, err)
		}
		values = append(values, "(?, ?, ?, ?, ?)")
		args = append(args, time.UnixMilli(b.Timestamp), b.Symbol, b.Exchange, string(bids), string(asks))
	}
	if len(values) == 0 {
		return nil
	}
	q := fmt.Sprintf("INSERT INTO %s (ts, symbol, exchange, bids, asks) VALUES %s",
		booksTable, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert books: %w", err)
	}
	return nil
}

// TickCounts returns per-exchange tick counts since the cutoff.
func (s *ClickHouseTickStore) TickCounts(ctx context.Context, since time.Time) (map[string]int, error) {
	q := fmt.Sprintf("SELECT exchange, count() FROM %s WHERE ts >= ? GROUP BY exchange", ticksTable)
	rows, err := s.db.QueryContext(ctx, q, since)
	if err != nil {
		return nil, fmt.Errorf("tick counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var exchange string
		var n uint64
		if err := rows.Scan(&exchange, &n); err != nil {
			return nil, fmt.Errorf("scan tick count: %w", err)
		}
		counts[exchange] = int(n)
	}
	return counts, rows.Err()
}

func (s *ClickHouseTickStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseTickStore) Close() error {
	return nil // connection owned by pkg/clickhouse
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
