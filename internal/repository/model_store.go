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

const deploymentsTable = "quantpulse.model_deployment"

// ClickHouseModelStore tracks model deployments. The newest row with status
// "active" is the live model.
type ClickHouseModelStore struct {
	db *sql.DB
}

func NewClickHouseModelStore(ch *pkgch.Client) domrepo.ModelStore {
	return &ClickHouseModelStore{db: ch.DB()}
}

// Active returns the current deployment, or nil when none exists.
func (s *ClickHouseModelStore) Active(ctx context.Context) (*models.ModelDeployment, error) {
	q := fmt.Sprintf(`
        SELECT version, deployed_at, status
        FROM %s
        WHERE status = 'active'
        ORDER BY deployed_at DESC
        LIMIT 1
    `, deploymentsTable)
	row := s.db.QueryRowContext(ctx, q)

	var dep models.ModelDeployment
	if err := row.Scan(&dep.Version, &dep.DeployedAt, &dep.Status); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("active model: %w", err)
	}
	return &dep, nil
}

func (s *ClickHouseModelStore) Deploy(ctx context.Context, dep models.ModelDeployment) error {
	if dep.DeployedAt.IsZero() {
		dep.DeployedAt = time.Now()
	}
	q := fmt.Sprintf("INSERT INTO %s (version, deployed_at, status) VALUES (?, ?, ?)", deploymentsTable)
	if _, err := s.db.ExecContext(ctx, q, dep.Version, dep.DeployedAt, dep.Status); err != nil {
		return fmt.Errorf("deploy model: %w", err)
	}
	return nil
}
