package rubric

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kapu/sales-skills-engine/internal/domain"
	"github.com/kapu/sales-skills-engine/internal/service/database"
)

const createRubricSetsTable = `CREATE TABLE IF NOT EXISTS rubric_sets (
	set_key TEXT PRIMARY KEY,
	body TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLSource stores rubric sets as JSON documents in the rubric_sets table.
type SQLSource struct {
	db     *sql.DB
	driver string
	logger *zap.Logger
}

func NewSQLSource(db *sql.DB, driver string, logger *zap.Logger) *SQLSource {
	return &SQLSource{db: db, driver: driver, logger: logger}
}

// bind rewrites $n placeholders for drivers that only understand ?.
func (s *SQLSource) bind(query string) string {
	if s.driver != database.DriverSQLite {
		return query
	}
	for i := 3; i >= 1; i-- {
		query = strings.ReplaceAll(query, fmt.Sprintf("$%d", i), "?")
	}
	return query
}

func (s *SQLSource) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createRubricSetsTable); err != nil {
		return fmt.Errorf("failed to create rubric_sets: %w", err)
	}
	return nil
}

func (s *SQLSource) Load(ctx context.Context, setKey string) (domain.RubricSet, error) {
	var body string
	err := s.db.QueryRowContext(ctx, s.bind(`SELECT body FROM rubric_sets WHERE set_key = $1`), setKey).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, loadError(setKey, ErrSetNotFound)
	}
	if err != nil {
		return nil, loadError(setKey, err)
	}

	var set domain.RubricSet
	if err := json.Unmarshal([]byte(body), &set); err != nil {
		return nil, loadError(setKey, fmt.Errorf("decode body: %w", err))
	}
	return set, nil
}

// Upsert writes a set, replacing any previous body under the same key.
func (s *SQLSource) Upsert(ctx context.Context, setKey string, set domain.RubricSet) error {
	body, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("encode rubric set: %w", err)
	}
	_, err = s.db.ExecContext(ctx, s.bind(`INSERT INTO rubric_sets (set_key, body, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (set_key) DO UPDATE SET body = excluded.body, updated_at = CURRENT_TIMESTAMP`),
		setKey, string(body))
	if err != nil {
		return fmt.Errorf("failed to upsert rubric set %s: %w", setKey, err)
	}
	return nil
}

// Seed inserts the given sets, leaving existing rows untouched.
func (s *SQLSource) Seed(ctx context.Context, sets map[string]domain.RubricSet) (int, error) {
	inserted := 0
	for key, set := range sets {
		body, err := json.Marshal(set)
		if err != nil {
			return inserted, fmt.Errorf("encode rubric set: %w", err)
		}
		res, err := s.db.ExecContext(ctx, s.bind(`INSERT INTO rubric_sets (set_key, body)
			VALUES ($1, $2) ON CONFLICT (set_key) DO NOTHING`), key, string(body))
		if err != nil {
			return inserted, fmt.Errorf("failed to seed rubric set %s: %w", key, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	if inserted > 0 {
		s.logger.Info("Seeded rubric sets", zap.Int("count", inserted))
	}
	return inserted, nil
}
