package repos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/equitylens/internal/contracts"
)

// ErrNotFound is returned when no analysis record has the requested id
var ErrNotFound = errors.New("analysis record not found")

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS analysis_results (
		id                    UUID PRIMARY KEY,
		symbol                TEXT NOT NULL,
		selected_fundamentals TEXT[],
		selected_technicals   TEXT[],
		fundamental_json      JSONB,
		technical_json        JSONB,
		combined_json         JSONB NOT NULL,
		narrative_status      TEXT,
		narrative_json        JSONB,
		narrative_created_at  TIMESTAMPTZ,
		created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_analysis_results_symbol ON analysis_results (symbol, created_at DESC);
`

// AnalysisRepository persists analysis records in PostgreSQL
// ⭐ SSOT: 분석 결과 저장/조회는 여기서만
type AnalysisRepository struct {
	pool *pgxpool.Pool
}

// NewAnalysisRepository creates a new analysis repository
func NewAnalysisRepository(pool *pgxpool.Pool) *AnalysisRepository {
	return &AnalysisRepository{pool: pool}
}

// EnsureSchema creates the table if it does not exist
func (r *AnalysisRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to ensure analysis schema: %w", err)
	}
	return nil
}

// Create inserts a new record
func (r *AnalysisRepository) Create(ctx context.Context, rec *contracts.AnalysisRecord) error {
	fundamentalJSON, err := marshalNullable(rec.Fundamental)
	if err != nil {
		return err
	}
	technicalJSON, err := marshalNullable(rec.Technical)
	if err != nil {
		return err
	}
	combinedJSON, err := json.Marshal(rec.Combined)
	if err != nil {
		return fmt.Errorf("failed to marshal combined score: %w", err)
	}
	narrativeJSON, err := marshalNullable(rec.Narrative)
	if err != nil {
		return err
	}

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO analysis_results (
			id, symbol, selected_fundamentals, selected_technicals,
			fundamental_json, technical_json, combined_json,
			narrative_status, narrative_json, narrative_created_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = r.pool.Exec(ctx, query,
		rec.ID,
		rec.Symbol,
		rec.SelectedFundamentals,
		rec.SelectedTechnicals,
		fundamentalJSON,
		technicalJSON,
		combinedJSON,
		rec.NarrativeStatus,
		narrativeJSON,
		rec.NarrativeCreatedAt,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis %s: %w", rec.ID, err)
	}
	return nil
}

// GetByID retrieves one record
func (r *AnalysisRepository) GetByID(ctx context.Context, id string) (*contracts.AnalysisRecord, error) {
	query := `
		SELECT
			id::text, symbol, selected_fundamentals, selected_technicals,
			fundamental_json, technical_json, combined_json,
			narrative_status, narrative_json, narrative_created_at, created_at
		FROM analysis_results
		WHERE id = $1
	`

	var (
		rec                            contracts.AnalysisRecord
		fundamentalJSON, technicalJSON []byte
		combinedJSON, narrativeJSON    []byte
	)
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID,
		&rec.Symbol,
		&rec.SelectedFundamentals,
		&rec.SelectedTechnicals,
		&fundamentalJSON,
		&technicalJSON,
		&combinedJSON,
		&rec.NarrativeStatus,
		&narrativeJSON,
		&rec.NarrativeCreatedAt,
		&rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis %s: %w", id, err)
	}

	if err := unmarshalNullable(fundamentalJSON, &rec.Fundamental); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(technicalJSON, &rec.Technical); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(combinedJSON, &rec.Combined); err != nil {
		return nil, fmt.Errorf("failed to unmarshal combined score: %w", err)
	}
	if err := unmarshalNullable(narrativeJSON, &rec.Narrative); err != nil {
		return nil, err
	}

	return &rec, nil
}

// UpdateNarrative records the narrative outcome of a record
func (r *AnalysisRepository) UpdateNarrative(ctx context.Context, id, status string, n *contracts.Narrative) error {
	narrativeJSON, err := marshalNullable(n)
	if err != nil {
		return err
	}

	query := `
		UPDATE analysis_results
		SET narrative_status = $2, narrative_json = $3, narrative_created_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, status, narrativeJSON)
	if err != nil {
		return fmt.Errorf("failed to update narrative for %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// marshalNullable encodes v, mapping a nil pointer to SQL NULL
func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %T: %w", v, err)
	}
	return data, nil
}

func unmarshalNullable[T any](data []byte, dest **T) error {
	if len(data) == 0 {
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("failed to unmarshal %T: %w", v, err)
	}
	*dest = &v
	return nil
}
