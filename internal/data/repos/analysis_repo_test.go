package repos

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/equitylens/internal/contracts"
	"github.com/wonny/equitylens/internal/scoring"
	"github.com/wonny/equitylens/pkg/config"
	"github.com/wonny/equitylens/pkg/database"
)

type recordStore interface {
	Create(ctx context.Context, rec *contracts.AnalysisRecord) error
	GetByID(ctx context.Context, id string) (*contracts.AnalysisRecord, error)
	UpdateNarrative(ctx context.Context, id, status string, n *contracts.Narrative) error
}

func sampleRecord() *contracts.AnalysisRecord {
	pending := contracts.NarrativePending
	return &contracts.AnalysisRecord{
		ID:                   uuid.NewString(),
		Symbol:               "AAPL",
		SelectedFundamentals: nil,
		SelectedTechnicals:   []string{"rsi", "macd"},
		Technical: &contracts.TechnicalResult{
			TrendDirection:        "Uptrend",
			OverallTechnicalScore: scoring.Ptr(6.4),
		},
		Combined: contracts.CombinedScore{
			OverallScore:   scoring.Ptr(6.4),
			TechnicalScore: scoring.Ptr(6.4),
			Bias:           contracts.LabelBullish,
			Confidence:     contracts.ConfidenceMedium,
		},
		NarrativeStatus: &pending,
	}
}

func exerciseRecordStore(t *testing.T, store recordStore) {
	t.Helper()
	ctx := context.Background()

	rec := sampleRecord()
	require.NoError(t, store.Create(ctx, rec))
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Nil(t, got.SelectedFundamentals)
	assert.Equal(t, []string{"rsi", "macd"}, got.SelectedTechnicals)
	assert.Nil(t, got.Fundamental)
	require.NotNil(t, got.Technical)
	assert.Equal(t, "Uptrend", got.Technical.TrendDirection)
	assert.Equal(t, contracts.NarrativePending, *got.NarrativeStatus)
	assert.False(t, got.NarrativeReady())

	n := &contracts.Narrative{ExecutiveSummary: "Steady compounder.", Confidence: "High"}
	require.NoError(t, store.UpdateNarrative(ctx, rec.ID, contracts.NarrativeCompleted, n))

	got, err = store.GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, contracts.NarrativeCompleted, *got.NarrativeStatus)
	assert.True(t, got.NarrativeReady())
	require.NotNil(t, got.NarrativeCreatedAt)

	_, err = store.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.UpdateNarrative(ctx, uuid.NewString(), contracts.NarrativeFailed, nil), ErrNotFound)
}

func TestMemoryAnalysisRepository(t *testing.T) {
	exerciseRecordStore(t, NewMemoryAnalysisRepository())
}

func TestAnalysisRepository_Integration(t *testing.T) {
	if testing.Short() || os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()

	repo := NewAnalysisRepository(db.Pool)
	require.NoError(t, repo.EnsureSchema(ctx))
	exerciseRecordStore(t, repo)
}
