package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/crishurazvi/avis-diabeto/internal/config"
	"github.com/crishurazvi/avis-diabeto/internal/database"
	"github.com/crishurazvi/avis-diabeto/internal/domain"
)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := domain.DatabaseConfig{
		Host:     host,
		Port:     port.Int(),
		Database: "testdb",
		Username: "testuser",
		Password: "testpass",
		SSLMode:  "disable",
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	runner, err := database.NewMigrationRunner(config.DatabaseURL(cfg), "../../migrations", logger)
	require.NoError(t, err)
	require.NoError(t, runner.Up(ctx))
	require.NoError(t, runner.Close())

	db, err := database.NewConnection(ctx, cfg, logger)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func sampleEvaluation(at time.Time, ruleIDs ...string) *domain.Evaluation {
	eval := &domain.Evaluation{
		ID:          uuid.New().String(),
		Status:      domain.StatusActionsRecommended,
		Locale:      domain.LocaleEnglish,
		Fingerprint: "3f1c9a",
		EvaluatedAt: at,
		Prose:       []string{"**INITIATION iSGLT2** : Néphroprotection (MRC)."},
	}
	for _, id := range ruleIDs {
		eval.Records = append(eval.Records, domain.ActionRecord{
			RuleID:    id,
			Phase:     domain.PhaseOrganProtection,
			Kind:      domain.ActionStart,
			Classes:   []domain.DrugClass{domain.SGLT2Inhibitor},
			Target:    "START SGLT2i",
			Rationale: "Nephroprotection (CKD).",
		})
	}
	return eval
}

func TestNewEvaluationRecordKeepsNoPatientData(t *testing.T) {
	eval := sampleEvaluation(time.Now().UTC(), "ORGAN_CKD_SGLT2", "GAP_GLP1_BEFORE_INSULIN")
	rec := NewEvaluationRecord(eval, 2*time.Millisecond, "req-1")

	assert.Equal(t, []string{"ORGAN_CKD_SGLT2", "GAP_GLP1_BEFORE_INSULIN"}, rec.RuleIDs)
	assert.Equal(t, int64(2), rec.ProcessingTimeMS)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	body := string(data)
	for _, leaked := range []string{eval.Fingerprint, "fingerprint", "Nephroprotection", "Néphroprotection", "client", "prose", "rationale"} {
		assert.NotContains(t, body, leaked)
	}
}

func TestEvaluationRepositoryCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEvaluationRepository(db.Pool, logrus.New())
	ctx := context.Background()

	eval := sampleEvaluation(time.Now().UTC().Truncate(time.Microsecond), "ORGAN_CKD_SGLT2")
	rec := NewEvaluationRecord(eval, 3*time.Millisecond, "req-1")
	require.NoError(t, repo.Create(ctx, rec))
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, eval.ID)
	require.NoError(t, err)
	assert.Equal(t, eval.ID, got.ID)
	assert.Equal(t, domain.StatusActionsRecommended, got.Status)
	assert.Equal(t, []string{"ORGAN_CKD_SGLT2"}, got.RuleIDs)
	assert.Equal(t, "req-1", got.RequestID)
	assert.Equal(t, int64(3), got.ProcessingTimeMS)
	assert.True(t, eval.EvaluatedAt.Equal(got.EvaluatedAt))

	_, err = repo.GetByID(ctx, uuid.New().String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestEvaluationRepositoryListCountDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEvaluationRepository(db.Pool, logrus.New())
	ctx := context.Background()

	base := time.Now().UTC()
	older := sampleEvaluation(base.Add(-time.Hour), "ORGAN_CKD_SGLT2")
	newer := sampleEvaluation(base, "SAFETY_METFORMIN_DOSE", "ORGAN_CKD_SGLT2")
	other := sampleEvaluation(base, "GAP_METFORMIN_FIRST_LINE")
	controlled := &domain.Evaluation{ID: uuid.New().String(), Status: domain.StatusControlled, Locale: domain.LocaleRomanian, EvaluatedAt: base}

	for _, e := range []*domain.Evaluation{older, newer, other, controlled} {
		require.NoError(t, repo.Create(ctx, NewEvaluationRecord(e, 0, "")))
	}

	list, err := repo.ListByRule(ctx, "ORGAN_CKD_SGLT2", 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)

	controlledRec, err := repo.GetByID(ctx, controlled.ID)
	require.NoError(t, err)
	assert.Empty(t, controlledRec.RuleIDs)

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[domain.StatusActionsRecommended])
	assert.Equal(t, int64(1), counts[domain.StatusControlled])

	require.NoError(t, repo.Delete(ctx, older.ID))
	assert.ErrorIs(t, repo.Delete(ctx, older.ID), domain.ErrNotFound)
}

func TestEvaluationRepositoryRejectsNonUUID(t *testing.T) {
	repo := NewEvaluationRepository(nil, logrus.New())

	err := repo.Create(context.Background(), &EvaluationRecord{ID: "abc"})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}
