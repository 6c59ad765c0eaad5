package feedback

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crishurazvi/avis-diabeto/internal/domain"
)

var feedbackColumns = []string{"id", "evaluation_id", "rule_id", "action_kind", "agreed", "comment", "locale", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store, err := NewPostgresStore(db)
	require.NoError(t, err)
	t.Cleanup(func() {
		mock.ExpectClose()
		store.Close()
	})
	return store, mock
}

func TestNewPostgresStore_RequiresDB(t *testing.T) {
	_, err := NewPostgresStore(nil)
	assert.Error(t, err)
}

func TestPostgresStore_Save(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO rule_feedback .* ON CONFLICT \(evaluation_id, rule_id\)`).
		WithArgs("eval-9", "ORGAN_HF_SGLT2", "START", true, "", "en", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), created))

	fb := &Feedback{EvaluationID: "eval-9", RuleID: "ORGAN_HF_SGLT2", ActionKind: domain.ActionStart, Agreed: true, Locale: "en"}
	require.NoError(t, store.Save(context.Background(), fb))

	assert.Equal(t, int64(7), fb.ID)
	assert.Equal(t, created, fb.CreatedAt)
	assert.False(t, fb.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRejectsInvalidFeedback(t *testing.T) {
	store, mock := newMockStore(t)

	err := store.Save(context.Background(), &Feedback{RuleID: "", ActionKind: domain.ActionStart})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet(), "no query is issued for invalid feedback")
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .* FROM rule_feedback WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(feedbackColumns).
			AddRow(int64(3), "eval-1", "SAFETY_TZD_HF_STOP", "STOP", false, "edema history unclear", "ro", now, now))

	fb, err := store.Get(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "SAFETY_TZD_HF_STOP", fb.RuleID)
	assert.Equal(t, domain.ActionStop, fb.ActionKind)
	assert.False(t, fb.Agreed)

	mock.ExpectQuery(`SELECT .* FROM rule_feedback WHERE id = \$1`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(feedbackColumns))

	_, err = store.Get(context.Background(), 4)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Find(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`WHERE evaluation_id = \$1 AND rule_id = \$2`).
		WithArgs("eval-1", "GAP_DPP4_SWITCH").
		WillReturnRows(sqlmock.NewRows(feedbackColumns))

	fb, err := store.Find(context.Background(), "eval-1", "GAP_DPP4_SWITCH")
	require.NoError(t, err)
	assert.Nil(t, fb)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListAndCount(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`ORDER BY created_at DESC, id DESC\s+LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows(feedbackColumns).
			AddRow(int64(2), "", "GAP_GLP1_BEFORE_INSULIN", "START", true, "", "en", now, now).
			AddRow(int64(1), "", "SAFETY_METFORMIN_DOSE", "ALERT", true, "", "en", now, now))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM rule_feedback`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))

	list, err := store.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, domain.ActionAlert, list[1].ActionKind)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM rule_feedback WHERE id = \$1`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM rule_feedback WHERE id = \$1`).
		WithArgs(int64(6)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Delete(context.Background(), 5))
	assert.ErrorIs(t, store.Delete(context.Background(), 6), domain.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Summary(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`COUNT\(\*\) FILTER \(WHERE agreed\)`).
		WillReturnRows(sqlmock.NewRows([]string{"rule_id", "agreed", "total"}).
			AddRow("ORGAN_ASCVD_PROTECTION", int64(3), int64(4)).
			AddRow("SAFETY_DPP4_REDUNDANT", int64(0), int64(2)))

	summary, err := store.Summary(context.Background())
	require.NoError(t, err)
	require.Len(t, summary, 2)
	assert.InDelta(t, 0.75, summary[0].Agreement, 1e-9)
	assert.Equal(t, int64(2), summary[1].Disagreed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
