package scenario

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	store "github.com/thebtf/upsertcheck/internal/db/gorm"
	"github.com/thebtf/upsertcheck/pkg/models"
)

// setupUsers opens an in-memory store with the clock frozen at CurrentDate.
// The schema is dropped and the store closed when the test ends.
func setupUsers(t *testing.T) *store.UserStore {
	t.Helper()

	s, err := store.NewStore(store.Config{
		Path:     ":memory:",
		LogLevel: logger.Silent,
		NowFunc:  Clock,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, s.DropSchema())
		assert.NoError(t, s.Close())
	})
	return store.NewUserStore(s)
}

func runScenario(t *testing.T, name string) Result {
	t.Helper()

	sc, ok := Find(name)
	require.True(t, ok, "scenario %s", name)

	runner := NewRunner(setupUsers(t), zerolog.Nop())
	res := runner.RunOne(context.Background(), sc)
	require.NoError(t, res.Err)
	return res
}

func TestInsert_Succeeds(t *testing.T) {
	res := runScenario(t, "insert")

	assert.Equal(t, OutcomePass, res.Outcome)
	assert.Empty(t, res.Mismatches)
}

func TestUpsert_AppliesDefaults(t *testing.T) {
	res := runScenario(t, "upsert")

	assert.Equal(t, OutcomePass, res.Outcome)
	assert.Empty(t, res.Mismatches)
}

func TestUpsertMany_AppliesDefaults(t *testing.T) {
	res := runScenario(t, "upsert-many")

	assert.Equal(t, OutcomePass, res.Outcome)
	assert.Empty(t, res.Mismatches)
}

func TestUpsertWorkaround(t *testing.T) {
	res := runScenario(t, "upsert-workaround")

	assert.Equal(t, OutcomePass, res.Outcome)
	assert.Empty(t, res.Mismatches)
}

func TestUpsertWorkaround_FollowsStoreClock(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	s, err := store.NewStore(store.Config{
		Path:     ":memory:",
		LogLevel: logger.Silent,
		NowFunc:  func() time.Time { return now },
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })

	sc, ok := Find("upsert-workaround")
	require.True(t, ok)

	res := NewRunner(store.NewUserStore(s), zerolog.Nop()).RunOne(context.Background(), sc)
	require.NoError(t, res.Err)
	require.Len(t, res.Rows, 3)
	assert.True(t, res.Rows[0].Bar.Equal(now), "user 1 bar %v", res.Rows[0].Bar)
	assert.True(t, res.Rows[1].Bar.Equal(now), "user 2 bar %v", res.Rows[1].Bar)
	assert.True(t, res.Rows[2].Bar.Equal(AnotherDate), "user 3 bar %v", res.Rows[2].Bar)
}

// Raw upserts drop every omitted default: the row is written with NULLs.
func TestUpsertRaw_DropsDefaults(t *testing.T) {
	for _, name := range []string{"upsert-raw", "upsert-many-raw"} {
		t.Run(name, func(t *testing.T) {
			res := runScenario(t, name)

			assert.Equal(t, OutcomeExpectedFailure, res.Outcome)
			assert.ElementsMatch(t, []Mismatch{
				{ID: 1, Field: models.FieldFoo, Got: "null", Want: `[]`},
				{ID: 1, Field: models.FieldBar, Got: "null", Want: "2024-01-01T00:00:00Z"},
				{ID: 2, Field: models.FieldBar, Got: "null", Want: "2024-01-01T00:00:00Z"},
				{ID: 3, Field: models.FieldFoo, Got: "null", Want: `[]`},
			}, res.Mismatches)
		})
	}
}

func TestRunner_RunAll(t *testing.T) {
	users := setupUsers(t)
	runner := NewRunner(users, zerolog.Nop())

	results := runner.Run(context.Background(), All())
	require.Len(t, results, len(All()))
	for _, res := range results {
		assert.True(t, res.OK(), "%s: %s %v", res.Name, res.Outcome, res.Mismatches)
	}

	// The last scenario's rows remain; each run starts from an empty table.
	count, err := users.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestRunner_WriteError(t *testing.T) {
	runner := NewRunner(setupUsers(t), zerolog.Nop())

	res := runner.RunOne(context.Background(), Scenario{
		Name: "broken",
		Run: func(ctx context.Context, w Writer, _ []models.UserData) error {
			_, err := w.Upsert(ctx, models.UserData{})
			return err
		},
	})
	assert.Equal(t, OutcomeError, res.Outcome)
	assert.ErrorIs(t, res.Err, models.ErrMissingID)
	assert.False(t, res.OK())
}

func TestRunner_UnexpectedPass(t *testing.T) {
	sc, ok := Find("upsert")
	require.True(t, ok)
	sc.KnownDiscrepancy = true

	res := NewRunner(setupUsers(t), zerolog.Nop()).RunOne(context.Background(), sc)
	assert.Equal(t, OutcomeUnexpectedPass, res.Outcome)
	assert.False(t, res.OK())
}

func TestFind(t *testing.T) {
	_, ok := Find("upsert-many")
	assert.True(t, ok)

	_, ok = Find("missing")
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, OutcomePass, classify(true, false))
	assert.Equal(t, OutcomeUnexpectedPass, classify(true, true))
	assert.Equal(t, OutcomeExpectedFailure, classify(false, true))
	assert.Equal(t, OutcomeFail, classify(false, false))
}
