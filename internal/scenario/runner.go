package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/thebtf/upsertcheck/pkg/models"
)

// Outcome classifies a scenario result.
type Outcome string

const (
	OutcomePass            Outcome = "pass"
	OutcomeFail            Outcome = "fail"
	OutcomeExpectedFailure Outcome = "expected-failure"
	OutcomeUnexpectedPass  Outcome = "unexpected-pass"
	OutcomeError           Outcome = "error"
)

// Result is the outcome of one scenario run.
type Result struct {
	Err        error         `json:"-"`
	Name       string        `json:"name"`
	Outcome    Outcome       `json:"outcome"`
	Rows       []models.User `json:"rows,omitempty"`
	Mismatches []Mismatch    `json:"mismatches,omitempty"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

// OK reports whether the result matches what the scenario promises: a pass,
// or a reproduced known discrepancy.
func (r Result) OK() bool {
	return r.Outcome == OutcomePass || r.Outcome == OutcomeExpectedFailure
}

// Store is the store surface the runner needs.
type Store interface {
	Writer
	Truncate(ctx context.Context) (int64, error)
	FindAll(ctx context.Context) ([]models.User, error)
}

// Runner executes scenarios against a store, truncating the table before each.
type Runner struct {
	store    Store
	log      zerolog.Logger
	inputs   []models.UserData
	expected []models.User
}

// NewRunner creates a runner over the standard fixture.
func NewRunner(store Store, log zerolog.Logger) *Runner {
	return &Runner{
		store:    store,
		log:      log,
		inputs:   Inputs(),
		expected: Expected(),
	}
}

// Run executes every scenario in order. A failing scenario does not stop
// the run.
func (r *Runner) Run(ctx context.Context, scenarios []Scenario) []Result {
	results := make([]Result, 0, len(scenarios))
	for _, sc := range scenarios {
		res := r.RunOne(ctx, sc)
		r.logResult(res)
		results = append(results, res)
	}
	return results
}

// RunOne executes a single scenario.
func (r *Runner) RunOne(ctx context.Context, sc Scenario) Result {
	start := time.Now()
	res := Result{Name: sc.Name}

	rows, err := r.execute(ctx, sc)
	res.Elapsed = time.Since(start)
	if err != nil {
		res.Outcome = OutcomeError
		res.Err = err
		return res
	}

	res.Rows = rows
	res.Mismatches = Compare(rows, r.expected)
	res.Outcome = classify(len(res.Mismatches) == 0, sc.KnownDiscrepancy)
	return res
}

func (r *Runner) execute(ctx context.Context, sc Scenario) ([]models.User, error) {
	if _, err := r.store.Truncate(ctx); err != nil {
		return nil, fmt.Errorf("truncate before %s: %w", sc.Name, err)
	}
	if err := sc.Run(ctx, r.store, r.inputs); err != nil {
		return nil, fmt.Errorf("run %s: %w", sc.Name, err)
	}
	rows, err := r.store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read back %s: %w", sc.Name, err)
	}
	return rows, nil
}

func classify(matched, knownDiscrepancy bool) Outcome {
	switch {
	case matched && !knownDiscrepancy:
		return OutcomePass
	case matched:
		return OutcomeUnexpectedPass
	case knownDiscrepancy:
		return OutcomeExpectedFailure
	default:
		return OutcomeFail
	}
}

func (r *Runner) logResult(res Result) {
	event := r.log.Info()
	if !res.OK() {
		event = r.log.Error()
	}
	if res.Err != nil {
		event = event.Err(res.Err)
	}

	mismatches := make([]string, 0, len(res.Mismatches))
	for _, m := range res.Mismatches {
		mismatches = append(mismatches, m.String())
	}

	event.
		Str("scenario", res.Name).
		Str("outcome", string(res.Outcome)).
		Dur("elapsed", res.Elapsed).
		Strs("mismatches", mismatches).
		Msg("Scenario finished")
}
