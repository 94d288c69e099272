// Package scenario seeds users through each write path and checks the
// persisted rows against the expected defaults.
package scenario

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	store "github.com/thebtf/upsertcheck/internal/db/gorm"
	"github.com/thebtf/upsertcheck/pkg/models"
)

var (
	// CurrentDate is the frozen clock time every default timestamp resolves to.
	CurrentDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// AnotherDate is an explicitly supplied timestamp.
	AnotherDate = time.Date(2020, 2, 2, 0, 0, 0, 0, time.UTC)
)

// Clock returns CurrentDate. Use it as the store clock.
func Clock() time.Time { return CurrentDate }

// Inputs returns the partial records every scenario writes.
func Inputs() []models.UserData {
	return []models.UserData{
		{ID: 1},
		{ID: 2, Foo: models.Ptr([]string{"test"})},
		{ID: 3, Bar: models.Ptr(AnotherDate)},
	}
}

// Expected returns the rows every scenario should leave behind, ordered by id.
func Expected() []models.User {
	return []models.User{
		{ID: 1, Foo: []string{}, Bar: CurrentDate},
		{ID: 2, Foo: []string{"test"}, Bar: CurrentDate},
		{ID: 3, Foo: []string{}, Bar: AnotherDate},
	}
}

// Writer is the store surface scenarios write through. Now is the clock the
// store resolves defaults with.
type Writer interface {
	Now() time.Time
	NewSession() *store.Session
	Upsert(ctx context.Context, data models.UserData, opts ...store.UpsertOption) (*models.User, error)
	UpsertMany(ctx context.Context, data []models.UserData, opts ...store.UpsertOption) ([]models.User, error)
}

// Scenario is one write path.
type Scenario struct {
	Run  func(ctx context.Context, w Writer, inputs []models.UserData) error
	Name string
	// KnownDiscrepancy marks a path expected to leave rows that differ from
	// Expected.
	KnownDiscrepancy bool
}

// All returns every scenario in run order.
func All() []Scenario {
	return []Scenario{
		{Name: "insert", Run: runInsert},
		{Name: "upsert", Run: runUpsert()},
		{Name: "upsert-many", Run: runUpsertMany()},
		{Name: "upsert-workaround", Run: runWorkaround},
		{Name: "upsert-raw", Run: runUpsert(store.WithoutDefaults()), KnownDiscrepancy: true},
		{Name: "upsert-many-raw", Run: runUpsertMany(store.WithoutDefaults()), KnownDiscrepancy: true},
	}
}

// Find returns the scenario with the given name.
func Find(name string) (Scenario, bool) {
	idx := slices.IndexFunc(All(), func(s Scenario) bool { return s.Name == name })
	if idx < 0 {
		return Scenario{}, false
	}
	return All()[idx], true
}

// runInsert creates every user in a session and flushes once.
func runInsert(ctx context.Context, w Writer, inputs []models.UserData) error {
	session := w.NewSession()
	for _, data := range inputs {
		if _, err := session.Create(data); err != nil {
			return fmt.Errorf("create user %d: %w", data.ID, err)
		}
	}
	return session.Flush(ctx)
}

// runUpsert issues one upsert per input concurrently and waits for all of them.
func runUpsert(opts ...store.UpsertOption) func(context.Context, Writer, []models.UserData) error {
	return func(ctx context.Context, w Writer, inputs []models.UserData) error {
		g, gctx := errgroup.WithContext(ctx)
		for _, data := range inputs {
			g.Go(func() error {
				if _, err := w.Upsert(gctx, data, opts...); err != nil {
					return fmt.Errorf("upsert user %d: %w", data.ID, err)
				}
				return nil
			})
		}
		return g.Wait()
	}
}

// runUpsertMany writes every input with one bulk upsert.
func runUpsertMany(opts ...store.UpsertOption) func(context.Context, Writer, []models.UserData) error {
	return func(ctx context.Context, w Writer, inputs []models.UserData) error {
		_, err := w.UpsertMany(ctx, inputs, opts...)
		return err
	}
}

// runWorkaround supplies the defaults up front and keeps every field the
// caller did not supply out of the conflict merge. It runs in raw mode so
// the store adds no defaults of its own.
func runWorkaround(ctx context.Context, w Writer, inputs []models.UserData) error {
	defaults := models.UserDefaults(w.Now())

	g, gctx := errgroup.WithContext(ctx)
	for _, data := range inputs {
		excluded := slices.DeleteFunc(slices.Clone(models.OptionalFields), data.Has)
		g.Go(func() error {
			_, err := w.Upsert(gctx,
				data.WithDefaults(defaults),
				store.WithoutDefaults(),
				store.WithExcludeFields(excluded...),
			)
			if err != nil {
				return fmt.Errorf("upsert user %d: %w", data.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}
