package gorm

import (
	"testing"
	"time"

	"gorm.io/gorm/logger"

	"github.com/thebtf/upsertcheck/pkg/models"
)

var (
	testNow     = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	testAnother = time.Date(2020, 2, 2, 0, 0, 0, 0, time.UTC)
)

func fixedClock() time.Time { return testNow }

// testUserStore creates a UserStore over a private in-memory database with
// the clock frozen at testNow.
func testUserStore(t *testing.T) (*UserStore, *Store, func()) {
	t.Helper()

	store, err := NewStore(Config{
		Path:     ":memory:",
		LogLevel: logger.Silent,
		NowFunc:  fixedClock,
	})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	cleanup := func() {
		store.Close()
	}

	return NewUserStore(store), store, cleanup
}

// assertUser fails unless got matches the expected id, foo and bar.
func assertUser(t *testing.T, want, got models.User) {
	t.Helper()
	if got.ID != want.ID {
		t.Errorf("id: got %d, want %d", got.ID, want.ID)
	}
	if (got.Foo == nil) != (want.Foo == nil) || len(got.Foo) != len(want.Foo) {
		t.Errorf("user %d foo: got %#v, want %#v", want.ID, got.Foo, want.Foo)
	} else {
		for i := range want.Foo {
			if got.Foo[i] != want.Foo[i] {
				t.Errorf("user %d foo: got %#v, want %#v", want.ID, got.Foo, want.Foo)
				break
			}
		}
	}
	if !got.Bar.Equal(want.Bar) {
		t.Errorf("user %d bar: got %v, want %v", want.ID, got.Bar, want.Bar)
	}
}

func assertUsers(t *testing.T, want, got []models.User) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d users, want %d: %#v", len(got), len(want), got)
	}
	for i := range want {
		assertUser(t, want[i], got[i])
	}
}
