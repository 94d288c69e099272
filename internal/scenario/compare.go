package scenario

import (
	"fmt"
	"slices"

	"github.com/thebtf/upsertcheck/pkg/models"
)

// Mismatch describes one difference between persisted and expected rows.
type Mismatch struct {
	Got   any    `json:"got,omitempty"`
	Want  any    `json:"want,omitempty"`
	Field string `json:"field"`
	ID    int64  `json:"id"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("user %d %s: got %v, want %v", m.ID, m.Field, m.Got, m.Want)
}

// Compare matches rows by id. A nil Foo (NULL) differs from an empty one, and
// timestamps are compared as instants.
func Compare(got, want []models.User) []Mismatch {
	var out []Mismatch

	gotByID := make(map[int64]models.User, len(got))
	for _, u := range got {
		gotByID[u.ID] = u
	}
	wantIDs := make(map[int64]struct{}, len(want))

	for _, w := range want {
		wantIDs[w.ID] = struct{}{}
		g, ok := gotByID[w.ID]
		if !ok {
			out = append(out, Mismatch{ID: w.ID, Field: "row", Want: "present", Got: "missing"})
			continue
		}
		if !sameStrings(g.Foo, w.Foo) {
			out = append(out, Mismatch{ID: w.ID, Field: models.FieldFoo, Got: describeStrings(g.Foo), Want: describeStrings(w.Foo)})
		}
		if !g.Bar.Equal(w.Bar) {
			out = append(out, Mismatch{ID: w.ID, Field: models.FieldBar, Got: describeTime(g), Want: describeTime(w)})
		}
	}

	for _, g := range got {
		if _, ok := wantIDs[g.ID]; !ok {
			out = append(out, Mismatch{ID: g.ID, Field: "row", Want: "absent", Got: "present"})
		}
	}
	return out
}

func sameStrings(a, b []string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return slices.Equal(a, b)
}

func describeStrings(v []string) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%q", v)
}

func describeTime(u models.User) string {
	if u.Bar.IsZero() {
		return "null"
	}
	return u.Bar.UTC().Format("2006-01-02T15:04:05Z07:00")
}
