package models

import (
	"errors"
	"slices"
	"time"
)

// Column names of the users table.
const (
	FieldID  = "id"
	FieldFoo = "foo"
	FieldBar = "bar"
)

// OptionalFields lists the non-key columns in schema order.
// Each of them carries a schema default.
var OptionalFields = []string{FieldFoo, FieldBar}

// ErrMissingID is returned when user data carries no caller-assigned identifier.
var ErrMissingID = errors.New("user id is required")

// User is the persisted entity.
type User struct {
	Bar time.Time `json:"bar"`
	Foo []string  `json:"foo"`
	ID  int64     `json:"id"`
}

// UserData is partial input for creating or upserting a user.
// A nil optional field means the caller omitted it.
type UserData struct {
	Foo *[]string  `json:"foo,omitempty"`
	Bar *time.Time `json:"bar,omitempty"`
	ID  int64      `json:"id"`
}

// UserDefaults returns the schema defaults for the optional fields.
func UserDefaults(now time.Time) UserData {
	return UserData{
		Foo: Ptr([]string{}),
		Bar: Ptr(now),
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// IsUserField reports whether name is a column of the users table.
func IsUserField(name string) bool {
	return name == FieldID || slices.Contains(OptionalFields, name)
}

// Validate checks that the data can identify a row.
func (d UserData) Validate() error {
	if d.ID <= 0 {
		return ErrMissingID
	}
	return nil
}

// Has reports whether the optional field was supplied.
func (d UserData) Has(field string) bool {
	switch field {
	case FieldID:
		return true
	case FieldFoo:
		return d.Foo != nil
	case FieldBar:
		return d.Bar != nil
	}
	return false
}

// Fields returns the supplied optional fields in schema order.
func (d UserData) Fields() []string {
	fields := make([]string, 0, len(OptionalFields))
	for _, f := range OptionalFields {
		if d.Has(f) {
			fields = append(fields, f)
		}
	}
	return fields
}

// WithDefaults fills omitted fields from defaults. Supplied fields win.
func (d UserData) WithDefaults(defaults UserData) UserData {
	out := d
	if out.Foo == nil && defaults.Foo != nil {
		out.Foo = Ptr(slices.Clone(*defaults.Foo))
	}
	if out.Bar == nil && defaults.Bar != nil {
		out.Bar = Ptr(*defaults.Bar)
	}
	return out
}

// NewUser builds an entity from partial data, applying schema defaults
// with now as the creation time.
func NewUser(data UserData, now time.Time) *User {
	full := data.WithDefaults(UserDefaults(now))
	return &User{
		ID:  full.ID,
		Foo: slices.Clone(*full.Foo),
		Bar: *full.Bar,
	}
}

// Data converts the entity back into fully populated input.
func (u User) Data() UserData {
	foo := u.Foo
	if foo == nil {
		foo = []string{}
	}
	return UserData{
		ID:  u.ID,
		Foo: Ptr(slices.Clone(foo)),
		Bar: Ptr(u.Bar),
	}
}
