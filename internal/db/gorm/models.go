package gorm

import (
	"slices"
	"time"

	"github.com/thebtf/upsertcheck/pkg/models"
)

// User is the GORM row for models.User.
// Defaults are applied by the application, so no column carries a
// database default and an omitted column is stored as NULL.
type User struct {
	Bar *time.Time
	Foo models.JSONStringArray `gorm:"type:text"`
	ID  int64                  `gorm:"primaryKey;autoIncrement:false"`
}

func (User) TableName() string { return "users" }

// toModelUser converts a row to the domain entity. NULL columns come back
// as a nil Foo and a zero Bar.
func toModelUser(u *User) models.User {
	out := models.User{ID: u.ID}
	if u.Foo != nil {
		out.Foo = slices.Clone([]string(u.Foo))
	}
	if u.Bar != nil {
		out.Bar = u.Bar.UTC()
	}
	return out
}

// fromUserData builds a row holding only the supplied fields.
func fromUserData(d models.UserData) *User {
	row := &User{ID: d.ID}
	if d.Foo != nil {
		row.Foo = models.JSONStringArray(slices.Clone(*d.Foo))
		if row.Foo == nil {
			row.Foo = models.JSONStringArray{}
		}
	}
	if d.Bar != nil {
		bar := d.Bar.UTC()
		row.Bar = &bar
	}
	return row
}

// fromModelUser builds a fully populated row from an entity.
func fromModelUser(u models.User) *User {
	return fromUserData(u.Data())
}
