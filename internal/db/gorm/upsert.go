package gorm

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/thebtf/upsertcheck/pkg/models"
)

// ErrUnknownField is returned when a merge or exclude option names a column
// that is not an optional user field.
var ErrUnknownField = errors.New("unknown upsert field")

// UpsertOptions controls how an upsert builds the inserted row and the
// conflict merge.
type UpsertOptions struct {
	// MergeFields replaces the default merge set (the supplied fields).
	MergeFields []string
	// ExcludeFields are removed from the merge set.
	ExcludeFields []string
	// SkipDefaults inserts only the supplied columns; omitted ones stay NULL.
	SkipDefaults bool
}

// UpsertOption configures an upsert.
type UpsertOption func(*UpsertOptions)

// WithMergeFields sets the columns updated when the id already exists.
func WithMergeFields(fields ...string) UpsertOption {
	return func(o *UpsertOptions) {
		o.MergeFields = append(o.MergeFields, fields...)
	}
}

// WithExcludeFields keeps the given columns untouched when the id already exists.
func WithExcludeFields(fields ...string) UpsertOption {
	return func(o *UpsertOptions) {
		o.ExcludeFields = append(o.ExcludeFields, fields...)
	}
}

// WithoutDefaults writes only the supplied columns, without schema defaults.
func WithoutDefaults() UpsertOption {
	return func(o *UpsertOptions) {
		o.SkipDefaults = true
	}
}

func resolveUpsertOptions(opts []UpsertOption) (UpsertOptions, error) {
	var o UpsertOptions
	for _, opt := range opts {
		opt(&o)
	}
	for _, f := range slices.Concat(o.MergeFields, o.ExcludeFields) {
		if !slices.Contains(models.OptionalFields, f) {
			return o, fmt.Errorf("%w: %q", ErrUnknownField, f)
		}
	}
	return o, nil
}

// upsertRow is one planned write: the row values, the columns inserted and
// the columns merged on conflict.
type upsertRow struct {
	row        *User
	insertCols []string
	mergeCols  []string
}

func (r upsertRow) signature() string {
	return strings.Join(r.insertCols, ",") + "|" + strings.Join(r.mergeCols, ",")
}

func planUpsertRow(data models.UserData, opts UpsertOptions, now time.Time) upsertRow {
	insert := data
	if !opts.SkipDefaults {
		insert = data.WithDefaults(models.UserDefaults(now))
	}

	merge := data.Fields()
	if len(opts.MergeFields) > 0 {
		merge = orderedFields(opts.MergeFields)
	}
	merge = slices.DeleteFunc(merge, func(f string) bool {
		return slices.Contains(opts.ExcludeFields, f)
	})

	return upsertRow{
		row:        fromUserData(insert),
		insertCols: append([]string{models.FieldID}, insert.Fields()...),
		mergeCols:  merge,
	}
}

// orderedFields returns fields in schema order without duplicates.
func orderedFields(fields []string) []string {
	out := make([]string, 0, len(models.OptionalFields))
	for _, f := range models.OptionalFields {
		if slices.Contains(fields, f) {
			out = append(out, f)
		}
	}
	return out
}

// upsertBatch is a run of rows sharing one INSERT ... ON CONFLICT statement.
type upsertBatch struct {
	rows       []*User
	insertCols []string
	mergeCols  []string
}

// batchUpsertRows groups consecutive rows with the same column signature.
// A repeated id starts a new batch so a later write for that id runs after
// the earlier one.
func batchUpsertRows(rows []upsertRow) []upsertBatch {
	var (
		batches []upsertBatch
		sig     string
		seen    map[int64]struct{}
	)

	for _, r := range rows {
		_, dup := seen[r.row.ID]
		if len(batches) == 0 || r.signature() != sig || dup {
			batches = append(batches, upsertBatch{
				insertCols: r.insertCols,
				mergeCols:  r.mergeCols,
			})
			sig = r.signature()
			seen = make(map[int64]struct{})
		}
		last := &batches[len(batches)-1]
		last.rows = append(last.rows, r.row)
		seen[r.row.ID] = struct{}{}
	}
	return batches
}

func (b upsertBatch) exec(tx *gorm.DB) error {
	conflict := clause.OnConflict{
		Columns: []clause.Column{{Name: models.FieldID}},
	}
	if len(b.mergeCols) == 0 {
		conflict.DoNothing = true
	} else {
		conflict.DoUpdates = clause.AssignmentColumns(b.mergeCols)
	}

	return tx.Select(b.insertCols).Clauses(conflict).Create(&b.rows).Error
}

// Upsert inserts a user or, when the id exists, merges the supplied fields
// into the existing row. Returns the persisted row.
func (s *UserStore) Upsert(ctx context.Context, data models.UserData, opts ...UpsertOption) (*models.User, error) {
	users, err := s.UpsertMany(ctx, []models.UserData{data}, opts...)
	if err != nil {
		return nil, err
	}
	return &users[0], nil
}

// UpsertMany upserts all inputs in one transaction and returns the persisted
// rows in input order.
func (s *UserStore) UpsertMany(ctx context.Context, data []models.UserData, opts ...UpsertOption) ([]models.User, error) {
	if len(data) == 0 {
		return []models.User{}, nil
	}

	o, err := resolveUpsertOptions(opts)
	if err != nil {
		return nil, err
	}

	now := s.store.Now()
	planned := make([]upsertRow, 0, len(data))
	ids := make([]int64, 0, len(data))
	for i, d := range data {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("upsert input %d: %w", i, err)
		}
		planned = append(planned, planUpsertRow(d, o, now))
		ids = append(ids, d.ID)
	}
	batches := batchUpsertRows(planned)

	var rows []User
	err = s.store.TransactionWithTimeout(ctx, SlowQueryTimeout, "upsert_users", func(tx *gorm.DB) error {
		for _, b := range batches {
			if err := b.exec(tx); err != nil {
				return fmt.Errorf("upsert users: %w", err)
			}
		}
		return tx.Where("id IN ?", ids).Find(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*User, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}
	users := make([]models.User, 0, len(ids))
	for _, id := range ids {
		row, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("upsert users: row %d missing after write", id)
		}
		users = append(users, toModelUser(row))
	}

	s.store.log.Debug().
		Int("rows", len(data)).
		Int("batches", len(batches)).
		Bool("defaults", !o.SkipDefaults).
		Msg("Users upserted")

	return users, nil
}
