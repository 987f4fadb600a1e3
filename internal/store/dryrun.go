package store

import (
	"context"
	"fmt"

	"github.com/coursemix/coursesync/internal/course"
)

// DryRun wraps a Store so lookups hit the real table while inserts are only recorded.
// Codes "inserted" during the run are remembered, so a code seen twice is reported as a
// duplicate the same way a real insert would make it one.
type DryRun struct {
	next    Store
	pending map[string]bool
}

// NewDryRun wraps next. A nil next behaves like an empty table.
func NewDryRun(next Store) *DryRun {
	return &DryRun{
		next:    next,
		pending: make(map[string]bool),
	}
}

// FindByCode checks codes recorded this run, then the wrapped store
func (d *DryRun) FindByCode(ctx context.Context, code string) (bool, error) {
	if d.pending[code] {
		return true, nil
	}
	if d.next == nil {
		return false, nil
	}
	return d.next.FindByCode(ctx, code)
}

// Insert records the code without writing anything
func (d *DryRun) Insert(_ context.Context, c *course.Course) error {
	if d.pending[c.Code] {
		return fmt.Errorf("%w: course %s already recorded", ErrUniqueViolation, c.Code)
	}
	d.pending[c.Code] = true
	return nil
}

// Pending returns how many inserts were recorded
func (d *DryRun) Pending() int {
	return len(d.pending)
}

// Close closes the wrapped store
func (d *DryRun) Close() error {
	if d.next == nil {
		return nil
	}
	return d.next.Close()
}
