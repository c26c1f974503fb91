// Package enrich turns the node stream of one walk into the record set that
// gets upserted: parent stamping, the caught-up boundary against the local
// high-water mark, the audit trail and duplicate resolution.
package enrich

import (
	"fmt"
	"time"

	"ghindexer/internal/model"
	"ghindexer/internal/output"
)

// Mark is the most recently updated record already indexed for a parent.
type Mark struct {
	ID        string
	UpdatedAt time.Time
}

// MarkOf returns nil for records without a usable timestamp.
func MarkOf(id string, updatedAt time.Time) *Mark {
	if updatedAt.IsZero() {
		return nil
	}
	return &Mark{ID: id, UpdatedAt: updatedAt}
}

// Reached reports whether a record is already covered by the index. Records
// older than the mark are, as is the mark record itself. Other records that
// share the mark's timestamp are not.
func (m *Mark) Reached(id string, updatedAt time.Time) bool {
	if m == nil || m.UpdatedAt.IsZero() {
		return false
	}
	if updatedAt.Before(m.UpdatedAt) {
		return true
	}
	return updatedAt.Equal(m.UpdatedAt) && id == m.ID
}

// DedupeFunc decides whether an incoming copy of a held record replaces it.
type DedupeFunc[R model.Record] func(held, incoming R) bool

// Stats counts what happened to the records offered to a collector.
type Stats struct {
	Offered  int
	Kept     int
	Replaced int
	Dropped  int
}

// Collector accumulates the records of one walk. Its Add method is the
// walker's visitor. The zero value keeps every record.
type Collector[R model.Record] struct {
	// Enrich is applied to every record before anything else.
	Enrich func(R) R
	Mark   *Mark
	// Audit receives every record that passes the boundary.
	Audit  output.Sink
	Dedupe DedupeFunc[R]

	records []R
	index   map[string]int
	stopped bool
	stats   Stats
}

// Add offers one record. It returns false once the boundary is reached;
// that record and every later one are discarded.
func (c *Collector[R]) Add(r R) (bool, error) {
	if c.stopped {
		return false, nil
	}
	if c.Enrich != nil {
		r = c.Enrich(r)
	}
	c.stats.Offered++

	if c.Mark.Reached(r.RecordID(), r.RecordUpdatedAt()) {
		c.stopped = true
		c.stats.Dropped++
		return false, nil
	}

	if c.Audit != nil {
		if err := c.Audit.Write(r); err != nil {
			return false, fmt.Errorf("audit record %s: %w", r.RecordID(), err)
		}
	}

	if c.Dedupe != nil {
		if c.index == nil {
			c.index = make(map[string]int)
		}
		if i, ok := c.index[r.RecordID()]; ok {
			if c.Dedupe(c.records[i], r) {
				c.records[i] = r
				c.stats.Replaced++
			} else {
				c.stats.Dropped++
			}
			return true, nil
		}
		c.index[r.RecordID()] = len(c.records)
	}

	c.records = append(c.records, r)
	c.stats.Kept++
	return true, nil
}

func (c *Collector[R]) Records() []R  { return c.records }
func (c *Collector[R]) Stopped() bool { return c.stopped }
func (c *Collector[R]) Stats() Stats  { return c.stats }
