// Package models defines the core domain models for process definitions and their executions.
package models

import "time"

// Entity carries the identity and timestamp fields shared by every
// persisted domain object. IDs are assigned by the persistence layer on
// insert; a zero ID marks an entity that has not been stored yet.
type Entity struct {
	ID        int64      `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Touch records a mutation at the given time. UpdatedAt strictly
// increases: when the clock has not advanced past the previous value, the
// new timestamp is nudged forward by the smallest representable increment.
func (e *Entity) Touch(at time.Time) {
	if e.UpdatedAt != nil && !at.After(*e.UpdatedAt) {
		at = e.UpdatedAt.Add(time.Nanosecond)
	}

	e.UpdatedAt = &at
}

func newEntity(at time.Time) Entity {
	return Entity{CreatedAt: at}
}
