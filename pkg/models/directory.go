package models

// Directory entities are external collaborators: the orchestrator only
// resolves them by id to validate references, it never mutates them.

// Department groups processes for organizational filtering.
type Department struct {
	Entity
	Name string `json:"name"`
}

// User is an actor that may execute steps. Inactive users cannot start
// executions.
type User struct {
	Entity
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Role is an organizational role a step may be assigned to.
type Role struct {
	Entity
	Name string `json:"name"`
}
