// Package cache defines the outlet event journal. Events are written after
// operations complete and are only read back for reporting; nothing in the
// journal is used to answer an outlet query.
package cache

import "time"

const (
	ActionGet   = "get"
	ActionOn    = "on"
	ActionOff   = "off"
	ActionCycle = "cycle"
)

type OutletEvent struct {
	Host      string    `db:"host" json:"host" yaml:"host"`
	Port      int       `db:"port" json:"port" yaml:"port"`
	Outlet    int       `db:"outlet" json:"outlet" yaml:"outlet"`
	Action    string    `db:"action" json:"action" yaml:"action"`
	State     string    `db:"state" json:"state" yaml:"state"`
	Error     string    `db:"error" json:"error,omitempty" yaml:"error,omitempty"`
	Timestamp time.Time `db:"timestamp" json:"timestamp" yaml:"timestamp"`
}

// Journal records outlet events.
type Journal interface {
	Record(events ...OutletEvent) error
}

// Discard is a Journal that drops every event.
type Discard struct{}

func (Discard) Record(...OutletEvent) error { return nil }
