// Package monitor queries storage pool health and tracks its changes
// across polls.
package monitor

import (
	"fmt"
	"strings"
)

// Health is the health state of a storage pool.
type Health int

const (
	HealthAvailable Health = iota + 1
	HealthDegraded
	HealthFaulted
	HealthOffline
	HealthOnline
	HealthRemoved
	HealthUnavailable
)

func (h Health) String() string {
	switch h {
	case HealthAvailable:
		return "AVAILABLE"
	case HealthDegraded:
		return "DEGRADED"
	case HealthFaulted:
		return "FAULTED"
	case HealthOffline:
		return "OFFLINE"
	case HealthOnline:
		return "ONLINE"
	case HealthRemoved:
		return "REMOVED"
	case HealthUnavailable:
		return "UNAVAILABLE"
	default:
		return fmt.Sprintf("Health(%d)", int(h))
	}
}

// ParseHealth parses a health value as printed by zpool(8). Both the
// abbreviated (AVAIL, UNAVAIL) and full spellings are accepted.
func ParseHealth(s string) (Health, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AVAIL", "AVAILABLE":
		return HealthAvailable, nil
	case "DEGRADED":
		return HealthDegraded, nil
	case "FAULTED":
		return HealthFaulted, nil
	case "OFFLINE":
		return HealthOffline, nil
	case "ONLINE":
		return HealthOnline, nil
	case "REMOVED":
		return HealthRemoved, nil
	case "UNAVAIL", "UNAVAILABLE":
		return HealthUnavailable, nil
	}
	return 0, fmt.Errorf("unknown pool health %q", s)
}

// PoolStatus is a single observation of a pool.
type PoolStatus struct {
	Name   string
	Health Health
}

// Transition is a health change of a known pool.
type Transition struct {
	Name     string
	Previous Health
	Current  Health
}

// HealthMap holds the last observed health of every pool seen since
// startup. Entries are inserted or updated, never removed: a destroyed
// pool keeps its last state until the process restarts.
type HealthMap struct {
	health map[string]Health
}

// NewHealthMap creates an empty HealthMap.
func NewHealthMap() *HealthMap {
	return &HealthMap{health: make(map[string]Health)}
}

// Reconcile folds a fresh observation into the map and returns the
// transitions to report, in observation order. A pool seen for the first
// time only establishes its baseline.
func (m *HealthMap) Reconcile(observed []PoolStatus) []Transition {
	var transitions []Transition
	for _, pool := range observed {
		prev, seen := m.health[pool.Name]
		switch {
		case !seen:
			m.health[pool.Name] = pool.Health
		case prev != pool.Health:
			transitions = append(transitions, Transition{
				Name:     pool.Name,
				Previous: prev,
				Current:  pool.Health,
			})
			m.health[pool.Name] = pool.Health
		}
	}
	return transitions
}

// Get returns the last observed health of a pool.
func (m *HealthMap) Get(name string) (Health, bool) {
	h, ok := m.health[name]
	return h, ok
}

// Len returns the number of pools ever observed.
func (m *HealthMap) Len() int {
	return len(m.health)
}
