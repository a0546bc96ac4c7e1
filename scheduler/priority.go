package scheduler

import (
	"fmt"
	"strings"
)

// Priority orders queued tasks. Higher values run first.
type Priority int8

const (
	// Low is for housekeeping work that may wait indefinitely under load.
	Low Priority = iota
	// Normal is the default priority for subscriber deliveries.
	Normal
	// High is for latency sensitive consumers.
	High
	// RealTime preempts everything else that is queued.
	RealTime
)

const numPriorities = int(RealTime) + 1

// Priorities lists every level from highest to lowest, the order the worker scans in.
var Priorities = [numPriorities]Priority{RealTime, High, Normal, Low}

// String returns a human-readable priority name.
func (p Priority) String() string {
	switch p {
	case Low:
		return "low"
	case Normal:
		return "normal"
	case High:
		return "high"
	case RealTime:
		return "realtime"
	default:
		return fmt.Sprintf("priority(%d)", int8(p))
	}
}

// Valid reports whether p is one of the defined levels.
func (p Priority) Valid() bool {
	return p >= Low && p <= RealTime
}

// clamp maps out of range values onto the nearest defined level.
func (p Priority) clamp() Priority {
	switch {
	case p < Low:
		return Low
	case p > RealTime:
		return RealTime
	default:
		return p
	}
}

// ParsePriority converts a level name (case insensitive) back into a Priority.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return Low, nil
	case "normal", "":
		return Normal, nil
	case "high":
		return High, nil
	case "realtime", "real-time", "rt":
		return RealTime, nil
	default:
		return Normal, fmt.Errorf("unknown priority %q", s)
	}
}
