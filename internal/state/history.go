package state

import "time"

// ChangeRecord is an entry in the state history.
type ChangeRecord struct {
	Timestamp time.Time
	Path      string
	Type      ChangeType
	OldValue  Value
	NewValue  Value
	Source    string
}

// DefaultHistoryDepth is the number of changes kept by default.
const DefaultHistoryDepth = 10
