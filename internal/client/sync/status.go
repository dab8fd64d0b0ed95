package sync

import (
	"time"
)

// State - состояние конечного автомата цикла синхронизации
type State string

const (
	StateIdle           State = "idle"
	StateFetching       State = "fetching"
	StateMerging        State = "merging"
	StateNoChangeNeeded State = "no-change-needed"
	StateWritingBack    State = "writing-back"
	StateAdopting       State = "adopting"
	StateErrored        State = "errored"
)

// StatusKind - то, что видит пользователь в индикаторе
type StatusKind string

const (
	StatusLocalOnly StatusKind = "local-only"
	StatusPending   StatusKind = "pending"
	StatusSyncing   StatusKind = "syncing"
	StatusSynced    StatusKind = "synced"
	StatusError     StatusKind = "error"
)

// Color returns the indicator colour name for the status
func (k StatusKind) Color() string {
	switch k {
	case StatusSynced:
		return "green"
	case StatusPending, StatusSyncing:
		return "yellow"
	default:
		return "red"
	}
}

// Status - состояние синхронизации коллекции
type Status struct {
	LastSyncAt  time.Time
	Collection  string
	Kind        StatusKind
	Reason      string
	Quarantined int
	Pending     bool
}

// CycleResult - итог одного цикла reconcile
type CycleResult struct {
	// Diagnostic не nil, если часть журнала не прочиталась (ErrMergeInputCorrupt)
	Diagnostic     error
	Collection     string
	Reason         string
	Records        int
	Applied        int
	Suppressed     int
	Remaining      int
	Corrupt        int
	Quarantined    int
	Wrote          bool
	PendingRemains bool
	Shared         bool
}
