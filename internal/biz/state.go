package biz

import (
	"context"

	"github.com/go-kratos/kratos/v2/errors"
)

var (
	// ErrIndexOutOfRange is returned when an index does not address an item.
	ErrIndexOutOfRange = errors.NotFound("INDEX_OUT_OF_RANGE", "no item at index")
	// ErrQueueEmpty is returned when the training queue has nothing to answer.
	ErrQueueEmpty = errors.NotFound("TRAINING_QUEUE_EMPTY", "training queue is empty")
	// ErrBlankPhrase is returned when a blank phrase is taught.
	ErrBlankPhrase = errors.BadRequest("BLANK_PHRASE", "phrase must not be blank")
)

// StateTx is a read-modify-write view of the state store. All changes made
// through one StateTx are committed together or not at all. Getters return
// independent copies.
type StateTx interface {
	Flagged() ([]FlaggedItem, error)
	AppendFlagged(items ...FlaggedItem) error
	SetFlagged(items []FlaggedItem) error
	RemoveFlaggedAt(index int) (FlaggedItem, error)
	// CorrectFalsePositive moves the item's text into the safe lexicon.
	CorrectFalsePositive(index int) (FlaggedItem, error)
	HideFlaggedAt(index int) (FlaggedItem, error)

	Hidden() ([]HiddenItem, error)
	UnhideAt(index int) (HiddenItem, error)

	TrainingQueue() ([]string, error)
	// EnqueueTraining appends texts not already queued and returns how many were added.
	EnqueueTraining(texts ...string) (int, error)
	PeekTraining() (string, bool, error)
	DequeueTraining() (string, bool, error)

	Lexicon() (UserLexicon, error)
	AddHatePhrase(text string) error
	AddSafePhrase(text string) error

	ScanHistory() ([]ScanStat, error)
	AppendScanHistory(stat ScanStat) error
	LastScan() (ScanStat, error)
	SetLastScan(stat ScanStat) error
	LastComments() ([]string, error)
	SetLastComments(texts []string) error
	Progress() (ScanProgress, error)
	SetProgress(p ScanProgress) error

	Logs() ([]LogEntry, error)
	AppendLog(message string) error
	ClearLogs() error

	Metrics() (Metrics, error)
	IncMetric(name MetricName, delta int64) error

	Settings() (Settings, error)
	SaveSettings(s Settings) error
	Credential(provider string) (Credential, error)
	SetCredential(provider string, c Credential) error
	ClearProvider(provider string) error
}

// StateEvent announces a committed change.
type StateEvent struct {
	Keys []string `json:"keys"`
	At   int64    `json:"at"`
}

// StateRepo serializes access to the state store.
type StateRepo interface {
	View(ctx context.Context, fn func(tx StateTx) error) error
	Update(ctx context.Context, fn func(tx StateTx) error) error
	// Subscribe delivers an event after every committed Update until cancel is called.
	Subscribe() (events <-chan StateEvent, cancel func())
}
