package biz

import (
	"strings"
	"time"
)

// Collection caps. Bounded collections keep the most recent entries.
const (
	FlaggedCap       = 500
	HiddenCap        = 500
	LexiconCap       = 1000
	ScanHistoryCap   = 200
	LogCap           = 1000
	TrainingQueueCap = 500
	LastCommentsCap  = 500
)

// FlaggedItem is a comment judged hateful.
type FlaggedItem struct {
	Text      string `json:"text"`
	SourceURL string `json:"source_url,omitempty"` // empty when unknown
}

// HiddenItem is a flagged comment the user suppressed from view.
type HiddenItem = FlaggedItem

// ScanStat is one completed run.
type ScanStat struct {
	TimestampMillis int64 `json:"timestamp_millis"`
	TotalComments   int   `json:"total_comments"`
	FlaggedCount    int   `json:"flagged_count"`
}

// ScanProgress is overwritten by every run.
type ScanProgress struct {
	Total   int    `json:"total"`
	Done    int    `json:"done"`
	Message string `json:"message"`
}

// LogEntry is a line of the persisted diagnostic trail.
type LogEntry struct {
	TimestampMillis int64  `json:"timestamp_millis"`
	Message         string `json:"message"`
}

// UserLexicon holds user-taught phrases, lowercased and trimmed.
type UserLexicon struct {
	Hate []string `json:"hate"`
	Safe []string `json:"safe"`
}

// Stored text never contains the record and field separator bytes of the
// state encoding; both are replaced by a space.
var separatorReplacer = strings.NewReplacer("\u0001", " ", "\u0002", " ")

// StoredText returns s in the form the state store keeps it. Comparisons
// against stored texts must use this form.
func StoredText(s string) string {
	return separatorReplacer.Replace(s)
}

// NormalizePhrase case-folds a user-taught phrase.
func NormalizePhrase(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MetricName names a monotonically increasing counter.
type MetricName string

const (
	MetricFalsePositive  MetricName = "false_positive"
	MetricHidden         MetricName = "hidden"
	MetricDeleted        MetricName = "deleted"
	MetricReported       MetricName = "reported"
	MetricLlmInvocations MetricName = "llm_invocations"
	MetricTrainedHate    MetricName = "trained_hate"
	MetricTrainedSafe    MetricName = "trained_safe"
	MetricTotalProcessed MetricName = "total_processed"
)

// MetricNames lists every counter in display order.
var MetricNames = []MetricName{
	MetricFalsePositive,
	MetricHidden,
	MetricDeleted,
	MetricReported,
	MetricLlmInvocations,
	MetricTrainedHate,
	MetricTrainedSafe,
	MetricTotalProcessed,
}

func (m MetricName) String() string {
	return string(m)
}

// Metrics is a snapshot of all counters.
type Metrics map[MetricName]int64

// Credential holds what a connector needs to talk to the platform.
type Credential struct {
	OAuthToken     string `json:"oauth_token,omitempty"`
	SessionCookies string `json:"session_cookies,omitempty"`
}

// IsZero reports whether nothing is stored.
func (c Credential) IsZero() bool {
	return c.OAuthToken == "" && c.SessionCookies == ""
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

// retainLast keeps the most recent n entries of s.
func retainLast[T any](s []T, n int) []T {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
