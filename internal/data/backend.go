package data

import (
	"context"
	"errors"
)

// Keys of the state store. Settings and credentials keep one key per field.
const (
	keyFlagged       = "flagged_comments"
	keyHidden        = "hidden_comments"
	keyTraining      = "training_queue"
	keyLastComments  = "last_comments"
	keyLexiconHate   = "lexicon_hate"
	keyLexiconSafe   = "lexicon_safe"
	keyScanHistory   = "scan_history"
	keyLastScan      = "last_scan"
	keyProgress      = "scan_progress"
	keyLogs          = "logs"
	keyInterval      = "interval_min"
	keyThreshold     = "flag_threshold"
	keyUseQuant      = "use_quant"
	keyUseLlm        = "use_llm"
	keyMaxPerURL     = "max_comments_per_url"
	keyMonitoredURLs = "monitored_urls"
	keyFeatureKeys   = "feature_keys"
	prefixFeature    = "feature_"
	prefixMetric     = "metric_"
	prefixOAuth      = "oauth_"
	prefixCookies    = "cookies_"
)

var errReadOnly = errors.New("data: write in read-only transaction")

// kvReader reads committed values. A missing key reports ok=false.
type kvReader interface {
	get(ctx context.Context, key string) (value string, ok bool, err error)
}

// change is a staged write; del removes the key.
type change struct {
	value string
	del   bool
}

// backend commits a transaction's staged changes all-or-nothing. update may
// call fn more than once when it has to retry.
type backend interface {
	view(ctx context.Context, fn func(r kvReader) error) error
	update(ctx context.Context, fn func(r kvReader) (map[string]change, error)) error
	close() error
}
