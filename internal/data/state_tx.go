package data

import (
	"context"
	"sort"
	"strconv"

	"nohate/internal/biz"
)

// stateTx implements biz.StateTx over a kvReader. Writes are staged and
// handed to the backend when the transaction function returns nil.
type stateTx struct {
	ctx      context.Context
	r        kvReader
	readOnly bool
	staged   map[string]change
}

var _ biz.StateTx = (*stateTx)(nil)

func newStateTx(ctx context.Context, r kvReader, readOnly bool) *stateTx {
	return &stateTx{ctx: ctx, r: r, readOnly: readOnly, staged: make(map[string]change)}
}

func (t *stateTx) raw(key string) (string, bool, error) {
	if c, ok := t.staged[key]; ok {
		return c.value, !c.del, nil
	}
	return t.r.get(t.ctx, key)
}

func (t *stateTx) str(key string) (string, error) {
	v, _, err := t.raw(key)
	return v, err
}

func (t *stateTx) put(key, value string) error {
	if t.readOnly {
		return errReadOnly
	}
	t.staged[key] = change{value: value}
	return nil
}

func (t *stateTx) del(key string) error {
	if t.readOnly {
		return errReadOnly
	}
	t.staged[key] = change{del: true}
	return nil
}

// keys returns the staged keys in sorted order.
func (t *stateTx) keys() []string {
	keys := make([]string, 0, len(t.staged))
	for k := range t.staged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (t *stateTx) items(key string) ([]biz.FlaggedItem, error) {
	raw, err := t.str(key)
	if err != nil {
		return nil, err
	}
	return decodeFlagged(raw), nil
}

func (t *stateTx) putItems(key string, items []biz.FlaggedItem, limit int) error {
	if len(items) > limit {
		items = items[len(items)-limit:]
	}
	return t.put(key, encodeFlagged(items))
}

func (t *stateTx) strings(key string) ([]string, error) {
	raw, err := t.str(key)
	if err != nil {
		return nil, err
	}
	return decodeStrings(raw), nil
}

func (t *stateTx) putStrings(key string, items []string, limit int) error {
	if len(items) > limit {
		items = items[len(items)-limit:]
	}
	return t.put(key, encodeStrings(items))
}

func (t *stateTx) removeAt(key string, index int) (biz.FlaggedItem, error) {
	items, err := t.items(key)
	if err != nil {
		return biz.FlaggedItem{}, err
	}
	if index < 0 || index >= len(items) {
		return biz.FlaggedItem{}, biz.ErrIndexOutOfRange
	}
	it := items[index]
	items = append(items[:index], items[index+1:]...)
	return it, t.put(key, encodeFlagged(items))
}

func (t *stateTx) appendTo(key string, limit int, add ...biz.FlaggedItem) error {
	items, err := t.items(key)
	if err != nil {
		return err
	}
	return t.putItems(key, append(items, add...), limit)
}

func (t *stateTx) Flagged() ([]biz.FlaggedItem, error) {
	return t.items(keyFlagged)
}

func (t *stateTx) AppendFlagged(items ...biz.FlaggedItem) error {
	if len(items) == 0 {
		return nil
	}
	return t.appendTo(keyFlagged, biz.FlaggedCap, items...)
}

func (t *stateTx) SetFlagged(items []biz.FlaggedItem) error {
	return t.putItems(keyFlagged, items, biz.FlaggedCap)
}

func (t *stateTx) RemoveFlaggedAt(index int) (biz.FlaggedItem, error) {
	return t.removeAt(keyFlagged, index)
}

func (t *stateTx) CorrectFalsePositive(index int) (biz.FlaggedItem, error) {
	it, err := t.removeAt(keyFlagged, index)
	if err != nil {
		return it, err
	}
	if p := biz.NormalizePhrase(it.Text); p != "" {
		if err := t.addPhrase(keyLexiconSafe, p); err != nil {
			return it, err
		}
	}
	return it, t.IncMetric(biz.MetricFalsePositive, 1)
}

func (t *stateTx) HideFlaggedAt(index int) (biz.FlaggedItem, error) {
	it, err := t.removeAt(keyFlagged, index)
	if err != nil {
		return it, err
	}
	if err := t.appendTo(keyHidden, biz.HiddenCap, it); err != nil {
		return it, err
	}
	return it, t.IncMetric(biz.MetricHidden, 1)
}

func (t *stateTx) Hidden() ([]biz.HiddenItem, error) {
	return t.items(keyHidden)
}

func (t *stateTx) UnhideAt(index int) (biz.HiddenItem, error) {
	it, err := t.removeAt(keyHidden, index)
	if err != nil {
		return it, err
	}
	return it, t.appendTo(keyFlagged, biz.FlaggedCap, it)
}

func (t *stateTx) TrainingQueue() ([]string, error) {
	return t.strings(keyTraining)
}

func (t *stateTx) EnqueueTraining(texts ...string) (int, error) {
	queue, err := t.strings(keyTraining)
	if err != nil {
		return 0, err
	}
	queued := make(map[string]struct{}, len(queue)+len(texts))
	for _, q := range queue {
		queued[q] = struct{}{}
	}
	added := 0
	for _, text := range texts {
		text = sanitize(text)
		if biz.NormalizePhrase(text) == "" {
			continue
		}
		if _, ok := queued[text]; ok {
			continue
		}
		queued[text] = struct{}{}
		queue = append(queue, text)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	return added, t.putStrings(keyTraining, queue, biz.TrainingQueueCap)
}

func (t *stateTx) PeekTraining() (string, bool, error) {
	queue, err := t.strings(keyTraining)
	if err != nil || len(queue) == 0 {
		return "", false, err
	}
	return queue[0], true, nil
}

func (t *stateTx) DequeueTraining() (string, bool, error) {
	queue, err := t.strings(keyTraining)
	if err != nil || len(queue) == 0 {
		return "", false, err
	}
	return queue[0], true, t.put(keyTraining, encodeStrings(queue[1:]))
}

func (t *stateTx) Lexicon() (biz.UserLexicon, error) {
	hate, err := t.strings(keyLexiconHate)
	if err != nil {
		return biz.UserLexicon{}, err
	}
	safe, err := t.strings(keyLexiconSafe)
	if err != nil {
		return biz.UserLexicon{}, err
	}
	return biz.UserLexicon{Hate: hate, Safe: safe}, nil
}

func (t *stateTx) AddHatePhrase(text string) error {
	return t.teach(keyLexiconHate, biz.MetricTrainedHate, text)
}

func (t *stateTx) AddSafePhrase(text string) error {
	return t.teach(keyLexiconSafe, biz.MetricTrainedSafe, text)
}

func (t *stateTx) teach(key string, metric biz.MetricName, text string) error {
	p := biz.NormalizePhrase(sanitize(text))
	if p == "" {
		return biz.ErrBlankPhrase
	}
	if err := t.addPhrase(key, p); err != nil {
		return err
	}
	return t.IncMetric(metric, 1)
}

// addPhrase appends a normalized phrase unless present.
func (t *stateTx) addPhrase(key, phrase string) error {
	phrases, err := t.strings(key)
	if err != nil {
		return err
	}
	for _, p := range phrases {
		if p == phrase {
			return nil
		}
	}
	return t.putStrings(key, append(phrases, phrase), biz.LexiconCap)
}

func (t *stateTx) ScanHistory() ([]biz.ScanStat, error) {
	raw, err := t.str(keyScanHistory)
	if err != nil {
		return nil, err
	}
	return decodeScanStats(raw), nil
}

func (t *stateTx) AppendScanHistory(stat biz.ScanStat) error {
	history, err := t.ScanHistory()
	if err != nil {
		return err
	}
	history = append(history, stat)
	if len(history) > biz.ScanHistoryCap {
		history = history[len(history)-biz.ScanHistoryCap:]
	}
	return t.put(keyScanHistory, encodeScanStats(history))
}

func (t *stateTx) LastScan() (biz.ScanStat, error) {
	raw, ok, err := t.raw(keyLastScan)
	if err != nil || !ok {
		return biz.ScanStat{}, err
	}
	return decodeScanStat(raw), nil
}

func (t *stateTx) SetLastScan(stat biz.ScanStat) error {
	return t.put(keyLastScan, encodeScanStat(stat))
}

func (t *stateTx) LastComments() ([]string, error) {
	return t.strings(keyLastComments)
}

func (t *stateTx) SetLastComments(texts []string) error {
	return t.putStrings(keyLastComments, texts, biz.LastCommentsCap)
}

func (t *stateTx) Progress() (biz.ScanProgress, error) {
	raw, ok, err := t.raw(keyProgress)
	if err != nil || !ok {
		return biz.ScanProgress{}, err
	}
	return decodeProgress(raw), nil
}

func (t *stateTx) SetProgress(p biz.ScanProgress) error {
	return t.put(keyProgress, encodeProgress(p))
}

func (t *stateTx) Logs() ([]biz.LogEntry, error) {
	raw, err := t.str(keyLogs)
	if err != nil {
		return nil, err
	}
	return decodeLogs(raw), nil
}

func (t *stateTx) AppendLog(message string) error {
	logs, err := t.Logs()
	if err != nil {
		return err
	}
	logs = append(logs, biz.LogEntry{TimestampMillis: nowMillis(), Message: message})
	if len(logs) > biz.LogCap {
		logs = logs[len(logs)-biz.LogCap:]
	}
	return t.put(keyLogs, encodeLogs(logs))
}

func (t *stateTx) ClearLogs() error {
	return t.del(keyLogs)
}

func (t *stateTx) Metrics() (biz.Metrics, error) {
	m := make(biz.Metrics, len(biz.MetricNames))
	for _, name := range biz.MetricNames {
		v, err := t.metric(name)
		if err != nil {
			return nil, err
		}
		m[name] = v
	}
	return m, nil
}

func (t *stateTx) metric(name biz.MetricName) (int64, error) {
	raw, ok, err := t.raw(prefixMetric + name.String())
	if err != nil || !ok {
		return 0, err
	}
	v, _ := strconv.ParseInt(raw, 10, 64)
	return v, nil
}

// IncMetric adds delta to a counter. Counters never decrease, so a
// non-positive delta is ignored.
func (t *stateTx) IncMetric(name biz.MetricName, delta int64) error {
	if delta <= 0 {
		return nil
	}
	v, err := t.metric(name)
	if err != nil {
		return err
	}
	return t.put(prefixMetric+name.String(), strconv.FormatInt(v+delta, 10))
}

func (t *stateTx) Settings() (biz.Settings, error) {
	s := biz.DefaultSettings()
	if raw, ok, err := t.raw(keyInterval); err != nil {
		return s, err
	} else if ok {
		if v, err := strconv.Atoi(raw); err == nil {
			s.IntervalMinutes = v
		}
	}
	if raw, ok, err := t.raw(keyThreshold); err != nil {
		return s, err
	} else if ok {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			s.FlagThreshold = v
		}
	}
	if raw, ok, err := t.raw(keyMaxPerURL); err != nil {
		return s, err
	} else if ok {
		if v, err := strconv.Atoi(raw); err == nil {
			s.MaxCommentsPerURL = v
		}
	}
	var err error
	if s.UseQuantizedModel, err = t.flag(keyUseQuant); err != nil {
		return s, err
	}
	if s.UseLlm, err = t.flag(keyUseLlm); err != nil {
		return s, err
	}
	if s.MonitoredURLs, err = t.strings(keyMonitoredURLs); err != nil {
		return s, err
	}
	features, err := t.strings(keyFeatureKeys)
	if err != nil {
		return s, err
	}
	for _, k := range features {
		if s.Connectors[k], err = t.flag(prefixFeature + k); err != nil {
			return s, err
		}
	}
	return s.Normalize(), nil
}

func (t *stateTx) flag(key string) (bool, error) {
	raw, err := t.str(key)
	if err != nil {
		return false, err
	}
	v, _ := strconv.ParseBool(raw)
	return v, nil
}

func (t *stateTx) SaveSettings(s biz.Settings) error {
	s = s.Normalize()
	prev, err := t.strings(keyFeatureKeys)
	if err != nil {
		return err
	}
	for _, k := range prev {
		if _, ok := s.Connectors[k]; !ok {
			if err := t.del(prefixFeature + k); err != nil {
				return err
			}
		}
	}
	features := make([]string, 0, len(s.Connectors))
	for k, v := range s.Connectors {
		features = append(features, k)
		if err := t.put(prefixFeature+k, strconv.FormatBool(v)); err != nil {
			return err
		}
	}
	sort.Strings(features)
	puts := []struct{ key, value string }{
		{keyInterval, strconv.Itoa(s.IntervalMinutes)},
		{keyThreshold, strconv.FormatFloat(s.FlagThreshold, 'f', -1, 64)},
		{keyMaxPerURL, strconv.Itoa(s.MaxCommentsPerURL)},
		{keyUseQuant, strconv.FormatBool(s.UseQuantizedModel)},
		{keyUseLlm, strconv.FormatBool(s.UseLlm)},
		{keyMonitoredURLs, encodeStrings(s.MonitoredURLs)},
		{keyFeatureKeys, encodeStrings(features)},
	}
	for _, p := range puts {
		if err := t.put(p.key, p.value); err != nil {
			return err
		}
	}
	return nil
}

func (t *stateTx) Credential(provider string) (biz.Credential, error) {
	var (
		c   biz.Credential
		err error
	)
	if c.OAuthToken, err = t.str(prefixOAuth + provider); err != nil {
		return c, err
	}
	c.SessionCookies, err = t.str(prefixCookies + provider)
	return c, err
}

func (t *stateTx) SetCredential(provider string, c biz.Credential) error {
	if c.OAuthToken != "" {
		if err := t.put(prefixOAuth+provider, c.OAuthToken); err != nil {
			return err
		}
	}
	if c.SessionCookies != "" {
		if err := t.put(prefixCookies+provider, c.SessionCookies); err != nil {
			return err
		}
	}
	return nil
}

func (t *stateTx) ClearProvider(provider string) error {
	if err := t.del(prefixOAuth + provider); err != nil {
		return err
	}
	return t.del(prefixCookies + provider)
}
