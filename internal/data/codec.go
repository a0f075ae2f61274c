package data

import (
	"strconv"
	"strings"

	"nohate/internal/biz"
)

// Records of a list are joined by recordSep and the fields of a record by
// fieldSep. biz.StoredText replaces both inside stored text.
const (
	recordSep = "\u0001"
	fieldSep  = "\u0002"
)

func sanitize(s string) string {
	return biz.StoredText(s)
}

func splitRecords(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, recordSep)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func encodeStrings(items []string) string {
	parts := make([]string, 0, len(items))
	for _, s := range items {
		if s = sanitize(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, recordSep)
}

func decodeStrings(raw string) []string {
	return splitRecords(raw)
}

func encodeFlagged(items []biz.FlaggedItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, sanitize(it.Text)+fieldSep+sanitize(it.SourceURL))
	}
	return strings.Join(parts, recordSep)
}

func decodeFlagged(raw string) []biz.FlaggedItem {
	records := splitRecords(raw)
	items := make([]biz.FlaggedItem, 0, len(records))
	for _, r := range records {
		text, url, _ := strings.Cut(r, fieldSep)
		items = append(items, biz.FlaggedItem{Text: text, SourceURL: url})
	}
	return items
}

func encodeScanStat(s biz.ScanStat) string {
	return strconv.FormatInt(s.TimestampMillis, 10) + fieldSep +
		strconv.Itoa(s.TotalComments) + fieldSep +
		strconv.Itoa(s.FlaggedCount)
}

// decodeScanStat reads a record; malformed fields decode as zero.
func decodeScanStat(r string) biz.ScanStat {
	f := strings.Split(r, fieldSep)
	var s biz.ScanStat
	if len(f) > 0 {
		s.TimestampMillis, _ = strconv.ParseInt(f[0], 10, 64)
	}
	if len(f) > 1 {
		s.TotalComments, _ = strconv.Atoi(f[1])
	}
	if len(f) > 2 {
		s.FlaggedCount, _ = strconv.Atoi(f[2])
	}
	return s
}

func encodeScanStats(stats []biz.ScanStat) string {
	parts := make([]string, 0, len(stats))
	for _, s := range stats {
		parts = append(parts, encodeScanStat(s))
	}
	return strings.Join(parts, recordSep)
}

func decodeScanStats(raw string) []biz.ScanStat {
	records := splitRecords(raw)
	stats := make([]biz.ScanStat, 0, len(records))
	for _, r := range records {
		stats = append(stats, decodeScanStat(r))
	}
	return stats
}

var logReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

func encodeLogLine(e biz.LogEntry) string {
	return strconv.FormatInt(e.TimestampMillis, 10) + ":" + sanitize(logReplacer.Replace(e.Message))
}

func decodeLogLine(line string) biz.LogEntry {
	ts, msg, ok := strings.Cut(line, ":")
	if !ok {
		return biz.LogEntry{Message: line}
	}
	millis, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return biz.LogEntry{Message: line}
	}
	return biz.LogEntry{TimestampMillis: millis, Message: msg}
}

func encodeLogs(entries []biz.LogEntry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, encodeLogLine(e))
	}
	return strings.Join(parts, recordSep)
}

func decodeLogs(raw string) []biz.LogEntry {
	records := splitRecords(raw)
	entries := make([]biz.LogEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, decodeLogLine(r))
	}
	return entries
}

func encodeProgress(p biz.ScanProgress) string {
	return strconv.Itoa(p.Total) + fieldSep + strconv.Itoa(p.Done) + fieldSep + sanitize(p.Message)
}

func decodeProgress(raw string) biz.ScanProgress {
	f := strings.SplitN(raw, fieldSep, 3)
	var p biz.ScanProgress
	if len(f) > 0 {
		p.Total, _ = strconv.Atoi(f[0])
	}
	if len(f) > 1 {
		p.Done, _ = strconv.Atoi(f[1])
	}
	if len(f) > 2 {
		p.Message = f[2]
	}
	return p
}
