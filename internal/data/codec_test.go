package data

import (
	"reflect"
	"testing"

	"nohate/internal/biz"
)

func TestFlaggedCodec(t *testing.T) {
	items := []biz.FlaggedItem{
		{Text: "plain", SourceURL: "https://example.com/p/1/"},
		{Text: "no url"},
		{Text: "has\u0001record\u0002and field", SourceURL: "u\u0002rl"},
	}
	got := decodeFlagged(encodeFlagged(items))
	want := []biz.FlaggedItem{
		{Text: "plain", SourceURL: "https://example.com/p/1/"},
		{Text: "no url"},
		{Text: "has record and field", SourceURL: "u rl"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("decodeFlagged(encodeFlagged()) = %+v; want %+v", got, want)
	}
	if got := decodeFlagged(""); len(got) != 0 {
		t.Errorf("decodeFlagged(\"\") = %+v; want empty", got)
	}
}

func TestStringsCodec(t *testing.T) {
	got := decodeStrings(encodeStrings([]string{"a", "", "b\u0001c", "\u0002"}))
	want := []string{"a", "b c", " "}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("decodeStrings(encodeStrings()) = %q; want %q", got, want)
	}
}

func TestScanStatCodec(t *testing.T) {
	stats := []biz.ScanStat{
		{TimestampMillis: 1700000000000, TotalComments: 12, FlaggedCount: 3},
		{TimestampMillis: 1700000060000},
	}
	if got := decodeScanStats(encodeScanStats(stats)); !reflect.DeepEqual(got, stats) {
		t.Errorf("decodeScanStats() = %+v; want %+v", got, stats)
	}
	if got := decodeScanStat("12\u0002x"); got.TimestampMillis != 12 || got.TotalComments != 0 {
		t.Errorf("decodeScanStat(malformed) = %+v", got)
	}
}

func TestLogLineCodec(t *testing.T) {
	tests := []struct {
		name string
		line string
		want biz.LogEntry
	}{
		{"message with colons", "1700:scan:batch 3", biz.LogEntry{TimestampMillis: 1700, Message: "scan:batch 3"}},
		{"no timestamp", "hello", biz.LogEntry{Message: "hello"}},
		{"bad timestamp", "abc:hello", biz.LogEntry{Message: "abc:hello"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeLogLine(tt.line); got != tt.want {
				t.Errorf("decodeLogLine(%q) = %+v; want %+v", tt.line, got, tt.want)
			}
		})
	}

	line := encodeLogLine(biz.LogEntry{TimestampMillis: 5, Message: "two\nlines"})
	if line != "5:two lines" {
		t.Errorf("encodeLogLine() = %q; want %q", line, "5:two lines")
	}
}

func TestProgressCodec(t *testing.T) {
	p := biz.ScanProgress{Total: 10, Done: 4, Message: "Classifying: 4/10"}
	if got := decodeProgress(encodeProgress(p)); got != p {
		t.Errorf("decodeProgress() = %+v; want %+v", got, p)
	}
}
