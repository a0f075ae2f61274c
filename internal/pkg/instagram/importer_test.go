package instagram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

const postPage = `<html><head><script type="application/json">
{"items":[{"text":"first comment"},{"text":"with \"quotes\" and é"},{"text":"  "}]}
</script></head><body><p>"text":"not in a script"</p></body></html>`

const postJSON = `{"graphql":{"shortcode_media":{"edge_media_to_parent_comment":{"edges":[
{"node":{"text":"json one"}},{"node":{"text":""}},{"node":{"text":"json two"}}]}}}}`

func TestExtractHTML(t *testing.T) {
	got := ExtractHTML([]byte(postPage), 10)
	want := []string{"first comment", `with "quotes" and é`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractHTML() = %q; want %q", got, want)
	}
	if got := ExtractHTML([]byte(postPage), 1); len(got) != 1 {
		t.Errorf("ExtractHTML(limit=1) returned %d texts", len(got))
	}
}

func TestScriptTexts_JSONEscapes(t *testing.T) {
	tests := []struct {
		script string
		want   []string
	}{
		{`{"text":"see https:\/\/x.y"}`, []string{"see https://x.y"}},
		{`{"text":"caf\u00e9"}`, []string{"café"}},
		{`{"text":"line\nbreak \\ slash"}`, []string{"line\nbreak \\ slash"}},
		{`{"text":"tab\tend"}`, []string{"tab\tend"}},
	}
	for _, tt := range tests {
		if got := scriptTexts(tt.script); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("scriptTexts(%s) = %q; want %q", tt.script, got, tt.want)
		}
	}
}

func TestShortcode(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.instagram.com/p/Cx1_a-B/", "Cx1_a-B"},
		{"https://www.instagram.com/reel/abc123", "abc123"},
		{"https://www.instagram.com/someone/", ""},
	}
	for _, tt := range tests {
		if got := Shortcode(tt.url); got != tt.want {
			t.Errorf("Shortcode(%q) = %q; want %q", tt.url, got, tt.want)
		}
	}
}

func TestImporter_Import(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/p/withhtml/":
			gotUA = r.Header.Get("User-Agent")
			w.Write([]byte(postPage))
		case r.URL.Path == "/p/jsononly/" && r.URL.Query().Get("__a") == "1":
			w.Write([]byte(postJSON))
		case r.URL.Path == "/p/jsononly/":
			w.Write([]byte("<html><body>login required</body></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	im := NewImporter(ImporterConfig{BaseURL: srv.URL})

	tests := []struct {
		name    string
		url     string
		limit   int
		want    []string
		wantErr bool
	}{
		{"html", srv.URL + "/p/withhtml/", 10, []string{"first comment", `with "quotes" and é`}, false},
		{"json fallback", srv.URL + "/p/jsononly/", 10, []string{"json one", "json two"}, false},
		{"json fallback limited", srv.URL + "/p/jsononly/", 1, []string{"json one"}, false},
		{"missing post", srv.URL + "/p/missing/", 10, nil, true},
		{"not a post", srv.URL + "/someone/", 10, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := im.Import(context.Background(), tt.url, tt.limit)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Import() err = %v; wantErr %v", err, tt.wantErr)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Import() = %q; want %q", got, tt.want)
			}
		})
	}
	if gotUA != DefaultUserAgent {
		t.Errorf("User-Agent = %q; want %q", gotUA, DefaultUserAgent)
	}
}
