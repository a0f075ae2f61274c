package instagram

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestGraph_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != "tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/me/media":
			w.Write([]byte(`{"data":[{"id":"m1"},{"id":"m2"}]}`))
		case "/m1/comments":
			w.Write([]byte(`{"data":[{"id":"c1","text":"you are great"},{"id":"c2","text":"go away"}]}`))
		case "/m2/comments":
			w.Write([]byte(`{"data":[{"id":"c3","text":"nice"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	g := NewGraph(GraphConfig{BaseURL: srv.URL})

	got, err := g.Fetch(context.Background(), "tok", 0)
	if err != nil {
		t.Fatalf("Fetch() unexpected error: %v", err)
	}
	want := []string{"you are great", "go away", "nice"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Fetch() = %q; want %q", got, want)
	}

	got, err = g.Fetch(context.Background(), "tok", 2)
	if err != nil || len(got) != 2 {
		t.Errorf("Fetch(limit=2) = %q, %v", got, err)
	}

	if _, err := g.Fetch(context.Background(), "", 10); !errors.Is(err, ErrNoToken) {
		t.Errorf("Fetch() without token err = %v; want ErrNoToken", err)
	}
	if _, err := g.Fetch(context.Background(), "bad", 10); err == nil {
		t.Error("Fetch() with rejected token expected error")
	}
}

func TestSession_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Cookie") != "sessionid=abc" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(`{"comments":[{"text":"one"},{"text":" two "},{"text":""}]}`))
	}))
	defer srv.Close()

	s := NewSession(SessionConfig{FeedURL: srv.URL, Path: "comments.#.text"})
	got, err := s.Fetch(context.Background(), "sessionid=abc", 10)
	if err != nil {
		t.Fatalf("Fetch() unexpected error: %v", err)
	}
	if want := []string{"one", "two"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Fetch() = %q; want %q", got, want)
	}
	if _, err := s.Fetch(context.Background(), "sessionid=other", 10); err == nil {
		t.Error("Fetch() with rejected cookie expected error")
	}
	if _, err := s.Fetch(context.Background(), "", 10); !errors.Is(err, ErrNoToken) {
		t.Errorf("Fetch() without cookie err = %v; want ErrNoToken", err)
	}
}

func TestStatic_Fetch(t *testing.T) {
	got, _ := NewStatic(nil).Fetch(context.Background(), 0)
	if !reflect.DeepEqual(got, DefaultComments) {
		t.Errorf("Fetch() = %q; want defaults", got)
	}
	got, _ = NewStatic([]string{"a", "b", "c"}).Fetch(context.Background(), 2)
	if want := []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Fetch(limit=2) = %q; want %q", got, want)
	}
}
