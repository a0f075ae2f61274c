package data

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"nohate/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
)

var testSealKey = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

func TestSealedBackend(t *testing.T) {
	mem := newMemoryBackend()
	sealed, err := newSealedBackend(mem, testSealKey)
	if err != nil {
		t.Fatalf("newSealedBackend: %v", err)
	}
	r := newStateRepo(sealed, log.DefaultLogger)
	ctx := context.Background()

	cred := biz.Credential{OAuthToken: "secret-token"}
	if err := r.Update(ctx, func(tx biz.StateTx) error { return tx.SetCredential(biz.ConnectorGraph, cred) }); err != nil {
		t.Fatalf("SetCredential: %v", err)
	}

	stored := mem.values[prefixOAuth+biz.ConnectorGraph]
	if stored == "" || strings.Contains(stored, "secret-token") {
		t.Errorf("stored value %q is not sealed", stored)
	}

	var got biz.Credential
	if err := r.View(ctx, func(tx biz.StateTx) error {
		var err error
		got, err = tx.Credential(biz.ConnectorGraph)
		return err
	}); err != nil {
		t.Fatalf("View: %v", err)
	}
	if got != cred {
		t.Errorf("Credential() = %+v; want %+v", got, cred)
	}

	// a value moved under another key must not open
	mem.values[prefixCookies+biz.ConnectorGraph] = stored
	err = r.View(ctx, func(tx biz.StateTx) error {
		_, err := tx.Credential(biz.ConnectorGraph)
		return err
	})
	if !errors.Is(err, errSealed) {
		t.Errorf("swapped value err = %v; want errSealed", err)
	}
}

func TestNewSealedBackend_BadKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"not base64", "!!!"},
		{"short key", base64.StdEncoding.EncodeToString([]byte("short"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := newSealedBackend(newMemoryBackend(), tt.key); err == nil {
				t.Error("expected error")
			}
		})
	}
}
