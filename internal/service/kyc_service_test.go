package service_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/arcfin/loanledger/internal/config"
	"github.com/arcfin/loanledger/internal/domain"
	"github.com/arcfin/loanledger/internal/service"
	"github.com/google/uuid"
)

func directoryConfig(baseURL string) *config.Config {
	return &config.Config{
		Directory: config.DirectoryConfig{
			BaseURL:      baseURL,
			FetchTimeout: 2 * time.Second,
			CacheTTL:     5 * time.Minute,
		},
	}
}

func TestKYCVerify(t *testing.T) {
	entityID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		want := fmt.Sprintf("/entities/%s/verification", entityID)
		if r.URL.Path != want {
			t.Errorf("path = %q, want %q", r.URL.Path, want)
		}
		fmt.Fprintf(w, `{"entity_id":%q,"status":"VERIFIED","lender_verified":true,"counterparty_verified":true}`, entityID)
	}))
	defer srv.Close()

	ks := service.NewKYCService(directoryConfig(srv.URL))
	result, err := ks.Verify(context.Background(), entityID)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !result.Passes() {
		t.Errorf("verdict should pass, got %+v", result)
	}
	if result.EntityID != entityID {
		t.Errorf("entity ID = %s, want %s", result.EntityID, entityID)
	}
}

func TestKYCVerifyRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":"REJECTED","lender_verified":false,"counterparty_verified":false}`)
	}))
	defer srv.Close()

	ks := service.NewKYCService(directoryConfig(srv.URL))
	result, err := ks.Verify(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if result.Passes() {
		t.Error("rejected verdict should not pass")
	}
}

// A directory outage must surface as ErrDirectoryUnavailable, never as a
// fabricated verdict.
func TestKYCVerifyDirectoryDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ks := service.NewKYCService(directoryConfig(srv.URL))
	result, err := ks.Verify(context.Background(), uuid.New())
	if result != nil {
		t.Errorf("expected no verdict, got %+v", result)
	}
	if !errors.Is(err, domain.ErrDirectoryUnavailable) {
		t.Errorf("error should wrap ErrDirectoryUnavailable, got %v", err)
	}
	if !domain.IsExternal(err) {
		t.Errorf("IsExternal(%v) = false, want true", err)
	}
}

func TestKYCVerifyMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"status":`)
	}))
	defer srv.Close()

	ks := service.NewKYCService(directoryConfig(srv.URL))
	_, err := ks.Verify(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrDirectoryUnavailable) {
		t.Errorf("error should wrap ErrDirectoryUnavailable, got %v", err)
	}
}

// A fresh verdict is served from cache without a second round trip;
// Invalidate forces the next call back to the directory.
func TestKYCVerifyCaching(t *testing.T) {
	var hits int64
	entityID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt64(&hits, 1)
		fmt.Fprint(w, `{"status":"VERIFIED","lender_verified":true,"counterparty_verified":true}`)
	}))
	defer srv.Close()

	ks := service.NewKYCService(directoryConfig(srv.URL))
	for i := 0; i < 3; i++ {
		if _, err := ks.Verify(context.Background(), entityID); err != nil {
			t.Fatalf("Verify #%d: %v", i+1, err)
		}
	}
	if n := atomic.LoadInt64(&hits); n != 1 {
		t.Errorf("directory hits = %d, want 1 (cached)", n)
	}

	ks.Invalidate(entityID)
	if _, err := ks.Verify(context.Background(), entityID); err != nil {
		t.Fatalf("Verify after invalidate: %v", err)
	}
	if n := atomic.LoadInt64(&hits); n != 2 {
		t.Errorf("directory hits = %d, want 2 after invalidate", n)
	}
}

func TestStubVerifierDefaultsClean(t *testing.T) {
	sv := service.NewStubVerifier()
	r, err := sv.Verify(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !r.Passes() {
		t.Errorf("unregistered entity should verify clean, got %+v", r)
	}

	flagged := uuid.New()
	sv.Set(flagged, &domain.KYCResult{
		EntityID: flagged,
		Status:   domain.VerificationPending,
	})
	r, err = sv.Verify(context.Background(), flagged)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if r.Passes() {
		t.Error("pending entity should not pass")
	}
}
