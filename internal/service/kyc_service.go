package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/arcfin/loanledger/internal/config"
	"github.com/arcfin/loanledger/internal/domain"
	"github.com/google/uuid"
)

// ──────────────────────────────────────────────────────────────────────────────
// KYCService
// ──────────────────────────────────────────────────────────────────────────────

// KYCService queries the external entity directory for counterparty
// verification verdicts and caches them per entity. Any transport or
// decoding failure surfaces as a wrapped ErrDirectoryUnavailable so callers
// can map it to the external-dependency error class; the service never
// invents a verdict.
type KYCService struct {
	client *http.Client
	cfg    *config.DirectoryConfig

	// in-memory verdict cache
	mu    sync.RWMutex
	cache map[uuid.UUID]cachedVerdict
}

type cachedVerdict struct {
	result    *domain.KYCResult
	fetchedAt time.Time
}

// NewKYCService constructs a KYCService from the given config.
func NewKYCService(cfg *config.Config) *KYCService {
	return &KYCService{
		client: &http.Client{Timeout: cfg.Directory.FetchTimeout},
		cfg:    &cfg.Directory,
		cache:  make(map[uuid.UUID]cachedVerdict),
	}
}

// Verify fetches the directory's KYC verdict for one entity. A fresh cached
// verdict (< CacheTTL) is returned without a network round trip.
//
//	GET /entities/{id}/verification
//	{"entity_id":"…","status":"VERIFIED","lender_verified":true,"counterparty_verified":true}
func (ks *KYCService) Verify(ctx context.Context, entityID uuid.UUID) (*domain.KYCResult, error) {
	// ── Cache check ──────────────────────────────────────────────────────────
	ks.mu.RLock()
	if cv, ok := ks.cache[entityID]; ok && time.Since(cv.fetchedAt) < ks.cfg.CacheTTL {
		ks.mu.RUnlock()
		return cv.result, nil
	}
	ks.mu.RUnlock()

	url := fmt.Sprintf("%s/entities/%s/verification", ks.cfg.BaseURL, entityID)
	body, err := ks.doGet(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("kyc_service: %s: %w: %w", entityID, domain.ErrDirectoryUnavailable, err)
	}

	var result domain.KYCResult
	if err = json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("kyc_service: parse verdict: %w: %w", domain.ErrDirectoryUnavailable, err)
	}
	if result.EntityID == uuid.Nil {
		result.EntityID = entityID
	}

	ks.mu.Lock()
	ks.cache[entityID] = cachedVerdict{result: &result, fetchedAt: time.Now()}
	ks.mu.Unlock()

	return &result, nil
}

// Invalidate drops any cached verdict for the entity, forcing the next
// Verify to hit the directory. Used by the back-office after a manual
// re-screening.
func (ks *KYCService) Invalidate(entityID uuid.UUID) {
	ks.mu.Lock()
	delete(ks.cache, entityID)
	ks.mu.Unlock()
}

// doGet performs an HTTP GET with the service's client and returns the body
// bytes, or an error for any non-200 status code.
func (ks *KYCService) doGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "arcfin-loanledger/1.0")

	resp, err := ks.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// StubVerifier
// ──────────────────────────────────────────────────────────────────────────────

// StubVerifier is the in-memory Verifier used in development and tests when
// no directory base URL is configured. Unregistered entities verify clean.
type StubVerifier struct {
	mu       sync.RWMutex
	verdicts map[uuid.UUID]*domain.KYCResult
}

// NewStubVerifier creates an empty StubVerifier.
func NewStubVerifier() *StubVerifier {
	return &StubVerifier{verdicts: make(map[uuid.UUID]*domain.KYCResult)}
}

// Set registers a fixed verdict for an entity.
func (sv *StubVerifier) Set(entityID uuid.UUID, result *domain.KYCResult) {
	sv.mu.Lock()
	sv.verdicts[entityID] = result
	sv.mu.Unlock()
}

// Verify returns the registered verdict, or a fully verified one when the
// entity was never registered.
func (sv *StubVerifier) Verify(_ context.Context, entityID uuid.UUID) (*domain.KYCResult, error) {
	sv.mu.RLock()
	defer sv.mu.RUnlock()
	if r, ok := sv.verdicts[entityID]; ok {
		return r, nil
	}
	return &domain.KYCResult{
		EntityID:             entityID,
		Status:               domain.VerificationVerified,
		LenderVerified:       true,
		CounterpartyVerified: true,
	}, nil
}
