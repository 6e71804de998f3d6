// Package session hosts the per-user generation state machine: platform
// selection, precision-mode gating, entitlement, and the in-flight
// generation guard.
package session

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/contentforge/contentforge/internal/keywords"
	"github.com/contentforge/contentforge/internal/model"
)

// ErrSuperseded is returned when a completed generation no longer
// matches the session state that spawned it (platform switch or a newer
// submission) and its result was discarded.
var ErrSuperseded = eris.New("session: result superseded")

// ErrNotSignedIn is returned for operations that require an identity.
var ErrNotSignedIn = eris.New("session: not signed in")

// ContentGenerator produces a content bundle. Satisfied by
// generator.Generator.
type ContentGenerator interface {
	Generate(ctx context.Context, platform model.Platform, topic string, precision bool, keywords []model.TrendingKeyword) (*model.GeneratedContent, error)
}

// EntitlementResolver reports verified premium entitlement. Satisfied
// by entitlement.Resolver.
type EntitlementResolver interface {
	Resolve(ctx context.Context, identity string) (bool, error)
}

// ClaimLogger appends a payment claim to the ledger. Satisfied by
// store.Store.
type ClaimLogger interface {
	LogClaim(ctx context.Context, req model.PaymentRequest) (*model.PaymentRequest, error)
}

// Deps are the collaborators a session mediates between.
type Deps struct {
	Generator ContentGenerator
	Keywords  keywords.Source
	Resolver  EntitlementResolver
	Claims    ClaimLogger
}

// Session is the long-lived state machine behind the generation UI.
// All methods are safe for concurrent use; blocking work (entitlement
// resolution, keyword fetch, generation) happens outside the lock.
type Session struct {
	mu   sync.Mutex
	deps Deps

	identity         string
	premium          bool
	sessionGrant     bool // trust-on-claim grant, dies with the session
	entitlementKnown bool

	platform          model.Platform
	precisionToggle   bool
	upgradePromptOpen bool

	inFlight    bool
	inFlightSeq uint64
	genSeq      uint64
	content     *model.GeneratedContent
}

// New creates a session in its initial state: youtube selected, all
// flags off, entitlement unresolved.
func New(deps Deps, identity string) *Session {
	return &Session{
		deps:     deps,
		identity: identity,
		platform: model.PlatformYouTube,
	}
}

// State is a snapshot of the observable session state.
type State struct {
	Identity          string                  `json:"identity,omitempty"`
	Platform          model.Platform          `json:"platform"`
	PrecisionToggle   bool                    `json:"precision_toggle"`
	Premium           bool                    `json:"premium"`
	UpgradePromptOpen bool                    `json:"upgrade_prompt_open"`
	InFlight          bool                    `json:"in_flight"`
	Content           *model.GeneratedContent `json:"content,omitempty"`
}

// Snapshot returns the current observable state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Identity:          s.identity,
		Platform:          s.platform,
		PrecisionToggle:   s.precisionToggle,
		Premium:           s.premium,
		UpgradePromptOpen: s.upgradePromptOpen,
		InFlight:          s.inFlight,
		Content:           s.content,
	}
}

// SetPlatform selects the target platform and clears previously
// displayed content; a platform switch invalidates any in-flight
// generation.
func (s *Session) SetPlatform(p model.Platform) error {
	if !p.Valid() {
		return eris.Errorf("session: unknown platform %q", p)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.platform = p
	s.content = nil
	s.genSeq++
	return nil
}

// SetPrecisionToggle requests the precision-mode toggle state. Turning
// it off always succeeds. Turning it on requires entitlement; without
// it the upgrade prompt opens and the toggle stays off. It returns the
// effective toggle value.
func (s *Session) SetPrecisionToggle(ctx context.Context, on bool) (bool, error) {
	if !on {
		s.mu.Lock()
		s.precisionToggle = false
		s.mu.Unlock()
		return false, nil
	}

	if err := s.ensureEntitlement(ctx); err != nil {
		// Fail closed: treat as non-premium and surface the prompt.
		zap.L().Warn("session: entitlement unavailable for toggle", zap.Error(err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.premium {
		s.precisionToggle = true
		return true, nil
	}
	s.upgradePromptOpen = true
	s.precisionToggle = false
	return false, nil
}

// DismissUpgradePrompt closes the prompt. Without entitlement the
// toggle reverts to off.
func (s *Session) DismissUpgradePrompt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upgradePromptOpen = false
	if !s.premium {
		s.precisionToggle = false
	}
}

// Result is a completed generation together with the parameters that
// produced it.
type Result struct {
	Platform         model.Platform          `json:"platform"`
	Topic            string                  `json:"topic"`
	PrecisionApplied bool                    `json:"precision_applied"`
	Content          *model.GeneratedContent `json:"content"`
}

// Submit validates the topic and runs a generation for the current
// platform. The effective precision flag is premium AND toggle; it is
// never true without entitlement. The completed result is discarded
// with ErrSuperseded if the platform changed or a newer submission
// started while this one was in flight.
func (s *Session) Submit(ctx context.Context, topic string) (*Result, error) {
	if err := model.ValidateTopic(topic); err != nil {
		return nil, err
	}

	// Submission waits for entitlement resolution before computing the
	// effective precision flag.
	if err := s.ensureEntitlement(ctx); err != nil {
		zap.L().Warn("session: entitlement unavailable for submit", zap.Error(err))
	}

	s.mu.Lock()
	platform := s.platform
	effective := s.premium && s.precisionToggle
	s.genSeq++
	seq := s.genSeq
	s.inFlight = true
	s.inFlightSeq = seq
	s.content = nil
	s.mu.Unlock()

	var trending []model.TrendingKeyword
	if effective {
		kws, err := s.deps.Keywords.Trending(ctx, keywords.DefaultCategory)
		if err != nil {
			// Keyword source failure degrades to empty keywords.
			zap.L().Warn("session: keyword source unavailable", zap.Error(err))
		} else {
			trending = kws
		}
	}

	content, err := s.deps.Generator.Generate(ctx, platform, topic, effective, trending)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Only the newest submission owns the in-flight flag.
	if seq == s.inFlightSeq {
		s.inFlight = false
	}
	if err != nil {
		return nil, eris.Wrap(err, "session: generate")
	}
	if seq != s.genSeq || platform != s.platform {
		// The user navigated away or switched platform; the stale
		// result must not be applied.
		return nil, ErrSuperseded
	}

	s.content = content
	return &Result{
		Platform:         platform,
		Topic:            topic,
		PrecisionApplied: effective,
		Content:          content,
	}, nil
}

// ClaimPayment logs a pending payment claim and, on success, grants a
// session-local entitlement and turns precision mode on. The grant is
// trust-on-claim: it is not backed by a verified ledger record and dies
// with the session.
func (s *Session) ClaimPayment(ctx context.Context, amount float64, currency string) (*model.ClaimResult, error) {
	s.mu.Lock()
	identity := s.identity
	s.mu.Unlock()

	if identity == "" {
		return &model.ClaimResult{Success: false, Error: "user not authenticated"}, ErrNotSignedIn
	}
	if amount <= 0 {
		return &model.ClaimResult{Success: false, Error: "invalid amount"}, eris.New("session: invalid claim amount")
	}

	claim, err := s.deps.Claims.LogClaim(ctx, model.PaymentRequest{
		UserID:   identity,
		Amount:   amount,
		Currency: currency,
	})
	if err != nil {
		// Entitlement unchanged; the user may retry.
		return &model.ClaimResult{Success: false, Error: "failed to log payment claim"}, eris.Wrap(err, "session: log claim")
	}

	s.mu.Lock()
	s.premium = true
	s.sessionGrant = true
	s.entitlementKnown = true
	s.precisionToggle = true
	s.upgradePromptOpen = false
	s.mu.Unlock()

	return &model.ClaimResult{Success: true, PaymentID: claim.ID}, nil
}

// Premium reports the entitlement for this session, resolving it from
// the ledger on first use. A resolution failure reports false.
func (s *Session) Premium(ctx context.Context) (bool, error) {
	err := s.ensureEntitlement(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.premium, err
}

// ResetIdentity moves the session to a new identity and back to the
// initial state, discarding the session grant and re-resolving
// entitlement from the ledger.
func (s *Session) ResetIdentity(ctx context.Context, identity string) {
	s.mu.Lock()
	s.identity = identity
	s.premium = false
	s.sessionGrant = false
	s.entitlementKnown = false
	s.precisionToggle = false
	s.upgradePromptOpen = false
	s.platform = model.PlatformYouTube
	s.content = nil
	s.genSeq++
	s.inFlight = false
	s.mu.Unlock()

	if err := s.ensureEntitlement(ctx); err != nil {
		zap.L().Warn("session: entitlement resolution failed on identity change", zap.Error(err))
	}
}

// ensureEntitlement resolves premium status from the ledger once per
// session (or after an identity change). The session grant is never
// downgraded by resolution.
func (s *Session) ensureEntitlement(ctx context.Context) error {
	s.mu.Lock()
	if s.entitlementKnown {
		s.mu.Unlock()
		return nil
	}
	identity := s.identity
	s.mu.Unlock()

	premium, err := s.deps.Resolver.Resolve(ctx, identity)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity != identity {
		// Identity changed while resolving; the result is stale.
		return nil
	}
	s.entitlementKnown = true
	if !s.sessionGrant {
		s.premium = premium
	}
	return err
}
