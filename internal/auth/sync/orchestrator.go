// Package sync holds the cross-authority session synchronization state
// machine:
//
//	Start -> Validating -> Resolving -> Issuing -> {Success | Fallback | Failed}
//
// Every retry and fallback decision lives here, nowhere else.
package sync

import (
	"context"
	"time"

	"session-sync/internal/auth"
	"session-sync/internal/auth/issuer"
	"session-sync/internal/auth/resolver"
	"session-sync/internal/auth/validator"
	"session-sync/internal/broadcast"
	"session-sync/internal/logger"
	"session-sync/internal/session"
)

const (
	// Validation retries apply only to transient transport faults.
	// A negative answer from the upstream is final for the attempt.
	defaultMaxValidateAttempts = 3
	defaultRetryBackoff        = 250 * time.Millisecond
)

type Orchestrator struct {
	validator   validator.Validator
	resolver    resolver.Resolver
	issuer      *issuer.Issuer
	broadcaster broadcast.Publisher

	maxValidateAttempts int
	retryBackoff        time.Duration
}

type Option func(*Orchestrator)

// WithRetryPolicy overrides the validation retry bound and backoff
// unit. Backoff is linear: unit, 2*unit, ...
func WithRetryPolicy(attempts int, backoff time.Duration) Option {
	return func(o *Orchestrator) {
		if attempts > 0 {
			o.maxValidateAttempts = attempts
		}
		if backoff >= 0 {
			o.retryBackoff = backoff
		}
	}
}

func NewOrchestrator(
	v validator.Validator,
	r resolver.Resolver,
	i *issuer.Issuer,
	b broadcast.Publisher,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		validator:           v,
		resolver:            r,
		issuer:              i,
		broadcaster:         b,
		maxValidateAttempts: defaultMaxValidateAttempts,
		retryBackoff:        defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Sync runs one full synchronization cycle. It always returns a
// terminal Outcome; classified failures never surface as errors.
func (o *Orchestrator) Sync(ctx context.Context, req validator.Request) Outcome {

	// Validating
	identity, err := o.validate(ctx, req)
	if err != nil {
		code := auth.CodeOf(err)
		logValidationFailure(code, err)
		return failed(code)
	}

	// Resolving
	user, err := o.resolver.Resolve(ctx, identity)
	if err != nil {
		code := auth.CodeOf(err)
		logger.Error("identity resolution failed", map[string]any{
			"provider": identity.Provider,
			"code":     string(code),
			"error":    err.Error(),
		})
		return failed(code)
	}

	// Issuing
	issued, err := o.issuer.Issue(ctx, user.ID)
	if err == nil {
		o.publish(broadcast.EventSessionCreated, user.ID)
		logger.Info("session synchronized", map[string]any{
			"userId": user.ID,
			"token":  session.TokenPrefix(issued.Session.Token),
		})
		return Outcome{
			Status:  StatusSuccess,
			User:    user,
			Session: &issued.Session,
			Cookie:  issued.Cookie,
		}
	}

	logger.Error("durable session issuance failed", map[string]any{
		"userId": user.ID,
		"error":  err.Error(),
	})

	// Identity is already confirmed; degrade instead of failing the
	// whole synchronization.
	issued, fbErr := o.issuer.IssueFallback(ctx, user.ID)
	if fbErr != nil {
		logger.Error("fallback session issuance failed", map[string]any{
			"userId": user.ID,
			"error":  fbErr.Error(),
		})
		return failed(auth.CodePersistenceError)
	}

	o.publish(broadcast.EventSessionFallback, user.ID)
	logger.Warn("fallback session issued", map[string]any{
		"userId": user.ID,
		"token":  session.TokenPrefix(issued.Session.Token),
	})

	return Outcome{
		Status:  StatusFallback,
		User:    user,
		Session: &issued.Session,
		Cookie:  issued.Cookie,
		Warning: auth.CodeFallbackUsed,
	}
}

// validate calls the upstream validator, retrying transient transport
// faults with linear backoff up to the configured bound.
func (o *Orchestrator) validate(
	ctx context.Context,
	req validator.Request,
) (*auth.UpstreamIdentity, error) {

	var lastErr error
	for attempt := 1; attempt <= o.maxValidateAttempts; attempt++ {
		identity, err := o.validator.Validate(ctx, req)
		if err == nil {
			return identity, nil
		}
		lastErr = err

		if !auth.Retryable(err) || attempt == o.maxValidateAttempts {
			break
		}

		logger.Warn("upstream validation failed, retrying", map[string]any{
			"attempt": attempt,
			"error":   err.Error(),
		})

		select {
		case <-ctx.Done():
			return nil, auth.NewSyncError(
				auth.CodeTransportError,
				"validation cancelled",
				ctx.Err(),
			)
		case <-time.After(o.retryBackoff * time.Duration(attempt)):
		}
	}
	return nil, lastErr
}

func (o *Orchestrator) publish(eventType, userID string) {
	broadcast.FireAndForget(o.broadcaster, broadcast.Event{
		Type:   eventType,
		UserID: userID,
	})
}

func logValidationFailure(code auth.Code, err error) {
	switch code {
	case auth.CodeNoUpstreamSession:
		// Expected: the user simply is not logged in upstream.
		logger.Info("no upstream session", map[string]any{
			"reason": auth.ReasonOf(err),
		})
	case auth.CodeUpstreamRejected:
		logger.Info("upstream rejected session check", map[string]any{
			"reason": auth.ReasonOf(err),
		})
	case auth.CodeTransportError:
		logger.Warn("upstream validation transport failure", map[string]any{
			"error": err.Error(),
		})
	default:
		logger.Error("upstream validation failed", map[string]any{
			"code":  string(code),
			"error": err.Error(),
		})
	}
}
