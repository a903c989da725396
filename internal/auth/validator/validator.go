package validator

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"session-sync/internal/auth"
	"session-sync/internal/auth/transport"
	"session-sync/internal/logger"
)

// ProviderName identifies the single upstream identity authority this
// service synchronizes against. Account links are keyed by it.
const ProviderName = "upstream-cms"

// checkSessionPath is fixed by the upstream plugin; only the base URL
// is deployment configuration.
const checkSessionPath = "/wp-json/session-bridge/v1/check"

const (
	SourceBrowser = "browser"
	SourceServer  = "server"
)

// Request carries the inbound material the validator needs: the call
// mode and, in browser-proxied mode, the browser's cookie jar holding
// the upstream session.
type Request struct {
	Source  string
	Cookies []*http.Cookie
}

// Validator confirms an active upstream session and returns the
// canonical identity attributes, or a classified failure. It returns
// identity facts only and makes no user or session decisions.
type Validator interface {
	Validate(ctx context.Context, req Request) (*auth.UpstreamIdentity, error)
}

type checkRequest struct {
	RequestSource string `json:"requestSource"`
	Timestamp     int64  `json:"timestamp"`
}

type checkResponse struct {
	Success        bool            `json:"success"`
	Reason         string          `json:"reason"`
	ActiveSessions []activeSession `json:"activeSessions"`
}

// activeSession mirrors the upstream wire shape. ExternalID stays raw
// because the upstream emits it as a number or a string depending on
// version; coercion happens fail-closed during resolution.
type activeSession struct {
	ExternalID  json.RawMessage `json:"externalId"`
	Email       string          `json:"email"`
	Username    string          `json:"username"`
	DisplayName string          `json:"displayName"`
	Roles       []string        `json:"roles"`
	AvatarURL   string          `json:"avatarUrl"`
	Metadata    map[string]any  `json:"metadata"`
}

// UpstreamValidator validates sessions via a server-to-server call to
// the upstream IdP.
type UpstreamValidator struct {
	client *transport.Client
}

func NewUpstreamValidator(client *transport.Client) *UpstreamValidator {
	return &UpstreamValidator{client: client}
}

func (v *UpstreamValidator) Validate(
	ctx context.Context,
	req Request,
) (*auth.UpstreamIdentity, error) {

	source := req.Source
	if source == "" {
		source = SourceBrowser
	}

	var resp checkResponse
	err := v.client.PostJSON(
		ctx,
		checkSessionPath,
		checkRequest{
			RequestSource: source,
			Timestamp:     time.Now().Unix(),
		},
		&resp,
		req.Cookies,
	)
	if err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, auth.NewSyncError(
			auth.CodeUpstreamRejected,
			upstreamReason(resp.Reason, "upstream rejected the session check"),
			nil,
		)
	}

	if len(resp.ActiveSessions) == 0 {
		// Keep the upstream's stated reason for diagnostics; it is
		// logged server-side, never shown to the browser.
		return nil, auth.NewSyncError(
			auth.CodeNoUpstreamSession,
			upstreamReason(resp.Reason, "no active upstream session"),
			nil,
		)
	}

	identity, err := toIdentity(resp.ActiveSessions[0])
	if err != nil {
		return nil, err
	}

	if len(resp.ActiveSessions) > 1 {
		logger.Warn("upstream reported multiple active sessions, using first", map[string]any{
			"count": len(resp.ActiveSessions),
		})
	}

	return identity, nil
}

// toIdentity validates the upstream payload fail-closed: any required
// field missing or mistyped is a resolution error, never a silent
// default.
func toIdentity(s activeSession) (*auth.UpstreamIdentity, error) {
	externalID, err := rawExternalID(s.ExternalID)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(s.Email)
	if email == "" {
		return nil, auth.NewSyncError(
			auth.CodeResolutionError,
			"upstream session is missing an email",
			nil,
		)
	}

	displayName := strings.TrimSpace(s.DisplayName)
	if displayName == "" {
		displayName = strings.TrimSpace(s.Username)
	}

	return &auth.UpstreamIdentity{
		Provider:    ProviderName,
		ExternalID:  externalID,
		Email:       email,
		Username:    strings.TrimSpace(s.Username),
		DisplayName: displayName,
		Roles:       s.Roles,
		AvatarURL:   strings.TrimSpace(s.AvatarURL),
		Metadata:    s.Metadata,
	}, nil
}

// rawExternalID unwraps the number-or-string wire form into its
// textual value without interpreting it.
func rawExternalID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", auth.NewSyncError(
			auth.CodeResolutionError,
			"upstream session is missing an external id",
			nil,
		)
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return strings.TrimSpace(asString), nil
	}

	var asNumber json.Number
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return asNumber.String(), nil
	}

	return "", auth.NewSyncError(
		auth.CodeResolutionError,
		"upstream external id is neither number nor string",
		nil,
	)
}

func upstreamReason(reason, fallback string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return fallback
	}
	return reason
}
