package auth

// UpstreamIdentity represents the attributes the upstream IdP asserts
// for one active browser session. It contains facts only, no decisions,
// and is never persisted as-is: it exists per validation call and is
// discarded once mapped onto a local user.
type UpstreamIdentity struct {
	Provider    string // identity authority name, e.g. "upstream-cms"
	ExternalID  string // upstream user id, raw form as received
	Email       string
	Username    string
	DisplayName string
	Roles       []string
	AvatarURL   string
	Metadata    map[string]any
}
