package auth

import "context"

type contextKey string

const authContextKey contextKey = "commandgate_auth"

// AuthInfo holds the caller identity established by the auth middleware.
// The zero Permissions set means the caller may only execute commands
// that require none.
type AuthInfo struct {
	KeyID             string
	OrganizationID    string
	UserID            string
	Permissions       []string
	RPMLimit          *int
	DailyCommandLimit *int
}

// Anonymous is the identity of a caller that presented no credentials.
// It never satisfies an auth requirement and holds no permissions.
func Anonymous() *AuthInfo {
	return &AuthInfo{}
}

// Authenticated reports whether the caller presented a valid API key.
func (a *AuthInfo) Authenticated() bool {
	return a != nil && a.KeyID != ""
}

func ContextWithAuth(ctx context.Context, info *AuthInfo) context.Context {
	return context.WithValue(ctx, authContextKey, info)
}

func AuthFromContext(ctx context.Context) (*AuthInfo, bool) {
	info, ok := ctx.Value(authContextKey).(*AuthInfo)
	return info, ok
}
