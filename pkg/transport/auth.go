package transport

import (
	"errors"
	"net/http"
	"strings"

	"github.com/getmockd/soapd/pkg/httputil"
	"github.com/getmockd/soapd/pkg/logging"
	"github.com/golang-jwt/jwt/v5"
)

// ErrMissingToken is returned when a request carries no bearer token.
var ErrMissingToken = errors.New("missing bearer token")

// AuthConfig configures bearer token authentication.
type AuthConfig struct {
	// Secret is the HMAC key tokens are signed with.
	Secret []byte
	// Issuer, when set, must match the iss claim.
	Issuer string
	// Audience, when set, must be present in the aud claim.
	Audience string
}

// Authenticator verifies HMAC-signed JWT bearer tokens.
type Authenticator struct {
	secret []byte
	parser *jwt.Parser
}

// NewAuthenticator creates an Authenticator from cfg.
func NewAuthenticator(cfg AuthConfig) *Authenticator {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return &Authenticator{secret: cfg.Secret, parser: jwt.NewParser(opts...)}
}

// Verify checks the bearer token of r and returns its claims.
func (a *Authenticator) Verify(r *http.Request) (*jwt.RegisteredClaims, error) {
	raw, ok := bearerToken(r)
	if !ok {
		return nil, ErrMissingToken
	}
	claims := &jwt.RegisteredClaims{}
	if _, err := a.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}); err != nil {
		return nil, err
	}
	return claims, nil
}

// Middleware rejects requests without a valid token with 401. The token
// subject is added to the request logger.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := a.Verify(r)
		if err != nil {
			logging.FromContext(r.Context(), nil).Info("authentication failed", "error", err)
			w.Header().Set("WWW-Authenticate", `Bearer realm="soapd"`)
			httputil.WriteError(w, http.StatusUnauthorized, "unauthorized", "Invalid or missing bearer token")
			return
		}
		log := logging.FromContext(r.Context(), nil).With("subject", claims.Subject)
		next.ServeHTTP(w, r.WithContext(logging.NewContext(r.Context(), log)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
