package middleware

import (
	"context"
	"net/http"
	"strings"

	goToken "github.com/MrEthical07/goToken"
	"go.uber.org/zap"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the result stored by a guard.
func AuthResultFromContext(ctx context.Context) (*goToken.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*goToken.AuthResult)
	return res, ok
}

// Options tunes a guard. The zero value authenticates without a rank check.
type Options struct {
	// MinRank, when positive, requires Principal.RoleRank >= MinRank.
	MinRank int
	// ClientContext overrides goToken.ClientContextFromRequest, for hosts
	// that bind sessions to an opaque id instead of headers.
	ClientContext func(*http.Request) string
	// Logger receives one debug entry per rejected request.
	Logger *zap.Logger
}

// Guard returns middleware that admits only requests carrying a live access
// token for their client context.
func Guard(engine *goToken.Engine, opts Options) func(http.Handler) http.Handler {
	clientContext := opts.ClientContext
	if clientContext == nil {
		clientContext = goToken.ClientContextFromRequest
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token := TokenFromRequest(r, engine.Cookies().AccessName)
			res, err := engine.Authenticate(r.Context(), token, clientContext(r), opts.MinRank)
			if err != nil {
				status := goToken.HTTPStatus(err)
				logger.Debug("request rejected",
					zap.String("path", r.URL.Path),
					zap.Stringer("failure", goToken.FailureOf(err)),
					zap.Int("status", status),
				)
				http.Error(w, http.StatusText(status), status)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRank is Guard with a rank threshold and default options.
func RequireRank(engine *goToken.Engine, minRank int) func(http.Handler) http.Handler {
	return Guard(engine, Options{MinRank: minRank})
}

// TokenFromRequest returns the bearer token, or the value of cookieName when
// no Authorization header is present. It returns "" when neither is set.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if header := r.Header.Get("Authorization"); header != "" {
		token, _ := bearerToken(header)
		return token
	}
	if cookieName == "" {
		return ""
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
