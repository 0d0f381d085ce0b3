package flows

import (
	"context"

	"github.com/MrEthical07/goToken/jwt"
)

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Verify.Decode != nil && s.deps.Verify.SessionStore != nil
}

func (s Service) IssuePair(ctx context.Context, subject, clientContext string) IssueResult {
	return RunIssuePair(ctx, subject, clientContext, s.deps.Issue)
}

func (s Service) Verify(ctx context.Context, token string, expected jwt.Kind, clientContext string) VerifyResult {
	return RunVerify(ctx, token, expected, clientContext, s.deps.Verify)
}

func (s Service) Rotate(ctx context.Context, refreshToken, clientContext string) RotateResult {
	return RunRotate(ctx, refreshToken, clientContext, s.deps.Rotate)
}

func (s Service) RevokePair(ctx context.Context, subject, clientContext string) error {
	return RunRevokePair(ctx, subject, clientContext, s.deps.Revoke)
}

func (s Service) RevokeAll(ctx context.Context, subject string) (int, error) {
	return RunRevokeAll(ctx, subject, s.deps.Revoke)
}

func (s Service) RevokeByAccessToken(ctx context.Context, accessToken, clientContext string) RevokeByAccessResult {
	return RunRevokeByAccessToken(ctx, accessToken, clientContext, s.deps.Revoke)
}

func (s Service) Authenticate(ctx context.Context, accessToken, clientContext string, minRank int) AuthenticateResult {
	return RunAuthenticate(ctx, accessToken, clientContext, minRank, s.deps.Authenticate)
}

func (s Service) Login(ctx context.Context, username, secret, clientContext string) LoginResult {
	return RunLogin(ctx, username, secret, clientContext, s.deps.Login)
}
