package flows

import (
	"context"
)

// LoginFailureKind classifies login failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureInvalidCredentials
	LoginFailureLookup
	LoginFailureVerifier
	LoginFailureIssue
)

// LoginResult carries the issued pair or failure metadata. IssueFailure is
// set when Failure is LoginFailureIssue.
type LoginResult struct {
	Failure      LoginFailureKind
	IssueFailure IssueFailureKind
	Err          error
	Subject      string
	Pair         MintedPair
}

// LoginDeps captures login dependencies. FindByUsername returns (nil, nil)
// for an unknown username.
type LoginDeps struct {
	FindByUsername   func(context.Context, string) (*PrincipalRecord, error)
	VerifyCredential func(context.Context, *PrincipalRecord, string) (bool, error)
	Issue            IssueDeps
}

// RunLogin checks secret for username and issues a pair bound to
// clientContext. Unknown usernames and wrong secrets fail identically.
func RunLogin(ctx context.Context, username, secret, clientContext string, deps LoginDeps) LoginResult {
	if username == "" || secret == "" {
		return LoginResult{Failure: LoginFailureInvalidCredentials}
	}

	principal, err := deps.FindByUsername(ctx, username)
	if err != nil {
		return LoginResult{Failure: LoginFailureLookup, Err: err}
	}
	if principal == nil {
		return LoginResult{Failure: LoginFailureInvalidCredentials}
	}

	ok, err := deps.VerifyCredential(ctx, principal, secret)
	if err != nil {
		return LoginResult{Failure: LoginFailureVerifier, Err: err, Subject: principal.Subject}
	}
	if !ok {
		return LoginResult{Failure: LoginFailureInvalidCredentials, Subject: principal.Subject}
	}

	issued := RunIssuePair(ctx, principal.Subject, clientContext, deps.Issue)
	if issued.Failure != IssueFailureNone {
		return LoginResult{
			Failure:      LoginFailureIssue,
			IssueFailure: issued.Failure,
			Err:          issued.Err,
			Subject:      principal.Subject,
		}
	}

	return LoginResult{Failure: LoginFailureNone, Subject: principal.Subject, Pair: issued.Pair}
}
