// Package middleware adapts goToken.Engine to net/http.
//
// # Guards
//
//   - [Guard] authenticates the access token and, with Options.MinRank set,
//     enforces a rank threshold.
//   - [RequireRank] is Guard with only a threshold.
//
// Guards read the token from "Authorization: Bearer ..." and fall back to the
// engine's access cookie. The client context is derived from the request
// unless Options.ClientContext overrides it. On success the
// [goToken.AuthResult] is stored in the request context; on failure the
// response status comes from [goToken.HTTPStatus], so a store outage answers
// 503 rather than 401.
//
// This package never parses tokens or touches Redis itself; every decision is
// delegated to Engine.Authenticate.
package middleware
