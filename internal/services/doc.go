// Package services talks to the Spotify accounts service and Web API.
//
// # Authorization
//
// [SpotifyAuth] implements [Authorizer] on top of [oauth2.Config] for a public client: no client secret,
// client_id sent in the form body, and the PKCE code_challenge / code_verifier supplied by the caller.
//
// # Statistics
//
// [SpotifyService] implements [StatsService]. Every call is a GET with an "Authorization: Bearer" header and a
// JSON body decoded into the response schemas in this package, then mapped onto the models package.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrTokenExchange] : the token endpoint failed or returned no access_token
//   - [shared.ErrMissingVerifier] : Exchange called without a verifier
//   - [shared.ErrTokenExpired] : the API answered 401
//   - [shared.ErrAPIRequest] : transport failure or any other non-2xx status
//   - [shared.ErrDecode] : the body did not match the expected schema
package services
