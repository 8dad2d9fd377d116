// Package tasks runs the authorize-then-fetch sequence that produces a user's listening stats.
//
// # Core Operations
//
// [StatsEngine] drives one run for one user:
//
//  1. [StatsEngine.Begin] : generates a PKCE verifier, persists it and returns the authorization URL
//  2. [StatsEngine.Complete] : consumes the stored verifier and exchanges the authorization code for an access token
//  3. [StatsEngine.Fetch] : reads profile, top artists, top tracks, top genre and top 5 tracks
//
// # Failure Isolation
//
// Each fetch in [StatsEngine.Fetch] runs on its own. A failing fetch is logged, recorded in
// [models.Wrapped.Errors] and leaves its field empty; the remaining fetches still run.
//
// # Progress Reporting
//
// Fetch reports each [Phase] through a [ProgressUpdate] channel. Sends never block; a full
// or nil channel drops the update.
package tasks
