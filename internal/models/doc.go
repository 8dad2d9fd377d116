// Package models defines the domain types shared by the fetcher, the view layer and the front ends.
//
//   - [Profile] : the signed-in user
//   - [Artist], [Track], [Album], [Image] : ranked top items
//   - [TimeRange] : provider-defined listening history bucket
//   - [Wrapped] : everything one run fetched, including the fetch errors that were isolated
//
// Provider JSON shapes live in the services package and are mapped onto these types.
package models
