// Package ui implements an interactive terminal viewer for listening stats using bubbletea's Elm architecture.
//
// The [Model] fetches stats through a [tasks.Engine] with an access token obtained beforehand and shows them on
// three tabs:
//  1. [OverviewTab] : the stats page (welcome, top artist, top song, top 5, top genre)
//  2. [ArtistsTab] : ranked top artists with genres
//  3. [TracksTab] : ranked top tracks
//
// Pressing t cycles the time range and refetches. Progress updates flow through a channel from the engine while
// a fetch runs.
package ui
