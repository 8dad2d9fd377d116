package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a stats run.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Flow phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Err     error  // Set when the step failed and was skipped
	Data    any    // Optional phase-specific data for advanced UIs
}

// Phase enumerates the states of the authorize-then-fetch flow.
//
//	NoCode → Redirect → HasCode → TokenExchanged → fetches → DataFetched → Rendered
type Phase int

const (
	NoCode Phase = iota
	Redirect
	HasCode
	TokenExchanged
	FetchProfile
	FetchArtists
	FetchTracks
	FetchGenre
	FetchTop5
	DataFetched
	Rendered
)

func (p Phase) String() string {
	switch p {
	case NoCode:
		return "no_code"
	case Redirect:
		return "redirect"
	case HasCode:
		return "has_code"
	case TokenExchanged:
		return "token_exchanged"
	case FetchProfile:
		return "fetch_profile"
	case FetchArtists:
		return "fetch_artists"
	case FetchTracks:
		return "fetch_tracks"
	case FetchGenre:
		return "fetch_genre"
	case FetchTop5:
		return "fetch_top5"
	case DataFetched:
		return "data_fetched"
	case Rendered:
		return "rendered"
	default:
		return ""
	}
}

// PhaseFor reports where a request enters the flow: with an authorization code it resumes at [HasCode].
func PhaseFor(code string) Phase {
	if code == "" {
		return NoCode
	}
	return HasCode
}

func fetchStartedUpdate(op fetchOperation, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   op.phase,
		Step:    step,
		Total:   total,
		Message: op.message,
	}
}

func fetchFailedUpdate(op fetchOperation, step, total int, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   op.phase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, op.name, err),
		Err:     err,
	}
}

func dataFetchedUpdate(total, failed int) ProgressUpdate {
	msg := fmt.Sprintf("Fetched %d/%d stats", total-failed, total)
	if failed == 0 {
		msg = "All stats fetched"
	}
	return ProgressUpdate{
		Phase:   DataFetched,
		Step:    total,
		Total:   total,
		Message: msg,
	}
}

// RenderedUpdate marks the end of a run once a front end has displayed the result.
func RenderedUpdate(target string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Rendered,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Rendered stats to %s", target),
	}
}
