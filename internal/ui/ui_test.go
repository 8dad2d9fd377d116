package ui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/wrapped/internal/models"
	"github.com/desertthunder/wrapped/internal/shared"
	"github.com/desertthunder/wrapped/internal/tasks"
	tu "github.com/desertthunder/wrapped/internal/testing"
	"github.com/desertthunder/wrapped/internal/view"
)

func newTestModel(stats *tu.MockStatsService) *Model {
	engine := tasks.NewStatsEngine(&tu.MockAuthorizer{}, stats, &tu.MemoryVerifierStore{}, nil)
	return NewModel(context.Background(), engine, "abc", models.ShortTerm)
}

func sampleStats() *tu.MockStatsService {
	w := tu.SampleWrapped()
	return &tu.MockStatsService{Profile: w.Profile, Artists: w.TopArtists, Tracks: w.TopTracks}
}

// drain runs cmd and feeds each message back into the model until the stats arrive.
func drain(t *testing.T, m *Model, cmd tea.Cmd) []tasks.ProgressUpdate {
	t.Helper()

	var updates []tasks.ProgressUpdate
	for i := 0; i < 100 && cmd != nil; i++ {
		msg := cmd()
		if u, ok := msg.(Msg); ok && u.kind == MsgProgressUpdate {
			updates = append(updates, u.data.(tasks.ProgressUpdate))
		}
		_, cmd = m.Update(msg)
		if u, ok := msg.(Msg); ok && u.kind == MsgStatsFetched {
			return updates
		}
	}
	t.Fatal("stats never arrived")
	return nil
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestModel(t *testing.T) {
	t.Run("shows loading then overview", func(t *testing.T) {
		m := newTestModel(sampleStats())
		cmd := m.fetchStats()

		if !m.loading || !strings.Contains(m.View(), "Starting...") {
			t.Error("expected loading view")
		}

		updates := drain(t, m, cmd)
		if len(updates) == 0 {
			t.Error("expected progress updates")
		}
		if m.loading || m.err != nil {
			t.Fatalf("unexpected state loading=%v err=%v", m.loading, m.err)
		}

		out := m.View()
		for _, want := range []string{
			"Hi Ada, Welcome to your Spotify Wrapped",
			"Taylor Swift",
			"Cruel Summer by Taylor Swift",
			"1. Cruel Summer by Taylor Swift",
			"pop",
			"last 4 weeks",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("overview missing %q", want)
			}
		}
	})

	t.Run("tabs cycle", func(t *testing.T) {
		m := newTestModel(sampleStats())
		drain(t, m, m.fetchStats())
		m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

		m.Update(keyMsg("tab"))
		if m.tab != ArtistsTab || !strings.Contains(m.View(), "SZA") {
			t.Errorf("expected artists tab, got %s", m.tab)
		}

		m.Update(keyMsg("tab"))
		if m.tab != TracksTab || !strings.Contains(m.View(), "Kill Bill") {
			t.Errorf("expected tracks tab, got %s", m.tab)
		}

		m.Update(keyMsg("tab"))
		if m.tab != OverviewTab {
			t.Errorf("expected overview tab, got %s", m.tab)
		}

		m.Update(keyMsg("shift+tab"))
		if m.tab != TracksTab {
			t.Errorf("expected tracks tab, got %s", m.tab)
		}
	})

	t.Run("time range key refetches", func(t *testing.T) {
		stats := sampleStats()
		m := newTestModel(stats)
		drain(t, m, m.fetchStats())

		m.Update(keyMsg("t"))
		if m.timeRange != models.MediumTerm || !m.loading {
			t.Fatalf("expected medium_term refetch, got %s loading=%v", m.timeRange, m.loading)
		}

		drain(t, m, m.waitForProgress())

		if m.wrapped.TimeRange != models.MediumTerm {
			t.Errorf("expected medium_term stats, got %s", m.wrapped.TimeRange)
		}
		if stats.CallCount("profile") != 2 {
			t.Errorf("expected two profile fetches, got %d", stats.CallCount("profile"))
		}
	})

	t.Run("keys ignored while loading", func(t *testing.T) {
		m := newTestModel(sampleStats())
		cmd := m.fetchStats()
		m.Update(keyMsg("t"))
		if m.timeRange != models.ShortTerm {
			t.Error("time range should not change while loading")
		}
		drain(t, m, cmd)
	})

	t.Run("partial stats show notices", func(t *testing.T) {
		stats := sampleStats()
		stats.ArtistsErr = shared.ErrTokenExpired
		m := newTestModel(stats)
		drain(t, m, m.fetchStats())

		out := m.View()
		if !strings.Contains(out, view.NoArtistsMessage) || !strings.Contains(out, "Could not load top_artists.") {
			t.Errorf("expected fallback and notice in:\n%s", out)
		}
	})

	t.Run("canceled context shows error", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		engine := tasks.NewStatsEngine(&tu.MockAuthorizer{}, sampleStats(), &tu.MemoryVerifierStore{}, nil)
		m := NewModel(ctx, engine, "abc", "")

		drain(t, m, m.fetchStats())
		if m.err == nil || !strings.Contains(m.View(), "Error:") {
			t.Error("expected error view")
		}
	})

	t.Run("quit", func(t *testing.T) {
		m := newTestModel(sampleStats())
		_, cmd := m.Update(keyMsg("q"))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected tea.QuitMsg")
		}
	})
}

func TestListItems(t *testing.T) {
	w := tu.SampleWrapped()

	artists := artistItems(w.TopArtists)
	if a := artists[1].(artistItem); a.Title() != "2. SZA" || a.Description() != "r&b, pop" {
		t.Errorf("unexpected artist item %q / %q", a.Title(), a.Description())
	}
	if a := (artistItem{rank: 1, artist: models.Artist{Name: "X"}}); a.Description() != "no genres" {
		t.Errorf("unexpected description %q", a.Description())
	}

	tracks := trackItems(w.TopTracks)
	if tr := tracks[0].(trackItem); tr.Title() != "1. Cruel Summer" || tr.Description() != "Taylor Swift • Lover" {
		t.Errorf("unexpected track item %q / %q", tr.Title(), tr.Description())
	}
}
