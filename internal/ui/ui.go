package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/wrapped/internal/models"
	"github.com/desertthunder/wrapped/internal/tasks"
	"github.com/desertthunder/wrapped/internal/view"
)

// Tab identifies a tab in the stats viewer.
type Tab int

const (
	OverviewTab Tab = iota
	ArtistsTab
	TracksTab
)

var tabNames = []string{"Overview", "Artists", "Tracks"}

func (t Tab) String() string {
	if int(t) < len(tabNames) {
		return tabNames[t]
	}
	return ""
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	engine    tasks.Engine
	token     string
	timeRange models.TimeRange

	tab     Tab
	width   int
	height  int
	loading bool

	wrapped *models.Wrapped
	page    *view.Page
	artists list.Model
	tracks  list.Model
	spinner spinner.Model

	progressChan chan tasks.ProgressUpdate
	done         chan Msg
	progress     tasks.ProgressUpdate

	err  error
	help help.Model
	keys keyMap
}

// NewModel creates a TUI model that fetches stats with token.
func NewModel(ctx context.Context, engine tasks.Engine, token string, timeRange models.TimeRange) *Model {
	if timeRange == "" {
		timeRange = models.DefaultTimeRange
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.accent

	return &Model{
		ctx:       ctx,
		engine:    engine,
		token:     token,
		timeRange: timeRange,
		tab:       OverviewTab,
		artists:   newList("Top Artists", nil),
		tracks:    newList("Top Tracks", nil),
		spinner:   sp,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

func newList(title string, items []list.Item) list.Model {
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	return l
}

// Init starts the first fetch.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetchStats())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.artists.SetSize(msg.Width-4, msg.Height-8)
		m.tracks.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			m.progress = msg.data.(tasks.ProgressUpdate)
			return m, m.waitForProgress()
		case MsgStatsFetched:
			result := msg.data.(statsResult)
			m.setStats(result.wrapped, result.err)
			return m, nil
		}
	}

	return m.updateLists(msg)
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.next):
		m.tab = (m.tab + 1) % Tab(len(tabNames))
		return m, nil
	case key.Matches(msg, m.keys.prev):
		m.tab = (m.tab + Tab(len(tabNames)) - 1) % Tab(len(tabNames))
		return m, nil
	case key.Matches(msg, m.keys.timeRange):
		if m.loading {
			return m, nil
		}
		m.timeRange = m.timeRange.Next()
		return m, tea.Batch(m.spinner.Tick, m.fetchStats())
	case key.Matches(msg, m.keys.refresh):
		if m.loading {
			return m, nil
		}
		return m, tea.Batch(m.spinner.Tick, m.fetchStats())
	}
	return m.updateLists(msg)
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.tab {
	case ArtistsTab:
		m.artists, cmd = m.artists.Update(msg)
	case TracksTab:
		m.tracks, cmd = m.tracks.Update(msg)
	}
	return m, cmd
}

func (m *Model) setStats(w *models.Wrapped, err error) {
	m.loading = false
	m.err = err
	if w == nil {
		return
	}

	m.wrapped = w
	m.page = view.Build(w)
	m.artists.SetItems(artistItems(w.TopArtists))
	m.tracks.SetItems(trackItems(w.TopTracks))
	m.artists.Title = fmt.Sprintf("Top Artists (%s)", w.TimeRange.Label())
	m.tracks.Title = fmt.Sprintf("Top Tracks (%s)", w.TimeRange.Label())
}

// fetchStats runs the engine in the background. Progress is read by [Model.waitForProgress] and the result
// is delivered once the progress channel closes.
func (m *Model) fetchStats() tea.Cmd {
	m.loading = true
	m.err = nil
	m.progress = tasks.ProgressUpdate{Message: "Starting..."}

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan Msg, 1)
	m.progressChan = progress
	m.done = done

	ctx, engine, token, tr := m.ctx, m.engine, m.token, m.timeRange
	go func() {
		w, err := engine.Fetch(ctx, token, tr, progress)
		done <- statsFetchedMsg(w, err)
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.done
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

// View renders the UI based on the current tab.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(m.renderLoading())
	case m.err != nil:
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
	case m.tab == ArtistsTab:
		b.WriteString(m.artists.View())
	case m.tab == TracksTab:
		b.WriteString(m.tracks.View())
	default:
		b.WriteString(m.renderOverview())
	}

	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderTabs() string {
	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		if Tab(i) == m.tab {
			tabs[i] = styles.active.Render(name)
		} else {
			tabs[i] = styles.tab.Render(name)
		}
	}
	label := styles.help.Render(m.timeRange.Label())
	return lipgloss.JoinHorizontal(lipgloss.Top, append(tabs, "  ", label)...)
}

func (m *Model) renderLoading() string {
	return fmt.Sprintf("%s %s", m.spinner.View(), m.progress.Message)
}

func (m *Model) renderOverview() string {
	p := m.page
	if p == nil {
		p = view.NewPage()
	}

	var sections []string
	sections = append(sections, styles.title.Render(p.Text(view.WelcomeMessage)))

	artist := p.Text(view.TopArtistName)
	if !p.IsPlaceholder(view.TopArtistName) {
		artist = fmt.Sprintf("%s\n%s", p.Text(view.TopArtistHeading), styles.accent.Render(artist))
	}
	sections = append(sections, styles.box.Render(artist))

	song := p.Text(view.TopSongText)
	if name := p.Text(view.TopSongName); name != "" {
		song = fmt.Sprintf("%s\n%s", song, styles.accent.Render(name))
	}
	sections = append(sections, styles.box.Render(song))

	var top5 strings.Builder
	top5.WriteString("Top 5")
	items := p.Items()
	if len(items) == 0 {
		top5.WriteString("\n" + p.Text(view.Top5SongList))
	}
	for _, item := range items {
		top5.WriteString("\n" + item.Text)
	}
	sections = append(sections, styles.box.Render(top5.String()))

	sections = append(sections, styles.box.Render("Top genre\n"+styles.accent.Render(p.Text(view.TopGenreText))))

	for _, n := range p.Notices {
		sections = append(sections, styles.warn.Render("! "+n))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
