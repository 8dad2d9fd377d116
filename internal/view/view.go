package view

import (
	"fmt"
	"slices"

	"github.com/desertthunder/wrapped/internal/models"
)

// Element IDs on the stats page. TopArtistHeading is a selector for the heading inside the top artist section.
const (
	WelcomeMessage   = "welcome-message"
	TopArtistName    = "top-artist-name"
	TopArtistImage   = "top-artist-image"
	TopArtistHeading = ".top-artist h2"
	TopSongImage     = "top-song-image"
	TopSongText      = "top-song-text"
	TopSongName      = "top-song-name"
	Top5SongList     = "top-5-song-list"
	TopGenreText     = "top-genre-text"
)

// Placeholder and fallback copy.
const (
	DefaultWelcome   = "Welcome to your Spotify Wrapped"
	DefaultHeading   = "Your favorite artist this month was"
	ListeningText    = "You kept listening to"
	NoArtistsMessage = "No top artists found for the specified time range."
	NoTracksMessage  = "No top tracks found for the specified time range."
	NoGenreMessage   = "No top genre found for the specified time range."
)

// ElementIDs lists every addressable element in page order.
var ElementIDs = []string{
	WelcomeMessage,
	TopArtistHeading,
	TopArtistName,
	TopArtistImage,
	TopSongImage,
	TopSongText,
	TopSongName,
	Top5SongList,
	TopGenreText,
}

// Element is the rendered state of one page element. Src and Alt apply to images.
type Element struct {
	Text string
	Src  string
	Alt  string
}

// Item is one entry in the top 5 list.
type Item struct {
	Src  string
	Alt  string
	Text string
}

// Page is the stats page keyed by element ID.
type Page struct {
	elements  map[string]Element
	items     []Item
	TimeRange models.TimeRange
	Notices   []string
}

// NewPage returns a page holding only placeholders.
func NewPage() *Page {
	p := &Page{elements: make(map[string]Element, len(ElementIDs))}
	for _, id := range ElementIDs {
		p.elements[id] = Element{}
	}
	p.elements[WelcomeMessage] = Element{Text: DefaultWelcome}
	p.elements[TopArtistHeading] = Element{Text: DefaultHeading}
	p.elements[TopArtistName] = Element{Text: NoArtistsMessage}
	p.elements[Top5SongList] = Element{Text: NoTracksMessage}
	return p
}

// Get returns the element with id. Unknown IDs yield the zero [Element].
func (p *Page) Get(id string) Element {
	return p.elements[id]
}

// Text returns the text content of the element with id.
func (p *Page) Text(id string) string {
	return p.elements[id].Text
}

// Items returns a copy of the top 5 list entries.
func (p *Page) Items() []Item {
	return slices.Clone(p.items)
}

// IsPlaceholder reports whether the element with id still holds its initial content.
func (p *Page) IsPlaceholder(id string) bool {
	return p.elements[id] == NewPage().elements[id]
}

func (p *Page) set(id string, fn func(*Element)) {
	el := p.elements[id]
	fn(&el)
	p.elements[id] = el
}

func (p *Page) notice(msg string) {
	p.Notices = append(p.Notices, msg)
}

// UpdateWelcome greets the user by display name.
func UpdateWelcome(p *Page, profile *models.Profile) {
	if profile == nil || profile.DisplayName == "" {
		return
	}
	p.set(WelcomeMessage, func(el *Element) {
		el.Text = fmt.Sprintf("Hi %s, %s", profile.DisplayName, DefaultWelcome)
	})
}

// UpdateTopArtist shows the number one artist. An empty list leaves the section untouched.
func UpdateTopArtist(p *Page, artists []models.Artist) {
	if len(artists) == 0 {
		p.notice(NoArtistsMessage)
		return
	}

	top := artists[0]
	p.set(TopArtistName, func(el *Element) { el.Text = top.Name })
	p.set(TopArtistImage, func(el *Element) {
		el.Src = top.ImageURL()
		el.Alt = top.Name + " image"
	})
	p.set(TopArtistHeading, func(el *Element) {
		el.Text = fmt.Sprintf("%s %s", DefaultHeading, top.Name)
	})
}

// UpdateTopSong shows the number one track. An empty list writes only the fallback text.
func UpdateTopSong(p *Page, tracks []models.Track) {
	if len(tracks) == 0 {
		p.set(TopSongText, func(el *Element) { el.Text = NoTracksMessage })
		p.notice(NoTracksMessage)
		return
	}

	top := tracks[0]
	p.set(TopSongImage, func(el *Element) {
		el.Src = top.ImageURL()
		el.Alt = top.Byline()
	})
	p.set(TopSongText, func(el *Element) { el.Text = ListeningText })
	p.set(TopSongName, func(el *Element) { el.Text = top.Byline() })
}

// UpdateTopGenre shows genre, or the fallback when it is empty.
func UpdateTopGenre(p *Page, genre string) {
	p.set(TopGenreText, func(el *Element) {
		if genre == "" {
			el.Text = NoGenreMessage
			return
		}
		el.Text = genre
	})
	if genre == "" {
		p.notice(NoGenreMessage)
	}
}

// UpdateTop5 replaces the list with one numbered entry per track. An empty list keeps the previous entries.
func UpdateTop5(p *Page, tracks []models.Track) {
	if len(tracks) == 0 {
		p.notice(NoTracksMessage)
		return
	}

	p.items = p.items[:0]
	for i, tr := range tracks {
		p.items = append(p.items, Item{
			Src:  tr.ImageURL(),
			Alt:  tr.Byline(),
			Text: fmt.Sprintf("%d. %s", i+1, tr.Byline()),
		})
	}
	p.set(Top5SongList, func(el *Element) { el.Text = "" })
}

// Build applies every updater to w. A nil w yields the placeholder page.
func Build(w *models.Wrapped) *Page {
	p := NewPage()
	if w == nil {
		return p
	}

	p.TimeRange = w.TimeRange
	UpdateWelcome(p, w.Profile)
	UpdateTopArtist(p, w.TopArtists)
	UpdateTopSong(p, w.TopTracks)
	UpdateTopGenre(p, w.TopGenre)
	UpdateTop5(p, w.Top5)

	for _, fe := range w.Errors {
		p.notice(fmt.Sprintf("Could not load %s.", fe.Step))
	}
	return p
}
