package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type pageData struct {
	Welcome     Element
	Heading     Element
	ArtistName  Element
	ArtistImage Element
	SongImage   Element
	SongText    Element
	SongName    Element
	Top5        Element
	Items       []Item
	Genre       Element
	TimeRange   string
	Notices     []string
}

// Render writes p as the HTML stats page.
func Render(w io.Writer, p *Page) error {
	data := pageData{
		Welcome:     p.Get(WelcomeMessage),
		Heading:     p.Get(TopArtistHeading),
		ArtistName:  p.Get(TopArtistName),
		ArtistImage: p.Get(TopArtistImage),
		SongImage:   p.Get(TopSongImage),
		SongText:    p.Get(TopSongText),
		SongName:    p.Get(TopSongName),
		Top5:        p.Get(Top5SongList),
		Items:       p.Items(),
		Genre:       p.Get(TopGenreText),
		TimeRange:   p.TimeRange.Label(),
		Notices:     p.Notices,
	}

	if err := templates.ExecuteTemplate(w, "index.html", data); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	return nil
}

// RenderError writes a plain error page carrying msg.
func RenderError(w io.Writer, msg string) error {
	if err := templates.ExecuteTemplate(w, "error.html", msg); err != nil {
		return fmt.Errorf("failed to render error page: %w", err)
	}
	return nil
}
