// package formatter exports listening stats to text, Markdown, CSV and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/wrapped/internal/models"
	"github.com/desertthunder/wrapped/internal/shared"
	"github.com/desertthunder/wrapped/internal/view"
)

// Format names an export format.
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	CSV      Format = "csv"
	JSON     Format = "json"
)

// Formats lists the supported formats.
var Formats = []Format{Text, Markdown, CSV, JSON}

// ParseFormat accepts a format name or a file extension ("txt", "md").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return Text, nil
	case "markdown", "md":
		return Markdown, nil
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, s)
	}
}

// Ext returns the file extension for f.
func (f Format) Ext() string {
	switch f {
	case Markdown:
		return "md"
	case CSV:
		return "csv"
	case JSON:
		return "json"
	default:
		return "txt"
	}
}

// Export renders w in format f.
func Export(w *models.Wrapped, f Format) ([]byte, error) {
	switch f {
	case Text:
		return ExportToText(w)
	case Markdown:
		return ExportToMarkdown(w, "")
	case CSV:
		return ExportToCSV(w)
	case JSON:
		return ExportToJSON(w)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidFlag, f)
	}
}

// ExportToText renders the stats page as plain text, one section per block.
func ExportToText(w *models.Wrapped) ([]byte, error) {
	var buf bytes.Buffer
	p := view.Build(w)

	buf.WriteString(p.Text(view.WelcomeMessage) + "\n")
	if p.TimeRange != "" {
		buf.WriteString(fmt.Sprintf("(%s)\n", p.TimeRange.Label()))
	}
	buf.WriteString("\n")

	if p.IsPlaceholder(view.TopArtistName) {
		buf.WriteString(p.Text(view.TopArtistName) + "\n\n")
	} else {
		buf.WriteString(p.Text(view.TopArtistHeading) + "\n\n")
	}

	if name := p.Text(view.TopSongName); name != "" {
		buf.WriteString(fmt.Sprintf("%s %s\n\n", p.Text(view.TopSongText), name))
	} else {
		buf.WriteString(p.Text(view.TopSongText) + "\n\n")
	}

	buf.WriteString("Top 5:\n")
	items := p.Items()
	if len(items) == 0 {
		buf.WriteString("  " + p.Text(view.Top5SongList) + "\n")
	}
	for _, item := range items {
		buf.WriteString("  " + item.Text + "\n")
	}

	buf.WriteString(fmt.Sprintf("\nTop genre: %s\n", p.Text(view.TopGenreText)))

	for _, n := range p.Notices {
		buf.WriteString(fmt.Sprintf("! %s\n", n))
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown renders the stats as a Markdown document. imageFilename, when set, is linked as the top
// artist picture.
func ExportToMarkdown(w *models.Wrapped, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer
	p := view.Build(w)

	buf.WriteString(fmt.Sprintf("# %s\n\n", p.Text(view.WelcomeMessage)))
	if p.TimeRange != "" {
		buf.WriteString(fmt.Sprintf("**Time range**: %s\n\n", p.TimeRange.Label()))
	}

	buf.WriteString("## Top artist\n\n")
	if imageFilename != "" {
		buf.WriteString(fmt.Sprintf("![%s](%s)\n\n", p.Get(view.TopArtistImage).Alt, imageFilename))
	}
	buf.WriteString(p.Text(view.TopArtistName) + "\n\n")

	buf.WriteString("## Top song\n\n")
	if name := p.Text(view.TopSongName); name != "" {
		buf.WriteString(fmt.Sprintf("%s **%s**\n\n", p.Text(view.TopSongText), name))
	} else {
		buf.WriteString(p.Text(view.TopSongText) + "\n\n")
	}

	buf.WriteString("## Top 5\n\n")
	if w == nil || len(w.Top5) == 0 {
		buf.WriteString(p.Text(view.Top5SongList) + "\n")
	} else {
		for i, tr := range w.Top5 {
			albumPart := ""
			if tr.Album.Name != "" {
				albumPart = fmt.Sprintf(" (%s)", tr.Album.Name)
			}
			buf.WriteString(fmt.Sprintf("%d. %s - %s%s [%s]\n", i+1, tr.Artist(), tr.Name, albumPart, formatDuration(tr.Duration)))
		}
	}

	buf.WriteString(fmt.Sprintf("\n## Top genre\n\n%s\n", p.Text(view.TopGenreText)))
	return buf.Bytes(), nil
}

// ExportToCSV writes one row per ranked item with columns: Section, Rank, ID, Name, Artist, Album, Duration, Genres
func ExportToCSV(w *models.Wrapped) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Section", "Rank", "ID", "Name", "Artist", "Album", "Duration", "Genres"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	var records [][]string
	if w != nil {
		for i, a := range w.TopArtists {
			records = append(records, []string{"artist", strconv.Itoa(i + 1), a.ID, a.Name, "", "", "", strings.Join(a.Genres, ";")})
		}
		for i, tr := range w.TopTracks {
			records = append(records, []string{"track", strconv.Itoa(i + 1), tr.ID, tr.Name, tr.Artist(), tr.Album.Name, strconv.Itoa(tr.Duration), ""})
		}
		if w.TopGenre != "" {
			records = append(records, []string{"genre", "1", "", w.TopGenre, "", "", "", ""})
		}
	}

	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

type jsonExport struct {
	*models.Wrapped
	Failed []string `json:"failed,omitempty"`
}

// ExportToJSON encodes w with the names of any failed fetches under "failed".
func ExportToJSON(w *models.Wrapped) ([]byte, error) {
	if w == nil {
		w = &models.Wrapped{}
	}

	out := jsonExport{Wrapped: w}
	for _, fe := range w.Errors {
		out.Failed = append(out.Failed, fe.Step)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrInvalidArgument)
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// DefaultFilename returns wrapped_{time_range}.{ext}.
func DefaultFilename(w *models.Wrapped, f Format) string {
	tr := models.DefaultTimeRange
	if w != nil && w.TimeRange != "" {
		tr = w.TimeRange
	}
	return fmt.Sprintf("wrapped_%s.%s", tr, f.Ext())
}

// WriteExport renders w in format f and writes it to path, defaulting to [DefaultFilename].
func WriteExport(w *models.Wrapped, f Format, path string) (string, error) {
	if f == Markdown {
		dir := path
		if dir == "" {
			dir = strings.TrimSuffix(DefaultFilename(w, f), ".md")
		}
		result, err := WriteMarkdownExport(w, dir)
		if err != nil {
			return "", err
		}
		return result.Directory, nil
	}

	if path == "" {
		path = DefaultFilename(w, f)
	}

	data, err := Export(w, f)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", f, err)
	}
	return path, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory   string
	Files       []string
	ArtistImage string
}

// WriteMarkdownExport writes {dir}/README.md and, when the top artist has a picture, {dir}/top-artist.jpg.
//
// A failed image download is reported on stderr and the README is written without it.
func WriteMarkdownExport(w *models.Wrapped, outputDir string) (*MarkdownExportResult, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var imageFilename string
	if artist, ok := w.TopArtist(); ok && artist.ImageURL() != "" {
		imageData, err := DownloadImage(artist.ImageURL())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to download artist image: %v\n", err)
		} else {
			imageFilename = "top-artist.jpg"
			imagePath := filepath.Join(outputDir, imageFilename)
			if err := os.WriteFile(imagePath, imageData, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save artist image: %v\n", err)
				imageFilename = ""
			} else {
				result.ArtistImage = imagePath
				result.Files = append(result.Files, imagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(w, imageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)
	return result, nil
}

// formatDuration renders seconds as m:ss.
func formatDuration(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
