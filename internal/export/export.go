// internal/export/export.go
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"reddit-harvest/internal/models"
)

// postColumns fixes the CSV header and column order for post exports. Every
// record shares this column set by construction.
var postColumns = []string{
	"title",
	"author",
	"score",
	"num_comments",
	"created_utc",
	"created_date",
	"selftext",
	"url",
	"id",
	"link_flair_text",
}

// Exporter writes harvest results as flat files under one output directory.
// A write failure here is the one hard failure of a run.
type Exporter struct {
	outputDir string
	log       *slog.Logger
}

func NewExporter(outputDir string, log *slog.Logger) (*Exporter, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Exporter{outputDir: outputDir, log: log}, nil
}

// WriteJSON writes v pretty-printed. HTML escaping is off so non-ASCII and
// markup characters survive literally.
func (e *Exporter) WriteJSON(filename string, v any) error {
	path := filepath.Join(e.outputDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	e.log.Info("wrote JSON", slog.String("path", path))
	return nil
}

// WritePostsCSV writes posts as a header row plus one row per post.
func (e *Exporter) WritePostsCSV(filename string, posts []models.Post) error {
	path := filepath.Join(e.outputDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)

	if err := w.Write(postColumns); err != nil {
		f.Close()
		return fmt.Errorf("write header %s: %w", path, err)
	}

	for _, post := range posts {
		row := []string{
			post.Title,
			post.Author,
			strconv.Itoa(post.Score),
			strconv.Itoa(post.NumComments),
			strconv.FormatInt(post.CreatedUTC, 10),
			post.CreatedDate,
			post.Selftext,
			post.URL,
			post.ID,
			post.LinkFlairText,
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("write row %s: %w", path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	e.log.Info("wrote CSV", slog.String("path", path), slog.Int("rows", len(posts)))
	return nil
}
