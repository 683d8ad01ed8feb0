// Package catalog loads the song library from a local directory.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"

	"github.com/dhowden/tag"
	"github.com/dkeye/PartyCast/internal/core"
	"github.com/dkeye/PartyCast/internal/domain"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

var ErrNotDir = errors.New("library path is not a directory")

var _ core.Catalog = (*Filesystem)(nil)

// Filesystem reads tagged audio files from one directory. Embedded pictures
// are written to the artwork cache as <file>.jpg.
type Filesystem struct {
	root     string
	artDir   string
	parallel int

	mu      sync.RWMutex
	entries []domain.CatalogEntry
	byID    map[domain.CatalogEntryID]domain.CatalogEntry
	art     map[string]string
	ids     map[string]domain.CatalogEntryID
	nextID  domain.CatalogEntryID
}

func NewFilesystem(root, artDir string) *Filesystem {
	return &Filesystem{
		root:     root,
		artDir:   artDir,
		parallel: runtime.NumCPU(),
		byID:     make(map[domain.CatalogEntryID]domain.CatalogEntry),
		art:      make(map[string]string),
		ids:      make(map[string]domain.CatalogEntryID),
	}
}

func (f *Filesystem) Reload(ctx context.Context) ([]domain.CatalogEntry, error) {
	info, err := os.Stat(f.root)
	if err != nil {
		return nil, fmt.Errorf("stat library: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s: %w", f.root, ErrNotDir)
	}
	if err := os.MkdirAll(f.artDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artwork cache: %w", err)
	}
	dir, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("read library: %w", err)
	}
	files := lo.FilterMap(dir, func(d os.DirEntry, _ int) (string, bool) {
		return d.Name(), d.Type().IsRegular()
	})

	found := make([]*domain.CatalogEntry, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.parallel)
	for i, name := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			e, err := f.scan(name)
			if err != nil {
				log.Debug().Err(err).Str("module", "catalog").Str("file", name).Msg("skipped")
				return nil
			}
			found[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	entries := tidy(lo.FilterMap(found, func(e *domain.CatalogEntry, _ int) (domain.CatalogEntry, bool) {
		if e == nil {
			return domain.CatalogEntry{}, false
		}
		return *e, true
	}))

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range entries {
		id, ok := f.ids[entries[i].Path]
		if !ok {
			f.nextID++
			id = f.nextID
			f.ids[entries[i].Path] = id
		}
		entries[i].ID = id
	}
	f.entries = entries
	f.byID = lo.KeyBy(entries, func(e domain.CatalogEntry) domain.CatalogEntryID { return e.ID })
	f.art = make(map[string]string)
	for _, e := range entries {
		if e.ArtworkRef != "" {
			f.art[e.ArtworkRef] = filepath.Join(f.artDir, e.ArtworkRef)
		}
	}
	return slices.Clone(entries), nil
}

// tidy drops untitled entries and sorts the rest by title.
func tidy(entries []domain.CatalogEntry) []domain.CatalogEntry {
	out := lo.Filter(entries, func(e domain.CatalogEntry, _ int) bool { return e.Title != "" })
	c := collate.New(language.Und, collate.Loose)
	slices.SortStableFunc(out, func(a, b domain.CatalogEntry) int {
		return c.CompareString(a.Title, b.Title)
	})
	return out
}

func (f *Filesystem) scan(name string) (*domain.CatalogEntry, error) {
	path := filepath.Join(f.root, name)
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	meta, err := tag.ReadFrom(file)
	if err != nil {
		return nil, fmt.Errorf("read tags: %w", err)
	}
	e := &domain.CatalogEntry{
		Title:  meta.Title(),
		Artist: meta.Artist(),
		Album:  meta.Album(),
		Path:   path,
	}
	if meta.FileType() == tag.MP3 {
		if _, err := file.Seek(0, io.SeekStart); err == nil {
			e.Duration = mp3Length(file)
		}
	}
	if pic := meta.Picture(); pic != nil && len(pic.Data) > 0 {
		ref := name + ".jpg"
		if err := f.writeArtwork(ref, pic.Data); err != nil {
			log.Warn().Err(err).Str("module", "catalog").Str("file", name).Msg("artwork not cached")
		} else {
			e.ArtworkRef = ref
		}
	}
	return e, nil
}

// mp3Length returns the stream length in millis, or 0 if it cannot be decoded.
func mp3Length(r io.Reader) int64 {
	s, format, err := mp3.Decode(io.NopCloser(r))
	if err != nil {
		return 0
	}
	defer s.Close()
	return format.SampleRate.D(s.Len()).Milliseconds()
}

func (f *Filesystem) writeArtwork(ref string, data []byte) error {
	path := filepath.Join(f.artDir, ref)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	return os.WriteFile(path, data, 0o644)
}

func (f *Filesystem) Lookup(id domain.CatalogEntryID) (domain.CatalogEntry, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	e, ok := f.byID[id]
	return e, ok
}

// Artwork resolves a cached artwork ref to its file.
func (f *Filesystem) Artwork(ref string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.art[ref]
	return p, ok
}
