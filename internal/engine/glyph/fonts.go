package glyph

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/font/opentype"

	"github.com/crimson-sun/sigflow/internal/random"
)

const defaultCacheSize = 16

// Font identifies a font file. The zero value means no font file: the
// built-in face is used.
type Font struct {
	Path string
}

// IsZero reports whether f names no font file.
func (f Font) IsZero() bool { return f.Path == "" }

// Pool is the set of fonts signatures are drawn with, plus a cache of
// parsed font files. Safe for concurrent use.
type Pool struct {
	fonts  []Font
	parsed *lru.Cache[string, *opentype.Font]
}

// NewPool creates a pool over the given font paths.
func NewPool(paths []string, cacheSize int) *Pool {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, err := lru.New[string, *opentype.Font](cacheSize)
	if err != nil {
		// Only returned for a non-positive size.
		panic(err)
	}
	fonts := make([]Font, 0, len(paths))
	for _, p := range paths {
		fonts = append(fonts, Font{Path: p})
	}
	return &Pool{fonts: fonts, parsed: cache}
}

// LoadFonts scans dir for .ttf and .otf files. A missing or unreadable
// directory yields an empty pool, which is valid: every signature then
// uses the built-in face.
func LoadFonts(dir string, cacheSize int) *Pool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("font directory unreadable, using built-in face", "dir", dir, "error", err)
		}
		return NewPool(nil, cacheSize)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".ttf", ".otf":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	slog.Debug("fonts loaded", "dir", dir, "count", len(paths))
	return NewPool(paths, cacheSize)
}

// Len returns the number of fonts in the pool.
func (p *Pool) Len() int { return len(p.fonts) }

// Fonts returns a copy of the pool's fonts.
func (p *Pool) Fonts() []Font {
	return append([]Font(nil), p.fonts...)
}

// Pick returns a font chosen uniformly at random, or the zero Font when
// the pool is empty.
func (p *Pool) Pick(rng random.Source) Font {
	if len(p.fonts) == 0 {
		return Font{}
	}
	return p.fonts[rng.IntN(len(p.fonts))]
}

// parse returns the parsed font file, reading it on first use.
func (p *Pool) parse(f Font) (*opentype.Font, error) {
	if otf, ok := p.parsed.Get(f.Path); ok {
		return otf, nil
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("glyph: read %s: %w", f.Path, err)
	}
	otf, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("glyph: parse %s: %w", f.Path, err)
	}
	p.parsed.Add(f.Path, otf)
	return otf, nil
}
