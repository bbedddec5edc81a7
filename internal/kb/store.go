package kb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNormNotFound indicates that a norm code has neither a stored full text
// nor a catalog summary.
var ErrNormNotFound = errors.New("norm text not found")

// NormText is the stored normative content for one code.
type NormText struct {
	Code        string
	Content     string
	FromCatalog bool // true when only the catalog summary was available
}

// Store serves normative texts from a directory of plain-text files, one per
// sanitized norm code, falling back to the embedded catalog summaries. The
// store is read-only during analysis; the in-memory cache is safe for
// concurrent readers.
type Store struct {
	dir string

	mu    sync.RWMutex
	cache map[string]string // sanitized code -> file content
}

// NewStore creates a Store over the given directory. The directory may be
// empty or missing; lookups then resolve from the catalog only.
func NewStore(dir string) *Store {
	return &Store{
		dir:   dir,
		cache: make(map[string]string),
	}
}

// Sanitize normalizes a norm code to the on-disk key form: lowercase with
// only [a-z0-9-] retained, whitespace and underscores collapsed to dashes.
func Sanitize(code string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(code)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == ' ', r == '_', r == '.':
			b.WriteRune('-')
		}
	}
	return b.String()
}

// Get returns the normative text for a code, preferring the full stored text
// over the catalog summary. Returns ErrNormNotFound when neither exists.
func (s *Store) Get(code string) (NormText, error) {
	key := Sanitize(code)
	if key == "" {
		return NormText{}, fmt.Errorf("%w: empty code %q", ErrNormNotFound, code)
	}

	s.mu.RLock()
	content, ok := s.cache[key]
	s.mu.RUnlock()

	if !ok {
		data, err := os.ReadFile(filepath.Join(s.dir, key+".txt"))
		switch {
		case err == nil:
			content = string(data)
			s.mu.Lock()
			s.cache[key] = content
			s.mu.Unlock()
			ok = true
		case !os.IsNotExist(err):
			return NormText{}, fmt.Errorf("reading norm %s: %w", code, err)
		}
	}

	if ok && strings.TrimSpace(content) != "" {
		return NormText{Code: code, Content: content}, nil
	}

	if summary, found := catalog[key]; found {
		return NormText{Code: code, Content: summary, FromCatalog: true}, nil
	}
	return NormText{}, fmt.Errorf("%w: %s", ErrNormNotFound, code)
}

// Available lists the sanitized codes that have a full text file on disk.
func (s *Store) Available() ([]string, error) {
	if s.dir == "" {
		return nil, nil
	}
	fsys := os.DirFS(s.dir)
	matches, err := doublestar.Glob(fsys, "**/*.txt")
	if err != nil {
		return nil, fmt.Errorf("scanning norm directory: %w", err)
	}

	codes := make([]string, 0, len(matches))
	for _, m := range matches {
		codes = append(codes, strings.TrimSuffix(filepath.Base(m), ".txt"))
	}
	sort.Strings(codes)
	return codes, nil
}

// CatalogCodes lists the codes covered by the embedded catalog summaries.
func CatalogCodes() []string {
	codes := make([]string, 0, len(catalog))
	for k := range catalog {
		codes = append(codes, k)
	}
	sort.Strings(codes)
	return codes
}

// invalidate drops a cached entry so the next Get re-reads the file.
func (s *Store) invalidate(key string) {
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
}
