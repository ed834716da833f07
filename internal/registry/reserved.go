// Package registry provides the two external allow/deny lists the validation
// pipeline depends on: the reserved word list and the SLD registry. Both are
// loaded from local files, cached on disk with a TTL, and degrade to a stale
// cache (or, for reserved words, a built-in fallback) when a reload fails.
package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

// Clock supplies the current time. Injecting it keeps the TTL logic
// deterministic under test.
type Clock func() time.Time

// wordLineRegex accepts a line as a reserved word candidate.
var wordLineRegex = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// fallbackWords is the built-in deny list used only on a cold start when the
// source file cannot be read and no cache exists.
var fallbackWords = []string{
	"admin", "api", "app", "blog", "cdn", "dev", "dns", "docs", "ftp",
	"help", "mail", "mx", "ns", "root", "smtp", "ssl", "staging",
	"status", "support", "test", "web", "whois", "www",
}

// ReservedWordsConfig configures a ReservedWordsSource.
type ReservedWordsConfig struct {
	SourcePath string
	CacheDir   string
	TTL        time.Duration
	Now        Clock
	Logger     *slog.Logger
}

// ReservedWordsSource serves the reserved word deny list. The cached word
// slice is replaced as a whole on refresh, never mutated in place, so
// concurrent readers always observe a complete list.
type ReservedWordsSource struct {
	sourcePath string
	cachePath  string
	ttl        time.Duration
	now        Clock
	log        *slog.Logger

	mu       sync.Mutex
	words    []string
	loadedAt time.Time
}

type wordCacheFile struct {
	Words     []string `json:"words"`
	Timestamp int64    `json:"timestamp"`
}

// NewReservedWordsSource creates a ReservedWordsSource and primes it from the
// on-disk cache when one is present.
func NewReservedWordsSource(cfg ReservedWordsConfig) *ReservedWordsSource {
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &ReservedWordsSource{
		sourcePath: cfg.SourcePath,
		cachePath:  filepath.Join(cfg.CacheDir, "reserved_words_cache.json"),
		ttl:        cfg.TTL,
		now:        cfg.Now,
		log:        cfg.Logger,
	}
	s.loadFromCacheFile()
	return s
}

// Words returns the reserved word list, lowercase and sorted. It never
// returns an error: on reload failure it falls back to the previous cache
// (even if stale) and, with no cache at all, to the built-in list. Callers
// that receive an empty slice must treat domains as unvalidatable.
func (s *ReservedWordsSource) Words() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cacheValid() {
		return s.words
	}

	words, err := s.readSource()
	if err != nil || len(words) == 0 {
		if len(s.words) > 0 {
			s.log.Warn("reserved word reload failed, using previous cache",
				slog.String("source", s.sourcePath))
			return s.words
		}
		s.log.Warn("reserved word source unavailable, using fallback list",
			slog.String("source", s.sourcePath))
		return fallbackWords
	}

	s.updateCache(words)
	return words
}

// IsReserved reports whether the domain label conflicts with a reserved
// word. The comparison is case-insensitive. The second return value is the
// matched word; ok is false when the list is empty and no decision could be
// made.
func (s *ReservedWordsSource) IsReserved(domain string) (reserved bool, word string, ok bool) {
	words := s.Words()
	if len(words) == 0 {
		return false, "", false
	}
	lower := strings.ToLower(domain)
	for _, w := range words {
		if lower == w {
			return true, w, true
		}
	}
	return false, "", true
}

func (s *ReservedWordsSource) cacheValid() bool {
	return len(s.words) > 0 && !s.loadedAt.IsZero() &&
		s.now().Sub(s.loadedAt) < s.ttl
}

func (s *ReservedWordsSource) readSource() ([]string, error) {
	data, err := os.ReadFile(s.sourcePath)
	if err != nil {
		return nil, fmt.Errorf("read reserved words: %w", err)
	}
	return ParseReservedWords(string(data)), nil
}

// ParseReservedWords extracts the valid word lines from the raw source text.
// A line counts iff it is non-empty, not a # or // comment, and consists of
// letters, digits and hyphens only. Words are lowercased, deduplicated and
// sorted.
func ParseReservedWords(content string) []string {
	seen := make(map[string]struct{})
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		if !wordLineRegex.MatchString(line) {
			continue
		}
		seen[strings.ToLower(line)] = struct{}{}
	}
	words := make([]string, 0, len(seen))
	for w := range seen {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

func (s *ReservedWordsSource) updateCache(words []string) {
	now := s.now()
	s.words = words
	s.loadedAt = now

	cache := wordCacheFile{Words: words, Timestamp: now.UnixMilli()}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err == nil {
		err = os.WriteFile(s.cachePath, data, 0644)
	}
	if err != nil {
		s.log.Error("failed to persist reserved word cache",
			slog.String("path", s.cachePath), slog.String("error", err.Error()))
		return
	}
	s.log.Debug("reserved word cache updated", slog.Int("count", len(words)))
}

func (s *ReservedWordsSource) loadFromCacheFile() {
	data, err := os.ReadFile(s.cachePath)
	if err != nil {
		return
	}
	var cache wordCacheFile
	if err := json.Unmarshal(data, &cache); err != nil {
		s.log.Error("failed to load reserved word cache",
			slog.String("path", s.cachePath), slog.String("error", err.Error()))
		return
	}
	if len(cache.Words) == 0 {
		return
	}
	s.words = cache.Words
	s.loadedAt = time.UnixMilli(cache.Timestamp)
	s.log.Debug("loaded reserved words from cache",
		slog.Int("count", len(cache.Words)))
}
