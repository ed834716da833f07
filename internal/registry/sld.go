package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// StatusLive is the only status under which a suffix accepts new
// registrations.
const StatusLive = "live"

// ErrRegistryUnavailable is returned when neither the source file nor a
// previously cached copy of the SLD registry can be produced. There is no
// built-in fallback: suffix validation must fail rather than default-accept.
var ErrRegistryUnavailable = errors.New("sld registry unavailable")

// Operator describes the organization operating an SLD.
type Operator struct {
	Organization string `json:"organization"`
	Website      string `json:"website"`
	CreatedAt    string `json:"created_at"`
	Description  string `json:"description"`
}

// SLDEntry is one registry entry keyed by suffix.
type SLDEntry struct {
	Status   string   `json:"status"`
	Operator Operator `json:"operator"`
}

// SLDRegistryConfig configures an SLDRegistry.
type SLDRegistryConfig struct {
	SourcePath string
	CacheDir   string
	TTL        time.Duration
	Now        Clock
	Logger     *slog.Logger
}

// SLDRegistry serves the suffix registry. The entry map is replaced
// atomically as a whole on refresh.
type SLDRegistry struct {
	sourcePath string
	cachePath  string
	ttl        time.Duration
	now        Clock
	log        *slog.Logger

	mu       sync.Mutex
	entries  map[string]SLDEntry
	loadedAt time.Time
}

type sldCacheFile struct {
	SLDList   map[string]SLDEntry `json:"sldList"`
	Timestamp int64               `json:"timestamp"`
}

// NewSLDRegistry creates an SLDRegistry and primes it from the on-disk cache
// when one is present.
func NewSLDRegistry(cfg SLDRegistryConfig) *SLDRegistry {
	if cfg.TTL == 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	r := &SLDRegistry{
		sourcePath: cfg.SourcePath,
		cachePath:  filepath.Join(cfg.CacheDir, "sld_cache.json"),
		ttl:        cfg.TTL,
		now:        cfg.Now,
		log:        cfg.Logger,
	}
	r.loadFromCacheFile()
	return r
}

// Suffixes returns every suffix present in the registry, any status, sorted.
func (r *SLDRegistry) Suffixes() ([]string, error) {
	entries, err := r.snapshot()
	if err != nil {
		return nil, err
	}
	suffixes := make([]string, 0, len(entries))
	for sld := range entries {
		suffixes = append(suffixes, sld)
	}
	sort.Strings(suffixes)
	return suffixes, nil
}

// SupportedSuffixes returns only the suffixes whose status is "live", sorted.
func (r *SLDRegistry) SupportedSuffixes() ([]string, error) {
	entries, err := r.snapshot()
	if err != nil {
		return nil, err
	}
	suffixes := make([]string, 0, len(entries))
	for sld, entry := range entries {
		if entry.Status == StatusLive {
			suffixes = append(suffixes, sld)
		}
	}
	sort.Strings(suffixes)
	return suffixes, nil
}

// Status returns the status of the suffix, or ok=false when the suffix is
// not present in the registry.
func (r *SLDRegistry) Status(suffix string) (status string, ok bool, err error) {
	entries, err := r.snapshot()
	if err != nil {
		return "", false, err
	}
	entry, ok := entries[suffix]
	return entry.Status, ok, nil
}

// IsSupported reports whether the suffix is present in the registry at all,
// regardless of status.
func (r *SLDRegistry) IsSupported(suffix string) (bool, error) {
	entries, err := r.snapshot()
	if err != nil {
		return false, err
	}
	_, ok := entries[suffix]
	return ok, nil
}

// IsAvailable reports whether the suffix is present and open for new
// registrations (status "live").
func (r *SLDRegistry) IsAvailable(suffix string) (bool, error) {
	entries, err := r.snapshot()
	if err != nil {
		return false, err
	}
	entry, ok := entries[suffix]
	return ok && entry.Status == StatusLive, nil
}

// snapshot returns a valid entry map, reloading from the source when the
// cache is stale and falling back to the stale cache when the reload fails.
func (r *SLDRegistry) snapshot() (map[string]SLDEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cacheValid() {
		return r.entries, nil
	}

	entries, err := r.readSource()
	if err != nil {
		if len(r.entries) > 0 {
			r.log.Warn("sld registry reload failed, using previous cache",
				slog.String("source", r.sourcePath), slog.String("error", err.Error()))
			return r.entries, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}

	r.updateCache(entries)
	return entries, nil
}

func (r *SLDRegistry) cacheValid() bool {
	return len(r.entries) > 0 && !r.loadedAt.IsZero() &&
		r.now().Sub(r.loadedAt) < r.ttl
}

func (r *SLDRegistry) readSource() (map[string]SLDEntry, error) {
	data, err := os.ReadFile(r.sourcePath)
	if err != nil {
		return nil, fmt.Errorf("read sld list: %w", err)
	}
	entries, err := ParseSLDList(data)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("sld list is empty")
	}
	return entries, nil
}

// ParseSLDList decodes and shape-checks the registry document. A single
// malformed entry invalidates the whole load: a partially trusted allow-list
// is worse than no list at all.
func ParseSLDList(data []byte) (map[string]SLDEntry, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid sld list format: %w", err)
	}

	entries := make(map[string]SLDEntry, len(raw))
	for sld, entryRaw := range raw {
		var entry struct {
			Status   *string `json:"status"`
			Operator *struct {
				Organization *string `json:"organization"`
				Website      *string `json:"website"`
				CreatedAt    *string `json:"created_at"`
				Description  *string `json:"description"`
			} `json:"operator"`
		}
		if err := json.Unmarshal(entryRaw, &entry); err != nil {
			return nil, fmt.Errorf("invalid sld list format: entry %q: %w", sld, err)
		}
		if entry.Status == nil || *entry.Status == "" {
			return nil, fmt.Errorf("invalid sld list format: entry %q has no status", sld)
		}
		op := entry.Operator
		if op == nil || op.Organization == nil || *op.Organization == "" ||
			op.Website == nil || op.CreatedAt == nil || op.Description == nil {
			return nil, fmt.Errorf("invalid sld list format: entry %q has incomplete operator", sld)
		}
		entries[sld] = SLDEntry{
			Status: *entry.Status,
			Operator: Operator{
				Organization: *op.Organization,
				Website:      *op.Website,
				CreatedAt:    *op.CreatedAt,
				Description:  *op.Description,
			},
		}
	}
	return entries, nil
}

func (r *SLDRegistry) updateCache(entries map[string]SLDEntry) {
	now := r.now()
	r.entries = entries
	r.loadedAt = now

	cache := sldCacheFile{SLDList: entries, Timestamp: now.UnixMilli()}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err == nil {
		err = os.WriteFile(r.cachePath, data, 0644)
	}
	if err != nil {
		r.log.Error("failed to persist sld cache",
			slog.String("path", r.cachePath), slog.String("error", err.Error()))
		return
	}
	r.log.Debug("sld cache updated", slog.Int("count", len(entries)))
}

func (r *SLDRegistry) loadFromCacheFile() {
	data, err := os.ReadFile(r.cachePath)
	if err != nil {
		return
	}
	var cache sldCacheFile
	if err := json.Unmarshal(data, &cache); err != nil {
		r.log.Error("failed to load sld cache",
			slog.String("path", r.cachePath), slog.String("error", err.Error()))
		return
	}
	if len(cache.SLDList) == 0 {
		return
	}
	r.entries = cache.SLDList
	r.loadedAt = time.UnixMilli(cache.Timestamp)
	r.log.Debug("loaded sld registry from cache", slog.Int("count", len(cache.SLDList)))
}
