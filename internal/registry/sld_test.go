package registry

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

const sampleSLDList = `{
  "no.kg": {
    "status": "live",
    "operator": {
      "organization": "Example Org",
      "website": "https://example.org",
      "created_at": "2024-01-01",
      "description": "Free suffix"
    }
  },
  "free.hr": {
    "status": "paused",
    "operator": {
      "organization": "Another Org",
      "website": "https://another.example",
      "created_at": "2024-02-01",
      "description": "Paused suffix"
    }
  }
}`

func newTestRegistry(t *testing.T, listJSON string) *SLDRegistry {
	t.Helper()
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "public_sld_list.json")
	writeFile(t, sourcePath, listJSON)
	return NewSLDRegistry(SLDRegistryConfig{
		SourcePath: sourcePath,
		CacheDir:   dir,
		TTL:        time.Hour,
		Now:        func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) },
		Logger:     quietLogger(),
	})
}

func TestSLDRegistryQueries(t *testing.T) {
	r := newTestRegistry(t, sampleSLDList)

	all, err := r.Suffixes()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(all, []string{"free.hr", "no.kg"}) {
		t.Errorf("Suffixes = %v", all)
	}

	live, err := r.SupportedSuffixes()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(live, []string{"no.kg"}) {
		t.Errorf("SupportedSuffixes = %v", live)
	}

	status, ok, err := r.Status("free.hr")
	if err != nil || !ok || status != "paused" {
		t.Errorf("Status(free.hr) = %q, %v, %v", status, ok, err)
	}
	if _, ok, _ := r.Status("unknown.tld"); ok {
		t.Error("Status(unknown.tld) reported ok")
	}

	// Presence in the registry and openness for new registrations are
	// separate questions.
	if supported, _ := r.IsSupported("free.hr"); !supported {
		t.Error("IsSupported(free.hr) = false")
	}
	if available, _ := r.IsAvailable("free.hr"); available {
		t.Error("IsAvailable(free.hr) = true for paused suffix")
	}
	if available, _ := r.IsAvailable("no.kg"); !available {
		t.Error("IsAvailable(no.kg) = false")
	}
}

func TestSLDRegistryUnavailable(t *testing.T) {
	dir := t.TempDir()
	r := NewSLDRegistry(SLDRegistryConfig{
		SourcePath: filepath.Join(dir, "missing.json"),
		CacheDir:   dir,
		Logger:     quietLogger(),
	})

	_, err := r.Suffixes()
	if !errors.Is(err, ErrRegistryUnavailable) {
		t.Errorf("expected ErrRegistryUnavailable, got %v", err)
	}
}

func TestParseSLDListRejectsMalformedEntries(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr string
	}{
		{
			name:    "not an object",
			json:    `["no.kg"]`,
			wantErr: "invalid sld list format",
		},
		{
			name:    "missing status",
			json:    `{"no.kg": {"operator": {"organization": "X", "website": "w", "created_at": "c", "description": "d"}}}`,
			wantErr: `entry "no.kg" has no status`,
		},
		{
			name:    "empty status",
			json:    `{"no.kg": {"status": "", "operator": {"organization": "X", "website": "w", "created_at": "c", "description": "d"}}}`,
			wantErr: `entry "no.kg" has no status`,
		},
		{
			name:    "missing operator",
			json:    `{"no.kg": {"status": "live"}}`,
			wantErr: `entry "no.kg" has incomplete operator`,
		},
		{
			name:    "empty organization",
			json:    `{"no.kg": {"status": "live", "operator": {"organization": "", "website": "w", "created_at": "c", "description": "d"}}}`,
			wantErr: `entry "no.kg" has incomplete operator`,
		},
		{
			name:    "operator missing description",
			json:    `{"no.kg": {"status": "live", "operator": {"organization": "X", "website": "w", "created_at": "c"}}}`,
			wantErr: `entry "no.kg" has incomplete operator`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSLDList([]byte(tt.json))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestSLDRegistryStaleCacheFallback(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "public_sld_list.json")
	writeFile(t, sourcePath, sampleSLDList)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := NewSLDRegistry(SLDRegistryConfig{
		SourcePath: sourcePath,
		CacheDir:   dir,
		TTL:        time.Hour,
		Now:        func() time.Time { return now },
		Logger:     quietLogger(),
	})
	first, err := r.Suffixes()
	if err != nil {
		t.Fatal(err)
	}

	// Corrupt the source past the TTL; the stale cache keeps serving.
	writeFile(t, sourcePath, `{"broken": {"status": ""}}`)
	now = now.Add(2 * time.Hour)
	got, err := r.Suffixes()
	if err != nil {
		t.Fatalf("expected stale cache fallback, got error: %v", err)
	}
	if !reflect.DeepEqual(got, first) {
		t.Errorf("expected %v from stale cache, got %v", first, got)
	}
}
