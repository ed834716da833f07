// Package pdns is a minimal PowerDNS Admin API client covering what the DNS
// sync job needs: zone lookups and NS RRset replacement/deletion. Requests
// authenticate with a static key header and honor a per-call timeout.
package pdns

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/publicfreesuffix/registry-automation/internal/config"
)

// NSRecordTTL is the TTL applied to synchronized NS RRsets.
const NSRecordTTL = 7200

const serverPath = "/api/v1/servers/localhost"

// Record is a single resource record inside an RRset.
type Record struct {
	Content  string `json:"content"`
	Disabled bool   `json:"disabled"`
}

// RRSet is a named record set. Changetype REPLACE overwrites the whole set;
// DELETE removes it.
type RRSet struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	TTL        int      `json:"ttl,omitempty"`
	ChangeType string   `json:"changetype,omitempty"`
	Records    []Record `json:"records,omitempty"`
}

// Zone is the subset of the zone document the sync job reads.
type Zone struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	RRSets []RRSet `json:"rrsets"`
}

// Client talks to one PowerDNS Admin server.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *slog.Logger
}

// NewClient creates a Client from configuration.
func NewClient(cfg config.PDNSConfig, log *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("PDA_API_URL environment variable is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("PDA_API_KEY environment variable is required")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}, nil
}

// GetZone fetches a zone document by id.
func (c *Client) GetZone(ctx context.Context, zoneID string) (*Zone, error) {
	var zone Zone
	if err := c.do(ctx, http.MethodGet, serverPath+"/zones/"+zoneID, nil, &zone); err != nil {
		return nil, fmt.Errorf("failed to fetch zone %s: %w", zoneID, err)
	}
	return &zone, nil
}

// ZoneExists reports whether the zone is present on the server.
func (c *Client) ZoneExists(ctx context.Context, zoneID string) (bool, error) {
	err := c.do(ctx, http.MethodGet, serverPath+"/zones/"+zoneID, nil, nil)
	if err == nil {
		return true, nil
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound {
		return false, nil
	}
	return false, err
}

// ReplaceNSRecords overwrites the NS RRset for name.zone with the given
// nameservers. RRset names and NS contents are fully qualified with a
// trailing dot, as the API requires.
func (c *Client) ReplaceNSRecords(ctx context.Context, zoneID, name string, nameservers []string) error {
	records := make([]Record, 0, len(nameservers))
	for _, ns := range nameservers {
		records = append(records, Record{Content: ns + ".", Disabled: false})
	}
	body := struct {
		RRSets []RRSet `json:"rrsets"`
	}{
		RRSets: []RRSet{{
			Name:       name + "." + zoneID + ".",
			Type:       "NS",
			TTL:        NSRecordTTL,
			ChangeType: "REPLACE",
			Records:    records,
		}},
	}
	if err := c.do(ctx, http.MethodPatch, serverPath+"/zones/"+zoneID, body, nil); err != nil {
		return fmt.Errorf("failed to create/update NS records for %s.%s: %w", name, zoneID, err)
	}
	c.log.Info("NS records replaced",
		slog.String("name", name+"."+zoneID), slog.Int("count", len(records)))
	return nil
}

// DeleteNSRecords removes the NS RRset for name.zone.
func (c *Client) DeleteNSRecords(ctx context.Context, zoneID, name string) error {
	body := struct {
		RRSets []RRSet `json:"rrsets"`
	}{
		RRSets: []RRSet{{
			Name:       name + "." + zoneID + ".",
			Type:       "NS",
			ChangeType: "DELETE",
		}},
	}
	if err := c.do(ctx, http.MethodPatch, serverPath+"/zones/"+zoneID, body, nil); err != nil {
		return fmt.Errorf("failed to delete NS records for %s.%s: %w", name, zoneID, err)
	}
	c.log.Info("NS records deleted", slog.String("name", name+"."+zoneID))
	return nil
}

// DomainRecords returns the RRsets of the zone whose name matches
// domain.zone, trailing dot ignored.
func (c *Client) DomainRecords(ctx context.Context, zoneID, domain string) ([]RRSet, error) {
	zone, err := c.GetZone(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	target := domain + "." + zoneID
	var matched []RRSet
	for _, rrset := range zone.RRSets {
		if strings.TrimSuffix(rrset.Name, ".") == target {
			matched = append(matched, rrset)
		}
	}
	return matched, nil
}

// StatusError is a non-2xx API response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("pdns api status %d: %s", e.Code, e.Body)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call pdns api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
