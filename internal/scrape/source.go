// Package scrape gathers raw catalog data from a paginated listing endpoint
// and a per-item detail endpoint.
package scrape

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talentsift/catalog-pipeline/internal/enrich"
)

// Item is one listing entry: enough to seed a record and fetch its detail.
type Item struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Detail is the per-item payload that fills a record's raw columns.
type Detail struct {
	Description     string `json:"description"`
	TestType        string `json:"test_type"`
	DurationText    string `json:"duration_text"`
	AdaptiveSupport string `json:"adaptive_support"`
	RemoteSupport   string `json:"remote_support"`
}

// Source is the read-only surface of the catalog site.
type Source interface {
	ListPage(ctx context.Context, page int) ([]Item, error)
	FetchDetail(ctx context.Context, url string) (Detail, error)
}

// Descriptor names the endpoints of one catalog site. It is loaded from a
// small YAML file so new targets need no code change.
type Descriptor struct {
	BaseURL        string `yaml:"base_url"`
	ListPath       string `yaml:"list_path"`
	UserAgent      string `yaml:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// LoadDescriptor reads and validates a site descriptor.
func LoadDescriptor(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("read site descriptor: %w", err)
	}
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Descriptor{}, fmt.Errorf("parse site descriptor %s: %w", path, err)
	}
	if err := d.validate(); err != nil {
		return Descriptor{}, fmt.Errorf("site descriptor %s: %w", path, err)
	}
	return d, nil
}

func (d Descriptor) validate() error {
	if strings.TrimSpace(d.BaseURL) == "" {
		return errors.New("base_url is required")
	}
	if _, err := url.Parse(d.BaseURL); err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	if strings.TrimSpace(d.ListPath) == "" {
		return errors.New("list_path is required")
	}
	return nil
}

func (d Descriptor) timeout() time.Duration {
	if d.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// HTTPSource consumes JSON listing and detail endpoints described by a
// Descriptor.
type HTTPSource struct {
	desc   Descriptor
	client *http.Client
}

func NewHTTPSource(desc Descriptor) (*HTTPSource, error) {
	if err := desc.validate(); err != nil {
		return nil, err
	}
	return &HTTPSource{
		desc:   desc,
		client: &http.Client{Timeout: desc.timeout()},
	}, nil
}

type listResponse struct {
	Items []Item `json:"items"`
}

// ListPage fetches one listing page. Pages are 1-based; an empty Items slice
// marks the end of the listing.
func (s *HTTPSource) ListPage(ctx context.Context, page int) ([]Item, error) {
	u := strings.TrimRight(s.desc.BaseURL, "/") + s.desc.ListPath + "?page=" + strconv.Itoa(page)
	body, err := s.get(ctx, u)
	if err != nil {
		return nil, err
	}
	var parsed listResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse listing page %d: %w", page, err)
	}
	return parsed.Items, nil
}

// FetchDetail fetches one item's detail payload. Relative URLs resolve
// against the descriptor's base URL.
func (s *HTTPSource) FetchDetail(ctx context.Context, target string) (Detail, error) {
	if strings.HasPrefix(target, "/") {
		target = strings.TrimRight(s.desc.BaseURL, "/") + target
	}
	body, err := s.get(ctx, target)
	if err != nil {
		return Detail{}, err
	}
	var d Detail
	if err := json.Unmarshal(body, &d); err != nil {
		return Detail{}, fmt.Errorf("parse detail %s: %w", target, err)
	}
	return d, nil
}

func (s *HTTPSource) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if ua := strings.TrimSpace(s.desc.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, classifyNetErr(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, classifyNetErr(err)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("GET %s: status %d", u, resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode/100 == 5 {
			return nil, &enrich.TransientError{Err: err}
		}
		return nil, err
	}
	return body, nil
}

func classifyNetErr(err error) error {
	var ne net.Error
	if errors.As(err, &ne) && (ne.Timeout() || ne.Temporary()) {
		return &enrich.TransientError{Err: err}
	}
	return err
}
