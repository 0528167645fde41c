// Package npm queries an npm-compatible package registry for published versions.
package npm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/relicta-tech/relmono/internal/application/releasegraph"
	"github.com/relicta-tech/relmono/internal/domain/monorepo"
	rperrors "github.com/relicta-tech/relmono/internal/errors"
)

// DefaultRegistry is the public npm registry.
const DefaultRegistry = "https://registry.npmjs.org"

// abbreviatedMetadata is the media type of the install-time package document,
// which carries the versions object without per-version readmes.
const abbreviatedMetadata = "application/vnd.npm.install-v1+json; q=1.0, application/json; q=0.8"

// Ensure Client implements the registry port.
var _ releasegraph.Registry = (*Client)(nil)

// StatusError is an unexpected HTTP status from the registry.
type StatusError struct {
	StatusCode int
	Package    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("registry returned %d %s for %s", e.StatusCode, http.StatusText(e.StatusCode), e.Package)
}

type decodeError struct {
	pkg string
}

func (e *decodeError) Error() string {
	return "malformed registry document for " + e.pkg
}

// Config configures a Client.
type Config struct {
	// Registry is the registry base URL.
	Registry string
	// Token, when set, is sent as a bearer token.
	Token      string
	Timeout    time.Duration
	Resilience ResilienceConfig
}

// DefaultConfig returns the configuration for the public registry.
func DefaultConfig() Config {
	return Config{
		Registry:   DefaultRegistry,
		Timeout:    30 * time.Second,
		Resilience: DefaultResilienceConfig(),
	}
}

// Client reads package documents from a registry.
type Client struct {
	http       *resty.Client
	resilience *resilience
}

// NewClient creates a registry client.
func NewClient(cfg Config) *Client {
	if cfg.Registry == "" {
		cfg.Registry = DefaultRegistry
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.Registry, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", abbreviatedMetadata).
		SetHeader("User-Agent", "relmono")
	if cfg.Token != "" {
		httpClient.SetAuthToken(cfg.Token)
	}

	return &Client{
		http:       httpClient,
		resilience: newResilience(cfg.Resilience),
	}
}

// Versions returns every published version of name in ascending string order.
// A package the registry does not know yields monorepo.ErrNotPublished.
func (c *Client) Versions(ctx context.Context, name string) ([]string, error) {
	const op = "npm.Versions"

	// 404 is reported outside the breaker.
	missing := false
	versions, err := c.resilience.execute(ctx, func(ctx context.Context) ([]string, error) {
		v, err := c.fetchVersions(ctx, name)
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			missing = true
			return nil, nil
		}
		return v, err
	})
	if err != nil {
		return nil, rperrors.RegistryWrap(err, op, name)
	}
	if missing {
		return nil, fmt.Errorf("%w: %s", monorepo.ErrNotPublished, name)
	}
	return versions, nil
}

func (c *Client) fetchVersions(ctx context.Context, name string) ([]string, error) {
	// Scoped names keep the '@' but escape the '/' as %2F.
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("package", name).
		Get("/{package}")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode(), Package: name}
	}

	body := resp.Body()
	if !gjson.ValidBytes(body) {
		return nil, &decodeError{pkg: name}
	}
	doc := gjson.GetBytes(body, "versions")
	if !doc.IsObject() {
		return nil, &decodeError{pkg: name}
	}

	var versions []string
	doc.ForEach(func(key, _ gjson.Result) bool {
		versions = append(versions, key.String())
		return true
	})
	sort.Strings(versions)
	return versions, nil
}
