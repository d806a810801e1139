package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/thanhcle/lunaria-backend/pkg/config"
	pkgerrors "github.com/thanhcle/lunaria-backend/pkg/errors"
	"github.com/thanhcle/lunaria-backend/pkg/logger"
)

// Unit is one administrative division returned by the upstream directory.
type Unit struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	FullName string `json:"full_name"`
}

// Client reads the Vietnamese administrative division directory used for
// delivery address pickers. The directory is a convenience lookup, so an
// upstream failure degrades to an empty listing instead of erroring the
// address form.
type Client struct {
	httpClient *http.Client
	endpoint   string
	logg       *logger.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger attaches the logger used for degraded lookups.
func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		c.logg = logg
	}
}

// NewClient builds the division directory client.
func NewClient(cfg config.GeoConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// Provinces lists all provinces, optionally filtered by a name fragment.
func (c *Client) Provinces(ctx context.Context, nameFilter string) ([]Unit, error) {
	return c.list(ctx, "/1/0.htm", nameFilter)
}

// Districts lists the districts of a province.
func (c *Client) Districts(ctx context.Context, provinceID, nameFilter string) ([]Unit, error) {
	if strings.TrimSpace(provinceID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "province ID is required")
	}
	return c.list(ctx, fmt.Sprintf("/2/%s.htm", url.PathEscape(provinceID)), nameFilter)
}

// Wards lists the wards of a district.
func (c *Client) Wards(ctx context.Context, districtID, nameFilter string) ([]Unit, error) {
	if strings.TrimSpace(districtID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "district ID is required")
	}
	return c.list(ctx, fmt.Sprintf("/3/%s.htm", url.PathEscape(districtID)), nameFilter)
}

func (c *Client) list(ctx context.Context, path, nameFilter string) ([]Unit, error) {
	units, err := c.fetch(ctx, path)
	if err != nil {
		if c != nil && c.logg != nil {
			c.logg.Error(c.logg.WithField(ctx, "path", path), "division directory lookup degraded", err)
		}
		return []Unit{}, nil
	}

	filter := strings.ToLower(strings.TrimSpace(nameFilter))
	if filter == "" {
		return units, nil
	}
	filtered := make([]Unit, 0, len(units))
	for _, unit := range units {
		if strings.Contains(strings.ToLower(unit.Name), filter) || strings.Contains(strings.ToLower(unit.FullName), filter) {
			filtered = append(filtered, unit)
		}
	}
	return filtered, nil
}

func (c *Client) fetch(ctx context.Context, path string) ([]Unit, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "geo client not configured")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build division request")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute division request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("division directory returned status %d", resp.StatusCode))
	}

	var apiResp struct {
		Error int    `json:"error"`
		Data  []Unit `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode division response")
	}
	if apiResp.Error != 0 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("division directory error %d", apiResp.Error))
	}
	return apiResp.Data, nil
}
