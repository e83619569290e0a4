// Package release looks up published versions of a Go module.
package release

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/mod/module"
)

// DefaultProxyURL is the public Go module proxy
const DefaultProxyURL = "https://proxy.golang.org"

// Checker looks up the latest released version
type Checker interface {
	Latest(ctx context.Context) (string, error)
}

// ModuleProxy asks a Go module proxy for the @latest version of Module.
type ModuleProxy struct {
	BaseURL string
	Module  string
	Client  *http.Client
}

// NewModuleProxy creates a checker for modulePath against proxy.golang.org
func NewModuleProxy(modulePath string) *ModuleProxy {
	return &ModuleProxy{
		BaseURL: DefaultProxyURL,
		Module:  modulePath,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (m *ModuleProxy) Latest(ctx context.Context) (string, error) {
	escaped, err := module.EscapePath(m.Module)
	if err != nil {
		return "", fmt.Errorf("invalid module path %q: %w", m.Module, err)
	}
	url := strings.TrimRight(m.BaseURL, "/") + "/" + escaped + "/@latest"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("version lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("version lookup returned %s", resp.Status)
	}

	var info struct {
		Version string `json:"Version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", fmt.Errorf("failed to decode version info: %w", err)
	}
	if info.Version == "" {
		return "", fmt.Errorf("version lookup returned no version")
	}
	return info.Version, nil
}

// IsNewer reports whether latest is a higher semantic version than current.
// Unparseable versions, such as dev builds, never compare as newer.
func IsNewer(latest, current string) bool {
	l, err := semver.NewVersion(latest)
	if err != nil {
		return false
	}
	c, err := semver.NewVersion(current)
	if err != nil {
		return false
	}
	return l.GreaterThan(c)
}
