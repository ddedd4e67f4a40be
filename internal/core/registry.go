package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Source is the interface implemented by all release registry hosts.
type Source interface {
	// Host returns the registry identifier, also used as the PURL type (e.g., "github").
	Host() string

	// FetchReleases retrieves the releases of a repository, newest first.
	FetchReleases(ctx context.Context, owner, repo string) ([]Release, error)

	// URLs returns the URL builder for this host.
	URLs() URLBuilder
}

// Factory creates a source for a given base URL.
type Factory func(baseURL string, client *Client) Source

var (
	factories = make(map[string]Factory)
	defaults  = make(map[string]string)
	mu        sync.RWMutex
)

// Register adds a source factory to the global registry.
// host is the registry identifier (e.g., "github", "gitea").
// defaultURL is the default API base URL for the host.
func Register(host string, defaultURL string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[host] = factory
	defaults[host] = defaultURL
}

// New creates a new source for the given host.
// If baseURL is empty, the default URL is used.
func New(host string, baseURL string, client *Client) (Source, error) {
	mu.RLock()
	factory, ok := factories[host]
	defaultURL := defaults[host]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown host: %s", host)
	}

	if baseURL == "" {
		baseURL = defaultURL
	}

	if client == nil {
		client = DefaultClient()
	}

	return factory(baseURL, client), nil
}

// SupportedHosts returns all registered hosts in sorted order.
func SupportedHosts() []string {
	mu.RLock()
	defer mu.RUnlock()

	hosts := make([]string, 0, len(factories))
	for host := range factories {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)
	return hosts
}

// DefaultURL returns the default API base URL for a host.
func DefaultURL(host string) string {
	mu.RLock()
	defer mu.RUnlock()
	return defaults[host]
}
