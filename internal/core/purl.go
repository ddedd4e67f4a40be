package core

import (
	"context"
	"fmt"

	packageurl "github.com/package-url/packageurl-go"
)

// PURL wraps packageurl.PackageURL with release-host helpers.
type PURL struct {
	packageurl.PackageURL
}

// Owner returns the repository owner, carried in the PURL namespace.
func (p PURL) Owner() string {
	return p.Namespace
}

// Repo returns the repository name.
func (p PURL) Repo() string {
	return p.Name
}

// FullName returns "owner/repo".
func (p PURL) FullName() string {
	if p.Namespace == "" {
		return p.Name
	}
	return p.Namespace + "/" + p.Name
}

// ParsePURL parses a Package URL string such as pkg:github/cli/cli@2.40.0.
func ParsePURL(purl string) (*PURL, error) {
	p, err := packageurl.FromString(purl)
	if err != nil {
		return nil, err
	}
	return &PURL{p}, nil
}

// NewFromPURL creates a source from a PURL and returns the parsed PURL.
// If the PURL has a repository_url qualifier, it's used as the base URL for
// self-hosted instances.
func NewFromPURL(purl string, client *Client) (Source, *PURL, error) {
	p, err := ParsePURL(purl)
	if err != nil {
		return nil, nil, err
	}

	baseURL := p.Qualifiers.Map()["repository_url"]

	src, err := New(p.Type, baseURL, client)
	if err != nil {
		return nil, nil, err
	}

	return src, p, nil
}

// DecideFromPURL runs Decide for the repository and local version named by
// a PURL. Returns an error if the PURL has no owner or no version.
func DecideFromPURL(ctx context.Context, purl string, allowPreRelease bool, client *Client, opts ...Option) (*Release, error) {
	src, p, err := NewFromPURL(purl, client)
	if err != nil {
		return nil, err
	}
	if p.Namespace == "" {
		return nil, fmt.Errorf("PURL has no owner: %s", purl)
	}
	if p.Version == "" {
		return nil, fmt.Errorf("PURL has no version: %s", purl)
	}

	return NewChecker(src, opts...).Decide(ctx, p.Owner(), p.Repo(), p.Version, allowPreRelease, 0)
}

// FetchReleasesFromPURL returns the release list of the repository named by a PURL.
func FetchReleasesFromPURL(ctx context.Context, purl string, client *Client) ([]Release, error) {
	src, p, err := NewFromPURL(purl, client)
	if err != nil {
		return nil, err
	}
	return src.FetchReleases(ctx, p.Owner(), p.Repo())
}
