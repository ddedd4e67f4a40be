// Package gitea provides a release source for Gitea and Forgejo instances.
package gitea

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	packageurl "github.com/package-url/packageurl-go"

	"github.com/git-pkgs/releasecheck/internal/core"
)

const (
	DefaultURL = "https://gitea.com"
	host       = "gitea"

	// pageLimit is the largest page Gitea serves by default (MAX_RESPONSE_ITEMS).
	pageLimit = 50
)

func init() {
	core.Register(host, DefaultURL, func(baseURL string, client *core.Client) core.Source {
		return New(baseURL, client)
	})
}

type Source struct {
	baseURL string
	client  *core.Client
	urls    *URLs
}

func New(baseURL string, client *core.Client) *Source {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if client == nil {
		client = core.DefaultClient()
	}
	s := &Source{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
	}
	s.urls = &URLs{baseURL: s.baseURL}
	return s
}

func (s *Source) Host() string {
	return host
}

func (s *Source) URLs() core.URLBuilder {
	return s.urls
}

// Gitea and Forgejo mirror GitHub's release fields. published_at is null on drafts.
type releaseInfo struct {
	Name        string      `json:"name"`
	HTMLURL     string      `json:"html_url"`
	TagName     string      `json:"tag_name"`
	Draft       bool        `json:"draft"`
	Prerelease  bool        `json:"prerelease"`
	CreatedAt   *time.Time  `json:"created_at"`
	PublishedAt *time.Time  `json:"published_at"`
	Assets      []assetInfo `json:"assets"`
}

type assetInfo struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

// FetchReleases returns the first page of releases, newest first.
func (s *Source) FetchReleases(ctx context.Context, owner, repo string) ([]core.Release, error) {
	var resp []releaseInfo
	if err := s.client.GetJSON(ctx, s.urls.Releases(owner, repo), &resp); err != nil {
		var httpErr *core.HTTPError
		if errors.As(err, &httpErr) && httpErr.IsNotFound() {
			return nil, &core.NotFoundError{Host: host, Owner: owner, Repo: repo}
		}
		return nil, err
	}

	releases := make([]core.Release, 0, len(resp))
	for _, r := range resp {
		rel := core.Release{
			Name:       r.Name,
			URL:        r.HTMLURL,
			TagName:    r.TagName,
			Draft:      r.Draft,
			Prerelease: r.Prerelease,
		}
		if r.CreatedAt != nil {
			rel.CreatedAt = *r.CreatedAt
		}
		if r.PublishedAt != nil {
			rel.PublishedAt = *r.PublishedAt
		}
		for _, a := range r.Assets {
			rel.Assets = append(rel.Assets, core.Asset{Name: a.Name, URL: a.BrowserDownloadURL, Size: a.Size})
		}
		releases = append(releases, rel)
	}
	return releases, nil
}

type URLs struct {
	baseURL string
}

func (u *URLs) Releases(owner, repo string) string {
	return fmt.Sprintf("%s/api/v1/repos/%s/%s/releases?limit=%d", u.baseURL, owner, repo, pageLimit)
}

func (u *URLs) Release(owner, repo, tag string) string {
	if tag == "" {
		return fmt.Sprintf("%s/%s/%s/releases/latest", u.baseURL, owner, repo)
	}
	return fmt.Sprintf("%s/%s/%s/releases/tag/%s", u.baseURL, owner, repo, url.PathEscape(tag))
}

func (u *URLs) PURL(owner, repo, version string) string {
	q := packageurl.QualifiersFromMap(map[string]string{"repository_url": u.baseURL})
	if u.baseURL == DefaultURL {
		q = nil
	}
	return packageurl.NewPackageURL(host, owner, repo, version, q, "").ToString()
}
