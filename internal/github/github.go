// Package github provides a release source for GitHub and GitHub Enterprise.
package github

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
	DefaultURL = "https://api.github.com"
	host       = "github"
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
	s.urls = &URLs{baseURL: s.baseURL, webURL: webURL(s.baseURL)}
	return s
}

func (s *Source) Host() string {
	return host
}

func (s *Source) URLs() core.URLBuilder {
	return s.urls
}

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
	ContentType        string `json:"content_type"`
}

// FetchReleases lists the repository's releases, newest first, as GitHub returns them.
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
		releases = append(releases, toRelease(r))
	}
	return releases, nil
}

func toRelease(r releaseInfo) core.Release {
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
		rel.Assets = append(rel.Assets, core.Asset{
			Name:        a.Name,
			URL:         a.BrowserDownloadURL,
			Size:        a.Size,
			ContentType: a.ContentType,
		})
	}
	return rel
}

// webURL maps an API base to the matching web base: api.github.com to
// github.com, and an Enterprise "https://ghe.example/api/v3" to "https://ghe.example".
func webURL(apiBase string) string {
	u, err := url.Parse(apiBase)
	if err != nil || u.Host == "" {
		return "https://github.com"
	}
	if u.Host == "api.github.com" {
		return "https://github.com"
	}
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), "/api/v3")
	return strings.TrimSuffix(u.String(), "/")
}

type URLs struct {
	baseURL string
	webURL  string
}

func (u *URLs) Releases(owner, repo string) string {
	return fmt.Sprintf("%s/repos/%s/%s/releases", u.baseURL, owner, repo)
}

func (u *URLs) Release(owner, repo, tag string) string {
	if tag == "" {
		return fmt.Sprintf("%s/%s/%s/releases/latest", u.webURL, owner, repo)
	}
	return fmt.Sprintf("%s/%s/%s/releases/tag/%s", u.webURL, owner, repo, url.PathEscape(tag))
}

func (u *URLs) PURL(owner, repo, version string) string {
	return packageurl.NewPackageURL(host, owner, repo, version, nil, "").ToString()
}
