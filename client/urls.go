package client

import "fmt"

// URLBuilder constructs URLs for a release registry.
type URLBuilder interface {
	Releases(owner, repo string) string
	Release(owner, repo, tag string) string
	PURL(owner, repo, version string) string
}

// BaseURLs provides a default URLBuilder implementation.
type BaseURLs struct {
	ReleasesFn func(owner, repo string) string
	ReleaseFn  func(owner, repo, tag string) string
	PURLFn     func(owner, repo, version string) string
}

func (b *BaseURLs) Releases(owner, repo string) string {
	if b.ReleasesFn != nil {
		return b.ReleasesFn(owner, repo)
	}
	return ""
}

func (b *BaseURLs) Release(owner, repo, tag string) string {
	if b.ReleaseFn != nil {
		return b.ReleaseFn(owner, repo, tag)
	}
	return ""
}

func (b *BaseURLs) PURL(owner, repo, version string) string {
	if b.PURLFn != nil {
		return b.PURLFn(owner, repo, version)
	}
	if version != "" {
		return fmt.Sprintf("pkg:%s/%s/%s@%s", "generic", owner, repo, version)
	}
	return fmt.Sprintf("pkg:%s/%s/%s", "generic", owner, repo)
}

// BuildURLs returns a map of all non-empty URLs for a repository release.
// Keys are "releases", "release", and "purl".
func BuildURLs(urls URLBuilder, owner, repo, tag string) map[string]string {
	result := make(map[string]string)
	if v := urls.Releases(owner, repo); v != "" {
		result["releases"] = v
	}
	if v := urls.Release(owner, repo, tag); v != "" {
		result["release"] = v
	}
	if v := urls.PURL(owner, repo, tag); v != "" {
		result["purl"] = v
	}
	return result
}
