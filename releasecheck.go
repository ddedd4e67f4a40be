// Package releasecheck decides whether a locally installed version is out of
// date with respect to the releases published on a release registry, and
// which release to upgrade to.
//
// Basic usage:
//
//	import (
//		"context"
//		"github.com/git-pkgs/releasecheck"
//		_ "github.com/git-pkgs/releasecheck/all"
//	)
//
//	src, err := releasecheck.New("github", "", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	checker := releasecheck.NewChecker(src)
//	rel, err := checker.Decide(context.Background(), "cli", "cli", "2.39.0", false, 0)
//	if err != nil {
//		log.Fatal(err) // the local version is malformed
//	}
//	if rel != nil {
//		fmt.Println("update available:", rel.TagName, rel.URL)
//	}
//
// Network failures never surface as errors: they are logged and reported as
// "no update available". Pass a logger with WithLogger to see them.
package releasecheck

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/git-pkgs/releasecheck/client"
	"github.com/git-pkgs/releasecheck/internal/config"
	"github.com/git-pkgs/releasecheck/internal/core"
	"github.com/git-pkgs/releasecheck/internal/version"
)

// Re-export types from internal/core
type (
	// Source is the interface implemented by all release registry hosts.
	Source = core.Source

	// Release is one published release entry.
	Release = core.Release

	// Asset is a downloadable artifact attached to a release.
	Asset = core.Asset

	// Checker decides whether a local version should be upgraded.
	Checker = core.Checker

	// CheckerOption configures a Checker.
	CheckerOption = core.Option

	// TagPolicy controls how malformed remote tags are handled.
	TagPolicy = core.TagPolicy

	// Target names one repository and local version for BulkDecide.
	Target = core.Target

	// Decision is the outcome of checking one Target.
	Decision = core.Decision

	// PURL represents a parsed Package URL.
	PURL = core.PURL
)

// Re-export types from client
type (
	// Client is the HTTP client used by release sources.
	Client = client.Client

	// URLBuilder constructs URLs for a release host.
	URLBuilder = client.URLBuilder
)

// Re-export version types
type (
	// Version is a parsed version string.
	Version = version.Version

	// Ordering is the position of a current version relative to a latest one.
	Ordering = version.Ordering
)

// Settings is the environment-derived configuration. See LoadEnvSettings.
type Settings = config.Settings

const (
	TagPolicyLenient = core.TagPolicyLenient
	TagPolicyStrict  = core.TagPolicyStrict

	Older = version.Older
	Same  = version.Same
	Newer = version.Newer
)

// Re-export errors
var (
	ErrNotFound          = client.ErrNotFound
	ErrInvalidVersion    = version.ErrInvalidVersion
	ErrInvalidReleaseTag = core.ErrInvalidReleaseTag
)

// Error types
type (
	HTTPError           = client.HTTPError
	NotFoundError       = client.NotFoundError
	RateLimitError      = client.RateLimitError
	InvalidVersionError = version.InvalidVersionError
)

// Checker options
var (
	WithLogger          = core.WithLogger
	WithTagPolicy       = core.WithTagPolicy
	WithConstraint      = core.WithConstraint
	WithAllowPreRelease = core.WithAllowPreRelease
)

// WithCheckTimeout sets the default release fetch timeout of a Checker.
var WithCheckTimeout = core.WithTimeout

// New creates a release source for the given host.
// If baseURL is empty, the host's default API URL is used.
// If client is nil, DefaultClient() is used.
//
// Supported hosts: "github", "gitea"
func New(host string, baseURL string, c *Client) (Source, error) {
	return core.New(host, baseURL, c)
}

// NewChecker creates a Checker reading releases from src.
func NewChecker(src Source, opts ...CheckerOption) *Checker {
	return core.NewChecker(src, opts...)
}

// DefaultClient returns a client with a 5s timeout and no retries.
func DefaultClient() *Client {
	return client.DefaultClient()
}

// NewClient creates a new client with the given options.
func NewClient(opts ...Option) *Client {
	return client.NewClient(opts...)
}

// Option configures a Client.
type Option = client.Option

// WithTimeout sets the HTTP client timeout.
var WithTimeout = client.WithTimeout

// WithMaxRetries sets the maximum number of retries.
var WithMaxRetries = client.WithMaxRetries

// SupportedHosts returns all registered hosts.
// Note: hosts must be imported to be registered.
func SupportedHosts() []string {
	return core.SupportedHosts()
}

// DefaultURL returns the default API base URL for a host.
func DefaultURL(host string) string {
	return core.DefaultURL(host)
}

// BuildURLs returns a map of all non-empty URLs for a release.
// Keys are "releases", "release", and "purl".
func BuildURLs(urls URLBuilder, owner, repo, tag string) map[string]string {
	return client.BuildURLs(urls, owner, repo, tag)
}

// ParseVersion parses a version string of the form N(.N)*[-label][+hex].
func ParseVersion(s string) (Version, error) {
	return version.Parse(s)
}

// ValidVersion reports whether s is a well-formed version string.
func ValidVersion(s string) bool {
	return version.Valid(s)
}

// NormalizeTag strips a single leading "v" or "V" from a release tag.
func NormalizeTag(tag string) string {
	return version.NormalizeTag(tag)
}

// Compare orders current relative to latest. It never fails.
func Compare(current, latest string) Ordering {
	return version.Compare(current, latest)
}

// IsOutOfDate reports whether current is older than latest.
func IsOutOfDate(current, latest string) bool {
	return version.OutOfDate(current, latest)
}

// ParseConstraint parses a semantic version constraint for WithConstraint.
func ParseConstraint(s string) (*semver.Constraints, error) {
	return semver.NewConstraint(s)
}

// ParsePURL parses a Package URL string such as pkg:github/cli/cli@2.40.0.
func ParsePURL(purl string) (*PURL, error) {
	return core.ParsePURL(purl)
}

// NewFromPURL creates a source from a PURL and returns the parsed PURL.
func NewFromPURL(purl string, c *Client) (Source, *PURL, error) {
	return core.NewFromPURL(purl, c)
}

// DecideFromPURL checks the repository and local version named by a PURL,
// e.g. pkg:github/cli/cli@2.39.0.
func DecideFromPURL(ctx context.Context, purl string, allowPreRelease bool, c *Client, opts ...CheckerOption) (*Release, error) {
	return core.DecideFromPURL(ctx, purl, allowPreRelease, c, opts...)
}

// FetchReleasesFromPURL returns the releases of the repository named by a PURL.
func FetchReleasesFromPURL(ctx context.Context, purl string, c *Client) ([]Release, error) {
	return core.FetchReleasesFromPURL(ctx, purl, c)
}

// BulkDecide checks many targets in parallel. Results follow the order of targets.
func BulkDecide(ctx context.Context, checker *Checker, targets []Target) []Decision {
	return core.BulkDecide(ctx, checker, targets)
}

// BulkDecideWithConcurrency checks targets with a custom concurrency limit.
func BulkDecideWithConcurrency(ctx context.Context, checker *Checker, targets []Target, concurrency int) []Decision {
	return core.BulkDecideWithConcurrency(ctx, checker, targets, concurrency)
}

// BulkDecidePURLs checks many PURLs in parallel.
// Returns a map of PURL to the release to upgrade to; PURLs without an
// upgrade or that failed are omitted.
func BulkDecidePURLs(ctx context.Context, purls []string, allowPreRelease bool, c *Client, opts ...CheckerOption) map[string]*Release {
	return core.BulkDecidePURLs(ctx, purls, allowPreRelease, c, opts...)
}

// LoadEnvSettings reads RELEASECHECK_* environment variables.
func LoadEnvSettings() (*Settings, error) {
	return config.Load()
}

// NewCheckerFromEnv builds a checker from RELEASECHECK_* environment variables.
// The host named by RELEASECHECK_HOST must be registered, and
// RELEASECHECK_ALLOW_PRERELEASE selects the channel used by Checker.Check.
func NewCheckerFromEnv(opts ...CheckerOption) (*Checker, error) {
	s, err := config.Load()
	if err != nil {
		return nil, err
	}
	return NewCheckerFromSettings(s, opts...)
}

// NewCheckerFromSettings builds a client, source and checker from settings.
// opts are applied after the settings and may override them.
func NewCheckerFromSettings(s *Settings, opts ...CheckerOption) (*Checker, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	c := client.NewClient(
		client.WithTimeout(s.Timeout),
		client.WithMaxRetries(s.MaxRetries),
	).WithUserAgent(s.UserAgent)
	if s.Token != "" {
		c = c.WithToken(s.Token)
	}

	src, err := core.New(s.Host, s.BaseURL, c)
	if err != nil {
		return nil, err
	}

	checkerOpts := []core.Option{
		core.WithTimeout(s.Timeout),
		core.WithAllowPreRelease(s.AllowPreRelease),
	}
	if s.StrictTags {
		checkerOpts = append(checkerOpts, core.WithTagPolicy(core.TagPolicyStrict))
	}
	if s.Constraint != "" {
		constraint, err := semver.NewConstraint(s.Constraint)
		if err != nil {
			return nil, fmt.Errorf("invalid constraint %q: %w", s.Constraint, err)
		}
		checkerOpts = append(checkerOpts, core.WithConstraint(constraint))
	}

	return core.NewChecker(src, append(checkerOpts, opts...)...), nil
}
