package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"

	"github.com/git-pkgs/releasecheck/internal/version"
)

// maxTagPrefix is how many leading characters a tag may carry before the
// version text it is matched against ("v", "ver", "r-").
const maxTagPrefix = 3

// InvalidVersionError reports a local version or tag outside the accepted grammar.
type InvalidVersionError = version.InvalidVersionError

// ErrInvalidVersion is wrapped by every InvalidVersionError.
var ErrInvalidVersion = version.ErrInvalidVersion

// ErrInvalidReleaseTag is returned under TagPolicyStrict when the
// channel-latest release carries a malformed tag.
var ErrInvalidReleaseTag = errors.New("invalid release tag")

// TagPolicy controls how malformed remote tags are handled.
type TagPolicy int

const (
	// TagPolicyLenient logs malformed tags and compares them best-effort.
	TagPolicyLenient TagPolicy = iota

	// TagPolicyStrict fails the decision. Meant for catching registry
	// format regressions in development.
	TagPolicyStrict
)

func (p TagPolicy) String() string {
	if p == TagPolicyStrict {
		return "strict"
	}
	return "lenient"
}

// Checker decides whether a local version should be upgraded to a
// published release. It keeps no per-call state and is safe for concurrent use.
type Checker struct {
	source          Source
	log             log.Interface
	timeout         time.Duration
	allowPreRelease bool
	tagPolicy       TagPolicy
	constraint      *semver.Constraints
}

// Option configures a Checker.
type Option func(*Checker)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l log.Interface) Option {
	return func(c *Checker) {
		c.log = l
	}
}

// WithTimeout sets the default release fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithAllowPreRelease sets the channel Check uses: pre-releases are
// offered only when allow is true.
func WithAllowPreRelease(allow bool) Option {
	return func(c *Checker) {
		c.allowPreRelease = allow
	}
}

// WithTagPolicy sets how malformed remote tags are handled.
func WithTagPolicy(p TagPolicy) Option {
	return func(c *Checker) {
		c.tagPolicy = p
	}
}

// WithConstraint restricts which releases may be offered as the upgrade
// target. Releases whose tag is not a semantic version, or does not satisfy
// the constraint, are skipped when selecting the latest release.
func WithConstraint(constraint *semver.Constraints) Option {
	return func(c *Checker) {
		c.constraint = constraint
	}
}

// NewChecker creates a Checker reading releases from src.
func NewChecker(src Source, opts ...Option) *Checker {
	c := &Checker{
		source:  src,
		log:     &log.Logger{Handler: discard.Default, Level: log.InfoLevel},
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source returns the release source the checker reads from.
func (c *Checker) Source() Source {
	return c.source
}

// AllowPreRelease reports the channel configured with WithAllowPreRelease.
func (c *Checker) AllowPreRelease() bool {
	return c.allowPreRelease
}

// Check is Decide on the checker's configured channel with its default timeout.
func (c *Checker) Check(ctx context.Context, owner, repo, current string) (*Release, error) {
	return c.Decide(ctx, owner, repo, current, c.allowPreRelease, 0)
}

// Decide returns the release current should be upgraded to, or nil when
// no upgrade is available. A zero timeout uses the checker default.
//
// The only errors are a malformed current version (wrapping
// ErrInvalidVersion) and, under TagPolicyStrict, a malformed tag on the
// latest release. Network failures, empty release lists and missing
// channel releases all yield nil without error.
func (c *Checker) Decide(ctx context.Context, owner, repo, current string, allowPreRelease bool, timeout time.Duration) (*Release, error) {
	logger := c.log.WithFields(log.Fields{
		"owner": owner,
		"repo":  repo,
		"local": current,
	})

	if _, err := version.Parse(current); err != nil {
		logger.WithError(err).Error("invalid local version format")
		return nil, err
	}

	releases := c.FetchReleases(ctx, owner, repo, timeout)
	if len(releases) == 0 {
		logger.Warn("unable to get releases")
		return nil, nil
	}

	matched := matchRelease(releases, current)
	if matched < 0 && version.HasBuild(current) {
		matched = matchRelease(releases, version.StripBuild(current))
	}

	latestIdx := c.channelLatest(releases, allowPreRelease)
	if latestIdx < 0 {
		logger.Warn("unable to find valid release")
		return nil, nil
	}
	latest := &releases[latestIdx]
	latestText := version.NormalizeTag(latest.TagName)
	logger = logger.WithField("release", latest.TagName)

	if _, err := version.Parse(latestText); err != nil {
		logger.WithError(err).Error("invalid release version format")
		if c.tagPolicy == TagPolicyStrict {
			return nil, fmt.Errorf("%w: %w", ErrInvalidReleaseTag, err)
		}
	}

	if matched >= 0 {
		match := &releases[matched]
		switch {
		case matched == latestIdx || latest.PublishedAt.Before(match.PublishedAt):
			logger.Info("local version matches release")
			return nil, nil
		case latest.PublishedAt.After(match.PublishedAt):
			logger.Info("local version is older than release")
			return latest, nil
		}
	}

	if c.IsOutOfDate(current, latestText) {
		return latest, nil
	}
	return nil, nil
}

// FetchReleases retrieves the release list, bounded by timeout (or the
// checker default when zero). Failures are logged and reported as nil.
func (c *Checker) FetchReleases(ctx context.Context, owner, repo string, timeout time.Duration) []Release {
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger := c.log.WithFields(log.Fields{
		"host":  c.source.Host(),
		"owner": owner,
		"repo":  repo,
	})

	releases, err := c.source.FetchReleases(ctx, owner, repo)
	if err != nil {
		logger.WithError(err).Warn("unable to call release API")
		return nil
	}

	logger.Infof("retrieved %d releases", len(releases))
	return releases
}

// IsOutOfDate reports whether current is older than latest, logging the outcome.
func (c *Checker) IsOutOfDate(current, latest string) bool {
	logger := c.log.WithFields(log.Fields{"local": current, "release": latest})

	ord := version.Compare(current, latest)
	switch ord {
	case version.Older:
		logger.Info("local version is older than release")
	case version.Newer:
		logger.Info("local version is newer than release")
	default:
		logger.Info("local version matches release")
	}
	return ord == version.Older
}

func (c *Checker) channelLatest(releases []Release, allowPreRelease bool) int {
	for i := range releases {
		if !allowPreRelease && releases[i].Prerelease {
			continue
		}
		if c.constraint != nil && !c.satisfies(releases[i].TagName) {
			continue
		}
		return i
	}
	return -1
}

func (c *Checker) satisfies(tag string) bool {
	v, err := semver.NewVersion(version.StripBuild(version.NormalizeTag(tag)))
	if err != nil {
		return false
	}
	return c.constraint.Check(v)
}

// matchRelease returns the index of the first release whose tag names
// current, or -1.
func matchRelease(releases []Release, current string) int {
	for i := range releases {
		if tagMatches(version.NormalizeTag(releases[i].TagName), current) {
			return i
		}
	}
	return -1
}

// tagMatches reports whether tag ends with current behind a short
// non-numeric prefix, so "2.3" never matches "1.2.3".
func tagMatches(tag, current string) bool {
	if current == "" || !strings.HasSuffix(tag, current) {
		return false
	}
	prefix := tag[:len(tag)-len(current)]
	if len(prefix) > maxTagPrefix {
		return false
	}
	if prefix == "" {
		return true
	}
	last := prefix[len(prefix)-1]
	return last != '.' && (last < '0' || last > '9')
}
