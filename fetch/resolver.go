package fetch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/git-pkgs/releasecheck"
)

var (
	ErrNoAsset        = errors.New("no matching release asset")
	ErrAmbiguousAsset = errors.New("multiple release assets match")
)

var goosAliases = map[string][]string{
	"darwin":  {"macos", "macosx", "osx", "apple-darwin"},
	"linux":   {"unknown-linux-gnu", "unknown-linux-musl"},
	"windows": {"win", "win32", "win64", "mingw", "pc-windows-msvc"},
	"freebsd": {"unknown-freebsd"},
}

var archAliases = map[string][]string{
	"amd64": {"x86_64", "x64", "x86-64"},
	"arm64": {"aarch64", "armv8"},
	"386":   {"x86", "i386", "i686", "32bit"},
	"arm":   {"armv7", "armv7l", "armv6", "armhf"},
}

var defaultExtensions = []string{".tar.gz", ".tgz", ".zip", ".tar.xz", ".exe"}

// checksum file names, tried in order. %s is the asset name, %b the asset
// name without its archive extension.
var checksumCandidates = []string{
	"%s.sha256",
	"%s.sha256sum",
	"%s.sha256.txt",
	"%b.sha256",
	"SHA256SUMS",
	"SHA256SUMS.txt",
	"checksums.txt",
	"CHECKSUMS",
	"CHECKSUMS.txt",
}

// ArtifactInfo describes a downloadable release asset and its checksum file.
type ArtifactInfo struct {
	URL         string
	Filename    string
	Size        int64
	ContentType string

	ChecksumURL      string
	ChecksumFilename string
}

// Resolver picks the release asset built for a platform.
// It never downloads anything.
type Resolver struct {
	binaryName string
	extensions []string
	client     *releasecheck.Client
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithBinaryName prefers assets whose name contains the binary name.
func WithBinaryName(name string) ResolverOption {
	return func(r *Resolver) {
		r.binaryName = strings.ToLower(name)
	}
}

// WithExtensions sets the accepted archive extensions, most preferred first.
func WithExtensions(exts ...string) ResolverOption {
	return func(r *Resolver) {
		if len(exts) > 0 {
			r.extensions = exts
		}
	}
}

// WithClient sets the client Stat uses for HEAD requests.
func WithClient(c *releasecheck.Client) ResolverOption {
	return func(r *Resolver) {
		r.client = c
	}
}

// NewResolver creates a new asset resolver.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{extensions: defaultExtensions}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = releasecheck.DefaultClient()
	}
	return r
}

// ResolveCurrent resolves the asset for the running platform.
func (r *Resolver) ResolveCurrent(rel *releasecheck.Release) (*ArtifactInfo, error) {
	return r.Resolve(rel, runtime.GOOS, runtime.GOARCH)
}

// Resolve returns the asset of rel built for goos/goarch, along with the
// checksum file that covers it when the release has one.
func (r *Resolver) Resolve(rel *releasecheck.Release, goos, goarch string) (*ArtifactInfo, error) {
	if rel == nil {
		return nil, ErrNoAsset
	}

	asset, err := r.pick(rel.Assets, goos, goarch)
	if err != nil {
		return nil, fmt.Errorf("%s %s/%s: %w", rel.TagName, goos, goarch, err)
	}

	info := &ArtifactInfo{
		URL:         asset.URL,
		Filename:    asset.Name,
		Size:        asset.Size,
		ContentType: asset.ContentType,
	}
	if sum := r.checksumFor(rel.Assets, asset.Name); sum != nil {
		info.ChecksumURL = sum.URL
		info.ChecksumFilename = sum.Name
	}
	return info, nil
}

// Stat fills in Size and ContentType from a HEAD request when the release
// payload did not carry them.
func (r *Resolver) Stat(ctx context.Context, info *ArtifactInfo) error {
	if info.Size > 0 && info.ContentType != "" {
		return nil
	}

	h, err := r.client.Head(ctx, info.URL)
	if err != nil {
		return fmt.Errorf("stat %s: %w", info.Filename, err)
	}
	if info.Size <= 0 {
		if n, err := strconv.ParseInt(h.Get("Content-Length"), 10, 64); err == nil {
			info.Size = n
		}
	}
	if info.ContentType == "" {
		info.ContentType = h.Get("Content-Type")
	}
	return nil
}

type candidate struct {
	asset   *releasecheck.Asset
	score   int
	extRank int
}

func (r *Resolver) pick(assets []releasecheck.Asset, goos, goarch string) (*releasecheck.Asset, error) {
	goos = strings.ToLower(goos)
	goarch = strings.ToLower(goarch)

	var best *candidate
	tied := ""

	for i := range assets {
		name := strings.ToLower(assets[i].Name)
		if looksLikeSupplemental(name) {
			continue
		}

		osScore := platformScore(name, goos, goosAliases)
		archScore := platformScore(name, goarch, archAliases)
		if osScore == 0 || archScore == 0 {
			continue
		}
		if other := detectArch(name); other != "" && other != goarch {
			continue
		}

		extRank := r.extensionRank(name)
		if extRank < 0 {
			continue
		}

		c := &candidate{asset: &assets[i], score: osScore + archScore, extRank: extRank}
		if r.binaryName != "" && strings.Contains(name, r.binaryName) {
			c.score += 3
		}

		switch {
		case best == nil || c.score > best.score:
			best, tied = c, ""
		case c.score == best.score && c.extRank < best.extRank:
			best, tied = c, ""
		case c.score == best.score && c.extRank == best.extRank:
			tied = assets[i].Name
		}
	}

	if best == nil {
		return nil, ErrNoAsset
	}
	if tied != "" {
		return nil, fmt.Errorf("%w: %s and %s", ErrAmbiguousAsset, best.asset.Name, tied)
	}
	return best.asset, nil
}

// extensionRank returns the index of the first accepted extension name ends
// with, or -1. An empty extension accepts anything.
func (r *Resolver) extensionRank(name string) int {
	for i, ext := range r.extensions {
		if ext == "" || strings.HasSuffix(name, strings.ToLower(ext)) {
			return i
		}
	}
	return -1
}

func (r *Resolver) checksumFor(assets []releasecheck.Asset, name string) *releasecheck.Asset {
	base := trimArchiveExt(name)
	for _, pattern := range checksumCandidates {
		want := strings.ReplaceAll(strings.ReplaceAll(pattern, "%s", name), "%b", base)
		for i := range assets {
			if strings.EqualFold(assets[i].Name, want) {
				return &assets[i]
			}
		}
	}
	// goreleaser names the shared file {project}_{version}_checksums.txt
	for i := range assets {
		if strings.HasSuffix(strings.ToLower(assets[i].Name), "_checksums.txt") {
			return &assets[i]
		}
	}
	return nil
}

// platformScore is 5 when the canonical Go name appears as a token of name,
// 3 for an alias, 0 otherwise.
func platformScore(name, canonical string, aliases map[string][]string) int {
	if containsToken(name, canonical) {
		return 5
	}
	for _, alias := range aliases[canonical] {
		if containsToken(name, alias) {
			return 3
		}
	}
	return 0
}

// detectArch returns the architecture named by the longest matching token,
// so "x86_64" is not mistaken for "x86".
func detectArch(name string) string {
	found, length := "", 0
	for canonical, aliases := range archAliases {
		for _, token := range append([]string{canonical}, aliases...) {
			if len(token) > length && containsToken(name, token) {
				found, length = canonical, len(token)
			}
		}
	}
	return found
}

// containsToken reports whether token occurs in s delimited by string
// boundaries or non-alphanumeric characters.
func containsToken(s, token string) bool {
	for start := 0; ; {
		idx := strings.Index(s[start:], token)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(token)
		if (idx == 0 || !isAlnum(s[idx-1])) && (end == len(s) || !isAlnum(s[end])) {
			return true
		}
		start = idx + 1
	}
}

func isAlnum(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func looksLikeSupplemental(name string) bool {
	for _, suffix := range []string{".asc", ".sig", ".sig.ed25519", ".minisig", ".pem", ".sbom", ".spdx.json", ".cdx.json", ".intoto.jsonl", ".sha256", ".sha512", ".md5"} {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return strings.Contains(name, "sha256") || strings.Contains(name, "checksum") || strings.Contains(name, "signature")
}

func trimArchiveExt(name string) string {
	for _, ext := range []string{".tar.gz", ".tar.xz", ".tar.bz2", ".tgz", ".zip", ".exe"} {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return name
}
