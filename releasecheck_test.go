package releasecheck_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/memory"

	"github.com/git-pkgs/releasecheck"
	_ "github.com/git-pkgs/releasecheck/all"
)

const cliReleases = `[
  {"tag_name": "v3.2.2-rc.2", "prerelease": true,  "html_url": "https://example.test/r/3", "published_at": "2024-03-03T00:00:00Z"},
  {"tag_name": "v3.2.2-rc.1", "prerelease": true,  "html_url": "https://example.test/r/2", "published_at": "2024-03-02T00:00:00Z"},
  {"tag_name": "v3.2.1",      "prerelease": false, "html_url": "https://example.test/r/1", "published_at": "2024-03-01T00:00:00Z",
   "assets": [{"name": "tool_linux_amd64.tar.gz", "browser_download_url": "https://example.test/d/1"}]}
]`

func releaseServer(t *testing.T, path string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != path {
			w.WriteHeader(404)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(cliReleases))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestSupportedHosts(t *testing.T) {
	hosts := releasecheck.SupportedHosts()

	expected := []string{"gitea", "github"}
	if len(hosts) != len(expected) {
		t.Fatalf("expected %d hosts, got %d: %v", len(expected), len(hosts), hosts)
	}
	for i, h := range expected {
		if hosts[i] != h {
			t.Errorf("expected host %q at position %d, got %q", h, i, hosts[i])
		}
	}
}

func TestDefaultURL(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"github", "https://api.github.com"},
		{"gitea", "https://gitea.com"},
		{"unknown", ""},
	}

	for _, tt := range tests {
		if got := releasecheck.DefaultURL(tt.host); got != tt.want {
			t.Errorf("DefaultURL(%q) = %q, want %q", tt.host, got, tt.want)
		}
	}
}

func TestNewUnknownHost(t *testing.T) {
	if _, err := releasecheck.New("sourceforge", "", nil); err == nil {
		t.Fatal("expected error for unknown host")
	}
}

func TestIntegration(t *testing.T) {
	server, _ := releaseServer(t, "/repos/acme/tool/releases")

	src, err := releasecheck.New("github", server.URL, releasecheck.DefaultClient())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	checker := releasecheck.NewChecker(src)
	ctx := context.Background()

	tests := []struct {
		current         string
		allowPreRelease bool
		want            string
	}{
		{"3.2.0", false, "v3.2.1"},
		{"3.2.0+abcd1234", false, "v3.2.1"},
		{"3.2.1-rc1", true, "v3.2.2-rc.2"},
		{"3.2.2-rc.2", true, ""},
		{"3.2.1", false, ""},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%v", tt.current, tt.allowPreRelease), func(t *testing.T) {
			rel, err := checker.Decide(ctx, "acme", "tool", tt.current, tt.allowPreRelease, 0)
			if err != nil {
				t.Fatalf("Decide failed: %v", err)
			}
			got := ""
			if rel != nil {
				got = rel.TagName
			}
			if got != tt.want {
				t.Errorf("Decide(%q, %v) = %q, want %q", tt.current, tt.allowPreRelease, got, tt.want)
			}
		})
	}

	rel, _ := checker.Decide(ctx, "acme", "tool", "3.2.0", false, 0)
	if rel == nil || rel.URL != "https://example.test/r/1" || len(rel.Assets) != 1 {
		t.Errorf("unexpected release payload: %+v", rel)
	}
}

func TestIntegrationSoftFailures(t *testing.T) {
	server, hits := releaseServer(t, "/repos/acme/tool/releases")

	h := memory.New()
	logger := &log.Logger{Handler: h, Level: log.InfoLevel}

	src, err := releasecheck.New("github", server.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	checker := releasecheck.NewChecker(src, releasecheck.WithLogger(logger))

	rel, err := checker.Decide(context.Background(), "acme", "missing", "1.0.0", false, 0)
	if err != nil {
		t.Fatalf("expected no error for missing repository, got %v", err)
	}
	if rel != nil {
		t.Errorf("expected no release, got %s", rel.TagName)
	}
	if hits.Load() != 1 {
		t.Errorf("expected a single request without retries, got %d", hits.Load())
	}

	var warned bool
	for _, e := range h.Entries {
		if e.Level == log.WarnLevel {
			warned = true
		}
	}
	if !warned {
		t.Error("expected a warning to be logged")
	}
}

func TestIntegrationInvalidLocalVersion(t *testing.T) {
	src, err := releasecheck.New("github", "http://127.0.0.1:1", nil)
	if err != nil {
		t.Fatal(err)
	}

	_, err = releasecheck.NewChecker(src).Decide(context.Background(), "acme", "tool", "-1.2.3-", false, 0)
	if !errors.Is(err, releasecheck.ErrInvalidVersion) {
		t.Fatalf("expected ErrInvalidVersion, got %v", err)
	}
	var invalid *releasecheck.InvalidVersionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidVersionError, got %T", err)
	}
}

func TestDecideFromPURL(t *testing.T) {
	server, _ := releaseServer(t, "/api/v1/repos/acme/tool/releases")

	purl := fmt.Sprintf("pkg:gitea/acme/tool@3.2.0?repository_url=%s", server.URL)
	rel, err := releasecheck.DecideFromPURL(context.Background(), purl, false, nil)
	if err != nil {
		t.Fatalf("DecideFromPURL failed: %v", err)
	}
	if rel == nil || rel.TagName != "v3.2.1" {
		t.Errorf("expected v3.2.1, got %+v", rel)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		current, latest string
		want            releasecheck.Ordering
	}{
		{"1.9.0", "1.10.0", releasecheck.Older},
		{"1.2.3-rc.1", "1.2.3", releasecheck.Older},
		{"1.2.3", "1.2.3-rc.1", releasecheck.Newer},
		{"1.2.3", "1.2.3", releasecheck.Same},
		{"1.2.3+abc", "1.2.3", releasecheck.Same},
	}

	for _, tt := range tests {
		if got := releasecheck.Compare(tt.current, tt.latest); got != tt.want {
			t.Errorf("Compare(%q, %q) = %v, want %v", tt.current, tt.latest, got, tt.want)
		}
		if got := releasecheck.IsOutOfDate(tt.current, tt.latest); got != (tt.want == releasecheck.Older) {
			t.Errorf("IsOutOfDate(%q, %q) = %v", tt.current, tt.latest, got)
		}
	}
}

func TestNewCheckerFromSettings(t *testing.T) {
	var gotUA, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[{"tag_name": "v2.0.0"}, {"tag_name": "v1.5.0"}]`))
	}))
	defer server.Close()

	checker, err := releasecheck.NewCheckerFromSettings(&releasecheck.Settings{
		Timeout:    5 * time.Second,
		UserAgent:  "myapp/1.0",
		Token:      "t0ken",
		Host:       "github",
		BaseURL:    server.URL,
		Constraint: "< 2",
	})
	if err != nil {
		t.Fatalf("NewCheckerFromSettings failed: %v", err)
	}

	rel, err := checker.Decide(context.Background(), "acme", "tool", "1.0.0", false, 0)
	if err != nil {
		t.Fatal(err)
	}
	if rel == nil || rel.TagName != "v1.5.0" {
		t.Errorf("expected constrained upgrade to v1.5.0, got %+v", rel)
	}
	if gotUA != "myapp/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if gotAuth != "Bearer t0ken" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestNewCheckerFromSettingsErrors(t *testing.T) {
	base := releasecheck.Settings{Timeout: 5 * time.Second, UserAgent: "x", Host: "github"}

	unknown := base
	unknown.Host = "bitbucket"
	if _, err := releasecheck.NewCheckerFromSettings(&unknown); err == nil {
		t.Error("expected error for unregistered host")
	}

	badConstraint := base
	badConstraint.Constraint = ">>> 1"
	if _, err := releasecheck.NewCheckerFromSettings(&badConstraint); err == nil {
		t.Error("expected error for invalid constraint")
	}
}

func TestNewCheckerFromEnv(t *testing.T) {
	server, _ := releaseServer(t, "/repos/acme/tool/releases")
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("RELEASECHECK_TOKEN", "")
	t.Setenv("RELEASECHECK_CONSTRAINT", "")
	t.Setenv("RELEASECHECK_HOST", "github")
	t.Setenv("RELEASECHECK_BASE_URL", server.URL)
	t.Setenv("RELEASECHECK_STRICT_TAGS", "true")
	t.Setenv("RELEASECHECK_TIMEOUT", "2s")

	checker, err := releasecheck.NewCheckerFromEnv()
	if err != nil {
		t.Fatalf("NewCheckerFromEnv failed: %v", err)
	}
	rel, err := checker.Decide(context.Background(), "acme", "tool", "3.0.0", false, 0)
	if err != nil {
		t.Fatal(err)
	}
	if rel == nil || rel.TagName != "v3.2.1" {
		t.Errorf("expected v3.2.1, got %+v", rel)
	}
}

func TestNewCheckerFromEnvAllowPreRelease(t *testing.T) {
	server, _ := releaseServer(t, "/repos/acme/tool/releases")
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("RELEASECHECK_TOKEN", "")
	t.Setenv("RELEASECHECK_CONSTRAINT", "")
	t.Setenv("RELEASECHECK_STRICT_TAGS", "")
	t.Setenv("RELEASECHECK_TIMEOUT", "")
	t.Setenv("RELEASECHECK_HOST", "github")
	t.Setenv("RELEASECHECK_BASE_URL", server.URL)

	tests := []struct {
		env  string
		want string
	}{
		{"", "v3.2.1"},
		{"false", "v3.2.1"},
		{"true", "v3.2.2-rc.2"},
	}

	for _, tt := range tests {
		t.Run("allow="+tt.env, func(t *testing.T) {
			t.Setenv("RELEASECHECK_ALLOW_PRERELEASE", tt.env)

			checker, err := releasecheck.NewCheckerFromEnv()
			if err != nil {
				t.Fatalf("NewCheckerFromEnv failed: %v", err)
			}
			rel, err := checker.Check(context.Background(), "acme", "tool", "3.2.0")
			if err != nil {
				t.Fatal(err)
			}
			if rel == nil || rel.TagName != tt.want {
				t.Errorf("Check = %+v, want %s", rel, tt.want)
			}
		})
	}
}
