package core

import (
	"github.com/git-pkgs/releasecheck/client"
)

// Type aliases so host implementations only import core.
type (
	Client         = client.Client
	ClientOption   = client.Option
	URLBuilder     = client.URLBuilder
	BaseURLs       = client.BaseURLs
	HTTPError      = client.HTTPError
	NotFoundError  = client.NotFoundError
	RateLimitError = client.RateLimitError
)

// DefaultTimeout bounds the release list fetch when no timeout is given.
const DefaultTimeout = client.DefaultTimeout

// ErrNotFound is returned when a repository is not found.
var ErrNotFound = client.ErrNotFound

// Function aliases for host implementations.
var (
	DefaultClient  = client.DefaultClient
	NewClient      = client.NewClient
	WithMaxRetries = client.WithMaxRetries
	BuildURLs      = client.BuildURLs
)
