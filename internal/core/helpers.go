package core

import (
	"context"
	"sync"
)

const defaultConcurrency = 15

// Target names one repository and the locally installed version to check.
type Target struct {
	Owner           string
	Repo            string
	Current         string
	AllowPreRelease bool
}

// Decision is the outcome of checking one Target.
// Release is nil when no upgrade is available.
type Decision struct {
	Target  Target
	Release *Release
	Err     error
}

// BulkDecide checks many targets in parallel against one checker.
// Results are returned in the order of targets.
func BulkDecide(ctx context.Context, c *Checker, targets []Target) []Decision {
	return BulkDecideWithConcurrency(ctx, c, targets, defaultConcurrency)
}

// BulkDecideWithConcurrency checks targets with a custom concurrency limit.
// Targets not started before ctx is cancelled report ctx.Err().
func BulkDecideWithConcurrency(ctx context.Context, c *Checker, targets []Target, concurrency int) []Decision {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	results := make([]Decision, len(targets))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, t := range targets {
		results[i].Target = t
		wg.Add(1)
		go func(i int, t Target) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i].Err = ctx.Err()
				return
			}

			results[i].Release, results[i].Err = c.Decide(ctx, t.Owner, t.Repo, t.Current, t.AllowPreRelease, 0)
		}(i, t)
	}

	wg.Wait()
	return results
}

// BulkDecidePURLs runs DecideFromPURL for many PURLs in parallel.
// PURLs that fail or have no upgrade are omitted.
// Returns a map of PURL to the release to upgrade to.
func BulkDecidePURLs(ctx context.Context, purls []string, allowPreRelease bool, client *Client, opts ...Option) map[string]*Release {
	results := make(map[string]*Release)
	var mu sync.Mutex
	sem := make(chan struct{}, defaultConcurrency)
	var wg sync.WaitGroup

	for _, purl := range purls {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			rel, err := DecideFromPURL(ctx, p, allowPreRelease, client, opts...)
			if err == nil && rel != nil {
				mu.Lock()
				results[p] = rel
				mu.Unlock()
			}
		}(purl)
	}

	wg.Wait()
	return results
}
