// Package all imports all supported release hosts.
//
// Import this package for its side effects to register every host:
//
//	import (
//		"github.com/git-pkgs/releasecheck"
//		_ "github.com/git-pkgs/releasecheck/all"
//	)
//
//	// Now all hosts are available
//	hosts := releasecheck.SupportedHosts()
//	// ["gitea", "github"]
package all

import (
	_ "github.com/git-pkgs/releasecheck/internal/gitea"
	_ "github.com/git-pkgs/releasecheck/internal/github"
)
