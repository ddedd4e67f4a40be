// Package core provides the release types, the host registry and the update
// decision engine.
package core

import "time"

// Release is one published release entry from a registry.
type Release struct {
	Name        string    `json:"name"`
	URL         string    `json:"html_url"`
	TagName     string    `json:"tag_name"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	CreatedAt   time.Time `json:"created_at"`
	PublishedAt time.Time `json:"published_at"`
	Assets      []Asset   `json:"assets"`
}

// Asset is a downloadable artifact attached to a release.
type Asset struct {
	Name        string `json:"name"`
	URL         string `json:"browser_download_url"`
	Size        int64  `json:"size,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}
