package model

import "net/url"

// ResolvedArtifact is the single build selected from the index page.
type ResolvedArtifact struct {
	Filename string
	BaseURL  string
}

// URL returns the download URL of the artifact.
func (a ResolvedArtifact) URL() (string, error) {
	return url.JoinPath(a.BaseURL, url.PathEscape(a.Filename))
}
