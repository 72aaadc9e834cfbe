package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// ModelRef identifies one model version on a Speckle server. It is parsed once
// per request from the speckleUrl parameter and never mutated afterwards.
type ModelRef struct {
	Host      string
	UseTLS    bool
	ProjectID string
	ModelID   string
	VersionID string // empty means latest version
}

// ParseModelURL parses a Speckle web URL of the form
// https://host/projects/{projectId}/models/{modelId}[@{versionId}] into a ModelRef.
func ParseModelURL(raw string) (ModelRef, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ModelRef{}, fmt.Errorf("%w: speckleUrl is required", ErrInvalidParameter)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ModelRef{}, fmt.Errorf("%w: speckleUrl: %v", ErrInvalidParameter, err)
	}
	if u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ModelRef{}, fmt.Errorf("%w: speckleUrl must be an absolute http(s) URL", ErrInvalidParameter)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	// expected: projects/{projectId}/models/{modelId}
	if len(parts) < 4 || parts[0] != "projects" || parts[2] != "models" {
		return ModelRef{}, fmt.Errorf("%w: speckleUrl must contain /projects/{id}/models/{id}", ErrInvalidParameter)
	}

	ref := ModelRef{
		Host:      u.Host,
		UseTLS:    u.Scheme == "https",
		ProjectID: parts[1],
		ModelID:   parts[3],
	}
	if ref.ProjectID == "" || ref.ModelID == "" {
		return ModelRef{}, fmt.Errorf("%w: speckleUrl has empty project or model id", ErrInvalidParameter)
	}

	// model id may carry a pinned version: {modelId}@{versionId}
	if at := strings.IndexByte(ref.ModelID, '@'); at >= 0 {
		ref.VersionID = ref.ModelID[at+1:]
		ref.ModelID = ref.ModelID[:at]
		if ref.ModelID == "" || ref.VersionID == "" {
			return ModelRef{}, fmt.Errorf("%w: speckleUrl has malformed model@version", ErrInvalidParameter)
		}
	}

	return ref, nil
}

// BaseURL returns the server root, e.g. https://app.speckle.systems.
func (r ModelRef) BaseURL() string {
	scheme := "http"
	if r.UseTLS {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (r ModelRef) String() string {
	s := r.BaseURL() + "/projects/" + r.ProjectID + "/models/" + r.ModelID
	if r.VersionID != "" {
		s += "@" + r.VersionID
	}
	return s
}

// ModelInfo is display metadata about a resolved model version.
type ModelInfo struct {
	Project      string `json:"project"`
	Model        string `json:"model"`
	VersionID    string `json:"version_id"`
	RootObjectID string `json:"root_object_id"`
}
