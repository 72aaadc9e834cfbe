// Package speckle implements ports.ObjectStore against a Speckle server,
// using its GraphQL API for model resolution and the object transport for
// graph payloads. Access is anonymous; credentials are out of scope here.
package speckle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/geowerks/specklegeo/internal/core/domain"
	"github.com/geowerks/specklegeo/internal/pkg/metrics"
)

const sourceApplication = "specklegeo"

// Config controls the store client.
type Config struct {
	Timeout        time.Duration // per-call budget, applied on top of ctx
	MaxObjectBytes int           // reject single objects larger than this
}

// Client is a stateless Speckle server client. Safe for concurrent use across
// requests.
type Client struct {
	http    *fasthttp.Client
	timeout time.Duration
}

// New creates a store client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	maxBody := cfg.MaxObjectBytes
	if maxBody <= 0 {
		maxBody = 64 << 20 // 64 MB
	}
	return &Client{
		http: &fasthttp.Client{
			MaxResponseBodySize: maxBody,
			ReadTimeout:         cfg.Timeout,
			WriteTimeout:        cfg.Timeout,
		},
		timeout: cfg.Timeout,
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

const modelQuery = `query ModelVersion($projectId: String!, $modelId: String!) {
  project(id: $projectId) {
    name
    model(id: $modelId) {
      name
      versions(limit: 1) {
        items { id referencedObject }
      }
    }
  }
}`

const pinnedVersionQuery = `query PinnedVersion($projectId: String!, $modelId: String!, $versionId: String!) {
  project(id: $projectId) {
    name
    model(id: $modelId) {
      name
      version(id: $versionId) { id referencedObject }
    }
  }
}`

const receivedMutation = `mutation CommitReceive($input: CommitReceivedInput!) {
  commitReceive(input: $input)
}`

// ResolveModel looks up project/model display names and the root object id of
// the requested (or latest) version.
func (c *Client) ResolveModel(ctx context.Context, ref domain.ModelRef) (*domain.ModelInfo, error) {
	req := graphQLRequest{
		Query: modelQuery,
		Variables: map[string]any{
			"projectId": ref.ProjectID,
			"modelId":   ref.ModelID,
		},
	}
	if ref.VersionID != "" {
		req.Query = pinnedVersionQuery
		req.Variables["versionId"] = ref.VersionID
	}

	raw, err := c.graphql(ctx, ref, req)
	if err != nil {
		return nil, err
	}

	var data struct {
		Project *struct {
			Name  string `json:"name"`
			Model *struct {
				Name     string          `json:"name"`
				Version  *versionPayload `json:"version"`
				Versions *struct {
					Items []versionPayload `json:"items"`
				} `json:"versions"`
			} `json:"model"`
		} `json:"project"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: model query response: %v", domain.ErrModelMalformed, err)
	}

	if data.Project == nil {
		return nil, fmt.Errorf("%w: project %s", domain.ErrModelNotFound, ref.ProjectID)
	}
	if data.Project.Model == nil {
		return nil, fmt.Errorf("%w: model %s", domain.ErrModelNotFound, ref.ModelID)
	}

	var version *versionPayload
	switch {
	case data.Project.Model.Version != nil:
		version = data.Project.Model.Version
	case data.Project.Model.Versions != nil && len(data.Project.Model.Versions.Items) > 0:
		version = &data.Project.Model.Versions.Items[0]
	}
	if version == nil || version.ReferencedObject == "" {
		return nil, fmt.Errorf("%w: model %s has no versions", domain.ErrModelNotFound, ref.ModelID)
	}

	return &domain.ModelInfo{
		Project:      data.Project.Name,
		Model:        data.Project.Model.Name,
		VersionID:    version.ID,
		RootObjectID: version.ReferencedObject,
	}, nil
}

type versionPayload struct {
	ID               string `json:"id"`
	ReferencedObject string `json:"referencedObject"`
}

// Object fetches a single object through the object transport.
func (c *Client) Object(ctx context.Context, ref domain.ModelRef, objectID string) (*domain.Node, error) {
	url := fmt.Sprintf("%s/objects/%s/%s/single", ref.BaseURL(), ref.ProjectID, objectID)

	status, body, err := c.do(ctx, fasthttp.MethodGet, url, nil)
	metrics.ObjectsFetched.Inc()
	if err != nil {
		metrics.ObjectFetchErrors.Inc()
		return nil, fmt.Errorf("%w: fetch object %s: %v", domain.ErrModelUnreachable, objectID, err)
	}
	switch {
	case status == fasthttp.StatusNotFound:
		return nil, fmt.Errorf("%w: object %s", domain.ErrModelNotFound, objectID)
	case status != fasthttp.StatusOK:
		metrics.ObjectFetchErrors.Inc()
		return nil, fmt.Errorf("%w: fetch object %s: status %d", domain.ErrModelUnreachable, objectID, status)
	}

	node, err := domain.DecodeNode(body)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", objectID, err)
	}
	if node.ID == "" {
		node.ID = objectID
	}
	return node, nil
}

// NotifyReceived reports the completed download, the way desktop connectors
// acknowledge a receive. Advisory: callers log and ignore failures.
func (c *Client) NotifyReceived(ctx context.Context, ref domain.ModelRef, versionID string) error {
	req := graphQLRequest{
		Query: receivedMutation,
		Variables: map[string]any{
			"input": map[string]any{
				"streamId":          ref.ProjectID,
				"commitId":          versionID,
				"sourceApplication": sourceApplication,
				"message":           "Received model in " + sourceApplication,
			},
		},
	}
	_, err := c.graphql(ctx, ref, req)
	return err
}

func (c *Client) graphql(ctx context.Context, ref domain.ModelRef, req graphQLRequest) (json.RawMessage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	status, respBody, err := c.do(ctx, fasthttp.MethodPost, ref.BaseURL()+"/graphql", body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrModelUnreachable, ref.Host, err)
	}
	if status != fasthttp.StatusOK {
		return nil, fmt.Errorf("%w: %s: graphql status %d", domain.ErrModelUnreachable, ref.Host, status)
	}

	var resp graphQLResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: graphql response: %v", domain.ErrModelMalformed, err)
	}
	if len(resp.Errors) > 0 {
		msg := resp.Errors[0].Message
		if strings.Contains(strings.ToLower(msg), "not found") {
			return nil, fmt.Errorf("%w: %s", domain.ErrModelNotFound, msg)
		}
		return nil, fmt.Errorf("%w: graphql: %s", domain.ErrModelUnreachable, msg)
	}
	return resp.Data, nil
}

// do issues one HTTP call with the client's timeout, honouring an earlier ctx
// deadline. fasthttp carries no context, so cancellation is checked at the
// boundaries; an in-flight call may run to completion after cancel, which the
// pipeline tolerates.
func (c *Client) do(ctx context.Context, method, url string, body []byte) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return 0, nil, context.DeadlineExceeded
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	if err := c.http.DoTimeout(req, resp, timeout); err != nil {
		return 0, nil, err
	}

	out := make([]byte, len(resp.Body()))
	copy(out, resp.Body())
	return resp.StatusCode(), out, nil
}
