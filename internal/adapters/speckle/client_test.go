package speckle_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geowerks/specklegeo/internal/adapters/speckle"
	"github.com/geowerks/specklegeo/internal/core/domain"
)

func modelRef(t *testing.T, base, path string) domain.ModelRef {
	t.Helper()
	ref, err := domain.ParseModelURL(base + path)
	if err != nil {
		t.Fatal(err)
	}
	return ref
}

// graphqlServer records the last GraphQL request and answers with a fixed
// response body.
type graphqlServer struct {
	*httptest.Server
	lastQuery string
	lastVars  map[string]any
}

func newGraphQLServer(t *testing.T, respond func(vars map[string]any) string) *graphqlServer {
	t.Helper()
	gs := &graphqlServer{}
	gs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/graphql" {
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode graphql request: %v", err)
		}
		gs.lastQuery = req.Query
		gs.lastVars = req.Variables
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(respond(req.Variables)))
	}))
	return gs
}

func TestResolveModel_LatestVersion(t *testing.T) {
	srv := newGraphQLServer(t, func(map[string]any) string {
		return `{"data": {"project": {"name": "Bridge", "model": {"name": "Deck",
			"versions": {"items": [{"id": "v9", "referencedObject": "rootabc"}]}}}}}`
	})
	defer srv.Close()

	client := speckle.New(speckle.Config{})
	ref := modelRef(t, srv.URL, "/projects/p1/models/m1")

	info, err := client.ResolveModel(context.Background(), ref)
	if err != nil {
		t.Fatal(err)
	}
	if info.Project != "Bridge" || info.Model != "Deck" {
		t.Errorf("names: %+v", info)
	}
	if info.VersionID != "v9" || info.RootObjectID != "rootabc" {
		t.Errorf("version: %+v", info)
	}
	if srv.lastVars["projectId"] != "p1" || srv.lastVars["modelId"] != "m1" {
		t.Errorf("variables: %v", srv.lastVars)
	}
	if _, pinned := srv.lastVars["versionId"]; pinned {
		t.Error("latest-version lookup must not pin a version")
	}
}

func TestResolveModel_PinnedVersion(t *testing.T) {
	srv := newGraphQLServer(t, func(map[string]any) string {
		return `{"data": {"project": {"name": "Bridge", "model": {"name": "Deck",
			"version": {"id": "v42", "referencedObject": "rootdef"}}}}}`
	})
	defer srv.Close()

	client := speckle.New(speckle.Config{})
	ref := modelRef(t, srv.URL, "/projects/p1/models/m1@v42")

	info, err := client.ResolveModel(context.Background(), ref)
	if err != nil {
		t.Fatal(err)
	}
	if info.VersionID != "v42" || info.RootObjectID != "rootdef" {
		t.Errorf("pinned version: %+v", info)
	}
	if srv.lastVars["versionId"] != "v42" {
		t.Errorf("variables: %v", srv.lastVars)
	}
}

func TestResolveModel_NotFound(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"null project", `{"data": {"project": null}}`},
		{"null model", `{"data": {"project": {"name": "Bridge", "model": null}}}`},
		{"no versions", `{"data": {"project": {"name": "Bridge", "model": {"name": "Deck",
			"versions": {"items": []}}}}}`},
		{"graphql error", `{"errors": [{"message": "Project not found"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newGraphQLServer(t, func(map[string]any) string { return tc.body })
			defer srv.Close()

			client := speckle.New(speckle.Config{})
			ref := modelRef(t, srv.URL, "/projects/p1/models/m1")
			if _, err := client.ResolveModel(context.Background(), ref); !errors.Is(err, domain.ErrModelNotFound) {
				t.Errorf("expected ErrModelNotFound, got %v", err)
			}
		})
	}
}

func TestResolveModel_ServerError(t *testing.T) {
	srv := newGraphQLServer(t, func(map[string]any) string {
		return `{"errors": [{"message": "internal error"}]}`
	})
	defer srv.Close()

	client := speckle.New(speckle.Config{})
	ref := modelRef(t, srv.URL, "/projects/p1/models/m1")
	if _, err := client.ResolveModel(context.Background(), ref); !errors.Is(err, domain.ErrModelUnreachable) {
		t.Errorf("expected ErrModelUnreachable, got %v", err)
	}
}

func TestResolveModel_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	ref := modelRef(t, srv.URL, "/projects/p1/models/m1")
	srv.Close()

	client := speckle.New(speckle.Config{})
	if _, err := client.ResolveModel(context.Background(), ref); !errors.Is(err, domain.ErrModelUnreachable) {
		t.Errorf("expected ErrModelUnreachable, got %v", err)
	}
}

func TestObject_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/objects/p1/obj1/single" {
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		// no id field: the client must fall back to the requested object id
		w.Write([]byte(`{"speckle_type": "Objects.Geometry.Point", "x": 1, "y": 2, "z": 3}`))
	}))
	defer srv.Close()

	client := speckle.New(speckle.Config{})
	ref := modelRef(t, srv.URL, "/projects/p1/models/m1")

	node, err := client.Object(context.Background(), ref, "obj1")
	if err != nil {
		t.Fatal(err)
	}
	if node.ID != "obj1" {
		t.Errorf("id fallback: %q", node.ID)
	}
	if node.SpeckleType != "Objects.Geometry.Point" {
		t.Errorf("type: %q", node.SpeckleType)
	}
	if x, ok := node.Float("x"); !ok || x != 1 {
		t.Errorf("x accessor: %v %v", x, ok)
	}
}

func TestObject_ErrorStatuses(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, domain.ErrModelNotFound},
		{http.StatusInternalServerError, domain.ErrModelUnreachable},
		{http.StatusForbidden, domain.ErrModelUnreachable},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		client := speckle.New(speckle.Config{})
		ref := modelRef(t, srv.URL, "/projects/p1/models/m1")
		if _, err := client.Object(context.Background(), ref, "obj1"); !errors.Is(err, tc.want) {
			t.Errorf("status %d: expected %v, got %v", tc.status, tc.want, err)
		}
		srv.Close()
	}
}

func TestObject_MalformedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[1, 2, 3]`))
	}))
	defer srv.Close()

	client := speckle.New(speckle.Config{})
	ref := modelRef(t, srv.URL, "/projects/p1/models/m1")
	if _, err := client.Object(context.Background(), ref, "obj1"); !errors.Is(err, domain.ErrModelMalformed) {
		t.Errorf("expected ErrModelMalformed, got %v", err)
	}
}

func TestNotifyReceived(t *testing.T) {
	srv := newGraphQLServer(t, func(map[string]any) string {
		return `{"data": {"commitReceive": true}}`
	})
	defer srv.Close()

	client := speckle.New(speckle.Config{})
	ref := modelRef(t, srv.URL, "/projects/p1/models/m1")

	if err := client.NotifyReceived(context.Background(), ref, "v9"); err != nil {
		t.Fatal(err)
	}
	input, ok := srv.lastVars["input"].(map[string]any)
	if !ok {
		t.Fatalf("input variable: %v", srv.lastVars)
	}
	if input["streamId"] != "p1" || input["commitId"] != "v9" {
		t.Errorf("receipt input: %v", input)
	}
	if input["sourceApplication"] != "specklegeo" {
		t.Errorf("source application: %v", input["sourceApplication"])
	}
}

func TestCancelledContext(t *testing.T) {
	srv := newGraphQLServer(t, func(map[string]any) string { return `{"data": null}` })
	defer srv.Close()

	client := speckle.New(speckle.Config{})
	ref := modelRef(t, srv.URL, "/projects/p1/models/m1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.Object(ctx, ref, "obj1"); err == nil {
		t.Error("expected an error from a cancelled context")
	}
	if srv.lastQuery != "" {
		t.Error("no request may be issued after cancellation")
	}
}
