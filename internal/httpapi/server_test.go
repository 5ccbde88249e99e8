package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polisai/facets-oss/pkg/assembly"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	registry := prometheus.NewRegistry()
	profiles := &assembly.ProfileSet{Profiles: []assembly.Profile{
		{
			Name: "manager",
			Facets: []assembly.FacetSpec{
				{Type: "account", Config: map[string]any{"account_number": "ACC001"}},
				{Type: "security", Config: map[string]any{"role": "manager"}},
				{Type: "audit"},
			},
		},
	}}
	srv := NewServer(Config{
		Assembler: assembly.NewAssembler(registry),
		Profiles:  func() *assembly.ProfileSet { return profiles },
		Registry:  registry,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func createContainer(t *testing.T, ts *httptest.Server) containerResponse {
	t.Helper()
	resp := postJSON(t, ts.URL+"/containers", map[string]any{
		"profile": "manager",
		"employee": map[string]string{
			"name":       "Alice Johnson",
			"id":         "EMP001",
			"department": "Engineering",
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[containerResponse](t, resp)
}

func TestCreateAndGetContainer(t *testing.T) {
	ts := newTestServer(t)

	created := createContainer(t, ts)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Alice Johnson (ID: EMP001), Engineering", created.Employee)
	assert.Equal(t, []string{"account", "security", "audit"}, created.Facets)

	resp, err := http.Get(ts.URL + "/containers/" + created.ID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[containerResponse](t, resp)
	assert.Equal(t, created, got)

	resp, err = http.Get(ts.URL + "/containers/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "CONTAINER_NOT_FOUND", decode[errorResponse](t, resp).Code)
}

func TestCreateContainerErrors(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/containers", map[string]any{"profile": "missing"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "PROFILE_NOT_FOUND", decode[errorResponse](t, resp).Code)
}

func TestAttachFacet(t *testing.T) {
	ts := newTestServer(t)
	created := createContainer(t, ts)
	base := fmt.Sprintf("%s/containers/%s/facets", ts.URL, created.ID)

	resp := postJSON(t, base+"/notify", map[string]any{"buffer": 8})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[containerResponse](t, resp)
	assert.Equal(t, []string{"account", "security", "audit", "notify"}, got.Facets)

	// Second attach of the same type conflicts.
	resp = postJSON(t, base+"/notify", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "DUPLICATE_FACET", decode[errorResponse](t, resp).Code)

	resp = postJSON(t, base+"/teleport", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "UNKNOWN_FACET_TYPE", decode[errorResponse](t, resp).Code)

	// Known type, invalid config.
	resp = postJSON(t, base+"/account", map[string]any{})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "FACET_BUILD_FAILED", decode[errorResponse](t, resp).Code)
}

func TestDetachFacet(t *testing.T) {
	ts := newTestServer(t)
	created := createContainer(t, ts)
	url := fmt.Sprintf("%s/containers/%s/facets/audit", ts.URL, created.ID)

	req, err := http.NewRequest(http.MethodDelete, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[map[string]any](t, resp)
	assert.Equal(t, true, body["detached"])
	assert.Equal(t, []any{"account", "security"}, body["facets"])

	// Detaching an absent facet is not an error.
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decode[map[string]any](t, resp)
	assert.Equal(t, false, body["detached"])
}

func TestDelegate(t *testing.T) {
	ts := newTestServer(t)
	created := createContainer(t, ts)
	url := fmt.Sprintf("%s/containers/%s/delegate", ts.URL, created.ID)

	resp := postJSON(t, url, map[string]any{"operation": "deposit", "args": []any{500}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, 500.0, body["result"])

	// Falls through to the core entity.
	resp = postJSON(t, url, map[string]any{"operation": "describe"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decode[map[string]any](t, resp)
	assert.Equal(t, "Alice Johnson (ID: EMP001), Engineering", body["result"])

	resp = postJSON(t, url, map[string]any{"operation": "teleport"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "UNKNOWN_OPERATION", decode[errorResponse](t, resp).Code)

	resp = postJSON(t, url, map[string]any{"operation": "withdraw", "args": []any{9999}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "OPERATION_FAILED", decode[errorResponse](t, resp).Code)

	resp = postJSON(t, url, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
