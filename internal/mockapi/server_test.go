package mockapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func sequence() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func call(t *testing.T, h http.Handler, method, path string, body any, token string) (int, []byte) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code, rec.Body.Bytes()
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}

func TestHealth(t *testing.T) {
	h := New(WithSecret("s3cret")).Handler()
	code, body := call(t, h, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestComponents(t *testing.T) {
	h := New().Handler()

	code, body := call(t, h, http.MethodGet, "/api/components", nil, "")
	require.Equal(t, http.StatusOK, code)
	list := decode[struct {
		Components []Component `json:"components"`
	}](t, body)
	require.Len(t, list.Components, 5)
	assert.Equal(t, "aws-api-gateway", list.Components[0].ID)

	code, body = call(t, h, http.MethodGet, "/api/components/aws-ec2", nil, "")
	require.Equal(t, http.StatusOK, code)
	ec2 := decode[Component](t, body)
	assert.Equal(t, "t3.micro", ec2.Config["instanceType"])
	assert.Equal(t, 730.0, ec2.Config["hoursPerMonth"])

	code, _ = call(t, h, http.MethodGet, "/api/components/aws-nope", nil, "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDeleteComponent(t *testing.T) {
	s := New()
	assert.True(t, s.DeleteComponent("aws-s3"))
	assert.False(t, s.DeleteComponent("aws-s3"))

	code, _ := call(t, s.Handler(), http.MethodGet, "/api/components/aws-s3", nil, "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestWorkspaceLifecycle(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New(WithIDGenerator(sequence()), WithClock(func() time.Time { return now }))
	h := s.Handler()

	code, body := call(t, h, http.MethodPost, "/api/workspaces", map[string]string{"name": "  Payments "}, "")
	require.Equal(t, http.StatusCreated, code)
	ws := decode[Workspace](t, body)
	assert.Equal(t, "id-1", ws.ID)
	assert.Equal(t, "Payments", ws.Name)
	assert.NotNil(t, ws.Nodes)

	code, body = call(t, h, http.MethodPut, "/api/workspaces/id-1", map[string]any{
		"nodes": []map[string]any{
			{"nodeId": "node-a", "componentId": "aws-ec2", "position": map[string]float64{"x": 10, "y": 20}},
			{"nodeId": "node-b", "componentId": "aws-s3", "configOverrides": map[string]any{"storageGB": 5}},
		},
	}, "")
	require.Equal(t, http.StatusOK, code, string(body))
	ws = decode[Workspace](t, body)
	require.Len(t, ws.Nodes, 2)
	assert.Equal(t, "node-a", ws.Nodes[0].NodeID)
	assert.Equal(t, "EC2", ws.Nodes[0].ComponentName)
	assert.Equal(t, map[string]any{}, ws.Nodes[0].ConfigOverrides)
	assert.Nil(t, ws.Nodes[1].Position)

	code, body = call(t, h, http.MethodGet, "/api/workspaces/id-1", nil, "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decode[Workspace](t, body).Nodes, 2)

	code, body = call(t, h, http.MethodGet, "/api/workspaces", nil, "")
	require.Equal(t, http.StatusOK, code)
	list := decode[struct {
		Workspaces []WorkspaceSummary `json:"workspaces"`
	}](t, body)
	require.Len(t, list.Workspaces, 1)
	assert.Equal(t, 2, list.Workspaces[0].NodeCount)
	assert.True(t, list.Workspaces[0].UpdatedAt.Equal(now))
}

func TestWorkspaceErrors(t *testing.T) {
	s := New(WithIDGenerator(sequence()))
	h := s.Handler()

	code, _ := call(t, h, http.MethodGet, "/api/workspaces/missing", nil, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = call(t, h, http.MethodPut, "/api/workspaces/missing", map[string]any{"nodes": []any{}}, "")
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = call(t, h, http.MethodPost, "/api/workspaces", map[string]string{}, "")
	assert.Equal(t, http.StatusBadRequest, code, "name is required")

	code, _ = call(t, h, http.MethodPost, "/api/workspaces", map[string]string{"name": "x"}, "")
	require.Equal(t, http.StatusCreated, code)

	code, _ = call(t, h, http.MethodPut, "/api/workspaces/id-1", map[string]any{
		"nodes": []map[string]any{{"nodeId": "a", "componentId": "aws-ec2"}, {"nodeId": "a", "componentId": "aws-s3"}},
	}, "")
	assert.Equal(t, http.StatusBadRequest, code, "duplicate ids")

	code, _ = call(t, h, http.MethodPut, "/api/workspaces/id-1", map[string]any{
		"nodes": []map[string]any{{"nodeId": "a"}},
	}, "")
	assert.Equal(t, http.StatusBadRequest, code, "componentId is required")

	ws, ok := s.Workspace("id-1")
	require.True(t, ok)
	assert.Empty(t, ws.Nodes, "rejected saves change nothing")
}

func TestServerNodeIDs(t *testing.T) {
	s := New(WithIDGenerator(sequence()), WithServerNodeIDs())
	h := s.Handler()
	call(t, h, http.MethodPost, "/api/workspaces", map[string]string{"name": "x"}, "")

	_, body := call(t, h, http.MethodPut, "/api/workspaces/id-1", map[string]any{
		"nodes": []map[string]any{{"nodeId": "node-tmp", "componentId": "aws-ec2"}},
	}, "")
	ws := decode[Workspace](t, body)
	require.Len(t, ws.Nodes, 1)
	assert.Equal(t, "n-id-2", ws.Nodes[0].NodeID)

	_, body = call(t, h, http.MethodPut, "/api/workspaces/id-1", map[string]any{
		"nodes": []map[string]any{{"nodeId": "n-id-2", "componentId": "aws-ec2"}},
	}, "")
	assert.Equal(t, "n-id-2", decode[Workspace](t, body).Nodes[0].NodeID, "stored ids are kept")
}

func TestCalculateCost(t *testing.T) {
	h := New().Handler()

	code, body := call(t, h, http.MethodPost, "/api/cost/calculate", map[string]any{"nodes": []any{}}, "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"total_cost":0,"breakdown":[]}`, string(body))

	code, body = call(t, h, http.MethodPost, "/api/cost/calculate", map[string]any{
		"nodes": []map[string]any{
			{"nodeId": "a", "componentId": "aws-ec2", "configOverrides": map[string]any{}},
			{"nodeId": "b", "componentId": "aws-ec2", "configOverrides": map[string]any{"instanceType": "t3.small"}},
			{"nodeId": "c", "componentId": "aws-retired"},
		},
	}, "")
	require.Equal(t, http.StatusOK, code)
	resp := decode[CostResponse](t, body)
	require.Len(t, resp.Breakdown, 2)
	assert.Equal(t, "EC2", resp.Breakdown[0].ComponentName)
	assert.InDelta(t, 7.59, resp.Breakdown[0].Cost, 1e-9)
	assert.InDelta(t, 15.18, resp.Breakdown[1].Cost, 1e-9)
	assert.InDelta(t, 22.77, resp.TotalCost, 1e-9)
}

func TestAuth(t *testing.T) {
	s := New(WithSecret("s3cret"))
	h := s.Handler()

	code, _ := call(t, h, http.MethodGet, "/api/components", nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	bad, err := IssueToken("other", "u1", "a@b.c", "", time.Hour)
	require.NoError(t, err)
	code, _ = call(t, h, http.MethodGet, "/api/components", nil, bad)
	assert.Equal(t, http.StatusUnauthorized, code)

	expired, err := IssueToken("s3cret", "u1", "a@b.c", "", -time.Minute)
	require.NoError(t, err)
	code, _ = call(t, h, http.MethodGet, "/api/components", nil, expired)
	assert.Equal(t, http.StatusUnauthorized, code)

	good, err := IssueToken("s3cret", "u1", "a@b.c", "", time.Hour)
	require.NoError(t, err)
	code, _ = call(t, h, http.MethodGet, "/api/components", nil, good)
	assert.Equal(t, http.StatusOK, code)

	code, body := call(t, h, http.MethodGet, "/api/auth/me", nil, good)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"id":"u1","email":"a@b.c","role":"authenticated"}`, string(body))
}

func TestAuth_OpenWithoutSecret(t *testing.T) {
	h := New().Handler()

	code, _ := call(t, h, http.MethodGet, "/api/auth/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)

	tok, err := IssueToken("anything", "u2", "x@y.z", "admin", time.Hour)
	require.NoError(t, err)
	code, body := call(t, h, http.MethodGet, "/api/auth/me", nil, tok)
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"id":"u2","email":"x@y.z","role":"admin"}`, string(body))
}

func TestCORS(t *testing.T) {
	h := New().Handler()
	req := httptest.NewRequest(http.MethodOptions, "/api/components", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
