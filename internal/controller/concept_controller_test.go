package controller

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"ai-concept-engine/internal/dto"
	"ai-concept-engine/internal/pkg/logger"
	"ai-concept-engine/internal/pkg/serverutils"
	"ai-concept-engine/internal/repository/memory"
	"ai-concept-engine/internal/service"
	"ai-concept-engine/pkg/concept/naming"
	"ai-concept-engine/pkg/concept/pipeline"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "controller-secret"

func newApp(t *testing.T) *fiber.App {
	t.Helper()
	coordinator, err := pipeline.NewCoordinator(naming.NewRuleNamer(naming.DefaultRules()), pipeline.DefaultConfig(), nil)
	require.NoError(t, err)
	svc := service.NewConceptService(service.ConceptServiceDeps{
		Coordinator: coordinator,
		Concepts:    memory.NewConceptRepository(),
		Snapshots:   memory.NewSnapshotStore(),
		Runs:        memory.NewRunRepository(5),
		Titles:      memory.NewTitleCache(time.Hour),
	})

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware(logger.NewNopLogger()))
	NewConceptController(svc, serverutils.NewJwtMiddleware(secret)).RegisterRoutes(app.Group("/api"))
	return app
}

func bearer(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "test"}).SignedString([]byte(secret))
	require.NoError(t, err)
	return "Bearer " + token
}

func postRun(t *testing.T, app *fiber.App, path string, body interface{}, auth bool) *httptestResponse {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("Authorization", bearer(t))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	out := &httptestResponse{code: resp.StatusCode}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out.body))
	return out
}

type httptestResponse struct {
	code int
	body map[string]interface{}
}

func get(t *testing.T, app *fiber.App, path string) *httptestResponse {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
	require.NoError(t, err)
	out := &httptestResponse{code: resp.StatusCode}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out.body))
	return out
}

func runBody() dto.RunRequest {
	return dto.RunRequest{
		Clusters: []dto.ClusterRequest{
			{Id: "c1", NoteIds: []string{"n1", "n2"}},
			{Id: "c2", NoteIds: []string{"n3"}},
		},
		Titles: map[string]string{"n1": "Goroutines", "n2": "Go modules", "n3": "Team standup"},
	}
}

func TestRunRequiresToken(t *testing.T) {
	app := newApp(t)

	resp := postRun(t, app, "/api/concept/v1/runs", runBody(), false)

	assert.Equal(t, fiber.StatusUnauthorized, resp.code)
}

func TestRunThenList(t *testing.T) {
	app := newApp(t)

	resp := postRun(t, app, "/api/concept/v1/runs", runBody(), true)
	require.Equal(t, fiber.StatusOK, resp.code)
	data := resp.body["data"].(map[string]interface{})
	concepts := data["concepts"].([]interface{})
	require.Len(t, concepts, 2)
	first := concepts[0].(map[string]interface{})
	assert.Equal(t, "Go Programming", first["canonical_name"])

	list := get(t, app, "/api/concept/v1?quizzable=false")
	require.Equal(t, fiber.StatusOK, list.code)
	page := list.body["data"].(map[string]interface{})
	assert.Equal(t, float64(1), page["total"])

	show := get(t, app, "/api/concept/v1/"+first["id"].(string))
	assert.Equal(t, fiber.StatusOK, show.code)

	latest := get(t, app, "/api/concept/v1/runs/latest")
	require.Equal(t, fiber.StatusOK, latest.code)
	assert.Equal(t, "succeeded", latest.body["data"].(map[string]interface{})["status"])
}

func TestRunValidation(t *testing.T) {
	app := newApp(t)

	resp := postRun(t, app, "/api/concept/v1/runs", map[string]interface{}{
		"clusters": []interface{}{map[string]interface{}{"note_ids": []string{"a"}}},
	}, true)

	assert.Equal(t, fiber.StatusBadRequest, resp.code)
	assert.Equal(t, false, resp.body["success"])
}

func TestNotFoundAndBadIds(t *testing.T) {
	app := newApp(t)

	assert.Equal(t, fiber.StatusBadRequest, get(t, app, "/api/concept/v1/not-a-uuid").code)
	assert.Equal(t, fiber.StatusNotFound, get(t, app, "/api/concept/v1/7b0c8f6e-3f6a-4d2b-9a54-1d2f3e4a5b6c").code)
	assert.Equal(t, fiber.StatusNotFound, get(t, app, "/api/concept/v1/runs/latest").code)
}

func TestEnqueueWithoutQueueIsUnavailable(t *testing.T) {
	app := newApp(t)

	resp := postRun(t, app, "/api/concept/v1/runs/async", runBody(), true)

	assert.Equal(t, fiber.StatusServiceUnavailable, resp.code)
}
