package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jywlabs/demogen/internal/cycle"
	"github.com/jywlabs/demogen/internal/demo"
	"github.com/jywlabs/demogen/internal/llm"
	"github.com/jywlabs/demogen/internal/metrics"
	"github.com/jywlabs/demogen/internal/prompt"
	"github.com/jywlabs/demogen/internal/runner"
	"github.com/jywlabs/demogen/internal/script"
)

// queueLLM returns replies in order.
type queueLLM struct {
	mu      sync.Mutex
	replies []string
	err     error
}

func (q *queueLLM) Complete(_ context.Context, _ llm.Request) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return "", q.err
	}
	if len(q.replies) == 0 {
		return "", llm.ErrEmptyCompletion
	}
	r := q.replies[0]
	q.replies = q.replies[1:]
	return r, nil
}

// contentExecutor succeeds when the script contains "ok".
type contentExecutor struct{}

func (contentExecutor) Execute(_ context.Context, path string) runner.Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return runner.Result{ErrorText: "Error: " + err.Error()}
	}
	if strings.Contains(string(data), "ok") {
		return runner.Result{Succeeded: true, Output: "hello\n"}
	}
	return runner.Result{ErrorText: "Error: exit status 1\nNameError: x"}
}

func testServer(t *testing.T, client llm.Client) (*fiber.App, demo.Store) {
	t.Helper()
	store := demo.NewFileStore(t.TempDir())
	m := metrics.New()
	p := &cycle.Pipeline{
		Prompts:         prompt.NewBuilder("Python"),
		LLM:             client,
		DescribeProfile: llm.DescribeProfile,
		CodeProfile:     llm.CodeProfile,
		Materializer:    script.New(t.TempDir(), ".py"),
		Executor:        contentExecutor{},
		Store:           store,
		MaxAttempts:     3,
		Recorder:        m,
	}
	return New(p, m, zerolog.Nop()).App(), store
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, path, r)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestHealthz(t *testing.T) {
	app, _ := testServer(t, &queueLLM{})

	resp := doJSON(t, app, "GET", "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestCreateCycle_RepairAndSave(t *testing.T) {
	client := &queueLLM{replies: []string{"the plan", "print(fib(5))", "print('ok')"}}
	app, store := testServer(t, client)

	resp := doJSON(t, app, "POST", "/api/cycles", `{"use_case":"Print fib","save":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body CycleResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "success", body.State)
	assert.Equal(t, 2, body.Attempts)
	assert.Equal(t, "hello\n", body.Output)
	assert.Equal(t, "print('ok')", body.Code)
	assert.Equal(t, cycle.ProgressDone, body.Progress)
	require.Len(t, body.History, 2)
	assert.False(t, body.History[0].Succeeded)
	assert.Contains(t, body.History[0].ErrorText, "NameError")
	require.NotEmpty(t, body.DemoID)

	saved, err := store.Load(context.Background(), body.DemoID)
	require.NoError(t, err)
	assert.Equal(t, "Print fib", saved.UseCase)
	assert.Equal(t, "the plan", saved.DetailedDescription)
}

func TestCreateCycle_Exhausted(t *testing.T) {
	client := &queueLLM{replies: []string{"plan", "bad", "bad", "bad"}}
	app, _ := testServer(t, client)

	resp := doJSON(t, app, "POST", "/api/cycles", `{"use_case":"x","save":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body CycleResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "exhausted", body.State)
	assert.Equal(t, 3, body.Attempts)
	assert.Empty(t, body.DemoID, "failing code is not saved")
}

func TestCreateCycle_Validation(t *testing.T) {
	app, _ := testServer(t, &queueLLM{})

	resp := doJSON(t, app, "POST", "/api/cycles", `{"use_case":"  "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, "POST", "/api/cycles", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateCycle_GenerationFailure(t *testing.T) {
	app, _ := testServer(t, &queueLLM{err: llm.ErrEmptyCompletion})

	resp := doJSON(t, app, "POST", "/api/cycles", `{"use_case":"x"}`)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var body ProblemDetail
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "generation_failed", body.Type)
}

func TestCreateEdit(t *testing.T) {
	client := &queueLLM{replies: []string{"print('ok twice')"}}
	app, _ := testServer(t, client)

	resp := doJSON(t, app, "POST", "/api/edits",
		`{"use_case":"u","detailed_description":"d","code":"print('ok')","request":"twice"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body CycleResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "success", body.State)
	assert.Equal(t, "print('ok twice')", body.Code)
	require.Len(t, body.Chat, 2)
	assert.Equal(t, "twice", body.Chat[0].Content)

	resp = doJSON(t, app, "POST", "/api/edits", `{"code":"","request":"x"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDemoEndpoints(t *testing.T) {
	app, _ := testServer(t, &queueLLM{})

	resp := doJSON(t, app, "POST", "/api/demos", `{"use_case":"u","detailed_description":"d","code":"print(1)"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created demo.Demo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.ID)

	resp = doJSON(t, app, "GET", "/api/demos", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list DemoListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Equal(t, 1, list.Total)

	resp = doJSON(t, app, "GET", "/api/demos/"+created.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got demo.Demo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, created, got)

	resp = doJSON(t, app, "DELETE", "/api/demos/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, app, "DELETE", "/api/demos/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/demos/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, app, "POST", "/api/demos", `{"use_case":"u"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	client := &queueLLM{replies: []string{"plan", "print('ok')"}}
	app, _ := testServer(t, client)

	doJSON(t, app, "POST", "/api/cycles", `{"use_case":"x"}`)

	resp := doJSON(t, app, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `demogen_cycles_total{outcome="success"} 1`)
}
