package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teilomillet/parley/config"
	"github.com/teilomillet/parley/server/generation"
	"github.com/teilomillet/parley/server/handlers"
	"github.com/teilomillet/parley/server/metrics"
	"github.com/teilomillet/parley/server/mocks"
	"github.com/teilomillet/parley/server/processing"
	"go.uber.org/zap/zaptest"
)

type testServer struct {
	*httptest.Server
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, gen processing.Generator) *testServer {
	t.Helper()
	logger := zaptest.NewLogger(t)
	m := metrics.NewMetrics()

	processor, err := processing.NewProcessor(gen, nil, logger)
	require.NoError(t, err)

	router := NewRouter(config.DefaultConfig(), handlers.NewChatHandler(processor, m, logger), m, logger)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, metrics: m}
}

func (s *testServer) chat(t *testing.T, body string) (int, map[string]string, http.Header) {
	t.Helper()
	resp, err := http.Post(s.URL+"/chat", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out, resp.Header
}

func assertCORS(t *testing.T, h http.Header) {
	t.Helper()
	assert.Equal(t, "*", h.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Type", h.Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "POST", h.Get("Access-Control-Allow-Methods"))
	assert.NotEmpty(t, h.Get("X-Request-ID"))
}

func TestChatRoute(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expected       map[string]string
		generatorInput []string
	}{
		{
			name:           "empty message",
			body:           `{"message": ""}`,
			expectedStatus: http.StatusBadRequest,
			expected:       map[string]string{"error": "Message is required"},
		},
		{
			name:           "missing message",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
			expected:       map[string]string{"error": "Message is required"},
		},
		{
			name:           "trigger keyword",
			body:           `{"message": "Is there a CURE for the common cold?"}`,
			expectedStatus: http.StatusOK,
			expected:       map[string]string{"response": "I Recommend You To Consult A Doctor"},
		},
		{
			name:           "trigger keyword with punctuation",
			body:           `{"message": "cure?"}`,
			expectedStatus: http.StatusOK,
			expected:       map[string]string{"response": "I Recommend You To Consult A Doctor"},
		},
		{
			name:           "keyword as substring",
			body:           `{"message": "what is curettage"}`,
			expectedStatus: http.StatusOK,
			expected:       map[string]string{"response": "generated"},
			generatorInput: []string{"what is curettage"},
		},
		{
			name:           "normalized before generation",
			body:           `{"message": "  Hello\r\nThere   <b>Friend</b>  "}`,
			expectedStatus: http.StatusOK,
			expected:       map[string]string{"response": "generated"},
			generatorInput: []string{"hello there friend"},
		},
		{
			name:           "non-string message is coerced",
			body:           `{"message": 42}`,
			expectedStatus: http.StatusOK,
			expected:       map[string]string{"response": "generated"},
			generatorInput: []string{"42"},
		},
		{
			name:           "array message is coerced to JSON text",
			body:           `{"message": [1, 2, true]}`,
			expectedStatus: http.StatusOK,
			expected:       map[string]string{"response": "generated"},
			generatorInput: []string{"[1,2,true]"},
		},
		{
			name:           "keyword inside coerced array triggers",
			body:           `{"message": ["cure"]}`,
			expectedStatus: http.StatusOK,
			expected:       map[string]string{"response": "I Recommend You To Consult A Doctor"},
		},
		{
			name:           "non-ascii dropped before generation",
			body:           `{"message": "Héllo wörld"}`,
			expectedStatus: http.StatusOK,
			expected:       map[string]string{"response": "generated"},
			generatorInput: []string{"hllo wrld"},
		},
		{
			name:           "malformed body",
			body:           `{"message": `,
			expectedStatus: http.StatusInternalServerError,
			expected:       map[string]string{"error": "Internal server error"},
		},
		{
			name:           "array body",
			body:           `["hello"]`,
			expectedStatus: http.StatusInternalServerError,
			expected:       map[string]string{"error": "Internal server error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := mocks.NewMockGenerator("generated")
			srv := newTestServer(t, gen)

			status, body, header := srv.chat(t, tt.body)

			assert.Equal(t, tt.expectedStatus, status)
			assert.Equal(t, tt.expected, body)
			assertCORS(t, header)
			assert.Equal(t, len(tt.generatorInput), gen.CallCount())
			if len(tt.generatorInput) > 0 {
				assert.Equal(t, tt.generatorInput, gen.Inputs)
			}
		})
	}
}

func TestChatRouteGenerationFailure(t *testing.T) {
	model := &mocks.MockModel{
		GenerateFunc: func(context.Context, *generation.Encoding, generation.Options) ([][]int, error) {
			return nil, errors.New("inference server returned 503")
		},
	}
	adapter := generation.NewAdapter(mocks.NewMockTokenizer(), model)
	srv := newTestServer(t, adapter)

	status, body, header := srv.chat(t, `{"message": "hello"}`)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]string{"response": "Sorry, I encountered an error. Please try again."}, body)
	assertCORS(t, header)
	assert.Equal(t, 1, model.CallCount())
}

func TestChatRouteGeneratorPanic(t *testing.T) {
	gen := processing.GeneratorFunc(func(context.Context, string) string {
		panic("model crashed")
	})
	srv := newTestServer(t, gen)

	status, body, header := srv.chat(t, `{"message": "hello"}`)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, map[string]string{"error": "Internal server error"}, body)
	assertCORS(t, header)
}

func TestChatRouteWithAdapter(t *testing.T) {
	model := &mocks.MockModel{}
	adapter := generation.NewAdapter(mocks.NewMockTokenizer(), model)
	srv := newTestServer(t, adapter)

	status, body, _ := srv.chat(t, `{"message": "How ARE you?"}`)

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]string{"response": "how are you?"}, body)
	require.Equal(t, 1, model.CallCount())
	assert.Equal(t, generation.FixedOptions, model.Options[0])
	assert.Len(t, model.Calls[0].InputIDs, generation.MaxLength)
}

func TestChatRouteConcurrentRequests(t *testing.T) {
	adapter := generation.NewAdapter(mocks.NewMockTokenizer(), &mocks.MockModel{})
	srv := newTestServer(t, adapter)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := fmt.Sprintf("message number %d", i)
			resp, err := http.Post(srv.URL+"/chat", "application/json",
				strings.NewReader(fmt.Sprintf(`{"message": %q}`, msg)))
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()

			var out map[string]string
			assert.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
			assert.Equal(t, msg, out["response"])
		}(i)
	}
	wg.Wait()
}

func TestPreflight(t *testing.T) {
	srv := newTestServer(t, mocks.NewMockGenerator("unused"))

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/chat", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assertCORS(t, resp.Header)
}

func TestStaticRoutes(t *testing.T) {
	srv := newTestServer(t, mocks.NewMockGenerator("unused"))

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
		contentType    string
		contains       string
	}{
		{name: "landing page", method: http.MethodGet, path: "/", expectedStatus: http.StatusOK, contentType: "text/html", contains: "<title>Parley</title>"},
		{name: "health", method: http.MethodGet, path: "/health", expectedStatus: http.StatusOK, contentType: "application/json", contains: `"status":"ok"`},
		{name: "metrics", method: http.MethodGet, path: "/metrics", expectedStatus: http.StatusOK, contentType: "text/plain", contains: "parley_chat_outcomes_total"},
		{name: "chat with GET", method: http.MethodGet, path: "/chat", expectedStatus: http.StatusMethodNotAllowed},
		{name: "unknown path", method: http.MethodGet, path: "/nope", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			require.NoError(t, err)
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			assertCORS(t, resp.Header)
			if tt.contentType != "" {
				assert.Contains(t, resp.Header.Get("Content-Type"), tt.contentType)
			}
			if tt.contains != "" {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Contains(t, string(body), tt.contains)
			}
		})
	}
}

func TestReadinessRoute(t *testing.T) {
	logger := zaptest.NewLogger(t)
	processor, err := processing.NewProcessor(mocks.NewMockGenerator("unused"), nil, logger)
	require.NoError(t, err)

	var down atomic.Bool
	target := pingFunc(func(ctx context.Context) error {
		if down.Load() {
			return errors.New("unreachable")
		}
		return nil
	})
	monitor := generation.NewHealthMonitor(target, 0, logger, nil)

	router := NewRouter(config.DefaultConfig(), handlers.NewChatHandler(processor, nil, logger), nil, logger, WithReadiness(monitor))
	srv := httptest.NewServer(router)
	defer srv.Close()

	get := func() int {
		resp, err := http.Get(srv.URL + "/ready")
		require.NoError(t, err)
		defer resp.Body.Close()
		assertCORS(t, resp.Header)
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, get())

	down.Store(true)
	monitor.Check(context.Background())
	assert.Equal(t, http.StatusServiceUnavailable, get())
}

func TestReadinessRouteNotMounted(t *testing.T) {
	srv := newTestServer(t, mocks.NewMockGenerator("unused"))

	resp, err := http.Get(srv.URL + "/ready")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
