package httpserver_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"agenda/httpserver"
	"agenda/pkg/config"

	"github.com/stretchr/testify/require"
)

// testRateLimit keeps table driven tests away from the per client limiter.
const testRateLimit = 1000

func testConfig() *config.Config {
	return &config.Config{RateLimit: testRateLimit}
}

type apiResponse struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func decodeAPIResponse(t *testing.T, rec *httptest.ResponseRecorder) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "failed to decode response: %s", rec.Body.String())
	return resp
}

func decodeErrorResponse(t *testing.T, rec *httptest.ResponseRecorder) httpserver.ErrorResponse {
	t.Helper()
	var resp httpserver.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "failed to decode error: %s", rec.Body.String())
	return resp
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), "failed to decode body: %s", rec.Body.String())
}

func newJSONRequest(method, path, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(server *httpserver.Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	server.Router.ServeHTTP(rec, req)
	return rec
}

func propertyNames(details []httpserver.ErrorDetail) []string {
	names := make([]string, 0, len(details))
	for _, d := range details {
		names = append(names, d.PropertyName)
	}
	return names
}
