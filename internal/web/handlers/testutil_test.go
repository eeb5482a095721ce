package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-registry/internal/database/mock"
	"github.com/kozaktomas/face-registry/internal/detector"
	"github.com/kozaktomas/face-registry/internal/matching"
	"github.com/kozaktomas/face-registry/internal/similarity"
)

const (
	testDim       = 4
	testMaxUpload = 1 << 20
)

// fakeDetector returns canned faces keyed by image content.
type fakeDetector struct {
	faces map[string][]detector.Face
	err   error
}

func (f *fakeDetector) Detect(ctx context.Context, image []byte) ([]detector.Face, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.faces[string(image)], nil
}

func testFace(values ...float32) detector.Face {
	return detector.Face{
		BBox:       detector.BBox{X1: 10, Y1: 20, X2: 110, Y2: 140},
		Confidence: 0.95,
		Embedding:  similarity.Vector(values),
	}
}

// newTestService wires a matching service to an in-memory store and a fake detector.
func newTestService(t *testing.T) (*matching.Service, *fakeDetector, *mock.MockIdentityStore) {
	t.Helper()
	det := &fakeDetector{faces: map[string][]detector.Face{
		"alice":  {testFace(1, 0, 0, 0)},
		"alice2": {testFace(1, 0, 0, 0)},
		"bob":    {testFace(0, 1, 0, 0)},
		"nobody": {},
	}}
	store := mock.NewMockIdentityStore(testDim)
	svc := matching.New(det, store, matching.Options{
		Threshold: matching.DefaultThreshold,
		Ranker:    similarity.Linear{},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return svc, det, store
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// jsonRequest creates a request with a JSON encoded body
func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// multipartRequest creates a multipart request with the given files and fields
func multipartRequest(t *testing.T, path string, files, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, content := range files {
		part, err := mw.CreateFormFile(field, field+".jpg")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		part.Write([]byte(content))
	}
	for key, value := range fields {
		mw.WriteField(key, value)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertContentType checks if the response has the expected content type
func assertContentType(t *testing.T, recorder *httptest.ResponseRecorder, expected string) {
	t.Helper()
	ct := recorder.Header().Get("Content-Type")
	if ct != expected {
		t.Errorf("expected Content-Type '%s', got '%s'", expected, ct)
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
