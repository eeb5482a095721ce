package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"

	"github.com/kozaktomas/face-registry/internal/database"
	"github.com/kozaktomas/face-registry/internal/detector"
	"github.com/kozaktomas/face-registry/internal/matching"
)

func TestFacesHandler_Register(t *testing.T) {
	svc, _, store := newTestService(t)
	handler := NewFacesHandler(svc, testMaxUpload)

	req := jsonRequest(t, http.MethodPost, "/api/v1/faces/register", map[string]string{
		"image":        b64("alice"),
		"display_name": "Alice",
		"description":  "front desk",
	})
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)
	assertContentType(t, recorder, "application/json")

	var result matching.RegisterResult
	parseJSONResponse(t, recorder, &result)
	if !result.Success || result.IdentityID == 0 || result.DisplayName != "Alice" {
		t.Errorf("unexpected result: %+v", result)
	}
	if result.OperationID == "" {
		t.Error("expected operation_id in response")
	}
	if result.BBox != (detector.BBox{X1: 10, Y1: 20, X2: 110, Y2: 140}) {
		t.Errorf("unexpected bbox: %+v", result.BBox)
	}

	if n, _ := store.Count(context.Background()); n != 1 {
		t.Errorf("expected 1 stored identity, got %d", n)
	}
}

func TestFacesHandler_RegisterFailures(t *testing.T) {
	tests := []struct {
		name     string
		body     map[string]string
		status   int
		kind     matching.ErrorKind
		errorMsg string
	}{
		{
			name:   "no face",
			body:   map[string]string{"image": b64("nobody"), "display_name": "Ghost"},
			status: http.StatusUnprocessableEntity,
			kind:   matching.KindNoFace,
		},
		{
			name:   "blank name",
			body:   map[string]string{"image": b64("alice"), "display_name": "   "},
			status: http.StatusBadRequest,
			kind:   matching.KindValidation,
		},
		{
			name:     "missing image",
			body:     map[string]string{"display_name": "Alice"},
			status:   http.StatusBadRequest,
			errorMsg: "image is required",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, _, _ := newTestService(t)
			handler := NewFacesHandler(svc, testMaxUpload)

			recorder := httptest.NewRecorder()
			handler.Register(recorder, jsonRequest(t, http.MethodPost, "/api/v1/faces/register", tc.body))

			assertStatusCode(t, recorder, tc.status)
			if tc.errorMsg != "" {
				assertJSONError(t, recorder, tc.errorMsg)
				return
			}
			var result matching.RegisterResult
			parseJSONResponse(t, recorder, &result)
			if result.Success || result.Kind != tc.kind {
				t.Errorf("expected kind %q, got %+v", tc.kind, result.Outcome)
			}
		})
	}
}

func TestFacesHandler_RegisterInvalidJSON(t *testing.T) {
	svc, _, _ := newTestService(t)
	handler := NewFacesHandler(svc, testMaxUpload)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/faces/register", nil)
	recorder := httptest.NewRecorder()
	handler.Register(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, errInvalidRequestBody)
}

func TestFacesHandler_RegisterFile(t *testing.T) {
	svc, _, _ := newTestService(t)
	handler := NewFacesHandler(svc, testMaxUpload)

	req := multipartRequest(t, "/api/v1/faces/register-file",
		map[string]string{"file": "bob"},
		map[string]string{"display_name": "Bob", "description": "visitor"})
	recorder := httptest.NewRecorder()
	handler.RegisterFile(recorder, req)

	assertStatusCode(t, recorder, http.StatusCreated)
	var result matching.RegisterResult
	parseJSONResponse(t, recorder, &result)
	if result.DisplayName != "Bob" {
		t.Errorf("expected display name 'Bob', got '%s'", result.DisplayName)
	}

	// Missing file part.
	req = multipartRequest(t, "/api/v1/faces/register-file", nil, map[string]string{"display_name": "Bob"})
	recorder = httptest.NewRecorder()
	handler.RegisterFile(recorder, req)
	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, `missing file "file"`)
}

func TestFacesHandler_Recognize(t *testing.T) {
	svc, _, _ := newTestService(t)
	handler := NewFacesHandler(svc, testMaxUpload)
	ctx := context.Background()

	// Empty registry is a success, not an error.
	recorder := httptest.NewRecorder()
	handler.Recognize(recorder, jsonRequest(t, http.MethodPost, "/api/v1/faces/recognize", map[string]any{"image": b64("alice")}))
	assertStatusCode(t, recorder, http.StatusOK)
	var empty matching.RecognizeResult
	parseJSONResponse(t, recorder, &empty)
	if empty.Status != matching.StatusEmptyRegistry || len(empty.Faces) != 1 || empty.Faces[0].DisplayName != matching.UnknownName {
		t.Errorf("unexpected empty-registry result: %+v", empty)
	}

	svc.Register(ctx, matching.RegisterRequest{Image: []byte("alice"), DisplayName: "Alice"})

	recorder = httptest.NewRecorder()
	handler.Recognize(recorder, jsonRequest(t, http.MethodPost, "/api/v1/faces/recognize", map[string]any{"image": b64("alice2")}))
	assertStatusCode(t, recorder, http.StatusOK)
	var result matching.RecognizeResult
	parseJSONResponse(t, recorder, &result)
	if result.Status != matching.StatusMatched || len(result.Faces) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !result.Faces[0].Matched || result.Faces[0].DisplayName != "Alice" {
		t.Errorf("expected match to Alice, got %+v", result.Faces[0])
	}

	// bob is orthogonal to alice: rejected, best candidate still reported.
	recorder = httptest.NewRecorder()
	handler.Recognize(recorder, jsonRequest(t, http.MethodPost, "/api/v1/faces/recognize", map[string]any{"image": b64("bob")}))
	var rejected matching.RecognizeResult
	parseJSONResponse(t, recorder, &rejected)
	if rejected.Status != matching.StatusNoMatch || rejected.Faces[0].CandidateName != "Alice" {
		t.Errorf("unexpected no-match result: %+v", rejected)
	}
}

func TestFacesHandler_RecognizeInvalidThreshold(t *testing.T) {
	svc, _, _ := newTestService(t)
	handler := NewFacesHandler(svc, testMaxUpload)

	recorder := httptest.NewRecorder()
	handler.Recognize(recorder, jsonRequest(t, http.MethodPost, "/api/v1/faces/recognize",
		map[string]any{"image": b64("alice"), "threshold": 1.5}))

	assertStatusCode(t, recorder, http.StatusBadRequest)
	var result matching.RecognizeResult
	parseJSONResponse(t, recorder, &result)
	if result.Kind != matching.KindValidation {
		t.Errorf("expected validation kind, got %q", result.Kind)
	}
}

func TestFacesHandler_RecognizeFile(t *testing.T) {
	svc, _, _ := newTestService(t)
	handler := NewFacesHandler(svc, testMaxUpload)
	svc.Register(context.Background(), matching.RegisterRequest{Image: []byte("alice"), DisplayName: "Alice"})

	req := multipartRequest(t, "/api/v1/faces/recognize-file",
		map[string]string{"file": "alice2"}, map[string]string{"threshold": "0.9"})
	recorder := httptest.NewRecorder()
	handler.RecognizeFile(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var result matching.RecognizeResult
	parseJSONResponse(t, recorder, &result)
	if result.Threshold != 0.9 || result.Status != matching.StatusMatched {
		t.Errorf("unexpected result: %+v", result)
	}

	req = multipartRequest(t, "/api/v1/faces/recognize-file",
		map[string]string{"file": "alice2"}, map[string]string{"threshold": "high"})
	recorder = httptest.NewRecorder()
	handler.RecognizeFile(recorder, req)
	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "threshold must be a number")
}

func TestFacesHandler_DetectorAndStoreFailures(t *testing.T) {
	t.Run("detector down", func(t *testing.T) {
		svc, det, _ := newTestService(t)
		det.err = fmt.Errorf("%w: connection refused", detector.ErrDetectorFailed)
		handler := NewFacesHandler(svc, testMaxUpload)

		recorder := httptest.NewRecorder()
		handler.Recognize(recorder, jsonRequest(t, http.MethodPost, "/api/v1/faces/recognize", map[string]any{"image": b64("alice")}))
		assertStatusCode(t, recorder, http.StatusBadGateway)
	})

	t.Run("store down", func(t *testing.T) {
		svc, _, store := newTestService(t)
		store.ReadAllError = database.WrapStoreError("query identities", syscall.ECONNREFUSED)
		handler := NewFacesHandler(svc, testMaxUpload)

		recorder := httptest.NewRecorder()
		handler.Recognize(recorder, jsonRequest(t, http.MethodPost, "/api/v1/faces/recognize", map[string]any{"image": b64("alice")}))
		assertStatusCode(t, recorder, http.StatusServiceUnavailable)

		var result matching.RecognizeResult
		parseJSONResponse(t, recorder, &result)
		if result.Kind != matching.KindStoreUnavailable {
			t.Errorf("expected store_unavailable, got %q", result.Kind)
		}
	})
}

func TestFacesHandler_Compare(t *testing.T) {
	svc, _, _ := newTestService(t)
	handler := NewFacesHandler(svc, testMaxUpload)

	recorder := httptest.NewRecorder()
	handler.Compare(recorder, jsonRequest(t, http.MethodPost, "/api/v1/faces/compare",
		map[string]string{"image_a": b64("alice"), "image_b": b64("alice2")}))

	assertStatusCode(t, recorder, http.StatusOK)
	var result matching.CompareResult
	parseJSONResponse(t, recorder, &result)
	if !result.IsSamePerson || result.Similarity != 1 {
		t.Errorf("expected same person with similarity 1, got %+v", result)
	}

	recorder = httptest.NewRecorder()
	handler.Compare(recorder, jsonRequest(t, http.MethodPost, "/api/v1/faces/compare",
		map[string]string{"image_a": b64("alice")}))
	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "image_b: image is required")

	recorder = httptest.NewRecorder()
	handler.Compare(recorder, jsonRequest(t, http.MethodPost, "/api/v1/faces/compare",
		map[string]string{"image_a": b64("alice"), "image_b": b64("nobody")}))
	assertStatusCode(t, recorder, http.StatusUnprocessableEntity)
}

func TestFacesHandler_CompareFiles(t *testing.T) {
	svc, _, _ := newTestService(t)
	handler := NewFacesHandler(svc, testMaxUpload)

	req := multipartRequest(t, "/api/v1/faces/compare-files",
		map[string]string{"file_a": "alice", "file_b": "bob"}, nil)
	recorder := httptest.NewRecorder()
	handler.CompareFiles(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var result matching.CompareResult
	parseJSONResponse(t, recorder, &result)
	if result.IsSamePerson || result.Similarity != 0 {
		t.Errorf("expected different people, got %+v", result)
	}

	req = multipartRequest(t, "/api/v1/faces/compare-files", map[string]string{"file_a": "alice"}, nil)
	recorder = httptest.NewRecorder()
	handler.CompareFiles(recorder, req)
	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, `missing file "file_b"`)
}
