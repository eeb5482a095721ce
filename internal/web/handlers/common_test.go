package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-registry/internal/matching"
)

func TestHealthCheck(t *testing.T) {
	recorder := httptest.NewRecorder()
	HealthCheck(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var result map[string]string
	parseJSONResponse(t, recorder, &result)
	if result["status"] != "ok" {
		t.Errorf("expected status 'ok', got '%s'", result["status"])
	}
}

func TestRespondError(t *testing.T) {
	recorder := httptest.NewRecorder()
	respondError(recorder, http.StatusBadRequest, "bad")

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "bad")
}

func TestStatusForOutcome(t *testing.T) {
	tests := []struct {
		kind     matching.ErrorKind
		expected int
	}{
		{matching.KindValidation, http.StatusBadRequest},
		{matching.KindNotFound, http.StatusNotFound},
		{matching.KindNoFace, http.StatusUnprocessableEntity},
		{matching.KindDegenerateVector, http.StatusUnprocessableEntity},
		{matching.KindDetectorFailed, http.StatusBadGateway},
		{matching.KindStoreUnavailable, http.StatusServiceUnavailable},
		{matching.KindInternal, http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			got := statusForOutcome(matching.Outcome{Kind: tc.kind}, http.StatusOK)
			if got != tc.expected {
				t.Errorf("expected %d, got %d", tc.expected, got)
			}
		})
	}

	if got := statusForOutcome(matching.Outcome{Success: true}, http.StatusCreated); got != http.StatusCreated {
		t.Errorf("expected success status %d, got %d", http.StatusCreated, got)
	}
}

func TestDecodeImage(t *testing.T) {
	data, err := decodeImage(b64("alice"))
	if err != nil || string(data) != "alice" {
		t.Errorf("plain base64: got (%q, %v)", data, err)
	}

	data, err = decodeImage("data:image/jpeg;base64," + b64("alice"))
	if err != nil || string(data) != "alice" {
		t.Errorf("data URL: got (%q, %v)", data, err)
	}

	if _, err := decodeImage("   "); err == nil || err.Error() != "image is required" {
		t.Errorf("expected 'image is required', got %v", err)
	}

	if _, err := decodeImage("!!not base64!!"); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestSanitizeForLog(t *testing.T) {
	if got := sanitizeForLog("Alice\r\nINFO fake entry"); got != "AliceINFO fake entry" {
		t.Errorf("unexpected sanitized value %q", got)
	}
}
