package handlers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
)

func decodeJSONBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	data, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	payload := map[string]any{}
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("decode body %q: %v", string(data), err)
	}
	return payload
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	payload := decodeJSONBody(t, rec)
	code, _ := payload["error"].(string)
	return code
}
