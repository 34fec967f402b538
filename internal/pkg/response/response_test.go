package response_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/clinika/clinika-api/internal/pkg/response"
)

func TestDecodeJSON(t *testing.T) {
	var payload struct {
		Credits int64 `json:"credits"`
	}
	body := io.NopCloser(strings.NewReader(`{"credits": 25}`))
	if err := response.DecodeJSON(body, &payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Credits != 25 {
		t.Fatalf("expected 25 credits, got %d", payload.Credits)
	}

	bad := io.NopCloser(strings.NewReader(`not json`))
	if err := response.DecodeJSON(bad, &payload); err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestWithMeta(t *testing.T) {
	w := httptest.NewRecorder()
	response.WithMeta(w, []string{"a", "b", "c"}, response.ListMeta(3, 3, 6))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Success bool          `json:"success"`
		Data    []string      `json:"data"`
		Meta    response.Meta `json:"meta"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Success || len(resp.Data) != 3 {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if resp.Meta.Count != 3 || resp.Meta.Limit != 3 || resp.Meta.Offset != 6 {
		t.Fatalf("unexpected meta: %+v", resp.Meta)
	}
	if !resp.Meta.HasNext {
		t.Fatal("full page should report has_next")
	}
}

func TestListMetaPartialPage(t *testing.T) {
	meta := response.ListMeta(4, 20, 0)
	if meta.HasNext {
		t.Fatal("partial page should not report has_next")
	}
}

func TestNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	response.NoContent(w)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", w.Body.String())
	}
}
