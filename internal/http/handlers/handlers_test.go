package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/settlement_center/backend/internal/models"
	"github.com/settlement_center/backend/internal/settlement"
)

type fakeComputer struct {
	lastReq settlement.Request
	result  settlement.Result
	err     error
}

func (f *fakeComputer) Compute(_ context.Context, req settlement.Request) (settlement.Result, error) {
	f.lastReq = req
	return f.result, f.err
}

func newTestHandler(t *testing.T, computer Computer) *Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return &Handler{
		Engine:      computer,
		Validator:   validator.New(),
		Logger:      zerolog.Nop(),
		ArtifactDir: t.TempDir(),
	}
}

func postSettlement(t *testing.T, h *Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/settlement", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	h.ComputeSettlement(c)
	return w
}

func TestComputeSettlementOK(t *testing.T) {
	computer := &fakeComputer{result: settlement.Result{
		Summary:      []models.TenantSummary{{Tenant: "acme", SettlementRate: "0%"}},
		ArtifactPath: "/data/acme_5_2025-07-01_2025-07-31_settlement.xlsx",
	}}
	h := newTestHandler(t, computer)

	w := postSettlement(t, h, `{"tenant":"acme","start_date":"2025-07-01","end_date":"2025-07-31","discount":5}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Summary   []models.TenantSummary `json:"summary"`
		Artifact  string                 `json:"artifact"`
		FromCache bool                   `json:"from_cache"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Artifact != "acme_5_2025-07-01_2025-07-31_settlement.xlsx" {
		t.Fatalf("artifact must be a bare file name, got %q", resp.Artifact)
	}
	if len(resp.Summary) != 1 || resp.Summary[0].Tenant != "acme" {
		t.Fatalf("unexpected summary: %+v", resp.Summary)
	}

	if !computer.lastReq.UseCache {
		t.Fatalf("use_cache must default to true")
	}
	wantStart := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	if !computer.lastReq.StartDate.Equal(wantStart) {
		t.Fatalf("start date = %v, want %v", computer.lastReq.StartDate, wantStart)
	}
}

func TestComputeSettlementUseCacheOptOut(t *testing.T) {
	computer := &fakeComputer{}
	h := newTestHandler(t, computer)

	w := postSettlement(t, h, `{"tenant":"acme","start_date":"2025-07-01","end_date":"2025-07-31","use_cache":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if computer.lastReq.UseCache {
		t.Fatalf("expected use_cache=false to be forwarded")
	}
}

func TestComputeSettlementValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing tenant", `{"start_date":"2025-07-01","end_date":"2025-07-31"}`},
		{"bad date format", `{"tenant":"acme","start_date":"07/01/2025","end_date":"2025-07-31"}`},
		{"missing end date", `{"tenant":"acme","start_date":"2025-07-01"}`},
		{"not json", `{tenant:acme}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			computer := &fakeComputer{}
			h := newTestHandler(t, computer)
			w := postSettlement(t, h, tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			if computer.lastReq.Tenant != "" {
				t.Fatalf("engine must not run on invalid input")
			}
		})
	}
}

func TestComputeSettlementInvalidRange(t *testing.T) {
	h := newTestHandler(t, &fakeComputer{err: settlement.ErrInvalidRange})
	w := postSettlement(t, h, `{"tenant":"acme","start_date":"2025-07-31","end_date":"2025-07-01"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for reversed range, got %d", w.Code)
	}
}

func TestComputeSettlementEngineFailure(t *testing.T) {
	h := newTestHandler(t, &fakeComputer{err: errors.New("db down")})
	w := postSettlement(t, h, `{"tenant":"acme","start_date":"2025-07-01","end_date":"2025-07-31"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != "SETTLEMENT_ERROR" {
		t.Fatalf("expected SETTLEMENT_ERROR, got %q", resp.Error.Code)
	}
}

func TestDownloadArtifact(t *testing.T) {
	h := newTestHandler(t, &fakeComputer{})
	name := "acme_5_2025-07-01_2025-07-31_settlement.xlsx"
	if err := os.WriteFile(filepath.Join(h.ArtifactDir, name), []byte("workbook bytes"), 0o644); err != nil {
		t.Fatalf("seed artifact: %v", err)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/settlement/artifacts/"+name, nil)
	c.Params = gin.Params{{Key: "name", Value: name}}
	h.DownloadArtifact(c)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "workbook bytes" {
		t.Fatalf("unexpected body: %q", w.Body.String())
	}
}

func TestDownloadArtifactRejectsBadNames(t *testing.T) {
	for _, name := range []string{"../secrets.xlsx", "report.csv", "sub/dir.xlsx"} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/api/settlement/artifacts/x", nil)
		c.Params = gin.Params{{Key: "name", Value: name}}
		newTestHandler(t, &fakeComputer{}).DownloadArtifact(c)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("name %q: expected 400, got %d", name, w.Code)
		}
	}
}
