package handlers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/melvy13/fruitveg-classifier-app/classifier"
	"github.com/melvy13/fruitveg-classifier-app/config"
	"github.com/melvy13/fruitveg-classifier-app/media"
	"github.com/melvy13/fruitveg-classifier-app/nutrition"
	"github.com/melvy13/fruitveg-classifier-app/repository"
	"github.com/melvy13/fruitveg-classifier-app/services"
)

type stubInferencer struct {
	out []float32
	err error
}

func (s *stubInferencer) Infer(ctx context.Context, tensor []float32) ([]float32, error) {
	return s.out, s.err
}

func (s *stubInferencer) Close() error { return nil }

type testServer struct {
	router http.Handler
	inf    *stubInferencer
	repo   repository.HistoryRepositoryInterface
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	repo, err := repository.NewBoltHistoryRepository(filepath.Join(dir, "history.bolt"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	mediaRoot := filepath.Join(dir, "media")
	store, err := media.NewLocalStorage(mediaRoot, map[media.AssetType]string{media.AssetTypeCapture: config.DefaultCapturesSubDir})
	if err != nil {
		t.Fatal(err)
	}
	table, err := nutrition.DefaultTable()
	if err != nil {
		t.Fatal(err)
	}

	// banana_ripe wins, broccoli_raw second
	inf := &stubInferencer{out: []float32{0.01, 0.02, 0.6, 0.05, 0.02, 0.1, 0.05, 0.05, 0.05, 0.05}}
	svc := services.NewClassificationService(inf, classifier.Labels, table, media.NewProcessor(store, 90), repo, services.Options{
		InputSize: 16,
	})

	r := chi.NewRouter()
	RegisterRoutes(r, Handlers{
		Classify:  &ClassifyHandler{Service: svc, MaxUploadBytes: 1 << 20, CaptureURL: CaptureURL},
		History:   &HistoryHandler{Repo: repo, Editor: svc, Location: time.UTC, CaptureURL: CaptureURL, Store: store},
		Nutrition: &NutritionHandler{Table: table, Labels: classifier.Labels},
		Captures:  AssetServer(mediaRoot, config.DefaultCapturesSubDir, CapturesRoute),
	})
	return &testServer{router: r, inf: inf, repo: repo}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 32, 24))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.Set(3, 3, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func uploadRequest(t *testing.T, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "capture.png")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/classify", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("failed to decode %q: %v", rec.Body.String(), err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp APIErrorResponse
	decode(t, rec, &resp)
	if len(resp.Errors) != 1 {
		t.Fatalf("expected one error, got %+v", resp)
	}
	return resp.Errors[0].Code
}

type classifyBody struct {
	Label       string `json:"label"`
	DisplayName string `json:"display_name"`
	Top         []struct {
		Label       string `json:"label"`
		DisplayName string `json:"display_name"`
	} `json:"top_predictions"`
	Nutrition *nutrition.Display `json:"nutrition"`
	HistoryID *uint              `json:"history_id"`
	ImageURL  string             `json:"image_url"`
	Warnings  []string           `json:"warnings"`
}

func TestClassifyEndToEnd(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, uploadRequest(t, "image", pngBytes(t)))
	if rec.Code != http.StatusOK {
		t.Fatalf("classify returned %d: %s", rec.Code, rec.Body.String())
	}
	var body classifyBody
	decode(t, rec, &body)
	if body.Label != "banana_ripe" || body.DisplayName != "Banana (Ripe)" {
		t.Errorf("unexpected label %+v", body)
	}
	if len(body.Top) != 5 || body.Top[1].Label != "broccoli_raw" || body.Top[1].DisplayName != "Broccoli (Raw)" {
		t.Errorf("unexpected top list %+v", body.Top)
	}
	if body.Nutrition == nil || body.HistoryID == nil {
		t.Fatalf("expected nutrition and history id, got %s", rec.Body.String())
	}
	if body.Warnings == nil || len(body.Warnings) != 0 {
		t.Errorf("expected empty warnings, got %v", body.Warnings)
	}
	if !strings.HasPrefix(body.ImageURL, CapturesRoute+"img_") {
		t.Errorf("unexpected image url %q", body.ImageURL)
	}

	img := s.do(t, httptest.NewRequest(http.MethodGet, body.ImageURL, nil))
	if img.Code != http.StatusOK || img.Header().Get("Content-Type") != "image/jpeg" {
		t.Errorf("capture not served: %d %s", img.Code, img.Header().Get("Content-Type"))
	}

	list := s.do(t, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	var history []HistoryResponseDTO
	decode(t, list, &history)
	if len(history) != 1 || history[0].ID != *body.HistoryID {
		t.Fatalf("unexpected history %+v", history)
	}
	if len(history[0].TopPredictions) != 5 || history[0].FormattedTimestamp == "" {
		t.Errorf("history card incomplete: %+v", history[0])
	}

	path := fmt.Sprintf("/api/history/%d", *body.HistoryID)
	get := s.do(t, httptest.NewRequest(http.MethodGet, path, nil))
	if get.Code != http.StatusOK {
		t.Fatalf("GET %s returned %d", path, get.Code)
	}

	for i := 0; i < 2; i++ {
		del := s.do(t, httptest.NewRequest(http.MethodDelete, path, nil))
		if del.Code != http.StatusNoContent {
			t.Errorf("DELETE #%d returned %d", i+1, del.Code)
		}
	}
	missing := s.do(t, httptest.NewRequest(http.MethodGet, path, nil))
	if missing.Code != http.StatusNotFound || errorCode(t, missing) != CodeNotFound {
		t.Errorf("expected not_found after delete, got %d %s", missing.Code, missing.Body.String())
	}

	// the image outlives its record
	img = s.do(t, httptest.NewRequest(http.MethodGet, body.ImageURL, nil))
	if img.Code != http.StatusOK {
		t.Errorf("capture should remain after record delete, got %d", img.Code)
	}
}

func TestClassifyRejectsBadUploads(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, uploadRequest(t, "image", []byte("plain text")))
	if rec.Code != http.StatusUnprocessableEntity || errorCode(t, rec) != CodeInvalidImage {
		t.Errorf("expected invalid_image, got %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, uploadRequest(t, "photo", pngBytes(t)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing field, got %d", rec.Code)
	}

	rec = s.do(t, httptest.NewRequest(http.MethodPost, "/api/classify", strings.NewReader("{}")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-multipart body, got %d", rec.Code)
	}

	if n, _ := s.repo.Count(); n != 0 {
		t.Errorf("no history expected, got %d", n)
	}
}

func TestClassifyInferenceFailure(t *testing.T) {
	s := newTestServer(t)
	s.inf.out = []float32{1}

	rec := s.do(t, uploadRequest(t, "image", pngBytes(t)))
	if rec.Code != http.StatusInternalServerError || errorCode(t, rec) != CodeInferenceFailure {
		t.Errorf("expected inference_failure, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestHistorySearchCountAndClear(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 2; i++ {
		if rec := s.do(t, uploadRequest(t, "image", pngBytes(t))); rec.Code != http.StatusOK {
			t.Fatalf("classify returned %d", rec.Code)
		}
	}

	var count map[string]int64
	decode(t, s.do(t, httptest.NewRequest(http.MethodGet, "/api/history/count", nil)), &count)
	if count["count"] != 2 {
		t.Errorf("expected count 2, got %v", count)
	}

	var found, none []HistoryResponseDTO
	decode(t, s.do(t, httptest.NewRequest(http.MethodGet, "/api/history?q=BANANA", nil)), &found)
	decode(t, s.do(t, httptest.NewRequest(http.MethodGet, "/api/history?q=kiwi", nil)), &none)
	if len(found) != 2 || len(none) != 0 {
		t.Errorf("search returned %d / %d", len(found), len(none))
	}
	if found[0].ID < found[1].ID {
		t.Errorf("same-timestamp records should be newest id first: %d, %d", found[0].ID, found[1].ID)
	}

	if rec := s.do(t, httptest.NewRequest(http.MethodDelete, "/api/history", nil)); rec.Code != http.StatusNoContent {
		t.Fatalf("clear returned %d", rec.Code)
	}
	decode(t, s.do(t, httptest.NewRequest(http.MethodGet, "/api/history/count", nil)), &count)
	if count["count"] != 0 {
		t.Errorf("expected count 0 after clear, got %v", count)
	}

	if rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/history/abc", nil)); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad id, got %d", rec.Code)
	}
}

func TestNutritionAndLabels(t *testing.T) {
	s := newTestServer(t)

	var entries []NutritionEntryDTO
	decode(t, s.do(t, httptest.NewRequest(http.MethodGet, "/api/nutrition", nil)), &entries)
	if len(entries) != len(classifier.Labels) || entries[0].Label != "apple_ripe" {
		t.Errorf("unexpected catalogue %+v", entries)
	}

	var apple NutritionEntryDTO
	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/nutrition/apple_ripe", nil))
	decode(t, rec, &apple)
	if apple.DisplayName != "Apple (Ripe)" || apple.PerServing.Calories <= apple.Per100g.Calories {
		t.Errorf("unexpected apple entry %+v", apple)
	}

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/api/nutrition/kiwi", nil))
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != CodeNotFound {
		t.Errorf("expected not_found for kiwi, got %d", rec.Code)
	}

	var labels []LabelDTO
	decode(t, s.do(t, httptest.NewRequest(http.MethodGet, "/api/labels", nil)), &labels)
	if len(labels) != len(classifier.Labels) {
		t.Fatalf("expected %d labels, got %d", len(classifier.Labels), len(labels))
	}
	for i, l := range labels {
		if l.Index != i || l.Label != classifier.Labels[i] || !l.HasNutrition {
			t.Errorf("label %d = %+v", i, l)
		}
	}
}

func TestAssetServerRejectsNonImages(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, httptest.NewRequest(http.MethodGet, CapturesRoute+"notes.txt", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for non-image asset, got %d", rec.Code)
	}
	rec = s.do(t, httptest.NewRequest(http.MethodGet, CapturesRoute+"missing.jpg", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for missing capture, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestExportHistory(t *testing.T) {
	s := newTestServer(t)
	if rec := s.do(t, uploadRequest(t, "image", pngBytes(t))); rec.Code != http.StatusOK {
		t.Fatalf("classify returned %d", rec.Code)
	}

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/api/history/export", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/zip" {
		t.Fatalf("unexpected export response %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("export is not a zip: %v", err)
	}
	if len(zr.File) != 2 || zr.File[0].Name != "history.json" || !strings.HasPrefix(zr.File[1].Name, "images/img_") {
		names := make([]string, len(zr.File))
		for i, f := range zr.File {
			names[i] = f.Name
		}
		t.Errorf("unexpected archive entries %v", names)
	}
}
