package discoveries_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/microfinder/internal/analysis"
	"github.com/JaimeStill/microfinder/internal/classification"
	"github.com/JaimeStill/microfinder/internal/discoveries"
	"github.com/JaimeStill/microfinder/pkg/routes"
)

type mockSystem struct {
	saveFn    func(ctx context.Context, cmd discoveries.SaveCommand) (*discoveries.Discovery, error)
	listFn    func(ctx context.Context, filters discoveries.Filters) ([]discoveries.Discovery, error)
	findFn    func(ctx context.Context, id uuid.UUID) (*discoveries.Discovery, error)
	updateFn  func(ctx context.Context, id uuid.UUID, cmd discoveries.UpdateCommand) (*discoveries.Discovery, error)
	deleteFn  func(ctx context.Context, id uuid.UUID) error
	captureFn func(ctx context.Context, cmd discoveries.CaptureCommand) (*discoveries.Discovery, error)
}

func (m *mockSystem) Handler() *discoveries.Handler {
	return newTestHandler(m)
}

func (m *mockSystem) Save(ctx context.Context, cmd discoveries.SaveCommand) (*discoveries.Discovery, error) {
	return m.saveFn(ctx, cmd)
}

func (m *mockSystem) List(ctx context.Context, filters discoveries.Filters) ([]discoveries.Discovery, error) {
	return m.listFn(ctx, filters)
}

func (m *mockSystem) Find(ctx context.Context, id uuid.UUID) (*discoveries.Discovery, error) {
	return m.findFn(ctx, id)
}

func (m *mockSystem) Update(ctx context.Context, id uuid.UUID, cmd discoveries.UpdateCommand) (*discoveries.Discovery, error) {
	return m.updateFn(ctx, id, cmd)
}

func (m *mockSystem) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFn(ctx, id)
}

func (m *mockSystem) Capture(ctx context.Context, cmd discoveries.CaptureCommand) (*discoveries.Discovery, error) {
	return m.captureFn(ctx, cmd)
}

func newTestHandler(sys discoveries.System) *discoveries.Handler {
	return discoveries.NewHandler(sys, slog.New(slog.NewTextHandler(io.Discard, nil)), 1024)
}

func setupMux(h *discoveries.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	routes.Register(mux, h.Routes())
	return mux
}

var sampleID = uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")

func sampleDiscovery() discoveries.Discovery {
	return discoveries.Discovery{
		ID:              sampleID,
		UserID:          "user-1",
		ImageURL:        "https://cdn.example.com/discoveries/a/slide.jpg",
		MicrobeName:     "Escherichia coli",
		Classification:  classification.Bacteria,
		ConfidenceScore: 0.92,
		Characteristics: []string{"rod-shaped"},
		AnalysisResults: "Gram-negative bacterium.",
		CreatedAt:       time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body["error"]
}

func TestHandlerList(t *testing.T) {
	var captured discoveries.Filters
	sys := &mockSystem{
		listFn: func(_ context.Context, f discoveries.Filters) ([]discoveries.Discovery, error) {
			captured = f
			return []discoveries.Discovery{sampleDiscovery()}, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/discoveries?classification=VIRUS&search=coli&mine=true", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var items []discoveries.Discovery
	if err := json.NewDecoder(rec.Body).Decode(&items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0].ID != sampleID {
		t.Errorf("items = %+v, want one discovery %s", items, sampleID)
	}

	if captured.Classification == nil || *captured.Classification != classification.Virus {
		t.Errorf("classification filter = %v, want virus", captured.Classification)
	}
	if captured.Search == nil || *captured.Search != "coli" {
		t.Errorf("search filter = %v, want coli", captured.Search)
	}
	if !captured.Mine {
		t.Error("mine filter not set")
	}
}

func TestHandlerListIgnoresUnknownClassification(t *testing.T) {
	var captured discoveries.Filters
	sys := &mockSystem{
		listFn: func(_ context.Context, f discoveries.Filters) ([]discoveries.Discovery, error) {
			captured = f
			return []discoveries.Discovery{}, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", "/discoveries?classification=prion", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if captured.Classification != nil {
		t.Errorf("classification filter = %v, want nil", *captured.Classification)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("body = %s, want []", rec.Body.String())
	}
}

func TestHandlerFind(t *testing.T) {
	sys := &mockSystem{
		findFn: func(_ context.Context, id uuid.UUID) (*discoveries.Discovery, error) {
			if id != sampleID {
				return nil, discoveries.ErrNotFound
			}
			d := sampleDiscovery()
			return &d, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"found", "/discoveries/" + sampleID.String(), http.StatusOK},
		{"missing", "/discoveries/" + uuid.NewString(), http.StatusNotFound},
		{"invalid id", "/discoveries/not-a-uuid", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("GET", tt.path, nil))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
		})
	}
}

func TestHandlerSave(t *testing.T) {
	var captured discoveries.SaveCommand
	sys := &mockSystem{
		saveFn: func(_ context.Context, cmd discoveries.SaveCommand) (*discoveries.Discovery, error) {
			captured = cmd
			d := sampleDiscovery()
			return &d, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	body := `{"image_url":"https://cdn.example.com/x.jpg","analysis":{"microbeName":"E. coli","classification":"Bacteria","confidence":0.9,"characteristics":["rod"],"description":"d"}}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/discoveries", strings.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if captured.ImageURL != "https://cdn.example.com/x.jpg" {
		t.Errorf("image_url = %q", captured.ImageURL)
	}
	if captured.Analysis == nil || captured.Analysis.MicrobeName != "E. coli" {
		t.Errorf("analysis = %+v", captured.Analysis)
	}

	t.Run("invalid json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/discoveries", strings.NewReader("{")))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerSaveToleratesMalformedAnalysis(t *testing.T) {
	tests := []struct {
		name     string
		analysis string
	}{
		{"characteristics as text", `{"microbeName":"E. coli","classification":"bacteria","characteristics":"rod-shaped"}`},
		{"characteristics as numbers", `{"microbeName":"E. coli","classification":"bacteria","characteristics":[1,2]}`},
		{"characteristics null", `{"microbeName":"E. coli","classification":"bacteria","characteristics":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured *analysis.MicrobeAnalysis
			sys := &mockSystem{
				saveFn: func(_ context.Context, cmd discoveries.SaveCommand) (*discoveries.Discovery, error) {
					captured = cmd.Analysis
					d := sampleDiscovery()
					return &d, nil
				},
			}
			mux := setupMux(newTestHandler(sys))

			body := `{"image_url":"https://cdn.example.com/x.jpg","analysis":` + tt.analysis + `}`
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest("POST", "/discoveries", strings.NewReader(body)))

			if rec.Code != http.StatusCreated {
				t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
			}
			if captured == nil {
				t.Fatal("save was not called")
			}
			if captured.Characteristics == nil || len(captured.Characteristics) != 0 {
				t.Errorf("characteristics = %#v, want empty", captured.Characteristics)
			}
			if captured.MicrobeName != "E. coli" {
				t.Errorf("microbeName = %q", captured.MicrobeName)
			}
			if captured.Description != analysis.DefaultDescription {
				t.Errorf("description = %q, want default", captured.Description)
			}
		})
	}

	t.Run("analysis not an object", func(t *testing.T) {
		sys := &mockSystem{}
		mux := setupMux(newTestHandler(sys))

		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("POST", "/discoveries",
			strings.NewReader(`{"image_url":"u","analysis":"E. coli"}`)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestHandlerSaveNotAuthenticated(t *testing.T) {
	sys := &mockSystem{
		saveFn: func(context.Context, discoveries.SaveCommand) (*discoveries.Discovery, error) {
			return nil, discoveries.ErrNotAuthenticated
		},
	}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/discoveries", strings.NewReader(`{}`)))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if msg := errorBody(t, rec); msg != discoveries.ErrNotAuthenticated.Error() {
		t.Errorf("error = %q", msg)
	}
}

func TestHandlerUpdate(t *testing.T) {
	var captured discoveries.UpdateCommand
	sys := &mockSystem{
		updateFn: func(_ context.Context, id uuid.UUID, cmd discoveries.UpdateCommand) (*discoveries.Discovery, error) {
			captured = cmd
			switch {
			case cmd == (discoveries.UpdateCommand{}):
				return nil, discoveries.ErrEmptyUpdate
			case id != sampleID:
				return nil, discoveries.ErrNotAuthorizedOrNotFound
			}
			d := sampleDiscovery()
			d.MicrobeName = *cmd.MicrobeName
			return &d, nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	t.Run("updates allowed fields", func(t *testing.T) {
		body := `{"microbe_name":"Salmonella","user_id":"attacker","id":"x"}`
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("PATCH", "/discoveries/"+sampleID.String(), strings.NewReader(body)))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if captured.MicrobeName == nil || *captured.MicrobeName != "Salmonella" {
			t.Errorf("microbe_name = %v", captured.MicrobeName)
		}
		if captured.Classification != nil || captured.AnalysisResults != nil {
			t.Errorf("unexpected fields forwarded: %+v", captured)
		}
	})

	t.Run("empty update", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("PATCH", "/discoveries/"+sampleID.String(), strings.NewReader(`{"user_id":"x"}`)))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("not owner", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("PATCH", "/discoveries/"+uuid.NewString(), strings.NewReader(`{"microbe_name":"x"}`)))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestHandlerDelete(t *testing.T) {
	sys := &mockSystem{
		deleteFn: func(_ context.Context, id uuid.UUID) error {
			if id != sampleID {
				return discoveries.ErrNotAuthorizedOrNotFound
			}
			return nil
		},
	}
	mux := setupMux(newTestHandler(sys))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("DELETE", "/discoveries/"+sampleID.String(), nil))
	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("DELETE", "/discoveries/"+uuid.NewString(), nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func captureRequest(t *testing.T, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "slide.jpg")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	mw.Close()

	req := httptest.NewRequest("POST", "/discoveries/capture", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandlerCapture(t *testing.T) {
	jpeg := []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")

	tests := []struct {
		name   string
		data   []byte
		err    error
		status int
	}{
		{"created", jpeg, nil, http.StatusCreated},
		{"too large", bytes.Repeat([]byte{0xff}, 4096), nil, http.StatusRequestEntityTooLarge},
		{"timeout", jpeg, &analysis.Error{Kind: analysis.KindTimeout}, http.StatusGatewayTimeout},
		{"service", jpeg, &analysis.Error{Kind: analysis.KindService, Detail: "quota"}, http.StatusBadGateway},
		{"store", jpeg, discoveries.ErrStoreWrite, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured discoveries.CaptureCommand
			sys := &mockSystem{
				captureFn: func(_ context.Context, cmd discoveries.CaptureCommand) (*discoveries.Discovery, error) {
					captured = cmd
					if tt.err != nil {
						return nil, tt.err
					}
					d := sampleDiscovery()
					return &d, nil
				},
			}
			mux := setupMux(newTestHandler(sys))

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, captureRequest(t, tt.data))

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.status == http.StatusCreated {
				if captured.Filename != "slide.jpg" {
					t.Errorf("filename = %q", captured.Filename)
				}
				if captured.ContentType != "image/jpeg" {
					t.Errorf("content type = %q, want image/jpeg", captured.ContentType)
				}
			}
		})
	}
}
