package whisper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/voxmetrics/callcoach/pkg/provider/stt"
)

// writeTempAudio creates a small fake audio file and returns its path.
func writeTempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "call.wav")
	if err := os.WriteFile(path, []byte("RIFF fake audio"), 0o644); err != nil {
		t.Fatalf("write temp audio: %v", err)
	}
	return path
}

func TestNewRequiresServerURL(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("New(\"\") error = nil, want error")
	}
}

func TestTranscribe(t *testing.T) {
	var gotLanguage, gotModel, gotFormat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" {
			t.Errorf("path = %q, want /inference", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart form: %v", err)
		}
		gotLanguage = r.FormValue("language")
		gotModel = r.FormValue("model")
		gotFormat = r.FormValue("response_format")
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("form file: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"text": "hello world",
			"language": "en",
			"duration": 4.2,
			"segments": [
				{"text": "hello", "start": 0, "end": 2.1},
				{"text": "world", "start": 2.1, "end": 4.2}
			]
		}`))
	}))
	defer srv.Close()

	p, err := New(srv.URL, WithModel("base.en"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	result, err := p.Transcribe(context.Background(), stt.Request{
		FilePath: writeTempAudio(t),
		Language: "de",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if gotLanguage != "de" {
		t.Errorf("language field = %q, want %q", gotLanguage, "de")
	}
	if gotModel != "base.en" {
		t.Errorf("model field = %q, want %q", gotModel, "base.en")
	}
	if gotFormat != "verbose_json" {
		t.Errorf("response_format field = %q, want %q", gotFormat, "verbose_json")
	}
	if result.Text != "hello world" {
		t.Errorf("Text = %q, want %q", result.Text, "hello world")
	}
	if result.Duration != 4.2 {
		t.Errorf("Duration = %v, want 4.2", result.Duration)
	}
	if len(result.Segments) != 2 {
		t.Fatalf("len(Segments) = %d, want 2", len(result.Segments))
	}
	if result.Segments[1].Start != 2.1 || result.Segments[1].End != 4.2 {
		t.Errorf("Segments[1] = %+v, want start 2.1 end 4.2", result.Segments[1])
	}
}

func TestTranscribeDefaultLanguage(t *testing.T) {
	var gotLanguage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart form: %v", err)
		}
		gotLanguage = r.FormValue("language")
		w.Write([]byte(`{"text": "hallo"}`))
	}))
	defer srv.Close()

	p, err := New(srv.URL, WithLanguage("de"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := p.Transcribe(context.Background(), stt.Request{FilePath: writeTempAudio(t)})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if gotLanguage != "de" {
		t.Errorf("language field = %q, want %q", gotLanguage, "de")
	}
	// The server did not report a language, so the requested one is echoed.
	if result.Language != "de" {
		t.Errorf("Language = %q, want %q", result.Language, "de")
	}
}

func TestTranscribeDurationFallsBackToLastSegment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text": "a b", "segments": [{"text": "a", "start": 0, "end": 1.5}, {"text": "b", "start": 1.5, "end": 3.25}]}`))
	}))
	defer srv.Close()

	p, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	result, err := p.Transcribe(context.Background(), stt.Request{FilePath: writeTempAudio(t)})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Duration != 3.25 {
		t.Errorf("Duration = %v, want 3.25", result.Duration)
	}
}

func TestTranscribeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Transcribe(context.Background(), stt.Request{FilePath: writeTempAudio(t)}); err == nil {
		t.Fatal("Transcribe error = nil, want error")
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	p, err := New("http://localhost:1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Transcribe(context.Background(), stt.Request{FilePath: "/does/not/exist.wav"}); err == nil {
		t.Fatal("Transcribe error = nil, want error")
	}
}
