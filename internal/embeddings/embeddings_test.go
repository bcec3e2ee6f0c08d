package embeddings

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	e := NewHashEmbedder(32)
	a, err := e.Embed(context.Background(), []string{"Kosten der Unterkunft", "Kosten der Unterkunft"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(a) != 2 {
		t.Fatalf("got %d vectors, want 2", len(a))
	}
	for i := range a[0] {
		if a[0][i] != a[1][i] {
			t.Fatalf("vectors differ at %d", i)
		}
	}
}

func TestHashEmbedder_Normalised(t *testing.T) {
	e := NewHashEmbedder(16)
	for _, text := range []string{"IBAN field seventeen", "", "!!!"} {
		vecs, _ := e.Embed(context.Background(), []string{text})
		var sum float64
		for _, v := range vecs[0] {
			sum += float64(v) * float64(v)
		}
		if math.Abs(sum-1) > 1e-5 {
			t.Errorf("%q: squared norm = %f, want 1", text, sum)
		}
	}
}

func TestToChromemFunc(t *testing.T) {
	fn := ToChromemFunc(NewHashEmbedder(8))
	vec, err := fn(context.Background(), "hallo")
	if err != nil {
		t.Fatalf("embedding func: %v", err)
	}
	if len(vec) != 8 {
		t.Errorf("got %d dims, want 8", len(vec))
	}
}

func TestOllamaEmbedder_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		resp := ollamaEmbedResponse{}
		for range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{1, 0, 0})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder("", 3, srv.URL+"/")
	if e.Name() != "ollama/nomic-embed-text" {
		t.Errorf("Name = %q", e.Name())
	}
	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 2 {
		t.Errorf("got %d vectors, want 2", len(vecs))
	}
}

func TestOllamaEmbedder_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaEmbedder("missing", 3, srv.URL).Embed(context.Background(), []string{"x"})
	if err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestNew(t *testing.T) {
	if _, err := New(Options{Provider: ProviderOpenAI}); err == nil {
		t.Error("expected error without API key")
	}
	e, err := New(Options{Provider: ProviderOpenAI, APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("New openai: %v", err)
	}
	if e.Dimensions() != 1536 {
		t.Errorf("default OpenAI dims = %d, want 1536", e.Dimensions())
	}
	if _, err := New(Options{Provider: ProviderHash}); err != nil {
		t.Errorf("New hash: %v", err)
	}
	if _, err := New(Options{Provider: "cohere"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
