package deepl

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/translate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "DeepL-Auth-Key k:fx" {
			t.Errorf("unexpected auth %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.Form.Get("target_lang") != "PT-BR" || r.Form.Get("source_lang") != "EN" || r.Form.Get("text") != "Hello" {
			t.Errorf("unexpected form %v", r.Form)
		}
		_, _ = io.WriteString(w, `{"translations":[{"detected_source_language":"EN","text":" Olá "}]}`)
	}))
	defer srv.Close()

	got, err := New("k:fx", srv.URL, "").Translate(context.Background(), "Hello", "en-US", "pt")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Olá" {
		t.Fatalf("got %q", got)
	}
}

func TestTranslateAutoSourceOmitsSourceLang(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if _, ok := r.Form["source_lang"]; ok {
			t.Errorf("source_lang should be omitted for auto")
		}
		_, _ = io.WriteString(w, `{"translations":[{"text":"Hallo"}]}`)
	}))
	defer srv.Close()

	if _, err := New("k", srv.URL, "").Translate(context.Background(), "Hi", "auto", "de"); err != nil {
		t.Fatal(err)
	}
}

func TestTranslateErrorRedactsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"message":"bad key secret"}`)
	}))
	defer srv.Close()

	_, err := New("secret", srv.URL, "").Translate(context.Background(), "Hi", "en", "de")
	if err == nil || strings.Contains(err.Error(), "secret") || !strings.Contains(err.Error(), "status 403") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewPicksEndpointFromKey(t *testing.T) {
	if got := New("abc:fx", "", "").baseURL; got != freeBaseURL {
		t.Fatalf("free key: got %s", got)
	}
	if got := New("abc", "", "").baseURL; got != proBaseURL {
		t.Fatalf("pro key: got %s", got)
	}
}

func TestLanguageCodes(t *testing.T) {
	if got := targetCode("zh"); got != "ZH-HANS" {
		t.Fatalf("targetCode(zh) = %s", got)
	}
	if got := targetCode("de"); got != "DE" {
		t.Fatalf("targetCode(de) = %s", got)
	}
	if got := sourceCode("pt_BR"); got != "PT" {
		t.Fatalf("sourceCode(pt_BR) = %s", got)
	}
}
