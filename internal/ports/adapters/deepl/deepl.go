// Package deepl translates text with the DeepL REST API.
package deepl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/forPelevin/voxdub/internal/langs"
	"github.com/forPelevin/voxdub/internal/ports/adapters/endpoint"
)

const (
	freeBaseURL = "https://api-free.deepl.com"
	proBaseURL  = "https://api.deepl.com"
)

var BaseURLPolicy = endpoint.Policy{
	Setting:      "DEEPL_BASE_URL",
	HostsSetting: "deepl.allowed_hosts",
	DefaultURL:   freeBaseURL,
	DefaultHosts: []string{"api-free.deepl.com", "api.deepl.com"},
}

type Translator struct {
	apiKey     string
	baseURL    string
	formality  string
	httpClient *http.Client
}

// New returns a DeepL translator. An empty baseURL picks the free or pro
// endpoint from the key (free keys end in ":fx").
func New(apiKey, baseURL, formality string) *Translator {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = proBaseURL
		if strings.HasSuffix(apiKey, ":fx") {
			baseURL = freeBaseURL
		}
	}
	return &Translator{
		apiKey:    apiKey,
		baseURL:   BaseURLPolicy.Normalize(baseURL),
		formality: formality,
		httpClient: &http.Client{
			Timeout: 1 * time.Minute,
		},
	}
}

func (d *Translator) Name() string { return "deepl" }

func (d *Translator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if d.apiKey == "" {
		return "", errors.New("DeepL API key not configured")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("deepl: empty text")
	}

	form := url.Values{}
	form.Add("text", text)
	form.Set("target_lang", targetCode(targetLang))
	if !langs.IsAuto(sourceLang) {
		form.Set("source_lang", sourceCode(sourceLang))
	}
	if d.formality != "" {
		form.Set("formality", d.formality)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/v2/translate",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+d.apiKey)

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("DeepL API request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("DeepL API error (status %d): %s", resp.StatusCode, strings.ReplaceAll(string(body), d.apiKey, "[REDACTED]"))
	}

	var deeplResp struct {
		Translations []struct {
			DetectedSourceLanguage string `json:"detected_source_language"`
			Text                   string `json:"text"`
		} `json:"translations"`
	}
	if err := json.Unmarshal(body, &deeplResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(deeplResp.Translations) == 0 {
		return "", errors.New("deepl: no translations in response")
	}
	return strings.TrimSpace(deeplResp.Translations[0].Text), nil
}

// DeepL wants upper-case codes and a regional variant for some targets.
var targetVariants = map[string]string{
	"en": "EN-US",
	"pt": "PT-BR",
	"zh": "ZH-HANS",
}

func targetCode(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if v, ok := targetVariants[code]; ok {
		return v
	}
	return strings.ToUpper(code)
}

// Source languages are given without a region.
func sourceCode(code string) string {
	code = strings.TrimSpace(code)
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	return strings.ToUpper(code)
}
