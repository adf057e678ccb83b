package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"portfolio-api/internal/domain"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com"
	DefaultModel   = "gemini-1.5-flash-latest"
)

// Harm categories and thresholds understood by the generateContent endpoint.
const (
	CategoryHateSpeech       = "HARM_CATEGORY_HATE_SPEECH"
	CategoryDangerousContent = "HARM_CATEGORY_DANGEROUS_CONTENT"
	CategoryHarassment       = "HARM_CATEGORY_HARASSMENT"
	CategorySexuallyExplicit = "HARM_CATEGORY_SEXUALLY_EXPLICIT"

	ThresholdBlockOnlyHigh = "BLOCK_ONLY_HIGH"
	ThresholdBlockNone     = "BLOCK_NONE"
)

// ErrMissingAPIKey is returned before any network call when no key is set.
var ErrMissingAPIKey = errors.New("gemini: API key is not configured")

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// SafetySetting is one category/threshold pair.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// generateRequest is the minimal request shape for generateContent.
type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
	SafetySettings   []SafetySetting  `json:"safetySettings,omitempty"`
}

// RelaxedSafetySettings only blocks high-probability harm in the categories
// that misfire on biography questions.
func RelaxedSafetySettings() []SafetySetting {
	return []SafetySetting{
		{Category: CategoryHateSpeech, Threshold: ThresholdBlockOnlyHigh},
		{Category: CategoryDangerousContent, Threshold: ThresholdBlockOnlyHigh},
		{Category: CategoryHarassment, Threshold: ThresholdBlockOnlyHigh},
		{Category: CategorySexuallyExplicit, Threshold: ThresholdBlockOnlyHigh},
	}
}

// HTTPStatusError captures non-2xx upstream responses. URL never includes the
// API key.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("gemini: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Details returns the provider error body as raw JSON when it is valid JSON,
// otherwise as a plain string.
func (e *HTTPStatusError) Details() any {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return nil
	}
	if gjson.Valid(body) {
		return json.RawMessage(body)
	}
	return body
}

// Client is a focused client for the Gemini generateContent endpoint.
type Client struct {
	baseURL    string
	model      string
	apiKey     string
	safety     []SafetySetting
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithSafetySettings(settings []SafetySetting) Option {
	return func(c *Client) {
		c.safety = append([]SafetySetting(nil), settings...)
	}
}

func WithModel(model string) Option {
	return func(c *Client) {
		if m := strings.TrimSpace(model); m != "" {
			c.model = m
		}
	}
}

// NewClient creates a Client. An empty apiKey is allowed so the process can
// start; Generate reports ErrMissingAPIKey until a key is supplied.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
		apiKey:  strings.TrimSpace(apiKey),
		safety:  RelaxedSafetySettings(),
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HasCredentials reports whether an API key is configured.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

func (c *Client) resolvedHTTPClient() *http.Client {
	if c.httpClient != nil {
		return c.httpClient
	}
	return http.DefaultClient
}

func generateURL(baseURL, model string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasSuffix(base, "/v1beta") {
		base += "/v1beta"
	}
	return base + "/models/" + url.PathEscape(model) + ":generateContent"
}

// Generate sends a single-turn prompt and returns the extracted answer text,
// which may be empty when the model produced nothing usable.
func (c *Client) Generate(ctx context.Context, in domain.Generation) (string, error) {
	if !c.HasCredentials() {
		return "", ErrMissingAPIKey
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: in.Prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     in.Temperature,
			MaxOutputTokens: in.MaxOutputTokens,
		},
		SafetySettings: c.safety,
	})
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	endpoint := generateURL(c.baseURL, c.model)
	q := url.Values{"key": {c.apiKey}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?"+q.Encode(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.doJSONRequest(req, endpoint)
	if err != nil {
		return "", fmt.Errorf("gemini: request failed: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return "", errors.New("gemini: decode response: invalid JSON")
	}
	return ExtractText(raw), nil
}

// ExtractText joins the text parts of the first candidate with newlines,
// falling back to a flat text field on the candidate.
func ExtractText(raw []byte) string {
	var texts []string
	gjson.GetBytes(raw, "candidates.0.content.parts.#.text").ForEach(func(_, v gjson.Result) bool {
		if s := v.String(); s != "" {
			texts = append(texts, s)
		}
		return true
	})
	text := strings.TrimSpace(strings.Join(texts, "\n"))
	if text != "" {
		return text
	}
	return strings.TrimSpace(gjson.GetBytes(raw, "candidates.0.text").String())
}

func (c *Client) doJSONRequest(req *http.Request, endpoint string) ([]byte, error) {
	res, err := c.resolvedHTTPClient().Do(req)
	if err != nil {
		return nil, redactKey(err, c.apiKey)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 8192))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        endpoint,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}

// redactKey strips the API key from transport errors, which embed the full
// request URL.
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), key, "REDACTED"), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }
