// Package content talks to the extraction service that turns a URL into
// readable text plus metadata.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// ErrExtraction indicates the extraction service failed or returned
// unusable content. It is the only error class surfaced to the user.
var ErrExtraction = errors.New("content extraction failed")

// ExtractedContent is the cleaned result for one URL. It is immutable once
// received; the playback engine owns it for the duration of a session.
type ExtractedContent struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Author    string `json:"author,omitempty"`
	Source    string `json:"source"`
	Platform  string `json:"platform"`
	WordCount int    `json:"word_count"`
	AICleaned bool   `json:"ai_cleaned,omitempty"`
}

// Extractor fetches a URL and returns its readable content.
type Extractor interface {
	Extract(ctx context.Context, url string) (*ExtractedContent, error)
}

// Service is the production Extractor. It posts the URL to the hosted
// extract-content endpoint and decodes the JSON response.
type Service struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewService creates an extraction client for the given endpoint.
func NewService(baseURL, apiKey string, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Service{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type extractRequest struct {
	URL string `json:"url"`
}

type extractError struct {
	Error string `json:"error"`
}

// Extract implements Extractor.
func (s *Service) Extract(ctx context.Context, url string) (*ExtractedContent, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("%w: empty url", ErrExtraction)
	}

	body, err := json.Marshal(extractRequest{URL: url})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/extract-content", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	log.Debug("extracting content", "url", url)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		msg := readErrorMessage(resp.Body)
		if msg == "" {
			msg = fmt.Sprintf("HTTP status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s", ErrExtraction, msg)
	}

	var c ExtractedContent
	if err := json.NewDecoder(resp.Body).Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: invalid response: %v", ErrExtraction, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	log.Debug("extraction complete",
		"title", c.Title,
		"platform", c.Platform,
		"words", c.WordCount)

	return &c, nil
}

// Validate rejects responses that cannot be read aloud.
func (c *ExtractedContent) Validate() error {
	if strings.TrimSpace(c.Content) == "" && strings.TrimSpace(c.Title) == "" {
		return fmt.Errorf("%w: response contains no readable text", ErrExtraction)
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var e extractError
	if err := json.Unmarshal(data, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(data))
}
