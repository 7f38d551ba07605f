package cpcb

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/02loveslollipop/rtwqms-watcher/services/watcher/internal/models"
)

// DefaultURL is the RTWQMS internet layer 10 feed.
const DefaultURL = "https://rtwqmsdb1.cpcb.gov.in/data/internet/layers/10/index.json"

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 32 << 20

// ErrBodyTooLarge is returned when a response body exceeds maxBodyBytes.
var ErrBodyTooLarge = fmt.Errorf("response exceeds %d MiB", maxBodyBytes>>20)

// ErrUnexpectedPayload is returned when a 200 response does not decode to a
// JSON array of objects.
var ErrUnexpectedPayload = errors.New("payload is not a JSON array of objects")

// StatusError reports a non-200 response along with its body text.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// NewHTTPClient builds the client used against the feed. insecureTLS turns
// off certificate verification; the CPCB host does not serve a chain that
// validates against common trust stores.
func NewHTTPClient(timeout time.Duration, insecureTLS bool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

// Client fetches one layer feed.
type Client struct {
	httpClient *http.Client
	url        string
}

// NewClient returns a Client for url.
func NewClient(httpClient *http.Client, url string) *Client {
	return &Client{httpClient: httpClient, url: url}
}

// URL returns the feed address.
func (c *Client) URL() string {
	return c.url
}

// Fetch retrieves the feed once. No retry is attempted.
func (c *Client) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	return FetchLayer(ctx, c.httpClient, c.url)
}

// FetchLayer issues a single GET against url and decodes the body as raw
// records. A non-200 status yields *StatusError; transport failures are
// wrapped; a body that is not an array of objects yields ErrUnexpectedPayload.
func FetchLayer(ctx context.Context, client *http.Client, url string) ([]models.RawRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request layer feed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read layer feed: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("read layer feed: %w", ErrBodyTooLarge)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return DecodeRecords(body)
}

// DecodeRecords parses a JSON array of objects. Numbers are kept as
// json.Number so values are exported exactly as received.
func DecodeRecords(body []byte) ([]models.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedPayload, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after array", ErrUnexpectedPayload)
	}

	items, ok := payload.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: got %s", ErrUnexpectedPayload, jsonKind(payload))
	}

	records := make([]models.RawRecord, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %s", ErrUnexpectedPayload, i, jsonKind(item))
		}
		records = append(records, models.RawRecord(obj))
	}
	return records, nil
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
