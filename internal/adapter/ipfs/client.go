package ipfs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/arimusic/playledger/internal/domain"
)

// Client implements domain.ContentStore against an Infura-style IPFS HTTP
// API: uploads are a multipart POST under field name "file" with Basic
// authentication, returning a JSON body whose Hash field is the CID; fetches
// are a POST to the same base endpoint with the CID in the "arg" query
// parameter, returning the raw payload bytes.
type Client struct {
	apiURL    string
	apiKey    string
	apiSecret string
	http      *http.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// addResponse is the upload response, e.g.
// {"Name":"data.json","Hash":"Qm...","Size":"123"}.
type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// NewClient creates a new IPFS content-store client. A non-positive rps
// disables client-side rate limiting.
func NewClient(apiURL, apiKey, apiSecret string, timeout time.Duration, rps float64, logger *slog.Logger) *Client {
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &Client{
		apiURL:    apiURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		http:      &http.Client{Timeout: timeout},
		limiter:   limiter,
		logger:    logger.With("component", "ipfs_client"),
	}
}

// Put uploads payload bytes and returns the CID the store derived from them.
// Identical bytes always come back with the identical CID.
func (c *Client) Put(ctx context.Context, data []byte) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "data.json")
	if err != nil {
		return "", fmt.Errorf("%w: building multipart body: %v", domain.ErrUploadFailed, err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("%w: writing multipart body: %v", domain.ErrUploadFailed, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%w: finalizing multipart body: %v", domain.ErrUploadFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, &body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.SetBasicAuth(c.apiKey, c.apiSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Error("content store rejected upload", "status", resp.StatusCode)
		return "", fmt.Errorf("%w: status %d", domain.ErrUploadFailed, resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", domain.ErrUploadFailed, err)
	}

	var parsed addResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: unparseable upload response: %v", domain.ErrMalformedResponse, err)
	}
	if parsed.Hash == "" {
		c.logger.Error("content store response carried no CID")
		return "", fmt.Errorf("%w: upload response has no Hash", domain.ErrMalformedResponse)
	}

	c.logger.Debug("uploaded batch payload", "cid", parsed.Hash, "bytes", len(data))
	return parsed.Hash, nil
}

// Get fetches payload bytes by CID. An empty body on a success status is a
// malformed response: the caller cannot tell an empty document from an error.
func (c *Client) Get(ctx context.Context, cid string) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	fetchURL := c.apiURL + "?arg=" + url.QueryEscape(cid)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fetchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	req.SetBasicAuth(c.apiKey, c.apiSecret)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("content store rejected fetch", "status", resp.StatusCode, "cid", cid)
		return nil, fmt.Errorf("%w: status %d for cid %s", domain.ErrFetchFailed, resp.StatusCode, cid)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrFetchFailed, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty body for cid %s", domain.ErrMalformedResponse, cid)
	}

	c.logger.Debug("fetched batch payload", "cid", cid, "bytes", len(data))
	return data, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}
