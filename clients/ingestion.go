package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"rag-platform/models"
	"rag-platform/utils"
)

const (
	ingestionHealthTimeout = 10 * time.Second
	ingestionUploadTimeout = 60 * time.Second
	ingestionProxyTimeout  = 30 * time.Second
)

// IngestionClient proxies document operations to the ingestion service.
// Every call health-checks the downstream first, then forwards and remaps
// the response status: 2xx, 400, 409 and 413 pass through, and everything
// else becomes 503.
type IngestionClient struct {
	baseURL      string
	healthClient *http.Client
	uploadClient *http.Client
	proxyClient  *http.Client
}

// ProxyResponse is a downstream response ready to relay to the caller.
type ProxyResponse struct {
	Status int
	Body   []byte
}

func NewIngestionClient(baseURL string) *IngestionClient {
	return &IngestionClient{
		baseURL:      baseURL,
		healthClient: &http.Client{Timeout: ingestionHealthTimeout},
		uploadClient: &http.Client{Timeout: ingestionUploadTimeout},
		proxyClient:  &http.Client{Timeout: ingestionProxyTimeout},
	}
}

func (c *IngestionClient) checkHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return utils.Internal("failed to create health check request", err)
	}

	resp, err := c.healthClient.Do(req)
	if err != nil {
		return utils.Unavailable(fmt.Sprintf("Ingestion service is unavailable at %s", c.baseURL), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return utils.Unavailable(fmt.Sprintf("Ingestion service at %s is unhealthy (status %d)", c.baseURL, resp.StatusCode), nil)
	}
	return nil
}

// Upload forwards a document to the ingestion upload endpoint. A 2xx with an
// unparseable body is replaced with a synthesized success body so callers
// always get the documented shape.
func (c *IngestionClient) Upload(ctx context.Context, filename string, file io.Reader) (*ProxyResponse, error) {
	if err := c.checkHealth(ctx); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, utils.Internal("failed to create form file", err)
	}
	if _, err := io.Copy(fileWriter, file); err != nil {
		return nil, utils.Internal("failed to copy file data", err)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/upload", &buf)
	if err != nil {
		return nil, utils.Internal("failed to create upload request", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return nil, utils.Unavailable("Error from ingestion: "+err.Error(), err)
	}
	defer resp.Body.Close()

	proxied := remap(resp)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var parsed models.UploadResponse
		if err := json.Unmarshal(proxied.Body, &parsed); err != nil || parsed.Status == "" {
			synthesized, _ := json.Marshal(models.UploadResponse{
				Status:   "Upload accepted",
				Filename: filename,
				Message:  "File upload accepted by ingestion service",
			})
			proxied.Body = synthesized
		}
	}
	return proxied, nil
}

// ListDocuments forwards GET /documents.
func (c *IngestionClient) ListDocuments(ctx context.Context) (*ProxyResponse, error) {
	return c.forward(ctx, http.MethodGet, "/api/v1/documents")
}

// ClearDocuments forwards DELETE /documents.
func (c *IngestionClient) ClearDocuments(ctx context.Context) (*ProxyResponse, error) {
	return c.forward(ctx, http.MethodDelete, "/api/v1/documents")
}

// Status forwards GET /status.
func (c *IngestionClient) Status(ctx context.Context) (*ProxyResponse, error) {
	return c.forward(ctx, http.MethodGet, "/api/v1/status")
}

func (c *IngestionClient) forward(ctx context.Context, method, path string) (*ProxyResponse, error) {
	if err := c.checkHealth(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, utils.Internal("failed to create proxy request", err)
	}

	resp, err := c.proxyClient.Do(req)
	if err != nil {
		return nil, utils.Unavailable("Error from ingestion: "+err.Error(), err)
	}
	defer resp.Body.Close()

	return remap(resp), nil
}

// remap applies the status translation contract and captures the body.
func remap(resp *http.Response) *ProxyResponse {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	status := resp.StatusCode
	switch {
	case status >= 200 && status < 300:
	case status == http.StatusBadRequest, status == http.StatusConflict, status == http.StatusRequestEntityTooLarge:
	default:
		detail, _ := json.Marshal(map[string]string{
			"detail": "Error from ingestion: " + detailFromBody(body, status),
		})
		return &ProxyResponse{Status: http.StatusServiceUnavailable, Body: detail}
	}
	return &ProxyResponse{Status: status, Body: body}
}

func detailFromBody(body []byte, status int) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return fmt.Sprintf("unexpected status %d", status)
}
