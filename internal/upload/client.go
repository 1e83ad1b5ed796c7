package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	"github.com/zombor/receipt-uploader/internal/receipt"
)

const (
	// DefaultEndpoint is where the receipt-parsing service listens in development
	DefaultEndpoint = "http://localhost:8000/api/receipts/upload"
	// DefaultTimeout bounds a single upload; OCR on a large photo can be slow
	DefaultTimeout = 120 * time.Second

	formField       = "file"
	maxResponseSize = 10 << 20 // 10MB
)

// Uploader sends a receipt image to the parsing service
type Uploader interface {
	Upload(ctx context.Context, file *File, requestID string) (*receipt.Receipt, error)
}

// Config configures a Client
type Config struct {
	Endpoint   string
	Timeout    time.Duration
	HTTPClient *http.Client // Optional, overrides Timeout
}

// Client posts receipt images to the parsing service over HTTP
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient creates a Client for the configured endpoint
func NewClient(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("parsing endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("endpoint must be an http or https URL: %q", cfg.Endpoint)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		endpoint: u.String(),
		client:   httpClient,
	}, nil
}

// Endpoint returns the URL uploads are posted to
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Upload posts the file as multipart/form-data and decodes the receipt in the response.
// Failures are returned as *Error.
func (c *Client) Upload(ctx context.Context, file *File, requestID string) (*receipt.Receipt, error) {
	body, contentType, err := buildForm(file)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Err: fmt.Errorf("creating request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// Surface the cause, not the "Post <url>:" wrapper
		var uerr *url.Error
		if errors.As(err, &uerr) && uerr.Err != nil {
			err = uerr.Err
		}
		return nil, &Error{Kind: KindTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		slog.Warn("Receipt upload rejected",
			"request_id", requestID,
			"status", resp.StatusCode,
		)
		return nil, &Error{Kind: KindRejected, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Status: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
	}

	r, err := receipt.Decode(data)
	if err != nil {
		slog.Error("Failed to decode receipt response",
			"request_id", requestID,
			"status", resp.StatusCode,
			"body_size", len(data),
			"error", err,
		)
		return nil, &Error{Kind: KindMalformed, Status: resp.StatusCode, Err: err}
	}

	return r, nil
}

// buildForm writes the single-part form body with the file under "file"
func buildForm(file *File) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	partContentType := file.ContentType
	if partContentType == "" {
		partContentType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, formField, file.UploadName()))
	header.Set("Content-Type", partContentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("creating form part: %w", err)
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", fmt.Errorf("writing form part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}
