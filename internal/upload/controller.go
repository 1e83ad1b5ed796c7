package upload

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/zombor/receipt-uploader/internal/receipt"
)

// Phase is the upload lifecycle state
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseUploading
	PhaseError
	PhaseSuccess
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseUploading:
		return "uploading"
	case PhaseError:
		return "error"
	case PhaseSuccess:
		return "success"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// MarshalText encodes the phase by name
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is a snapshot of the controller
type State struct {
	Phase         Phase                 `json:"phase"`
	Err           string                `json:"error,omitempty"`
	Receipt       *receipt.Receipt      `json:"receipt,omitempty"`
	Discrepancies []receipt.Discrepancy `json:"discrepancies,omitempty"`
	RequestID     string                `json:"request_id,omitempty"` // Last accepted submission
}

// IDGenerator generates correlation IDs for submissions
type IDGenerator interface {
	Generate() string
}

type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// Controller owns the upload state. Only one upload may be in flight;
// a Submit made while one is outstanding is rejected with ErrUploadInProgress.
type Controller struct {
	uploader    Uploader
	idGenerator IDGenerator

	mu    sync.Mutex
	state State
}

// NewController creates a Controller in the idle phase
func NewController(uploader Uploader) *Controller {
	return NewControllerWithDeps(uploader, &uuidGenerator{})
}

// NewControllerWithDeps creates a Controller with a custom ID generator for testing
func NewControllerWithDeps(uploader Uploader, idGen IDGenerator) *Controller {
	return &Controller{
		uploader:    uploader,
		idGenerator: idGen,
		state:       State{Phase: PhaseIdle},
	}
}

// State returns a snapshot of the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.state
	if s.Discrepancies != nil {
		s.Discrepancies = append([]receipt.Discrepancy(nil), s.Discrepancies...)
	}
	return s
}

// Submit uploads file and records the outcome.
// A nil file is ignored. The returned error is the upload failure, if any;
// the user-facing message is also recorded in the state.
func (c *Controller) Submit(ctx context.Context, file *File) error {
	if file == nil {
		return nil
	}

	c.mu.Lock()
	if c.state.Phase == PhaseUploading {
		c.mu.Unlock()
		return ErrUploadInProgress
	}
	requestID := c.idGenerator.Generate()
	c.state.Phase = PhaseUploading
	c.state.Err = ""
	c.state.RequestID = requestID
	c.mu.Unlock()

	var (
		result        *receipt.Receipt
		discrepancies []receipt.Discrepancy
		uploadErr     error
	)

	// Whatever happens below, leave the uploading phase
	defer func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if result != nil {
			c.state.Phase = PhaseSuccess
			c.state.Err = ""
			c.state.Receipt = result
			c.state.Discrepancies = discrepancies
			return
		}
		c.state.Phase = PhaseError
		c.state.Err = Message(uploadErr)
	}()

	if !file.IsImage() {
		slog.Warn("Selected file does not look like an image",
			"request_id", requestID,
			"filename", file.Name,
			"content_type", file.ContentType,
		)
	}

	slog.Info("Uploading receipt",
		"request_id", requestID,
		"filename", file.Name,
		"content_type", file.ContentType,
		"file_size", len(file.Data),
	)

	r, err := c.uploader.Upload(ctx, file, requestID)
	if err != nil {
		slog.Error("Failed to upload receipt", "request_id", requestID, "error", err)
		uploadErr = err
		return err
	}
	if r == nil {
		uploadErr = &Error{Kind: KindMalformed, Err: fmt.Errorf("empty receipt response")}
		return uploadErr
	}

	discrepancies = receipt.Check(r)
	for _, d := range discrepancies {
		slog.Warn("Receipt totals are inconsistent",
			"request_id", requestID,
			"field", d.Field,
			"expected", d.Expected,
			"got", d.Got,
		)
	}

	slog.Info("Receipt uploaded",
		"request_id", requestID,
		"store", r.StoreName,
		"items", len(r.Items),
	)
	result = r
	return nil
}
