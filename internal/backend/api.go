package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrGenerationNotFound is returned when the backend does not know an id.
var ErrGenerationNotFound = errors.New("generation not found")

// CreateGeneration submits a prompt. A missing framework is sent as
// "user_preferences": null so the backend auto-selects.
func (c *Client) CreateGeneration(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	body := generateBody{
		Prompt: req.Prompt,
		UserID: c.userID,
	}
	if fw := strings.TrimSpace(req.Framework); fw != "" {
		body.UserPreferences = &preferences{Framework: fw}
	}

	var out GenerateResponse
	_, err := c.do(ctx, "generate", http.MethodPost, "/generate", func(r *resty.Request) {
		r.SetHeader("Content-Type", "application/json").
			SetBody(body).
			SetResult(&out)
	})
	if err != nil {
		return nil, err
	}
	if out.GenerationID == "" {
		return nil, fmt.Errorf("backend accepted generation without an id")
	}

	c.logger.Info("Generation created",
		zap.String("generation_id", out.GenerationID),
		zap.String("status", out.Status),
	)
	return &out, nil
}

// Frameworks lists the selectable frameworks.
func (c *Client) Frameworks(ctx context.Context) ([]Framework, error) {
	var out frameworksEnvelope
	if _, err := c.do(ctx, "frameworks", http.MethodGet, "/frameworks", func(r *resty.Request) {
		r.SetResult(&out)
	}); err != nil {
		return nil, err
	}
	return out.Frameworks, nil
}

// Categories lists the application categories.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out categoriesEnvelope
	if _, err := c.do(ctx, "categories", http.MethodGet, "/categories", func(r *resty.Request) {
		r.SetResult(&out)
	}); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// History returns up to limit past generations, newest first. When the client
// was built with a user id the backend filters by it.
func (c *Client) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	var out historyEnvelope
	if _, err := c.do(ctx, "history", http.MethodGet, "/history", func(r *resty.Request) {
		r.SetQueryParam("limit", strconv.Itoa(limit)).SetResult(&out)
		if c.userID != "" {
			r.SetQueryParam("user_id", c.userID)
		}
	}); err != nil {
		return nil, err
	}
	return out.Generations, nil
}

// Status polls the current status of one generation.
func (c *Client) Status(ctx context.Context, generationID string) (*GenerationStatus, error) {
	var out GenerationStatus
	_, err := c.do(ctx, "status", http.MethodGet, "/status/{id}", func(r *resty.Request) {
		r.SetPathParam("id", generationID).SetResult(&out)
	})
	if isNotFound(err) {
		return nil, fmt.Errorf("%w: %s", ErrGenerationNotFound, generationID)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Health reports backend health.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if _, err := c.do(ctx, "health", http.MethodGet, "/health", func(r *resty.Request) {
		r.SetResult(&out)
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Download fetches a finished artifact into dest and returns its detected
// MIME type. The file is removed unless it is an APK (zip) payload.
func (c *Client) Download(ctx context.Context, generationID, dest string) (string, error) {
	_, err := c.do(ctx, "download", http.MethodGet, "/download/{id}", func(r *resty.Request) {
		r.SetPathParam("id", generationID).
			SetHeader("Accept", "application/vnd.android.package-archive").
			SetOutput(dest)
	})
	if err != nil {
		_ = os.Remove(dest)
		if isNotFound(err) {
			return "", fmt.Errorf("%w: %s", ErrGenerationNotFound, generationID)
		}
		return "", err
	}

	mtype, err := mimetype.DetectFile(dest)
	if err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("failed to inspect artifact: %w", err)
	}
	if !isArchive(mtype) {
		_ = os.Remove(dest)
		return mtype.String(), fmt.Errorf("%w: got %s", ErrNotArchive, mtype.String())
	}

	c.logger.Info("Artifact downloaded",
		zap.String("generation_id", generationID),
		zap.String("path", dest),
		zap.String("mime", mtype.String()),
	)
	return mtype.String(), nil
}

// isArchive walks the MIME hierarchy; an APK detects as a child of jar/zip.
func isArchive(m *mimetype.MIME) bool {
	for ; m != nil; m = m.Parent() {
		if m.Is("application/zip") || m.Is("application/vnd.android.package-archive") {
			return true
		}
	}
	return false
}
