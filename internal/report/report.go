// Package report delivers the retention sweep summary to the admins.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jbellamy/veilleur/internal/purge"
)

// Sender delivers a sweep report.
type Sender interface {
	Send(ctx context.Context, rep purge.Report) error
}

// Webhook posts the report as JSON to a configured endpoint.
type Webhook struct {
	url  string
	http *http.Client
}

func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:  url,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

func (w *Webhook) Send(ctx context.Context, rep purge.Report) error {
	body, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("error encoding report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("error building report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("error posting report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("report webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// Log writes the report to the process log. Used when no webhook is
// configured, so a sweep always leaves a trace somewhere.
type Log struct{}

func (Log) Send(ctx context.Context, rep purge.Report) error {
	slog.InfoContext(ctx, "retention sweep finished",
		"deleted_count", rep.DeletedCount,
		"admin_emails", rep.AdminEmails,
		"timestamp", rep.Timestamp,
	)
	return nil
}
