package update

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/minio/selfupdate"
)

// Result reports the outcome of a self-update.
type Result struct {
	Message string `json:"message"`
	Version string `json:"version"`
}

// Applier downloads and applies a replacement agent binary.
type Applier interface {
	Apply(ctx context.Context, url, version string) (*Result, error)
}

// SelfUpdater swaps the running executable in place; the service manager
// restarts the agent afterwards.
type SelfUpdater struct {
	client *http.Client
}

func NewSelfUpdater() *SelfUpdater {
	return &SelfUpdater{client: &http.Client{Timeout: 5 * time.Minute}}
}

func (u *SelfUpdater) Apply(ctx context.Context, url, version string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download update: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("update download returned status %s", resp.Status)
	}

	if err := selfupdate.Apply(resp.Body, selfupdate.Options{}); err != nil {
		return nil, fmt.Errorf("failed to apply update: %w", err)
	}

	return &Result{
		Message: "Update applied. Restart the agent to run the new version.",
		Version: version,
	}, nil
}

var _ Applier = (*SelfUpdater)(nil)
