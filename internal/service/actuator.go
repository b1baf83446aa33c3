package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"outlet_control/internal/logger"
)

const relayRequestTimeout = 5 * time.Second

// RelayBridge drives physical outlets through an HTTP relay bridge. Calls
// are bounded by a client timeout and never retried; failure handling is the
// caller's concern (fire-and-log).
type RelayBridge struct {
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

func NewRelayBridge(baseURL string, log *logger.Logger) *RelayBridge {
	return &RelayBridge{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: relayRequestTimeout},
		log:     log,
	}
}

func (b *RelayBridge) SetPower(ctx context.Context, outletID string, on bool) error {
	if b.baseURL == "" {
		// No bridge configured (development setups): record the intent and
		// report success so the engine keeps functioning.
		b.log.Infow("relay_noop", "outlet_id", outletID, "on", on)
		return nil
	}

	body, err := json.Marshal(map[string]bool{"on": on})
	if err != nil {
		return fmt.Errorf("encode relay payload: %w", err)
	}
	url := fmt.Sprintf("%s/outlets/%s/power", b.baseURL, outletID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("relay bridge: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("relay bridge: unexpected status %d", resp.StatusCode)
	}
	return nil
}
