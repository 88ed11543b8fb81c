// internal/ledger/balance.go
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jpillora/backoff"
	log "github.com/sirupsen/logrus"

	"github.com/duelpoint/arena/internal/models"
)

// BalanceSource answers admission checks. The coordinator only ever reads
// balance; all mutation (fee debits, winnings credits) belongs to the
// external ledger service fed through the intent queue.
type BalanceSource interface {
	Available(ctx context.Context, principalID uuid.UUID) (int64, error)
}

// BalanceClient reads a principal's available balance from the platform's
// balance service over HTTP.
type BalanceClient struct {
	baseURL string
	httpc   *http.Client
}

// NewBalanceClient reads BALANCE_SERVICE_URL (default http://localhost:9100).
func NewBalanceClient() *BalanceClient {
	base := os.Getenv("BALANCE_SERVICE_URL")
	if base == "" {
		base = "http://localhost:9100"
	}
	return &BalanceClient{
		baseURL: base,
		httpc:   &http.Client{Timeout: 3 * time.Second},
	}
}

type balanceResponse struct {
	Available int64 `json:"available"`
}

// Available fetches the principal's spendable balance. A failed call is
// retried once with jittered backoff; a second failure surfaces as
// ErrBalanceUnavailable so handlers can reply with a generic message.
func (c *BalanceClient) Available(ctx context.Context, principalID uuid.UUID) (int64, error) {
	b := &backoff.Backoff{Min: 100 * time.Millisecond, Max: time.Second, Jitter: true}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(b.Duration()):
			case <-ctx.Done():
				return 0, fmt.Errorf("%w: %v", models.ErrBalanceUnavailable, ctx.Err())
			}
		}
		amount, err := c.fetch(ctx, principalID)
		if err == nil {
			return amount, nil
		}
		lastErr = err
		log.Warnf("ledger: balance fetch for %s failed (attempt %d): %v", principalID, attempt+1, err)
	}
	return 0, fmt.Errorf("%w: %v", models.ErrBalanceUnavailable, lastErr)
}

func (c *BalanceClient) fetch(ctx context.Context, principalID uuid.UUID) (int64, error) {
	url := fmt.Sprintf("%s/api/balance/%s", c.baseURL, principalID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("balance service returned %d", resp.StatusCode)
	}
	var body balanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, err
	}
	return body.Available, nil
}
