package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/saikarthik/stockpilot/backend/internal/contracts"
	"github.com/saikarthik/stockpilot/backend/pkg/config"
	"github.com/saikarthik/stockpilot/backend/pkg/httputil"
	"github.com/saikarthik/stockpilot/backend/pkg/logger"
)

// Remote calls the trained model service. The artifacts are fixed after
// training, so the service is pure per call: same window, same signal.
type Remote struct {
	baseURL    string
	httpClient *httputil.Client
	logger     *logger.Logger
}

// NewRemote creates a remote predictor client from config
func NewRemote(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Remote {
	return &Remote{
		baseURL:    cfg.Predictor.BaseURL,
		httpClient: httpClient,
		logger:     log.WithField("module", "predictor"),
	}
}

type predictRequest struct {
	Ticker string                 `json:"ticker"`
	Window []contracts.FeatureRow `json:"window"`
}

type predictResponse struct {
	Signal     string  `json:"signal"`
	Confidence float64 `json:"confidence"`
}

// Predict sends the trailing feature window to the model service.
// Any transport or decode failure is a ModelUnavailableError: the rest of
// the pipeline stays usable with externally supplied signals.
func (r *Remote) Predict(ctx context.Context, window []contracts.FeatureRow) (contracts.Signal, error) {
	if len(window) == 0 {
		return contracts.Signal{}, fmt.Errorf("empty feature window")
	}
	last := window[len(window)-1]

	resp, err := r.httpClient.PostJSON(ctx, r.baseURL+"/api/v1/ml/signal/live", predictRequest{
		Ticker: last.Ticker,
		Window: window,
	})
	if err != nil {
		return contracts.Signal{}, &contracts.ModelUnavailableError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return contracts.Signal{}, &contracts.ModelUnavailableError{
			Cause: fmt.Errorf("model service returned status %d", resp.StatusCode),
		}
	}

	var payload predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return contracts.Signal{}, &contracts.ModelUnavailableError{Cause: fmt.Errorf("decode prediction: %w", err)}
	}

	action := contracts.Action(payload.Signal)
	if !action.Valid() {
		return contracts.Signal{}, &contracts.ModelUnavailableError{
			Cause: fmt.Errorf("model returned unknown action %q", payload.Signal),
		}
	}

	return contracts.Signal{
		Ticker:     last.Ticker,
		Date:       last.Date,
		Action:     action,
		Confidence: payload.Confidence,
	}, nil
}
