// Package trend holds the univariate price forecasters: an auto-ordered ARIMA
// and an additive trend plus seasonality decomposition.
package trend

import (
	"context"
	"fmt"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
)

// MinHistory is the shortest close series either trend forecaster accepts.
const MinHistory = 60

func checkInput(ctx context.Context, component string, history models.FeatureTable, p domsvc.ForecastParams) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", component, err)
	}
	if p.Horizon < 1 {
		return &domsvc.ConfigError{Field: "n_future", Reason: "must be >= 1"}
	}
	if history.Len() < MinHistory {
		return &domsvc.InsufficientHistoryError{Component: component, Need: MinHistory, Have: history.Len()}
	}
	return nil
}
