package repository

const (
	pricesTable    = "fincast.daily_prices"
	forecastsTable = "fincast.forecasts"
)

// Schema is the idempotent DDL for both stores. ReplacingMergeTree keeps the
// latest write per key, so re-imports and re-runs overwrite.
var Schema = []string{
	`CREATE DATABASE IF NOT EXISTS fincast`,
	`CREATE TABLE IF NOT EXISTS fincast.daily_prices (
        symbol     LowCardinality(String),
        date       Date,
        open       Float64,
        high       Float64,
        low        Float64,
        close      Float64,
        volume     Float64,
        updated_at DateTime64(3) DEFAULT now64(3)
    ) ENGINE = ReplacingMergeTree(updated_at)
    ORDER BY (symbol, date)`,
	`CREATE TABLE IF NOT EXISTS fincast.forecasts (
        symbol            LowCardinality(String),
        date              Date,
        risk_profile      LowCardinality(String),
        generated_at      DateTime64(3),
        arima             Nullable(Decimal(18, 4)),
        decomposition     Nullable(Decimal(18, 4)),
        svr               Nullable(Decimal(18, 4)),
        random_forest     Nullable(Decimal(18, 4)),
        gradient_boosting Nullable(Decimal(18, 4)),
        ts_ensemble       Nullable(Decimal(18, 4)),
        ml_ensemble       Nullable(Decimal(18, 4)),
        final_ensemble    Decimal(18, 4),
        volatility        Nullable(Decimal(18, 4)),
        lower             Nullable(Decimal(18, 4)),
        upper             Nullable(Decimal(18, 4)),
        confidence        Nullable(Decimal(18, 4)),
        decision          LowCardinality(String),
        score             Int32,
        rationale         String
    ) ENGINE = ReplacingMergeTree(generated_at)
    ORDER BY (symbol, risk_profile, date)`,
}
