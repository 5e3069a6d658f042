package domain

// PriceSample is one observation of marketplace prices. The API returns
// samples newest first, so index 0 is the latest.
type PriceSample struct {
	HashPrice   float64 `json:"hash_price"`
	TokenPrice  float64 `json:"token_price"`
	EnergyPrice float64 `json:"energy_price"`
	Timestamp   string  `json:"timestamp,omitempty"`
}

// LatestPrice returns the newest sample, or a zero sample when the history
// is empty.
func LatestPrice(prices []PriceSample) PriceSample {
	if len(prices) == 0 {
		return PriceSample{}
	}
	return prices[0]
}
