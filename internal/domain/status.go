package domain

// SiteStatus is the remote-reported snapshot of the site: current unit
// counts plus whatever the server computed for the provisioned fleet.
type SiteStatus struct {
	SiteName        string `json:"site_name,omitempty"`
	AirMiners       int    `json:"air_miners"`
	HydroMiners     int    `json:"hydro_miners"`
	ImmersionMiners int    `json:"immersion_miners"`
	GPUCompute      int    `json:"gpu_compute"`
	ASICCompute     int    `json:"asic_compute"`

	// Server-side figures, passed through as reported.
	TotalPowerUsed float64 `json:"total_power_used,omitempty"`
	TotalRevenue   float64 `json:"total_revenue,omitempty"`
	TotalPowerCost float64 `json:"total_power_cost,omitempty"`
	UpdatedAt      string  `json:"updated_at,omitempty"`
}

// Counts returns the five unit counts as an Allocation.
func (s SiteStatus) Counts() Allocation {
	return Allocation{
		AirMiners:       s.AirMiners,
		HydroMiners:     s.HydroMiners,
		ImmersionMiners: s.ImmersionMiners,
		GPUCompute:      s.GPUCompute,
		ASICCompute:     s.ASICCompute,
	}
}

// WithCounts returns a copy of s with the unit counts replaced by a,
// missing categories defaulting to zero. All other fields carry over.
func (s SiteStatus) WithCounts(a Allocation) SiteStatus {
	s.AirMiners = a[AirMiners]
	s.HydroMiners = a[HydroMiners]
	s.ImmersionMiners = a[ImmersionMiners]
	s.GPUCompute = a[GPUCompute]
	s.ASICCompute = a[ASICCompute]
	return s
}

// SiteEconomics is the projection of an allocation against current
// inventory specs and prices.
type SiteEconomics struct {
	Power          map[Category]float64 `json:"power"`
	TotalPowerUsed float64              `json:"total_power_used"`
	Revenue        map[Category]float64 `json:"revenue"`
	TotalRevenue   float64              `json:"total_revenue"`
	TotalPowerCost float64              `json:"total_power_cost"`
}

// Reconciled is a SiteStatus with the locally planned allocation merged in.
// Economics is nil when no local allocation was cached at reconcile time:
// without a plan of our own there is nothing to project.
type Reconciled struct {
	SiteStatus
	Economics *SiteEconomics `json:"economics,omitempty"`
}

// RevenueEstimate splits projected revenue by workload class.
type RevenueEstimate struct {
	Total     float64 `json:"total"`
	Mining    float64 `json:"mining"`
	Inference float64 `json:"inference"`
}
