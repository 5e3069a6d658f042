package domain

// Category identifies one of the five hardware categories a site can run.
type Category string

const (
	AirMiners       Category = "air_miners"
	HydroMiners     Category = "hydro_miners"
	ImmersionMiners Category = "immersion_miners"
	GPUCompute      Category = "gpu_compute"
	ASICCompute     Category = "asic_compute"
)

// Categories is the canonical ordering used for payloads and breakdowns.
var Categories = []Category{AirMiners, HydroMiners, ImmersionMiners, GPUCompute, ASICCompute}

// Allocation maps hardware categories to unit counts. A partial map is
// valid as input; Normalize produces the canonical five-key form.
type Allocation map[Category]int

// Normalize returns a copy with every canonical category present, missing
// counts defaulted to zero and unknown keys dropped.
func (a Allocation) Normalize() Allocation {
	out := make(Allocation, len(Categories))
	for _, c := range Categories {
		out[c] = a[c]
	}
	return out
}

// Total returns the combined unit count across all categories.
func (a Allocation) Total() int {
	var n int
	for _, c := range Categories {
		n += a[c]
	}
	return n
}
