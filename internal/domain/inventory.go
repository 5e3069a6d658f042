package domain

// MinerSpec describes the per-unit economics of a mining category.
type MinerSpec struct {
	Power    float64 `json:"power"`
	Hashrate float64 `json:"hashrate"`
}

// ComputeSpec describes the per-unit economics of an inference category.
type ComputeSpec struct {
	Power  float64 `json:"power"`
	Tokens float64 `json:"tokens"`
}

// Inventory is the remote catalog of per-unit hardware specs.
type Inventory struct {
	Miners struct {
		Air       MinerSpec `json:"air"`
		Hydro     MinerSpec `json:"hydro"`
		Immersion MinerSpec `json:"immersion"`
	} `json:"miners"`
	Inference struct {
		GPU  ComputeSpec `json:"gpu"`
		ASIC ComputeSpec `json:"asic"`
	} `json:"inference"`
}
