// Package econ holds the pure per-category economics used to project an
// allocation against inventory specs and prices. All three entry points
// iterate the same rate table so the formulas cannot drift apart.
package econ

import "github.com/maraops/mara-agent/internal/domain"

// rate is what one unit of a category contributes: its power draw, its
// output (hashrate or tokens), and which price that output sells at.
type rate struct {
	power  float64
	output float64
	mining bool // true: output × hash price, false: output × token price
}

func rates(inv domain.Inventory) map[domain.Category]rate {
	return map[domain.Category]rate{
		domain.AirMiners:       {power: inv.Miners.Air.Power, output: inv.Miners.Air.Hashrate, mining: true},
		domain.HydroMiners:     {power: inv.Miners.Hydro.Power, output: inv.Miners.Hydro.Hashrate, mining: true},
		domain.ImmersionMiners: {power: inv.Miners.Immersion.Power, output: inv.Miners.Immersion.Hashrate, mining: true},
		domain.GPUCompute:      {power: inv.Inference.GPU.Power, output: inv.Inference.GPU.Tokens, mining: false},
		domain.ASICCompute:     {power: inv.Inference.ASIC.Power, output: inv.Inference.ASIC.Tokens, mining: false},
	}
}

// EstimatePower returns the total power draw of an allocation.
func EstimatePower(alloc domain.Allocation, inv domain.Inventory) float64 {
	table := rates(inv)
	var total float64
	for _, c := range domain.Categories {
		total += float64(alloc[c]) * table[c].power
	}
	return total
}

// EstimateRevenue returns the projected revenue of an allocation at the
// latest price sample, split by workload class. An empty price history
// yields an all-zero estimate.
func EstimateRevenue(alloc domain.Allocation, inv domain.Inventory, prices []domain.PriceSample) domain.RevenueEstimate {
	if len(prices) == 0 {
		return domain.RevenueEstimate{}
	}

	latest := prices[0]
	table := rates(inv)

	var est domain.RevenueEstimate
	for _, c := range domain.Categories {
		r := table[c]
		if r.mining {
			est.Mining += float64(alloc[c]) * r.output * latest.HashPrice
		} else {
			est.Inference += float64(alloc[c]) * r.output * latest.TokenPrice
		}
	}
	est.Total = est.Mining + est.Inference
	return est
}

// Project computes the full per-category power and revenue breakdowns for
// an allocation. Totals are accumulated in canonical category order.
// Missing prices project as zero revenue and zero power cost.
func Project(alloc domain.Allocation, inv domain.Inventory, prices []domain.PriceSample) domain.SiteEconomics {
	latest := domain.LatestPrice(prices)
	table := rates(inv)

	eco := domain.SiteEconomics{
		Power:   make(map[domain.Category]float64, len(domain.Categories)),
		Revenue: make(map[domain.Category]float64, len(domain.Categories)),
	}

	for _, c := range domain.Categories {
		r := table[c]
		count := float64(alloc[c])

		power := count * r.power
		eco.Power[c] = power
		eco.TotalPowerUsed += power

		price := latest.TokenPrice
		if r.mining {
			price = latest.HashPrice
		}
		revenue := count * r.output * price
		eco.Revenue[c] = revenue
		eco.TotalRevenue += revenue
	}

	eco.TotalPowerCost = eco.TotalPowerUsed * latest.EnergyPrice
	return eco
}
