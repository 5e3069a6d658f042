package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	alloc := Allocation{GPUCompute: 5, Category("warehouse_fans"): 9}

	norm := alloc.Normalize()
	assert.Len(t, norm, len(Categories))
	assert.Equal(t, 5, norm[GPUCompute])
	assert.Zero(t, norm[AirMiners])
	assert.NotContains(t, norm, Category("warehouse_fans"))

	// input untouched
	assert.Len(t, alloc, 2)
}

func TestTotal(t *testing.T) {
	assert.Zero(t, Allocation{}.Total())
	assert.Equal(t, 8, Allocation{AirMiners: 5, ASICCompute: 3}.Total())
}

func TestSiteStatusCountsRoundTrip(t *testing.T) {
	status := SiteStatus{
		SiteName:        "site-1",
		AirMiners:       1,
		HydroMiners:     2,
		ImmersionMiners: 3,
		GPUCompute:      4,
		ASICCompute:     5,
		TotalRevenue:    77,
	}

	counts := status.Counts()
	assert.Equal(t, Allocation{
		AirMiners:       1,
		HydroMiners:     2,
		ImmersionMiners: 3,
		GPUCompute:      4,
		ASICCompute:     5,
	}, counts)

	replaced := status.WithCounts(Allocation{GPUCompute: 9})
	assert.Equal(t, 9, replaced.GPUCompute)
	assert.Zero(t, replaced.AirMiners)
	assert.Equal(t, "site-1", replaced.SiteName, "non-count fields carry over")
	assert.Equal(t, 77.0, replaced.TotalRevenue)
}

func TestLatestPrice(t *testing.T) {
	assert.Equal(t, PriceSample{}, LatestPrice(nil))

	prices := []PriceSample{{HashPrice: 2}, {HashPrice: 1}}
	assert.Equal(t, 2.0, LatestPrice(prices).HashPrice)
}
