package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maraops/mara-agent/internal/domain"
	"github.com/maraops/mara-agent/internal/econ"
	"github.com/maraops/mara-agent/internal/mara"
)

type response struct {
	Ok    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type estimateRequest struct {
	Allocation domain.Allocation `json:"allocation"`
}

type estimateResponse struct {
	Allocation domain.Allocation      `json:"allocation"`
	PowerUsed  float64                `json:"power_used"`
	Revenue    domain.RevenueEstimate `json:"revenue"`
}

type API struct {
	client *mara.Client
	logger *slog.Logger
}

func NewAPI(client *mara.Client, logger *slog.Logger) *API {
	return &API{client: client, logger: logger}
}

func (a *API) RegisterRoutes(router *gin.Engine) {
	router.GET("/ping", a.ping)
	router.GET("/prices", a.prices)
	router.GET("/inventory", a.inventory)
	router.GET("/status", a.status)
	router.GET("/allocation", a.getAllocation)
	router.PUT("/allocation", a.putAllocation)
	router.DELETE("/allocation", a.deleteAllocation)
	router.POST("/estimate", a.estimate)
}

func (a *API) ping(c *gin.Context) {
	c.JSON(http.StatusOK, response{Ok: true})
}

func (a *API) prices(c *gin.Context) {
	prices, err := a.client.FetchPrices(c.Request.Context())
	if err != nil {
		a.remoteFailure(c, "fetch prices", err)
		return
	}
	c.JSON(http.StatusOK, response{Ok: true, Data: prices})
}

func (a *API) inventory(c *gin.Context) {
	inv, err := a.client.FetchInventory(c.Request.Context())
	if err != nil {
		a.remoteFailure(c, "fetch inventory", err)
		return
	}
	c.JSON(http.StatusOK, response{Ok: true, Data: inv})
}

// status returns the remote site snapshot reconciled with the locally
// cached allocation, economics included when a local plan exists.
func (a *API) status(c *gin.Context) {
	ctx := c.Request.Context()

	status, err := a.client.FetchSiteStatus(ctx)
	if err != nil {
		a.remoteFailure(c, "fetch site status", err)
		return
	}

	prices, err := a.client.FetchPrices(ctx)
	if err != nil {
		a.remoteFailure(c, "fetch prices", err)
		return
	}

	inv, err := a.client.FetchInventory(ctx)
	if err != nil {
		a.remoteFailure(c, "fetch inventory", err)
		return
	}

	c.JSON(http.StatusOK, response{Ok: true, Data: a.client.Reconcile(status, inv, prices)})
}

func (a *API) getAllocation(c *gin.Context) {
	alloc, ok := a.client.CachedAllocation()
	if !ok {
		c.JSON(http.StatusNotFound, response{Ok: false, Error: "no allocation cached"})
		return
	}
	c.JSON(http.StatusOK, response{Ok: true, Data: alloc})
}

func (a *API) putAllocation(c *gin.Context) {
	var alloc domain.Allocation
	if err := c.ShouldBindJSON(&alloc); err != nil {
		a.logger.Warn("update allocation: invalid payload", "err", err)
		c.JSON(http.StatusBadRequest, response{Ok: false, Error: err.Error()})
		return
	}

	confirmation, err := a.client.UpdateAllocation(c.Request.Context(), alloc)
	if err != nil {
		a.remoteFailure(c, "update allocation", err)
		return
	}

	c.JSON(http.StatusOK, response{Ok: true, Data: confirmation})
}

func (a *API) deleteAllocation(c *gin.Context) {
	a.client.ClearCache()
	c.JSON(http.StatusOK, response{Ok: true})
}

// estimate projects power and revenue for a hypothetical allocation
// without touching the remote allocation.
func (a *API) estimate(c *gin.Context) {
	var req estimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.logger.Warn("estimate: invalid payload", "err", err)
		c.JSON(http.StatusBadRequest, response{Ok: false, Error: err.Error()})
		return
	}

	ctx := c.Request.Context()

	inv, err := a.client.FetchInventory(ctx)
	if err != nil {
		a.remoteFailure(c, "fetch inventory", err)
		return
	}

	prices, err := a.client.FetchPrices(ctx)
	if err != nil {
		a.remoteFailure(c, "fetch prices", err)
		return
	}

	alloc := req.Allocation.Normalize()
	c.JSON(http.StatusOK, response{Ok: true, Data: estimateResponse{
		Allocation: alloc,
		PowerUsed:  econ.EstimatePower(alloc, inv),
		Revenue:    econ.EstimateRevenue(alloc, inv, prices),
	}})
}

func (a *API) remoteFailure(c *gin.Context, op string, err error) {
	a.logger.Error(op+" failed", "err", err)

	status := http.StatusInternalServerError
	var remote *domain.RemoteError
	if errors.As(err, &remote) {
		status = http.StatusBadGateway
	}
	c.JSON(status, response{Ok: false, Error: err.Error()})
}
