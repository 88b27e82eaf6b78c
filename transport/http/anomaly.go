package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/onchain-guard/gatekeeper/adapters/anomaly"
)

// AnomalyHandlers forward read-only display data from the external scoring
// backend. The address comes from the caller's path parameter, not the
// authenticated identity: all scores are public on-chain-derived stats.
type AnomalyHandlers struct {
	client *anomaly.Client
}

// NewAnomalyHandlers creates proxy handlers over the given backend client.
func NewAnomalyHandlers(client *anomaly.Client) *AnomalyHandlers {
	return &AnomalyHandlers{client: client}
}

// List returns the highest-scoring wallets.
func (h *AnomalyHandlers) List(c *gin.Context) {
	topN := 100
	if v := c.Query("top_n"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid top_n"})
			return
		}
		topN = n
	}

	scores, err := h.client.TopAnomalies(c.Request.Context(), topN)
	if err != nil {
		upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, scores)
}

// Wallet returns the score record for one wallet.
func (h *AnomalyHandlers) Wallet(c *gin.Context) {
	score, err := h.client.WalletAnomaly(c.Request.Context(), c.Param("address"))
	if err != nil {
		upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}

// History returns the wallet's score history.
func (h *AnomalyHandlers) History(c *gin.Context) {
	points, err := h.client.WalletHistory(c.Request.Context(), c.Param("address"))
	if err != nil {
		upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, points)
}

// Transfers returns recent transfers for the wallet.
func (h *AnomalyHandlers) Transfers(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	transfers, err := h.client.WalletTransfers(c.Request.Context(), c.Param("address"), limit)
	if err != nil {
		upstreamError(c, err)
		return
	}
	c.JSON(http.StatusOK, transfers)
}

// upstreamError reports a backend failure without leaking its internals.
// A backend 404 passes through so "wallet not found" stays visible.
func upstreamError(c *gin.Context, err error) {
	var ue *anomaly.UpstreamError
	if errors.As(err, &ue) && ue.Status == http.StatusNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "wallet not found"})
		return
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": "scoring backend unavailable"})
}
