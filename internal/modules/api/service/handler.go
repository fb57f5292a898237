package service

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pivot_backtest/internal/helper"
	"pivot_backtest/internal/models"
	backtest "pivot_backtest/internal/modules/backtest/service"
)

// Runs: то, что API умеет делать с прогонами.
type Runs interface {
	LastResult() *models.Result
	Trigger(ctx context.Context) error
}

type Handler struct {
	runs Runs
	// контекст фоновых прогонов: живёт дольше запроса
	ctx context.Context
}

func NewHandler(ctx context.Context, runs Runs) *Handler {
	return &Handler{runs: runs, ctx: ctx}
}

// GetLastRun: сводка последнего прогона без сделок.
func (h *Handler) GetLastRun(c *gin.Context) {
	res := h.runs.LastResult()
	if res == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no completed runs yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code": 0,
		"data": gin.H{
			"run_id":      res.RunID,
			"started_at":  res.StartedAt,
			"finished_at": res.FinishedAt,
			"pivots":      res.Pivots,
			"failures":    res.Failures,
			"trades":      len(res.Trades),
			"summary":     res.Summary,
			"outcomes":    res.Outcomes,
		},
	})
}

// GetTrades: сделки последнего прогона, фильтры pair, htf, direction, limit.
func (h *Handler) GetTrades(c *gin.Context) {
	res := h.runs.LastResult()
	if res == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no completed runs yet"})
		return
	}

	pair := helper.NormPair(c.Query("pair"))
	dir := models.Direction(c.Query("direction"))

	var htf models.Timeframe
	if raw := c.Query("htf"); raw != "" {
		tf, ok := models.ParseTimeframe(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown htf", "htf": raw})
			return
		}
		htf = tf
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	out := make([]models.Trade, 0)
	for _, t := range res.Trades {
		if pair != "" && t.Pair != pair {
			continue
		}
		if htf != models.TFNone && t.HTF != htf {
			continue
		}
		if dir != "" && t.Direction != dir {
			continue
		}
		out = append(out, t)
		if limit > 0 && len(out) == limit {
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"code":   0,
		"run_id": res.RunID,
		"count":  len(out),
		"data":   out,
	})
}

// GetQuality: сетка TP x SL последнего прогона, фильтр htf.
func (h *Handler) GetQuality(c *gin.Context) {
	res := h.runs.LastResult()
	if res == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no completed runs yet"})
		return
	}

	var htf models.Timeframe
	if raw := c.Query("htf"); raw != "" {
		tf, ok := models.ParseTimeframe(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown htf", "htf": raw})
			return
		}
		htf = tf
	}

	out := make([]models.QualityStats, 0, len(res.Quality))
	for _, st := range res.Quality {
		if htf != models.TFNone && st.HTF != htf {
			continue
		}
		out = append(out, st)
	}

	c.JSON(http.StatusOK, gin.H{
		"code":   0,
		"run_id": res.RunID,
		"count":  len(out),
		"data":   out,
	})
}

// TriggerRun: внеплановый прогон в фоне.
func (h *Handler) TriggerRun(c *gin.Context) {
	err := h.runs.Trigger(h.ctx)
	switch {
	case errors.Is(err, backtest.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusAccepted, gin.H{"code": 0, "status": "started"})
	}
}
