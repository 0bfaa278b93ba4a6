package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"geomodel/internal/middleware"
	"geomodel/internal/models"
)

func (h HandlerSet) ListOwnModels(c *gin.Context) {
	list, err := h.resolver.ListOwned(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": statsResponses(list)})
}

func (h HandlerSet) ListFavorites(c *gin.Context) {
	list, err := h.resolver.ListFavorites(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": statsResponses(list)})
}

type accountStatsResponse struct {
	ModelCount     int     `json:"modelCount"`
	PublicCount    int     `json:"publicCount"`
	TotalElements  int     `json:"totalElements"`
	TotalAreaKm2   float64 `json:"totalAreaKm2"`
	TotalSizeBytes int64   `json:"totalSizeBytes"`
	ViewCount      int     `json:"viewCount"`
	DownloadCount  int     `json:"downloadCount"`
}

func (h HandlerSet) AccountStats(c *gin.Context) {
	agg, err := h.resolver.AccountStats(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, accountStatsResponse{
		ModelCount:     agg.ModelCount,
		PublicCount:    agg.PublicCount,
		TotalElements:  agg.TotalElements,
		TotalAreaKm2:   agg.TotalAreaKm2,
		TotalSizeBytes: agg.TotalSizeBytes,
		ViewCount:      agg.ViewCount,
		DownloadCount:  agg.DownloadCount,
	})
}

type deleteAccountRequest struct {
	Password string `json:"password"`
}

func (h HandlerSet) DeleteAccount(c *gin.Context) {
	var req deleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password_required"})
		return
	}

	if err := h.lifecycle.DeleteAccount(c.Request.Context(), middleware.CurrentUserID(c), req.Password); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func statsResponses(list []models.Model) []modelStatsResponse {
	out := make([]modelStatsResponse, 0, len(list))
	for _, m := range list {
		out = append(out, statsResponse(m))
	}
	return out
}
