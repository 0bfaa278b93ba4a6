package handlers

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"geomodel/internal/geometry"
	"geomodel/internal/middleware"
	"geomodel/internal/models"
	"geomodel/internal/service"
)

type saveModelRequest struct {
	FileID    string                     `json:"file_id"`
	GeoJSON   geometry.FeatureCollection `json:"geojson"`
	Bounds    []geometry.Bounds          `json:"bounds"`
	Origin    []float64                  `json:"origin"`
	DataType  string                     `json:"dataType"`
	Timestamp json.RawMessage            `json:"timestamp"`
	Title     string                     `json:"title"`
	GLBData   string                     `json:"glb_data"`
}

type saveModelResponse struct {
	ID            string `json:"id"`
	Accepted      bool   `json:"accepted"`
	SnapshotBytes int64  `json:"snapshotBytes"`
	HasExport     bool   `json:"hasExport"`
}

func (h HandlerSet) SaveModel(c *gin.Context) {
	var req saveModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}

	var glb []byte
	if req.GLBData != "" {
		decoded, err := base64.StdEncoding.DecodeString(stripDataURL(req.GLBData))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_glb_data"})
			return
		}
		glb = decoded
	}

	result, err := h.ingest.Save(c.Request.Context(), middleware.CurrentUserID(c), service.SaveRequest{
		FileID:    req.FileID,
		GeoJSON:   req.GeoJSON,
		Bounds:    req.Bounds,
		Origin:    req.Origin,
		DataType:  req.DataType,
		Timestamp: req.Timestamp,
		Title:     req.Title,
		GLB:       glb,
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, saveModelResponse{
		ID:            result.ID,
		Accepted:      true,
		SnapshotBytes: result.SnapshotBytes,
		HasExport:     result.HasExport,
	})
}

type saveExportResponse struct {
	ID        string `json:"id"`
	Action    string `json:"action"`
	SizeBytes int64  `json:"sizeBytes"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

func (h HandlerSet) SaveExport(c *gin.Context) {
	file, _, err := c.Request.FormFile("glb_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "glb_file_required"})
		return
	}
	defer file.Close()

	glb, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable_glb_file"})
		return
	}

	var thumbnail []byte
	if data := c.PostForm("thumbnail_data"); data != "" {
		if decoded, decErr := base64.StdEncoding.DecodeString(stripDataURL(data)); decErr == nil {
			thumbnail = decoded
		}
	}

	var camera []byte
	if preset := c.PostForm("camera_position"); preset != "" && json.Valid([]byte(preset)) {
		camera = []byte(preset)
	}

	result, err := h.ingest.SaveExport(c.Request.Context(), middleware.CurrentUserID(c), service.ExportRequest{
		FileID:      c.PostForm("file_id"),
		ProjectName: c.PostForm("project_name"),
		GLB:         glb,
		Thumbnail:   thumbnail,
		Camera:      camera,
		Counts:      formCounts(c),
	})
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, saveExportResponse{
		ID:        result.ID,
		Action:    result.Action,
		SizeBytes: result.SizeBytes,
		Thumbnail: result.Thumbnail,
	})
}

// formCounts picks up the client-reported statistics fields, present only
// when an export arrives for an id that never had a full save.
func formCounts(c *gin.Context) *service.ClientCounts {
	fields := []string{"total_elements", "building_count", "highway_count", "water_count", "natural_count", "landuse_count", "other_count", "area_km2"}
	any := false
	for _, f := range fields {
		if c.PostForm(f) != "" {
			any = true
			break
		}
	}
	if !any {
		return nil
	}

	atoi := func(name string) int {
		n, _ := strconv.Atoi(c.PostForm(name))
		return n
	}
	area, _ := strconv.ParseFloat(c.PostForm("area_km2"), 64)

	return &service.ClientCounts{
		Total:    atoi("total_elements"),
		Building: atoi("building_count"),
		Highway:  atoi("highway_count"),
		Water:    atoi("water_count"),
		Natural:  atoi("natural_count"),
		Landuse:  atoi("landuse_count"),
		Other:    atoi("other_count"),
		AreaKm2:  area,
	}
}

func (h HandlerSet) ModelData(c *gin.Context) {
	data, err := h.resolver.Snapshot(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

func (h HandlerSet) ModelGLB(c *gin.Context) {
	data, name, err := h.resolver.Export(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "model/gltf-binary", data)
}

func (h HandlerSet) ModelThumbnail(c *gin.Context) {
	data, contentType, err := h.resolver.Thumbnail(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, data)
}

type modelStatsResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Visibility    string    `json:"visibility"`
	HasGLBExport  bool      `json:"hasGlbExport"`
	TotalElements int       `json:"totalElements"`
	Buildings     int       `json:"buildings"`
	Highways      int       `json:"highways"`
	Water         int       `json:"water"`
	Natural       int       `json:"natural"`
	Landuse       int       `json:"landuse"`
	Other         int       `json:"other"`
	AreaKm2       float64   `json:"areaKm2"`
	SizeBytes     int64     `json:"sizeBytes"`
	ViewCount     int       `json:"viewCount"`
	DownloadCount int       `json:"downloadCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func statsResponse(m models.Model) modelStatsResponse {
	return modelStatsResponse{
		ID:            m.ID,
		Title:         m.Title,
		Description:   m.Description,
		Visibility:    string(m.Visibility),
		HasGLBExport:  m.HasGLBExport,
		TotalElements: m.Stats.TotalElements,
		Buildings:     m.Stats.BuildingCount,
		Highways:      m.Stats.HighwayCount,
		Water:         m.Stats.WaterCount,
		Natural:       m.Stats.NaturalCount,
		Landuse:       m.Stats.LanduseCount,
		Other:         m.Stats.OtherCount,
		AreaKm2:       m.Stats.AreaKm2,
		SizeBytes:     m.SizeBytes,
		ViewCount:     m.ViewCount,
		DownloadCount: m.DownloadCount,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func (h HandlerSet) ModelStats(c *gin.Context) {
	m, err := h.resolver.Stats(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, statsResponse(m))
}

func (h HandlerSet) ModelArchive(c *gin.Context) {
	data, name, err := h.archive.Build(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "application/zip", data)
}

func (h HandlerSet) RecordView(c *gin.Context) {
	views, err := h.catalog.RecordView(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"viewCount": views})
}

type updateModelRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (h HandlerSet) UpdateModel(c *gin.Context) {
	var req updateModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}

	if err := h.catalog.UpdateMeta(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"), req.Title, req.Description); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": true})
}

func (h HandlerSet) ToggleVisibility(c *gin.Context) {
	visibility, err := h.catalog.ToggleVisibility(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"visibility": string(visibility)})
}

func (h HandlerSet) ToggleFavorite(c *gin.Context) {
	favorited, count, err := h.catalog.ToggleFavorite(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorited": favorited, "favoriteCount": count})
}

func (h HandlerSet) DeleteModel(c *gin.Context) {
	if err := h.lifecycle.DeleteModel(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h HandlerSet) CameraPreset(c *gin.Context) {
	preset, err := h.resolver.CameraPreset(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if len(preset) == 0 {
		c.JSON(http.StatusOK, gin.H{"camera": nil})
		return
	}
	c.Data(http.StatusOK, "application/json", preset)
}

// stripDataURL drops a "data:<mime>;base64," prefix when the client sends a
// data URL instead of bare base64.
func stripDataURL(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if idx := strings.Index(s, ","); idx >= 0 {
		return s[idx+1:]
	}
	return s
}
