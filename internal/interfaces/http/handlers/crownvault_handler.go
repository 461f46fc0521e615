package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/montrose/hnwi-gateway/internal/application/dto"
	"github.com/montrose/hnwi-gateway/internal/application/service"
	"github.com/montrose/hnwi-gateway/internal/interfaces/http/middleware"
	"github.com/montrose/hnwi-gateway/pkg/errors"
)

// CrownVaultHandler exposes estate asset and heir management.
type CrownVaultHandler struct {
	vaultService service.CrownVaultAppService
}

// NewCrownVaultHandler creates a new CrownVaultHandler.
func NewCrownVaultHandler(vaultService service.CrownVaultAppService) *CrownVaultHandler {
	return &CrownVaultHandler{vaultService: vaultService}
}

// ListAssets returns the member's assets.
func (h *CrownVaultHandler) ListAssets(c *gin.Context) {
	session := middleware.SessionFrom(c)

	assets, err := h.vaultService.ListAssets(c.Request.Context(), session.UserID)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, assets)
}

// GetAsset returns one asset.
func (h *CrownVaultHandler) GetAsset(c *gin.Context) {
	session := middleware.SessionFrom(c)

	asset, err := h.vaultService.GetAsset(c.Request.Context(), session.UserID, c.Param("id"))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, asset)
}

// CreateAsset records a new asset.
func (h *CrownVaultHandler) CreateAsset(c *gin.Context) {
	session := middleware.SessionFrom(c)

	var req dto.AssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}

	asset, err := h.vaultService.CreateAsset(c.Request.Context(), session.UserID, &req)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusCreated, asset)
}

// UpdateAsset updates an asset.
func (h *CrownVaultHandler) UpdateAsset(c *gin.Context) {
	session := middleware.SessionFrom(c)

	var req dto.AssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}

	asset, err := h.vaultService.UpdateAsset(c.Request.Context(), session.UserID, c.Param("id"), &req)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, asset)
}

// DeleteAsset removes an asset.
func (h *CrownVaultHandler) DeleteAsset(c *gin.Context) {
	session := middleware.SessionFrom(c)

	if err := h.vaultService.DeleteAsset(c.Request.Context(), session.UserID, c.Param("id")); err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, gin.H{"deleted": true})
}

// ListHeirs returns the heirs designated on an asset.
func (h *CrownVaultHandler) ListHeirs(c *gin.Context) {
	session := middleware.SessionFrom(c)

	heirs, err := h.vaultService.ListHeirs(c.Request.Context(), session.UserID, c.Param("id"))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, heirs)
}

// AddHeir designates an heir on an asset.
func (h *CrownVaultHandler) AddHeir(c *gin.Context) {
	session := middleware.SessionFrom(c)

	var req dto.HeirRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}

	heir, err := h.vaultService.AddHeir(c.Request.Context(), session.UserID, c.Param("id"), &req)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusCreated, heir)
}
