package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/madrasa/internal/app/models/dto"
	"github.com/yigit/madrasa/internal/app/services"
	"github.com/yigit/madrasa/internal/middleware"
)

// SettingsController reads and replaces the school configuration
type SettingsController struct {
	settingsService services.SettingsService
}

// NewSettingsController creates a new SettingsController
func NewSettingsController(settingsService services.SettingsService) *SettingsController {
	return &SettingsController{settingsService: settingsService}
}

// AllSettings returns every section
// @Summary Get all settings
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Setting} "Settings"
// @Router /settings [get]
func (c *SettingsController) AllSettings(ctx *gin.Context) {
	settings, err := c.settingsService.All(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(settings, ""))
}

// GetSection returns one section
// @Summary Get a settings section
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Param section path string true "Section" Enums(general, academic, notifications, security)
// @Success 200 {object} dto.APIResponse{data=models.Setting} "Section"
// @Failure 404 {object} dto.ErrorResponse "Unknown section"
// @Router /settings/{section} [get]
func (c *SettingsController) GetSection(ctx *gin.Context) {
	setting, err := c.settingsService.Get(ctx.Request.Context(), ctx.Param("section"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(setting, ""))
}

// UpdateSection replaces one section
// @Summary Update a settings section
// @Description Unknown keys and invalid values are rejected.
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param section path string true "Section"
// @Param request body dto.UpdateSettingsRequest true "Values"
// @Success 200 {object} dto.APIResponse{data=models.Setting} "Section updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid key or value"
// @Router /settings/{section} [put]
func (c *SettingsController) UpdateSection(ctx *gin.Context) {
	var req dto.UpdateSettingsRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	setting, err := c.settingsService.Update(ctx.Request.Context(), ctx.Param("section"), req.Values)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(setting, "Settings updated"))
}
