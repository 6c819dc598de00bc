package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/madrasa/internal/app/models/dto"
	"github.com/yigit/madrasa/internal/app/services"
	"github.com/yigit/madrasa/internal/middleware"
)

// AccountController manages user accounts
type AccountController struct {
	accountService services.AccountService
}

// NewAccountController creates a new AccountController
func NewAccountController(accountService services.AccountService) *AccountController {
	return &AccountController{accountService: accountService}
}

// ListAccounts lists user accounts
// @Summary List user accounts
// @Tags user-accounts
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search in email"
// @Param role query string false "Role filter"
// @Param isActive query bool false "Active filter"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse} "Accounts"
// @Router /user-accounts [get]
func (c *AccountController) ListAccounts(ctx *gin.Context) {
	q, ok := listQuery(ctx, c.accountService.Schema())
	if !ok {
		return
	}

	page, err := c.accountService.List(ctx.Request.Context(), q)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(page, ""))
}

// GetAccount returns one account
// @Summary Get a user account
// @Tags user-accounts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Success 200 {object} dto.APIResponse{data=models.UserAccount} "Account"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Router /user-accounts/{id} [get]
func (c *AccountController) GetAccount(ctx *gin.Context) {
	id, ok := middleware.ParseID(ctx, "id")
	if !ok {
		return
	}

	account, err := c.accountService.Get(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(account, ""))
}

// CreateAccount creates a user account
// @Summary Create a user account
// @Description Without a password a temporary one is generated and returned once.
// @Tags user-accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateAccountRequest true "Account"
// @Success 201 {object} dto.APIResponse{data=dto.AccountCreatedResponse} "Account created"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 409 {object} dto.ErrorResponse "Email or person already has an account"
// @Router /user-accounts [post]
func (c *AccountController) CreateAccount(ctx *gin.Context) {
	var req dto.CreateAccountRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.accountService.Create(ctx.Request.Context(), req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(resp, "Account created"))
}

// UpdateAccount updates a user account
// @Summary Update a user account
// @Tags user-accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param request body dto.UpdateAccountRequest true "Account"
// @Success 200 {object} dto.APIResponse{data=models.UserAccount} "Account updated"
// @Failure 404 {object} dto.ErrorResponse "Account not found"
// @Failure 409 {object} dto.ErrorResponse "Email already exists"
// @Router /user-accounts/{id} [put]
func (c *AccountController) UpdateAccount(ctx *gin.Context) {
	id, ok := middleware.ParseID(ctx, "id")
	if !ok {
		return
	}
	var req dto.UpdateAccountRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	account, err := c.accountService.Update(ctx.Request.Context(), id, req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(account, "Account updated"))
}

// SetAccountStatus enables or disables an account
// @Summary Enable or disable a user account
// @Description Disabling revokes every refresh token of the account.
// @Tags user-accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param request body dto.AccountStatusRequest true "Status"
// @Success 200 {object} dto.APIResponse{data=models.UserAccount} "Status updated"
// @Router /user-accounts/{id}/status [patch]
func (c *AccountController) SetAccountStatus(ctx *gin.Context) {
	id, ok := middleware.ParseID(ctx, "id")
	if !ok {
		return
	}
	var req dto.AccountStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	account, err := c.accountService.SetStatus(ctx.Request.Context(), id, *req.IsActive)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(account, "Status updated"))
}

// ResetPassword issues a new temporary password
// @Summary Reset the password of a user account
// @Tags user-accounts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Success 200 {object} dto.APIResponse{data=dto.AccountCreatedResponse} "Password reset"
// @Router /user-accounts/{id}/reset-password [post]
func (c *AccountController) ResetPassword(ctx *gin.Context) {
	id, ok := middleware.ParseID(ctx, "id")
	if !ok {
		return
	}

	resp, err := c.accountService.ResetPassword(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, "Password reset"))
}

// BulkCreateAccounts creates accounts for many people at once
// @Summary Create accounts in bulk
// @Description One result per listed person: created, skipped or failed.
// @Tags user-accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BulkCreateAccountsRequest true "People"
// @Success 200 {object} dto.APIResponse{data=dto.BulkCreateAccountsResponse} "Per-person results"
// @Router /user-accounts/bulk [post]
func (c *AccountController) BulkCreateAccounts(ctx *gin.Context) {
	var req dto.BulkCreateAccountsRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.accountService.BulkCreate(ctx.Request.Context(), req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, "Bulk creation finished"))
}

// DeleteAccount removes an account once confirmed
// @Summary Delete a user account
// @Tags user-accounts
// @Produce json
// @Security BearerAuth
// @Param id path int true "Account ID"
// @Param confirm query bool true "Must be true"
// @Success 200 {object} dto.APIResponse "Account deleted"
// @Failure 400 {object} dto.ErrorResponse "Deletion not confirmed"
// @Router /user-accounts/{id} [delete]
func (c *AccountController) DeleteAccount(ctx *gin.Context) {
	id, ok := middleware.ParseID(ctx, "id")
	if !ok {
		return
	}
	if !confirmed(ctx) {
		return
	}

	if err := c.accountService.Delete(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Account deleted"))
}
