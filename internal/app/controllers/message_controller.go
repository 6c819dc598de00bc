package controllers

import (
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/app/models/dto"
	"github.com/yigit/madrasa/internal/app/repositories"
	"github.com/yigit/madrasa/internal/app/services"
	"github.com/yigit/madrasa/internal/middleware"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
	"github.com/yigit/madrasa/internal/pkg/export"
	"github.com/yigit/madrasa/internal/pkg/helpers"
	"github.com/yigit/madrasa/internal/pkg/listing"
)

// MessageController handles messaging operations
type MessageController struct {
	messageService services.MessageService
	now            func() time.Time
}

// NewMessageController creates a new MessageController
func NewMessageController(messageService services.MessageService) *MessageController {
	return &MessageController{messageService: messageService, now: time.Now}
}

func caller(ctx *gin.Context) (models.Participant, bool) {
	p, ok := middleware.CurrentParticipant(ctx)
	if !ok {
		middleware.HandleAPIError(ctx, apperrors.ErrUnauthorized)
	}
	return p, ok
}

func sender(ctx *gin.Context) (services.Sender, bool) {
	p, ok := caller(ctx)
	if !ok {
		return services.Sender{}, false
	}
	accountID, _ := middleware.CurrentAccountID(ctx)
	return services.Sender{Participant: p, AccountID: accountID}, true
}

// SendMessage composes a message
// @Summary Send a message
// @Description Sends a message from the current user. Accepts JSON, or multipart/form-data with an optional "attachment" file.
// @Tags messages
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param request body dto.SendMessageRequest true "Message"
// @Success 201 {object} dto.APIResponse{data=models.Message} "Message sent"
// @Failure 400 {object} dto.ErrorResponse "Invalid message or unknown receiver"
// @Failure 403 {object} dto.ErrorResponse "Not a participant of the parent message"
// @Router /messages [post]
func (c *MessageController) SendMessage(ctx *gin.Context) {
	from, ok := sender(ctx)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	var err error
	multipartForm := strings.HasPrefix(ctx.ContentType(), "multipart/")
	if multipartForm {
		err = ctx.ShouldBind(&req)
	} else {
		err = ctx.ShouldBindJSON(&req)
	}
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.HandleValidationError(err)))
		return
	}

	var attachment *multipart.FileHeader
	if multipartForm {
		if fh, ferr := ctx.FormFile("attachment"); ferr == nil {
			attachment = fh
		} else if ferr != http.ErrMissingFile {
			errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid attachment").
				WithField("attachment").WithDetails(ferr.Error())
			ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
			return
		}
	}

	msg, err := c.messageService.Send(ctx.Request.Context(), from, req, attachment)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(msg, "Message sent"))
}

// SendCommunication sends one communication to many receivers
// @Summary Send a communication
// @Description School office only. Reports the outcome per receiver.
// @Tags communications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CommunicationRequest true "Communication"
// @Success 200 {object} dto.APIResponse{data=dto.CommunicationResponse} "Per-receiver results"
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Router /communications [post]
func (c *MessageController) SendCommunication(ctx *gin.Context) {
	from, ok := sender(ctx)
	if !ok {
		return
	}
	var req dto.CommunicationRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	resp, err := c.messageService.SendCommunication(ctx.Request.Context(), from, req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(resp, "Communication processed"))
}

// ownerFromPath reads the :id/:role pair of a box route.
func ownerFromPath(ctx *gin.Context) (models.Participant, bool) {
	id, ok := middleware.ParseID(ctx, "id")
	if !ok {
		return models.Participant{}, false
	}
	role := models.Role(ctx.Param("role"))
	if !role.Valid() {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid role").WithField("role")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return models.Participant{}, false
	}
	return models.Participant{ID: id, Role: role}, true
}

func (c *MessageController) listBox(ctx *gin.Context, box repositories.Box) {
	me, ok := caller(ctx)
	if !ok {
		return
	}
	owner, ok := ownerFromPath(ctx)
	if !ok {
		return
	}
	q, ok := listQuery(ctx, repositories.MessageSchema)
	if !ok {
		return
	}

	page, err := c.messageService.Box(ctx.Request.Context(), me, repositories.MessageScope{Box: box, Participant: owner}, q)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(page, ""))
}

// Inbox lists the received messages of a participant
// @Summary List an inbox
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Participant ID"
// @Param role path string true "Participant role"
// @Param search query string false "Search in title, content and names"
// @Param isRead query bool false "Read state"
// @Param type query string false "Message type"
// @Param priority query string false "Priority"
// @Param page query int false "Page number" default(1)
// @Param size query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse} "Inbox"
// @Failure 403 {object} dto.ErrorResponse "Not your inbox"
// @Router /messages/receiver/{id}/{role} [get]
func (c *MessageController) Inbox(ctx *gin.Context) {
	c.listBox(ctx, repositories.BoxInbox)
}

// Sent lists the sent messages of a participant
// @Summary List a sent box
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Participant ID"
// @Param role path string true "Participant role"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse} "Sent box"
// @Failure 403 {object} dto.ErrorResponse "Not your sent box"
// @Router /messages/sender/{id}/{role} [get]
func (c *MessageController) Sent(ctx *gin.Context) {
	c.listBox(ctx, repositories.BoxSent)
}

// Communications lists every message for the school office, or exports them
// when format is given
// @Summary List or export all messages
// @Tags communications
// @Produce json
// @Produce text/csv
// @Security BearerAuth
// @Param format query string false "Export format" Enums(csv, xlsx)
// @Param type query string false "Message type"
// @Param priority query string false "Priority"
// @Success 200 {object} dto.APIResponse{data=dto.PaginatedResponse} "Messages"
// @Failure 403 {object} dto.ErrorResponse "Forbidden"
// @Router /communications [get]
func (c *MessageController) Communications(ctx *gin.Context) {
	me, ok := caller(ctx)
	if !ok {
		return
	}
	q, ok := listQuery(ctx, repositories.MessageSchema)
	if !ok {
		return
	}
	scope := repositories.MessageScope{Box: repositories.BoxAll, Participant: me}

	if ctx.Query("format") != "" {
		c.export(ctx, me, scope, q, "communications")
		return
	}

	page, err := c.messageService.Box(ctx.Request.Context(), me, scope, q)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(page, ""))
}

// Export downloads the caller's inbox or sent box
// @Summary Export messages
// @Tags messages
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param box query string false "Box" Enums(inbox, sent) default(inbox)
// @Param format query string false "Format" Enums(csv, xlsx) default(csv)
// @Success 200 {file} file "Export file"
// @Failure 400 {object} dto.ErrorResponse "Unsupported format or box"
// @Router /messages/export [get]
func (c *MessageController) Export(ctx *gin.Context) {
	me, ok := caller(ctx)
	if !ok {
		return
	}
	q, ok := listQuery(ctx, repositories.MessageSchema)
	if !ok {
		return
	}
	box := repositories.Box(ctx.DefaultQuery("box", string(repositories.BoxInbox)))
	if box != repositories.BoxInbox && box != repositories.BoxSent {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "box must be inbox or sent").WithField("box")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}
	c.export(ctx, me, repositories.MessageScope{Box: box, Participant: me}, q, "messages-"+string(box))
}

func (c *MessageController) export(ctx *gin.Context, me models.Participant, scope repositories.MessageScope, q listing.Query, base string) {
	w, err := export.For(helpers.QueryFormat(ctx, "csv"))
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, err.Error()).WithField("format")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	table, err := c.messageService.Export(ctx.Request.Context(), me, scope, q)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	filename := export.Filename(base, w, c.now())
	ctx.Header("Content-Disposition", export.ContentDisposition(filename))
	ctx.Header("Content-Type", w.ContentType())
	ctx.Status(http.StatusOK)
	if err := w.Write(ctx.Writer, table); err != nil {
		// headers are gone; all that is left is to log
		_ = ctx.Error(err)
	}
}

// GetMessage opens a message
// @Summary Open a message
// @Description Opening from the inbox by the receiver marks the message read once. Opening from sent never changes the read state.
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Param box query string false "Box the message is opened from" Enums(inbox, sent)
// @Success 200 {object} dto.APIResponse{data=models.Message} "Message"
// @Failure 403 {object} dto.ErrorResponse "Not a participant"
// @Failure 404 {object} dto.ErrorResponse "Message not found"
// @Router /messages/{id} [get]
func (c *MessageController) GetMessage(ctx *gin.Context) {
	me, ok := caller(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(ctx, "id")
	if !ok {
		return
	}

	msg, err := c.messageService.Open(ctx.Request.Context(), me, id, repositories.Box(ctx.Query("box")))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(msg, ""))
}

// MarkRead marks a received message as read
// @Summary Mark a message read
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Success 200 {object} dto.APIResponse{data=models.Message} "Message"
// @Failure 403 {object} dto.ErrorResponse "Only the receiver can mark a message read"
// @Router /messages/{id}/read [patch]
func (c *MessageController) MarkRead(ctx *gin.Context) {
	me, ok := caller(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(ctx, "id")
	if !ok {
		return
	}

	msg, err := c.messageService.MarkRead(ctx.Request.Context(), me, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(msg, ""))
}

// Thread returns the conversation around a message
// @Summary Message thread
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Success 200 {object} dto.APIResponse{data=dto.ThreadResponse} "Thread"
// @Router /messages/{id}/thread [get]
func (c *MessageController) Thread(ctx *gin.Context) {
	me, ok := caller(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(ctx, "id")
	if !ok {
		return
	}

	thread, err := c.messageService.Thread(ctx.Request.Context(), me, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(thread, ""))
}

// UnreadCount returns the number of unread messages of the caller
// @Summary Unread message count
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.UnreadCountResponse} "Unread count"
// @Router /messages/unread-count [get]
func (c *MessageController) UnreadCount(ctx *gin.Context) {
	me, ok := caller(ctx)
	if !ok {
		return
	}

	n, err := c.messageService.UnreadCount(ctx.Request.Context(), me)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(dto.UnreadCountResponse{Unread: n}, ""))
}

// DeleteMessage deletes a message
// @Summary Delete a message
// @Tags messages
// @Produce json
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Param confirm query bool true "Must be true"
// @Success 200 {object} dto.APIResponse "Message deleted"
// @Failure 400 {object} dto.ErrorResponse "Deletion not confirmed"
// @Failure 403 {object} dto.ErrorResponse "Only the sender or an administrator"
// @Router /messages/{id} [delete]
func (c *MessageController) DeleteMessage(ctx *gin.Context) {
	me, ok := caller(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(ctx, "id")
	if !ok {
		return
	}
	if !confirmed(ctx) {
		return
	}

	if err := c.messageService.Delete(ctx.Request.Context(), me, id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Message deleted"))
}

// DownloadAttachment streams the attachment of a message
// @Summary Download a message attachment
// @Tags messages
// @Produce octet-stream
// @Security BearerAuth
// @Param id path int true "Message ID"
// @Success 200 {file} file "Attachment"
// @Failure 403 {object} dto.ErrorResponse "Not a participant"
// @Failure 404 {object} dto.ErrorResponse "No attachment"
// @Router /messages/{id}/attachment [get]
func (c *MessageController) DownloadAttachment(ctx *gin.Context) {
	me, ok := caller(ctx)
	if !ok {
		return
	}
	id, ok := middleware.ParseID(ctx, "id")
	if !ok {
		return
	}

	file, path, err := c.messageService.Attachment(ctx.Request.Context(), me, id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	if file.MimeType != "" {
		ctx.Header("Content-Type", file.MimeType)
	}
	ctx.FileAttachment(path, file.FileName)
}
