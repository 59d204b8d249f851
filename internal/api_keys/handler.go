package api_keys

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opendatahub-io/key-ledger/internal/constant"
	"github.com/opendatahub-io/key-ledger/internal/logger"
)

type Handler struct {
	service *Service
	logger  *logger.Logger
}

func NewHandler(log *logger.Logger, service *Service) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// ListKeys handles GET /api/keys.
func (h *Handler) ListKeys(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.ListKeys(c.Request.Context()))
}

// AddKey handles POST /api/add.
func (h *Handler) AddKey(c *gin.Context) {
	var req AddRequest
	if err := c.ShouldBind(&req); err != nil {
		// An unreadable body counts as one with no fields.
		h.logger.Debug("Failed to bind add request", "error", err)
		req = AddRequest{}
	}

	err := h.service.Add(c.Request.Context(), string(req.APIKey), string(req.ExpiredTime))
	if err != nil {
		var validationErr *ValidationError
		var duplicateErr *DuplicateKeyError
		switch {
		case errors.As(err, &validationErr):
			h.respond(c, constant.StatusError, MsgFieldsRequired)
		case errors.As(err, &duplicateErr):
			h.respond(c, constant.StatusError, MsgKeyExists)
		default:
			h.fail(c, "Failed to add api key", err)
		}
		return
	}

	h.respond(c, constant.StatusSuccess, MsgKeyAdded)
}

// GetKey handles GET /api/get/:api_key.
func (h *Handler) GetKey(c *gin.Context) {
	lookup := h.service.Get(c.Request.Context(), c.Param("api_key"))

	switch lookup.Status {
	case StatusInvalid:
		h.respond(c, constant.StatusInvalid, MsgKeyNotFound)
	case StatusDeleted:
		h.respond(c, constant.StatusDeleted, MsgKeyDeleted)
	case StatusExpired:
		c.JSON(http.StatusOK, Envelope{
			Status:      constant.StatusExpired,
			Message:     MsgKeyExpired,
			ExpiredTime: lookup.Record.Expired,
		})
	default:
		c.JSON(http.StatusOK, Envelope{
			Status:      constant.StatusValid,
			Data:        lookup.Record,
			ExpiredTime: lookup.Record.Expired,
		})
	}
}

// SoftDeleteKey handles POST /api/deleted/:api_key.
func (h *Handler) SoftDeleteKey(c *gin.Context) {
	h.remove(c, h.service.SoftDelete, MsgMarkedDeleted)
}

// HardDeleteKey handles DELETE /api/delete/:api_key.
func (h *Handler) HardDeleteKey(c *gin.Context) {
	h.remove(c, h.service.HardDelete, MsgKeyRemoved)
}

// ListLogs handles GET /api/logs.
func (h *Handler) ListLogs(c *gin.Context) {
	c.JSON(http.StatusOK, h.service.ListLogs(c.Request.Context()))
}

func (h *Handler) remove(c *gin.Context, op func(ctx context.Context, apiKey string) error, successMsg string) {
	if err := op(c.Request.Context(), c.Param("api_key")); err != nil {
		var notFoundErr *NotFoundError
		if errors.As(err, &notFoundErr) {
			h.respond(c, constant.StatusError, MsgKeyNotFound)
			return
		}
		h.fail(c, "Failed to delete api key", err)
		return
	}

	h.respond(c, constant.StatusSuccess, successMsg)
}

func (h *Handler) respond(c *gin.Context, status, message string) {
	c.JSON(http.StatusOK, Envelope{Status: status, Message: message})
}

// fail aborts a request hit by a storage fault with a bare 500 and no envelope.
func (h *Handler) fail(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, "path", c.Request.URL.Path, "error", err)
	_ = c.Error(err)
	c.AbortWithStatus(http.StatusInternalServerError)
}
