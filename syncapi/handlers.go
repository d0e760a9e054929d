// Package syncapi exposes the sync engine over HTTP.
package syncapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/mmdatafocus/sync_backend/syncengine"
	"github.com/mmdatafocus/sync_backend/utils"
)

func init() {
	// pushed numbers stay json.Number so they reach storage as exact decimals
	binding.EnableDecoderUseNumber = true
}

type Engine interface {
	Pull(ctx context.Context, caller syncengine.Caller, req syncengine.PullRequest) (*syncengine.PullResult, error)
	Push(ctx context.Context, caller syncengine.Caller, req syncengine.PushRequest) (*syncengine.PushResult, error)
	Entities(caller syncengine.Caller) []syncengine.EntityInfo
}

type Handler struct {
	engine   Engine
	maxLimit int
}

func NewHandler(engine Engine, maxLimit int) *Handler {
	if maxLimit <= 0 {
		maxLimit = 500
	}
	return &Handler{engine: engine, maxLimit: maxLimit}
}

// Register mounts the sync routes on rg, which must already require authentication.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/sync", h.ListEntities)
	rg.GET("/sync/:entity", h.Pull)
	rg.POST("/sync/:entity", h.Push)
}

func (h *Handler) ListEntities(c *gin.Context) {
	caller, ok := callerFromContext(c.Request.Context())
	if !ok {
		utils.AbortWithError(c, http.StatusUnauthorized, "Unauthenticated.")
		return
	}
	utils.RespondSuccess(c, http.StatusOK, "Synchronizable entities.", EntitiesResponse{
		Entities: h.engine.Entities(caller),
	})
}

func (h *Handler) Pull(c *gin.Context) {
	caller, ok := callerFromContext(c.Request.Context())
	if !ok {
		utils.AbortWithError(c, http.StatusUnauthorized, "Unauthenticated.")
		return
	}

	var q PullQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.AbortWithError(c, http.StatusBadRequest, bindingMessage(err))
		return
	}
	req := syncengine.PullRequest{
		Entity: c.Param("entity"),
		Since:  strings.TrimSpace(q.Since),
	}
	if q.Limit != nil {
		if *q.Limit > h.maxLimit {
			utils.AbortWithError(c, http.StatusBadRequest, fmt.Sprintf("limit must not exceed %d", h.maxLimit))
			return
		}
		req.Limit = *q.Limit
	}
	if q.Offset != nil {
		req.Offset = *q.Offset
	}

	res, err := h.engine.Pull(c.Request.Context(), caller, req)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusOK, fmt.Sprintf("Records of %s retrieved successfully.", res.Entity), res)
}

func (h *Handler) Push(c *gin.Context) {
	caller, ok := callerFromContext(c.Request.Context())
	if !ok {
		utils.AbortWithError(c, http.StatusUnauthorized, "Unauthenticated.")
		return
	}

	var body PushBody
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.AbortWithError(c, http.StatusBadRequest, bindingMessage(err))
		return
	}

	res, err := h.engine.Push(c.Request.Context(), caller, syncengine.PushRequest{
		Entity:         c.Param("entity"),
		IdempotencyKey: body.IdempotencyKey,
		Records:        body.Records,
		Source:         body.Source,
		Cursor:         body.Cursor,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.RespondSuccess(c, http.StatusCreated, fmt.Sprintf("Payload of %s processed successfully.", res.Entity), res)
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		// storage details stay in the logs
		message = "Internal server error."
		_ = c.Error(err)
	}
	utils.AbortWithError(c, status, message)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, syncengine.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, syncengine.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, syncengine.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, syncengine.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func bindingMessage(err error) string {
	fields := utils.ProcessValidationErrors(err)
	if len(fields) == 0 {
		return "Invalid request: " + err.Error()
	}
	parts := make([]string, 0, len(fields))
	for field, rule := range fields {
		parts = append(parts, field+" "+rule)
	}
	sort.Strings(parts)
	return "Invalid request: " + strings.Join(parts, "; ")
}

func callerFromContext(ctx context.Context) (syncengine.Caller, bool) {
	role, ok := utils.GetRoleFromContext(ctx)
	if !ok {
		return syncengine.Caller{}, false
	}
	username, _ := utils.GetUsernameFromContext(ctx)
	subject, _ := utils.GetSubjectFromContext(ctx)
	return syncengine.Caller{Subject: subject, Username: username, Role: role}, true
}
