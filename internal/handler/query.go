package handler

import (
	"net/http"

	"querygw/internal/logger"
	"querygw/internal/model"

	"github.com/gin-gonic/gin"
)

// QueryHandler always answers 200 once the body is decoded; store failures
// are carried in the response itself.
func (h *Handler) QueryHandler(c *gin.Context) {
	var req model.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger(c).Error("Invalid query request", logger.Ctx{"err": err.Error()})
		_ = c.Error(err)
		internalError(c)
		return
	}

	resp := h.db.ExecuteQuery(c.Request.Context(), req.Statement(), req.ShouldFetch())

	c.JSON(http.StatusOK, resp)
}
