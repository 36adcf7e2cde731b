package handler

import (
	"net/http"

	"querygw/internal/config"
	"querygw/internal/logger"
	"querygw/internal/model"
	"querygw/internal/service"

	"github.com/gin-gonic/gin"
)

// Handler serves the gateway endpoints. Its dependencies are fixed at
// construction and only read afterwards.
type Handler struct {
	db       service.DBClient
	database config.Database
	log      logger.Logger
}

func New(db service.DBClient, database config.Database, log logger.Logger) *Handler {
	return &Handler{
		db:       db,
		database: database,
		log:      log,
	}
}

func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}

func (h *Handler) HealthHandler(c *gin.Context) {
	status := model.HealthStatus{
		Status:   "healthy",
		Service:  model.ServiceName,
		Database: "connected",
	}

	if err := h.db.Ping(c.Request.Context()); err != nil {
		h.logger(c).Warn("Health probe failed", logger.Ctx{"err": err.Error()})
		status.Status = "unhealthy"
		status.Database = "disconnected"
		status.Error = service.ErrorMessage(err)
	}

	c.JSON(http.StatusOK, status)
}

func (h *Handler) TestConnectionHandler(c *gin.Context) {
	resp := model.ConnectionTest{
		Connection: h.database.Summary(),
	}

	version, err := h.db.Version(c.Request.Context())
	if err != nil {
		h.logger(c).Error("Database connection failed", logger.Ctx{"err": err.Error()})
		resp.Message = service.ErrorMessage(err)
		c.JSON(http.StatusOK, resp)
		return
	}

	resp.Success = true
	resp.Version = version
	resp.Message = "Database connection successful"

	c.JSON(http.StatusOK, resp)
}

// DebugConfigHandler reports the connection parameters without the password.
func (h *Handler) DebugConfigHandler(c *gin.Context) {
	c.JSON(http.StatusOK, model.DebugConfig{
		Host:        h.database.Host,
		Port:        h.database.Port,
		Database:    h.database.Name,
		User:        h.database.User,
		PasswordSet: h.database.Password != "",
		SSLMode:     h.database.SSLMode,
	})
}

func (h *Handler) logger(c *gin.Context) logger.Logger {
	return logger.FromContext(c.Request.Context(), h.log)
}
