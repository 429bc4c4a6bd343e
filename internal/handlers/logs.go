package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/artefactory/smartparks/internal/logger"
)

var logFiles = map[string]string{
	"info":    logger.InfoFile,
	"warning": logger.WarningFile,
	"error":   logger.ErrorFile,
}

// ShowLogsHandler serves the log file of the :level parameter.
func ShowLogsHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		filename, ok := logFiles[c.Param("level")]
		if !ok {
			c.JSON(http.StatusNotFound, errorResponse("unknown log level"))
			return
		}

		filePath := filepath.Join(log.Dir(), filename)
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			c.String(http.StatusNotFound, "Log file not found: "+filename)
			return
		}

		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Header("Cache-Control", "no-cache")
		c.File(filePath)
	}
}

// ClearLogsHandler truncates the log file of the :level parameter.
func ClearLogsHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		filename, ok := logFiles[c.Param("level")]
		if !ok {
			c.JSON(http.StatusNotFound, errorResponse("unknown log level"))
			return
		}
		if err := log.CleanLogs(filename); err != nil {
			log.Error().Err(err).Str("file", filename).Msg("failed to clear logs")
			c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
