package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/artefactory/smartparks/internal/logger"
	"github.com/artefactory/smartparks/internal/models"
	"github.com/artefactory/smartparks/internal/services"
)

// MediaProcessor runs the pipeline for one stored object.
type MediaProcessor interface {
	HandleMediaEvent(ctx context.Context, ev models.MediaEvent) (*services.Outcome, error)
}

// IngestHandler receives storage finalize events. Failures answer 500 so the
// trigger redelivers the event.
func IngestHandler(processor MediaProcessor, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var ev models.MediaEvent
		if err := c.ShouldBindJSON(&ev); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
			return
		}

		outcome, err := processor.HandleMediaEvent(c.Request.Context(), ev)
		if err != nil {
			if errors.Is(err, services.ErrInvalidEvent) {
				c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
				return
			}
			logger.Error().Err(err).Str("name", ev.Name).Msg("failed to process media event")
			c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"kind":           outcome.Kind,
			"best_detection": outcome.BestDetection,
		})
	}
}
