package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/artefactory/smartparks/internal/dto"
	"github.com/artefactory/smartparks/internal/logger"
	"github.com/artefactory/smartparks/internal/services/dashboard"
)

// ViewRenderer is the dashboard's named view router.
type ViewRenderer interface {
	Views() []dto.View
	Render(ctx context.Context, view string, q dashboard.Query) (*dto.Page, error)
}

// ListViewsHandler returns the view names in menu order.
func ListViewsHandler(views ViewRenderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, successResponse(views.Views()))
	}
}

// ViewHandler renders one view. Query parameters: camera, start_date,
// end_date (YYYY-MM-DD), start_time, end_time (HH:MM).
func ViewHandler(views ViewRenderer, loc *time.Location, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, err := dashboard.ParseFilter(c.Request.URL.Query(), time.Now(), loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
			return
		}

		q := dashboard.Query{Camera: c.Query("camera"), Filter: filter}
		page, err := views.Render(c.Request.Context(), c.Param("view"), q)
		if err != nil {
			if errors.Is(err, dashboard.ErrUnknownView) || errors.Is(err, dashboard.ErrUnknownCamera) {
				c.JSON(http.StatusNotFound, errorResponse(err.Error()))
				return
			}
			logger.Error().Err(err).Str("view", c.Param("view")).Msg("failed to render view")
			c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
			return
		}

		c.JSON(http.StatusOK, successResponse(page))
	}
}
