package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/artefactory/smartparks/internal/dto"
	"github.com/artefactory/smartparks/internal/logger"
	"github.com/artefactory/smartparks/internal/models"
	"github.com/artefactory/smartparks/internal/repository"
	"github.com/artefactory/smartparks/internal/services/metadata"
)

// MediaClassifier tells images from videos by object name.
type MediaClassifier interface {
	Classify(name string) models.MediaKind
}

// MediaHandler serves annotated media from the output bucket. The content
// type follows the media kind since annotated copies keep the source name.
func MediaHandler(objects repository.ObjectStore, bucket string, classifier MediaClassifier, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := strings.TrimPrefix(c.Param("path"), "/")
		if name == "" {
			c.JSON(http.StatusBadRequest, errorResponse("media path is required"))
			return
		}
		contentType := classifier.Classify(name).ContentType()
		if contentType == "" {
			c.JSON(http.StatusNotFound, errorResponse("media not found"))
			return
		}

		data, err := objects.Get(c.Request.Context(), bucket, name)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				c.JSON(http.StatusNotFound, errorResponse("media not found"))
				return
			}
			logger.Error().Err(err).Str("path", name).Msg("failed to read media")
			c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
			return
		}

		c.Header("Cache-Control", "no-cache")
		c.Data(http.StatusOK, contentType, data)
	}
}

// CameraSaver replaces the camera trap table.
type CameraSaver interface {
	Save(ctx context.Context, traps []models.CameraTrap) error
}

// SaveCamerasHandler stores the edited configuration table.
func SaveCamerasHandler(cameras CameraSaver, logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.SaveCamerasRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
			return
		}

		if err := cameras.Save(c.Request.Context(), req.Traps); err != nil {
			if errors.Is(err, metadata.ErrInvalidRecord) {
				c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
				return
			}
			logger.Error().Err(err).Msg("failed to save camera traps")
			c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
			return
		}

		logger.Info().Int("count", len(req.Traps)).Msg("camera traps saved")
		c.JSON(http.StatusOK, successResponse(req.Traps))
	}
}
