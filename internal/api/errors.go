package api

import (
	"github.com/gin-gonic/gin"
	"github.com/lalith-99/fretboard/internal/apperr"
	"github.com/lalith-99/fretboard/internal/observ"
	"go.uber.org/zap"
)

// respondError maps err onto its HTTP status. Only internal errors are
// logged and reported; the rest are the caller's doing.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		observ.CaptureError(c, err)
	}
	c.JSON(kind.HTTPStatus(), gin.H{"error": apperr.Message(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(apperr.KindInvalidArgument.HTTPStatus(), gin.H{"error": msg})
}
