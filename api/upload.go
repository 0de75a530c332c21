package api

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"scale_tracker/internal/sales"
)

// uploadField is the multipart form field carrying import files.
const uploadField = "file"

// openUpload returns the uploaded import file, bounded by maxUploadSize.
func (h *salesHandler) openUpload(ctx *gin.Context) (multipart.File, error) {
	if h.maxUploadSize > 0 {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, h.maxUploadSize)
	}

	fh, err := ctx.FormFile(uploadField)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", sales.ErrCodec, err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", sales.ErrCodec, fh.Filename, err)
	}
	return f, nil
}
