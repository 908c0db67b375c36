package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/community-events/internal/storage"
)

type UploadHandler struct {
	Store storage.Storage
	Log   *zap.Logger
}

func NewUploadHandler(store storage.Storage, log *zap.Logger) *UploadHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &UploadHandler{Store: store, Log: log}
}

// Image accepts a multipart "file" field and stores it after checking size,
// extension and magic bytes.
func (h *UploadHandler) Image(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, http.StatusBadRequest, "File not found")
	}
	if fh.Size > storage.MaxImageSize {
		return fail(c, http.StatusBadRequest, storage.ErrTooLarge.Error())
	}
	f, err := fh.Open()
	if err != nil {
		return fail(c, http.StatusBadRequest, "Failed to read upload")
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, storage.MaxImageSize+1))
	if err != nil {
		return fail(c, http.StatusBadRequest, "Failed to read upload")
	}

	ext, contentType, err := storage.ValidateImage(fh.Filename, data)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrEmptyFile), errors.Is(err, storage.ErrTooLarge),
			errors.Is(err, storage.ErrBadExtension), errors.Is(err, storage.ErrContentMismatch):
			return fail(c, http.StatusBadRequest, err.Error())
		}
		return internalError(c, h.Log, "Failed to store file", err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	url, err := h.Store.Save(ctx, storage.ObjectName(ext), contentType, data)
	if err != nil {
		return internalError(c, h.Log, "Failed to store file", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"url": url, "imageURL": url})
}
