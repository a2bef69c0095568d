package handlers

import (
	"errors"
	"net/http"

	"github.com/Valerijkk/defect-tracker-lite/internal/observability"
	"github.com/Valerijkk/defect-tracker-lite/internal/uploads"
	"github.com/gin-gonic/gin"
)

type UploadsHandler struct {
	store *uploads.Store
	obs   *observability.Prom
}

func NewUploadsHandler(store *uploads.Store, obs *observability.Prom) *UploadsHandler {
	return &UploadsHandler{store: store, obs: obs}
}

func (h *UploadsHandler) Upload(ctx *gin.Context) {
	header, err := ctx.FormFile("file")

	if err != nil {
		RespondBadRequest(ctx, "Multipart field 'file' is required", nil)
		return
	}

	if header.Filename == "" {
		RespondBadRequest(ctx, "Uploaded file has no name", nil)
		return
	}

	f, err := header.Open()

	if err != nil {
		RespondInternal(ctx, "Could not read upload")
		return
	}

	defer f.Close()

	url, err := h.store.Register(header.Filename, f)

	if err != nil {
		if errors.Is(err, uploads.ErrUnsupportedType) {
			h.countUpload("rejected")
			RespondError(ctx, http.StatusBadRequest, "unsupported_type", "File extension is not allowed", nil)
			return
		}

		h.countUpload("failed")
		RespondInternal(ctx, "Could not store upload")
		return
	}

	h.countUpload("stored")
	ctx.JSON(http.StatusCreated, gin.H{"url": url})
}

// Serve streams a stored attachment back to the caller.
func (h *UploadsHandler) Serve(ctx *gin.Context) {
	f, err := h.store.Open(ctx.Param("name"))

	if err != nil {
		RespondNotFound(ctx, "File not found")
		return
	}

	defer f.Close()

	info, err := f.Stat()

	if err != nil || info.IsDir() {
		RespondNotFound(ctx, "File not found")
		return
	}

	http.ServeContent(ctx.Writer, ctx.Request, info.Name(), info.ModTime(), f)
}

func (h *UploadsHandler) countUpload(result string) {
	if h.obs != nil {
		h.obs.UploadsTotal.WithLabelValues(result).Inc()
	}
}
