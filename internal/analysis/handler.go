package analysis

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/microfinder/pkg/handlers"
	"github.com/JaimeStill/microfinder/pkg/routes"
)

// Handler exposes analysis without saving a discovery.
type Handler struct {
	analyzer     Analyzer
	logger       *slog.Logger
	maxImageSize int64
}

func NewHandler(analyzer Analyzer, logger *slog.Logger, maxImageSize int64) *Handler {
	return &Handler{
		analyzer:     analyzer,
		logger:       logger.With("handler", "analysis"),
		maxImageSize: maxImageSize,
	}
}

func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/analysis",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Analyze},
		},
	}
}

// Analyze accepts a multipart "image" field and returns the model's
// identification.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	up, err := handlers.ReadUpload(w, r, "image", h.maxImageSize)
	if err != nil {
		err = UploadError(err)
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	img, err := EncodeImage(up.Data, up.ContentType, h.maxImageSize)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	result, err := h.analyzer.Analyze(r.Context(), img)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// UploadError translates a failed multipart read into an image error.
func UploadError(err error) error {
	if errors.Is(err, handlers.ErrUploadTooLarge) {
		return fmt.Errorf("%w: %v", ErrImageTooLarge, err)
	}
	return fmt.Errorf("%w: %v", ErrInvalidImage, err)
}
