package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dailypost/internal/core"
	"dailypost/internal/segment"
)

// SegmentRequest is the body of POST /v1/segment.
type SegmentRequest struct {
	Text     string `json:"text" validate:"not_blank"`
	MaxItems int    `json:"maxItems,omitempty" validate:"gte=0,lte=100"`
}

// SegmentResponse carries the post candidates in order.
type SegmentResponse struct {
	Tweets []string `json:"tweets"`
}

// SegmentHandler serves text segmentation.
type SegmentHandler struct {
	segmenter segment.Segmenter
	provider  string
	validator *core.Validator
	metrics   core.MetricsCollector
	logger    *slog.Logger
}

// NewSegmentHandler creates a SegmentHandler. provider names the backing
// model in metrics. metrics may be nil.
func NewSegmentHandler(
	seg segment.Segmenter,
	provider string,
	val *core.Validator,
	metrics core.MetricsCollector,
	logger *slog.Logger,
) *SegmentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SegmentHandler{
		segmenter: seg,
		provider:  provider,
		validator: val,
		metrics:   metrics,
		logger:    logger,
	}
}

// RegisterRoutes mounts the segmentation endpoint under /v1.
func (h *SegmentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/segment", h.HandleSegment)
}

// HandleSegment handles POST /v1/segment. A model answer that cannot be
// parsed yields an empty list with 200; only transport and credential
// failures are errors.
func (h *SegmentHandler) HandleSegment(w http.ResponseWriter, r *http.Request) {
	var req SegmentRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	items, err := h.segmenter.Segment(r.Context(), segment.Request{
		Text:     req.Text,
		MaxItems: req.MaxItems,
		APIKey:   llmOverride(r),
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordSegment(r.Context(), h.provider, len(items))
	}

	core.JSON(w, r, http.StatusOK, SegmentResponse{Tweets: nonNil(items)})
}
