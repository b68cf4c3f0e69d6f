package api

import (
	"errors"
	"net/http"

	"github.com/ignite/crm-engine/internal/domain"
	"github.com/ignite/crm-engine/internal/pkg/httputil"
	"github.com/ignite/crm-engine/internal/service/segment"
)

func segmentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, segment.ErrNotFound):
		httputil.NotFound(w, "segment not found")
	case errors.Is(err, segment.ErrForbidden):
		httputil.Forbidden(w, "segment belongs to another user")
	case errors.Is(err, segment.ErrValidation):
		httputil.BadRequest(w, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}

func (h *Handlers) ListSegments(w http.ResponseWriter, r *http.Request) {
	segments, err := h.Segments.List(r.Context(), userID(r))
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, segments)
}

func (h *Handlers) CreateSegment(w http.ResponseWriter, r *http.Request) {
	var in segment.CreateInput
	if !httputil.Decode(w, r, &in) {
		return
	}
	seg, err := h.Segments.Create(r.Context(), userID(r), in)
	if err != nil {
		segmentError(w, err)
		return
	}
	httputil.Created(w, seg)
}

func (h *Handlers) GetSegment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httputil.BadRequest(w, "invalid segment id")
		return
	}
	seg, err := h.Segments.Get(r.Context(), userID(r), id)
	if err != nil {
		segmentError(w, err)
		return
	}
	httputil.OK(w, seg)
}

// PreviewSegment evaluates a rule tree without saving it, powering the
// live audience counter in the segment builder.
func (h *Handlers) PreviewSegment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Rules domain.RuleGroup `json:"rules"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	p, err := h.Segments.PreviewRules(r.Context(), body.Rules)
	if err != nil {
		segmentError(w, err)
		return
	}
	httputil.OK(w, p)
}

// GenerateSegmentRules turns a natural-language audience description into a
// rule tree. The response says whether the model produced it or the
// deterministic fallback did.
func (h *Handlers) GenerateSegmentRules(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prompt string `json:"prompt"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	if body.Prompt == "" {
		httputil.BadRequest(w, "prompt is required")
		return
	}

	rules, fromModel := h.Assist.RulesFromText(r.Context(), body.Prompt)
	httputil.OK(w, map[string]any{
		"rules":       rules,
		"generatedBy": generatedBy(fromModel),
	})
}

func generatedBy(fromModel bool) string {
	if fromModel {
		return "model"
	}
	return "fallback"
}
