package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/customs-pairing/backend/internal/models"
	"github.com/customs-pairing/backend/internal/review"
)

// HandleReviewOpen starts a fullscreen view in the given context at the
// selected record.
func (h *Handler) HandleReviewOpen(c echo.Context) error {
	var req struct {
		Context  string `json:"context"`
		RecordID string `json:"recordId"`
	}
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	viewCtx := review.ViewContext(req.Context)
	if !viewCtx.Valid() {
		return NewValidationError("context")
	}
	return c.JSON(http.StatusOK, h.review.Open(viewCtx, req.RecordID))
}

// HandleReviewClose ends the fullscreen view.
func (h *Handler) HandleReviewClose(c echo.Context) error {
	h.review.Close()
	return c.NoContent(http.StatusNoContent)
}

// HandleReviewState reports the workflow state and current record.
func (h *Handler) HandleReviewState(c echo.Context) error {
	record, open := h.review.Current()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"state":  h.review.State(),
		"open":   open,
		"record": record,
	})
}

// HandleReviewNavigate moves by offset within the view.
func (h *Handler) HandleReviewNavigate(c echo.Context) error {
	var req struct {
		Offset int `json:"offset"`
	}
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	return c.JSON(http.StatusOK, h.review.Navigate(req.Offset))
}

// HandleReviewConfirm accepts the current pairing and advances the view.
func (h *Handler) HandleReviewConfirm(c echo.Context) error {
	outcome, err := h.review.Confirm(c.Request().Context())
	if err != nil {
		return NewInternalError("failed to confirm pairing", err)
	}
	return c.JSON(http.StatusOK, outcome)
}

// HandleReviewReject breaks the current pairing and advances the view.
func (h *Handler) HandleReviewReject(c echo.Context) error {
	outcome, err := h.review.Reject(c.Request().Context())
	if err != nil {
		return NewInternalError("failed to reject pairing", err)
	}
	return c.JSON(http.StatusOK, outcome)
}

// HandleReviewDeleteSide removes one document of the current pair and
// advances the view.
func (h *Handler) HandleReviewDeleteSide(c echo.Context) error {
	slot := models.DocumentSlot(c.Param("slot"))
	if !slot.Valid() {
		return NewValidationError("slot")
	}
	outcome, err := h.review.DeleteSide(c.Request().Context(), slot)
	if err != nil {
		return NewInternalError("failed to remove document", err)
	}
	return c.JSON(http.StatusOK, outcome)
}
