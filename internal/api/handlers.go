package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/customs-pairing/backend/internal/export"
	"github.com/customs-pairing/backend/internal/fields"
	"github.com/customs-pairing/backend/internal/history"
	"github.com/customs-pairing/backend/internal/ingest"
	"github.com/customs-pairing/backend/internal/models"
	"github.com/customs-pairing/backend/internal/review"
	"github.com/customs-pairing/backend/internal/store"
)

// Handler handles API requests.
type Handler struct {
	history    *history.Manager
	review     *review.Session
	ingestor   *ingest.Ingestor
	exporter   *export.Exporter
	catalogue  *fields.Catalogue
	allowClear bool
}

// NewHandler creates a new API handler.
func NewHandler(mgr *history.Manager, rev *review.Session, ing *ingest.Ingestor, exp *export.Exporter, cat *fields.Catalogue, allowClear bool) *Handler {
	return &Handler{
		history:    mgr,
		review:     rev,
		ingestor:   ing,
		exporter:   exp,
		catalogue:  cat,
		allowClear: allowClear,
	}
}

// HandleListRecords returns all records, newest first.
func (h *Handler) HandleListRecords(c echo.Context) error {
	return c.JSON(http.StatusOK, h.history.Entries())
}

// HandleListRecordsMsgpack returns all records in MessagePack format.
// MessagePack is 30-50% smaller than JSON for records that carry
// base64 document payloads.
func (h *Handler) HandleListRecordsMsgpack(c echo.Context) error {
	records := h.history.Entries()
	data, err := msgpack.Marshal(records)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

// HandleGetRecord returns one record by id.
func (h *Handler) HandleGetRecord(c echo.Context) error {
	id := c.Param("id")
	record, ok := h.history.Get(id)
	if !ok {
		return NewNotFoundError("record", id)
	}
	return c.JSON(http.StatusOK, record)
}

// HandleGetQueue returns the unverified pairing queue in filename order.
func (h *Handler) HandleGetQueue(c echo.Context) error {
	return c.JSON(http.StatusOK, h.history.PendingQueue())
}

// HandleUpdateRecord overwrites a record in full (field edits).
func (h *Handler) HandleUpdateRecord(c echo.Context) error {
	id := c.Param("id")
	var record models.PairRecord
	if err := c.Bind(&record); err != nil {
		return NewBadRequestError("invalid record body", err)
	}
	record.ID = id

	saved, err := h.history.Update(c.Request().Context(), &record)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NewNotFoundError("record", id)
		}
		return NewBadRequestError("invalid record shape", err)
	}
	return c.JSON(http.StatusOK, saved)
}

// HandleSetVerified toggles the data-verification flag of a record.
func (h *Handler) HandleSetVerified(c echo.Context) error {
	id := c.Param("id")
	var req struct {
		Verified bool `json:"verified"`
	}
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	saved, err := h.history.SetDataVerified(c.Request().Context(), id, req.Verified)
	if err != nil {
		return NewNotFoundError("record", id)
	}
	return c.JSON(http.StatusOK, saved)
}

// HandleConfirmPairing marks the record's pairing as verified. Records
// that are not pending pairs are returned unchanged.
func (h *Handler) HandleConfirmPairing(c echo.Context) error {
	id := c.Param("id")
	saved, err := h.history.ConfirmPairing(c.Request().Context(), id)
	if err != nil {
		return NewInternalError("failed to confirm pairing", err)
	}
	if saved == nil {
		record, ok := h.history.Get(id)
		if !ok {
			return NewNotFoundError("record", id)
		}
		return c.JSON(http.StatusOK, record)
	}
	return c.JSON(http.StatusOK, saved)
}

// HandleRejectPairing breaks the pair; inside the unverified queue this
// re-pairs the whole tail. Responds with the refreshed record list since
// a reject can touch many records.
func (h *Handler) HandleRejectPairing(c echo.Context) error {
	id := c.Param("id")
	if _, ok := h.history.Get(id); !ok {
		return NewNotFoundError("record", id)
	}
	if err := h.history.RejectPairing(c.Request().Context(), id); err != nil {
		return NewInternalError("failed to reject pairing", err)
	}
	return c.JSON(http.StatusOK, h.history.Entries())
}

// HandleRemoveDocument deletes one side of a pair.
func (h *Handler) HandleRemoveDocument(c echo.Context) error {
	id := c.Param("id")
	slot := models.DocumentSlot(c.Param("slot"))
	if !slot.Valid() {
		return NewValidationError("slot")
	}
	if _, ok := h.history.Get(id); !ok {
		return NewNotFoundError("record", id)
	}
	if err := h.history.RemoveDocument(c.Request().Context(), id, slot); err != nil {
		return NewInternalError("failed to remove document", err)
	}
	return c.JSON(http.StatusOK, h.history.Entries())
}

// HandleRotateDocument applies a quarter-turn to one document.
func (h *Handler) HandleRotateDocument(c echo.Context) error {
	id := c.Param("id")
	slot := models.DocumentSlot(c.Param("slot"))
	if !slot.Valid() {
		return NewValidationError("slot")
	}
	var req struct {
		Degrees int `json:"degrees"`
	}
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Degrees%90 != 0 {
		return NewValidationError("degrees")
	}

	saved, err := h.history.RotateDocument(c.Request().Context(), id, slot, req.Degrees)
	if err != nil {
		return NewInternalError("failed to rotate document", err)
	}
	if saved == nil {
		return NewNotFoundError("record", id)
	}
	return c.JSON(http.StatusOK, saved)
}

// HandleRenameDocument changes the display name of one document.
func (h *Handler) HandleRenameDocument(c echo.Context) error {
	id := c.Param("id")
	slot := models.DocumentSlot(c.Param("slot"))
	if !slot.Valid() {
		return NewValidationError("slot")
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Name == "" {
		return NewValidationError("name")
	}

	saved, err := h.history.RenameDocument(c.Request().Context(), id, slot, req.Name)
	if err != nil {
		return NewInternalError("failed to rename document", err)
	}
	if saved == nil {
		return NewNotFoundError("record", id)
	}
	return c.JSON(http.StatusOK, saved)
}

// HandleManualPair pairs two singleton records; the result skips the
// verification queue because the user chose the slots deliberately.
func (h *Handler) HandleManualPair(c echo.Context) error {
	var req struct {
		DeclarationID string `json:"declarationId"`
		FreightID     string `json:"freightId"`
	}
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.DeclarationID == "" || req.FreightID == "" {
		return NewBadRequestError("declarationId and freightId are required", nil)
	}

	record, err := h.history.CreateManualPair(c.Request().Context(), req.DeclarationID, req.FreightID)
	if err != nil {
		return NewInternalError("failed to create pair", err)
	}
	if record == nil {
		return NewConflictError("both records must exist and hold a document")
	}
	return c.JSON(http.StatusCreated, record)
}

// HandleAutoPair pairs all remaining singletons by filename order.
func (h *Handler) HandleAutoPair(c echo.Context) error {
	created, err := h.history.AutoPairRemaining(c.Request().Context())
	if err != nil {
		return NewInternalError("failed to auto-pair", err)
	}
	fmt.Printf("[API] AutoPair: created %d pairs\n", len(created))
	return c.JSON(http.StatusOK, map[string]interface{}{
		"created": created,
		"records": h.history.Entries(),
	})
}

// HandleDeleteRecord removes one record entirely.
func (h *Handler) HandleDeleteRecord(c echo.Context) error {
	id := c.Param("id")
	if _, ok := h.history.Get(id); !ok {
		return NewNotFoundError("record", id)
	}
	if err := h.history.Delete(c.Request().Context(), id); err != nil {
		return NewInternalError("failed to delete record", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleBulkDelete removes a set of records.
func (h *Handler) HandleBulkDelete(c echo.Context) error {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if len(req.IDs) == 0 {
		return NewBadRequestError("ids is required", nil)
	}
	if err := h.history.DeleteMany(c.Request().Context(), req.IDs); err != nil {
		return NewInternalError("failed to delete records", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleClearHistory wipes the whole history. Disabled via config for
// shared deployments.
func (h *Handler) HandleClearHistory(c echo.Context) error {
	if !h.allowClear {
		return &APIError{
			Status:  http.StatusForbidden,
			Code:    "FORBIDDEN",
			Message: "history clearing is disabled by configuration",
		}
	}
	if err := h.history.Clear(c.Request().Context()); err != nil {
		return NewInternalError("failed to clear history", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleGetFields returns the field catalogue the data-entry form
// renders: ordered keys per document kind plus the seeded defaults.
func (h *Handler) HandleGetFields(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"declaration": h.catalogue.Declaration,
		"freight":     h.catalogue.Freight,
		"keys":        h.catalogue.Keys(),
	})
}
