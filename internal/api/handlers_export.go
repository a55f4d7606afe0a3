package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/customs-pairing/backend/internal/models"
)

// HandleExportXLSX renders records as an XLSX download. With no ids the
// whole history is exported; with ids only those records. Rows come out
// in filename order either way.
func (h *Handler) HandleExportXLSX(c echo.Context) error {
	var req struct {
		IDs []string `json:"ids"`
	}
	// GET has no body; POST narrows to a selection.
	if c.Request().Method == http.MethodPost {
		if err := c.Bind(&req); err != nil {
			return NewBadRequestError("invalid request body", err)
		}
	}

	var records []*models.PairRecord
	if len(req.IDs) == 0 {
		records = h.history.Entries()
	} else {
		for _, id := range req.IDs {
			record, ok := h.history.Get(id)
			if !ok {
				return NewNotFoundError("record", id)
			}
			records = append(records, record)
		}
	}

	payload, err := h.exporter.Workbook(records)
	if err != nil {
		return NewInternalError("failed to build workbook", err)
	}

	name := h.exporter.FileName(time.Now())
	fmt.Printf("[API] Export: %d records -> %s (%d bytes)\n", len(records), name, len(payload))

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, name))
	return c.Blob(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", payload)
}
