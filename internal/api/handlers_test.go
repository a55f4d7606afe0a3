package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customs-pairing/backend/internal/export"
	"github.com/customs-pairing/backend/internal/fields"
	"github.com/customs-pairing/backend/internal/history"
	"github.com/customs-pairing/backend/internal/ingest"
	"github.com/customs-pairing/backend/internal/models"
	"github.com/customs-pairing/backend/internal/pairing"
	"github.com/customs-pairing/backend/internal/review"
	"github.com/customs-pairing/backend/internal/testutil"
)

type testEnv struct {
	e       *echo.Echo
	handler *Handler
	history *history.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cat := fields.Default()
	mgr := history.NewManager(testutil.NewMockStore(), cat, pairing.Options{Locale: "tr"})
	require.NoError(t, mgr.Load(context.Background()))

	h := NewHandler(mgr, review.NewSession(mgr), ingest.New(), export.New(cat, "tr"), cat, true)
	return &testEnv{e: echo.New(), handler: h, history: mgr}
}

func (env *testEnv) request(method, target string, body interface{}) (echo.Context, *httptest.ResponseRecorder) {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return env.e.NewContext(req, rec), rec
}

func (env *testEnv) seedPairs(t *testing.T, names ...string) []*models.PairRecord {
	t.Helper()
	docs := make([]*models.DocumentInfo, len(names))
	for i, n := range names {
		docs[i] = testutil.Doc(n)
	}
	created, err := env.history.CreateFromUpload(context.Background(), docs)
	require.NoError(t, err)
	return created
}

func TestHandleUploadDocumentsBase64(t *testing.T) {
	env := newTestEnv(t)

	payload := map[string]interface{}{
		"files": []map[string]string{
			{"name": "scan_01.png", "contentType": "image/png", "data": base64.StdEncoding.EncodeToString([]byte("fake-png"))},
			{"name": "scan_02.png", "contentType": "image/png", "data": base64.StdEncoding.EncodeToString([]byte("fake-png"))},
		},
	}
	c, rec := env.request(http.MethodPost, "/api/documents/upload/base64", payload)

	require.NoError(t, env.handler.HandleUploadDocumentsBase64(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Records []*models.PairRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "scan_01.png", resp.Records[0].Declaration.FileName)
	assert.Equal(t, "scan_02.png", resp.Records[0].Freight.FileName)

	t.Run("missing files is rejected", func(t *testing.T) {
		c, _ := env.request(http.MethodPost, "/api/documents/upload/base64", map[string]interface{}{})
		err := env.handler.HandleUploadDocumentsBase64(c)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	})

	t.Run("invalid base64 is rejected", func(t *testing.T) {
		c, _ := env.request(http.MethodPost, "/api/documents/upload/base64", map[string]interface{}{
			"files": []map[string]string{{"name": "x.png", "data": "!!not-base64!!"}},
		})
		err := env.handler.HandleUploadDocumentsBase64(c)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	})
}

func TestHandleUploadDocumentsMultipart(t *testing.T) {
	env := newTestEnv(t)

	var body bytes.Buffer
	writer := newMultipart(t, &body, map[string][]byte{
		"scan_01.png": []byte("fake"),
		"scan_02.png": []byte("fake"),
	})

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &body)
	req.Header.Set(echo.HeaderContentType, writer)
	rec := httptest.NewRecorder()
	c := env.e.NewContext(req, rec)

	require.NoError(t, env.handler.HandleUploadDocuments(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, env.history.Entries(), 1)
}

func TestHandleRecords(t *testing.T) {
	env := newTestEnv(t)
	created := env.seedPairs(t, "a.png", "b.png", "c.png")

	t.Run("list", func(t *testing.T) {
		c, rec := env.request(http.MethodGet, "/api/records", nil)
		require.NoError(t, env.handler.HandleListRecords(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var records []*models.PairRecord
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
		assert.Len(t, records, 2)
	})

	t.Run("get by id", func(t *testing.T) {
		c, rec := env.request(http.MethodGet, "/", nil)
		c.SetParamNames("id")
		c.SetParamValues(created[0].ID)
		require.NoError(t, env.handler.HandleGetRecord(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("get unknown id", func(t *testing.T) {
		c, _ := env.request(http.MethodGet, "/", nil)
		c.SetParamNames("id")
		c.SetParamValues("missing")
		err := env.handler.HandleGetRecord(c)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.Status)
	})

	t.Run("queue", func(t *testing.T) {
		c, rec := env.request(http.MethodGet, "/api/records/queue", nil)
		require.NoError(t, env.handler.HandleGetQueue(c))

		var queue []*models.PairRecord
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &queue))
		assert.Len(t, queue, 1)
	})

	t.Run("update data field", func(t *testing.T) {
		record, _ := env.history.Get(created[0].ID)
		record.Data["Alıcı"] = "ACME Lojistik"

		c, rec := env.request(http.MethodPut, "/", record)
		c.SetParamNames("id")
		c.SetParamValues(record.ID)
		require.NoError(t, env.handler.HandleUpdateRecord(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		got, _ := env.history.Get(record.ID)
		assert.Equal(t, "ACME Lojistik", got.Data["Alıcı"])
	})

	t.Run("update without documents is rejected", func(t *testing.T) {
		record, _ := env.history.Get(created[0].ID)
		record.Declaration = nil
		record.Freight = nil

		c, _ := env.request(http.MethodPut, "/", record)
		c.SetParamNames("id")
		c.SetParamValues(record.ID)
		err := env.handler.HandleUpdateRecord(c)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)

		got, _ := env.history.Get(record.ID)
		assert.Equal(t, 2, got.DocumentCount(), "invalid shape must not be persisted")
	})
}

func TestHandlePairingActions(t *testing.T) {
	env := newTestEnv(t)
	created := env.seedPairs(t, "scan_01.png", "scan_02.png", "scan_03.png", "scan_04.png")

	t.Run("confirm", func(t *testing.T) {
		c, rec := env.request(http.MethodPost, "/", nil)
		c.SetParamNames("id")
		c.SetParamValues(created[0].ID)
		require.NoError(t, env.handler.HandleConfirmPairing(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		got, _ := env.history.Get(created[0].ID)
		assert.Equal(t, models.PairingVerified, got.PairingVerified)
	})

	t.Run("reject returns the refreshed record list", func(t *testing.T) {
		c, rec := env.request(http.MethodPost, "/", nil)
		c.SetParamNames("id")
		c.SetParamValues(created[1].ID)
		require.NoError(t, env.handler.HandleRejectPairing(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var records []*models.PairRecord
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
		// The verified pair plus two singletons from the broken pair.
		assert.Len(t, records, 3)
	})

	t.Run("invalid slot is rejected", func(t *testing.T) {
		c, _ := env.request(http.MethodPost, "/", nil)
		c.SetParamNames("id", "slot")
		c.SetParamValues(created[0].ID, "sideways")
		err := env.handler.HandleRemoveDocument(c)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	})

	t.Run("manual pair", func(t *testing.T) {
		var declID, freightID string
		for _, r := range env.history.Entries() {
			if r.IsSingleton() {
				if declID == "" {
					declID = r.ID
				} else {
					freightID = r.ID
				}
			}
		}
		require.NotEmpty(t, declID)
		require.NotEmpty(t, freightID)

		c, rec := env.request(http.MethodPost, "/api/records/pair", map[string]string{
			"declarationId": declID,
			"freightId":     freightID,
		})
		require.NoError(t, env.handler.HandleManualPair(c))
		assert.Equal(t, http.StatusCreated, rec.Code)

		var record models.PairRecord
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
		assert.Equal(t, models.PairingVerified, record.PairingVerified)
	})

	t.Run("rotate", func(t *testing.T) {
		c, rec := env.request(http.MethodPost, "/", map[string]int{"degrees": 90})
		c.SetParamNames("id", "slot")
		c.SetParamValues(created[0].ID, "declaration")
		require.NoError(t, env.handler.HandleRotateDocument(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		got, _ := env.history.Get(created[0].ID)
		assert.Equal(t, 90, got.Declaration.Rotation)
	})

	t.Run("rotate rejects non-quarter turns", func(t *testing.T) {
		c, _ := env.request(http.MethodPost, "/", map[string]int{"degrees": 45})
		c.SetParamNames("id", "slot")
		c.SetParamValues(created[0].ID, "declaration")
		err := env.handler.HandleRotateDocument(c)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	})
}

func TestHandleAutoPair(t *testing.T) {
	env := newTestEnv(t)
	env.seedPairs(t, "a.png")
	env.seedPairs(t, "b.png")

	c, rec := env.request(http.MethodPost, "/api/records/autopair", nil)
	require.NoError(t, env.handler.HandleAutoPair(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Created []*models.PairRecord `json:"created"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Created, 1)
}

func TestHandleClearHistory(t *testing.T) {
	t.Run("clears when allowed", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedPairs(t, "a.png", "b.png")

		c, rec := env.request(http.MethodDelete, "/api/records", nil)
		require.NoError(t, env.handler.HandleClearHistory(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, env.history.Entries())
	})

	t.Run("forbidden when disabled", func(t *testing.T) {
		env := newTestEnv(t)
		env.handler.allowClear = false

		c, _ := env.request(http.MethodDelete, "/api/records", nil)
		err := env.handler.HandleClearHistory(c)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.Status)
	})
}

func TestHandleExportXLSX(t *testing.T) {
	env := newTestEnv(t)
	env.seedPairs(t, "a.png", "b.png")

	c, rec := env.request(http.MethodGet, "/api/export/xlsx", nil)
	require.NoError(t, env.handler.HandleExportXLSX(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "Filtrelenmis_Rapor_")
	assert.NotEmpty(t, rec.Body.Bytes())
}

func TestHandleGetFields(t *testing.T) {
	env := newTestEnv(t)

	c, rec := env.request(http.MethodGet, "/api/fields", nil)
	require.NoError(t, env.handler.HandleGetFields(c))

	var resp struct {
		Declaration []string `json:"declaration"`
		Freight     []string `json:"freight"`
		Keys        []string `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Alıcı", resp.Declaration[0])
	assert.Equal(t, "D.Ö.", resp.Freight[0])
	assert.Len(t, resp.Keys, len(resp.Declaration)+len(resp.Freight))
}

func TestHandleReviewFlow(t *testing.T) {
	env := newTestEnv(t)
	created := env.seedPairs(t, "a.png", "b.png", "c.png", "d.png")

	c, rec := env.request(http.MethodPost, "/api/review/open", map[string]string{
		"context":  "analysis",
		"recordId": created[0].ID,
	})
	require.NoError(t, env.handler.HandleReviewOpen(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = env.request(http.MethodPost, "/api/review/confirm", nil)
	require.NoError(t, env.handler.HandleReviewConfirm(c))

	var outcome review.Outcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	require.NotNil(t, outcome.Record)
	assert.Equal(t, created[1].ID, outcome.Record.ID)

	t.Run("invalid context is rejected", func(t *testing.T) {
		c, _ := env.request(http.MethodPost, "/api/review/open", map[string]string{"context": "other"})
		err := env.handler.HandleReviewOpen(c)
		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	})
}

// newMultipart writes a files[] form and returns the content type.
func newMultipart(t *testing.T, buf *bytes.Buffer, files map[string][]byte) string {
	t.Helper()
	boundary := "testboundary"
	for name, data := range files {
		fmt.Fprintf(buf, "--%s\r\n", boundary)
		fmt.Fprintf(buf, "Content-Disposition: form-data; name=\"files\"; filename=\"%s\"\r\n", name)
		fmt.Fprintf(buf, "Content-Type: image/png\r\n\r\n")
		buf.Write(data)
		fmt.Fprintf(buf, "\r\n")
	}
	fmt.Fprintf(buf, "--%s--\r\n", boundary)
	return "multipart/form-data; boundary=" + boundary
}
