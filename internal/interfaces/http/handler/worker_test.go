package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	invoicingapp "github.com/portal/backend/internal/application/invoicing"
	"github.com/portal/backend/internal/domain/invoicing"
	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/infrastructure/storage"
)

const testWorkerSecret = "worker-secret"

func setupWorkerRouter(secret string) (*gin.Engine, *mockInvoiceRepo) {
	invoices := new(mockInvoiceRepo)
	svc := invoicingapp.NewWorkerService(
		invoices,
		new(mockReceptionRepo),
		new(mockSupplierRepo),
		storage.NewMemoryDocumentStore(),
		nil,
		nil,
		invoicingapp.WorkerConfig{SecretKey: secret},
		nil,
	)
	r := gin.New()
	r.POST("/workers/reconcile", NewWorkerHandler(svc).Reconcile)
	return r, invoices
}

func decodeWorker(t *testing.T, w *httptest.ResponseRecorder) WorkerResponse {
	t.Helper()
	var resp WorkerResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestWorkerHandler_Unauthorized(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		headers map[string]string
	}{
		{"no credential", testWorkerSecret, nil},
		{"wrong credential", testWorkerSecret, map[string]string{HeaderWorkerKey: "nope"}},
		{"secret not configured", "", map[string]string{HeaderWorkerKey: "anything"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, invoices := setupWorkerRouter(tt.secret)
			req := httptest.NewRequest(http.MethodPost, "/workers/reconcile", strings.NewReader(`{"Records":[]}`))
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			resp := decodeWorker(t, w)
			assert.False(t, resp.Success)
			assert.Equal(t, "Unauthorized Worker Execution", resp.Message)
			invoices.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
		})
	}
}

func TestWorkerHandler_ProcessesBatch(t *testing.T) {
	r, invoices := setupWorkerRouter(testWorkerSecret)
	missing := uuid.New()
	invoices.On("FindByID", mock.Anything, missing).Return(nil, shared.ErrNotFound)
	invoices.On("UpdateSyncStatus", mock.Anything, missing, invoicing.SyncStatusFailed, mock.Anything).Return(nil)

	body := `{"Records":[
		{"body": "{\"invoiceId\":\"not-a-uuid\"}"},
		{"body": {"invoiceId": "` + missing.String() + `"}}
	]}`
	req := httptest.NewRequest(http.MethodPost, "/workers/reconcile", strings.NewReader(body))
	req.Header.Set(HeaderSQSSignature, testWorkerSecret)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeWorker(t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, "Processed 2 records.", resp.Message)
	require.NotNil(t, resp.Report)
	assert.Equal(t, 1, resp.Report.Skipped)
	assert.Equal(t, 1, resp.Report.Failed)
	invoices.AssertExpectations(t)
}

func TestWorkerHandler_NonEnvelopePayloads(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantSkip   int
	}{
		{"json array is one skipped record", `[1,2,3]`, http.StatusOK, 1},
		{"json scalar is one skipped record", `"hello"`, http.StatusOK, 1},
		{"unparseable body is redelivered", `{"Records":[`, http.StatusInternalServerError, 0},
		{"empty body is redelivered", ``, http.StatusInternalServerError, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := setupWorkerRouter(testWorkerSecret)
			req := httptest.NewRequest(http.MethodPost, "/workers/reconcile", strings.NewReader(tt.body))
			req.Header.Set(HeaderWorkerKey, testWorkerSecret)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeWorker(t, w)
			if tt.wantStatus == http.StatusOK {
				require.NotNil(t, resp.Report)
				assert.Equal(t, tt.wantSkip, resp.Report.Skipped)
				return
			}
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestWorkerHandler_InfrastructureFailure(t *testing.T) {
	r, invoices := setupWorkerRouter(testWorkerSecret)
	id := uuid.New()
	invoices.On("FindByID", mock.Anything, id).Return(nil, shared.ErrDatabase)

	req := httptest.NewRequest(http.MethodPost, "/workers/reconcile", strings.NewReader(`{"invoiceId":"`+id.String()+`"}`))
	req.Header.Set(HeaderWorkerKey, testWorkerSecret)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeWorker(t, w)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}
