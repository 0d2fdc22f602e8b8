package payment

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/GlideMe/commerce/internal/module/payment/gateway"
)

func newTestRouter(f *fixture) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(f.orch, zap.NewNop()).RegisterRoutes(r)
	return r
}

func TestPayEndpointSuccess(t *testing.T) {
	f := newFixture(newFakeGateway(), nil)
	ord := f.seedOrder(t, 5000)
	router := newTestRouter(f)

	body, _ := json.Marshal(map[string]any{"form": map[string]string{"number": "4242"}})
	req := httptest.NewRequest(http.MethodPost, "/api/orders/"+ord.ID.String()+"/pay", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])
	assert.NotNil(t, resp["transaction"])
}

func TestPayEndpointDeclineReturns402(t *testing.T) {
	gw := newFakeGateway()
	gw.resp = &gateway.Response{Success: false, Message: "declined"}
	f := newFixture(gw, nil)
	ord := f.seedOrder(t, 5000)
	router := newTestRouter(f)

	body, _ := json.Marshal(map[string]any{"form": map[string]string{}})
	req := httptest.NewRequest(http.MethodPost, "/api/orders/"+ord.ID.String()+"/pay", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "declined")
}

func TestPayEndpointUnknownOrder(t *testing.T) {
	f := newFixture(newFakeGateway(), nil)
	router := newTestRouter(f)

	body, _ := json.Marshal(map[string]any{"form": map[string]string{}})
	req := httptest.NewRequest(http.MethodPost, "/api/orders/00000000-0000-0000-0000-000000000001/pay", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCompleteEndpointRedirectsToReturnURL(t *testing.T) {
	f := newFixture(newFakeGateway(), nil)
	ord := f.seedOrder(t, 5000)
	tx := seedRedirectTx(t, f, ord, TypePurchase)
	router := newTestRouter(f)

	req := httptest.NewRequest(http.MethodGet, "/payments/complete?transactionId="+tx.ID.String()+"&hash="+tx.Hash, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, ord.ReturnURL, w.Header().Get("Location"))
}

func TestCompleteEndpointRendersSelfSubmitPage(t *testing.T) {
	gw := newFakeGateway()
	gw.selfSubmit = true
	f := newFixture(gw, nil)
	ord := f.seedOrder(t, 5000)
	tx := seedRedirectTx(t, f, ord, TypePurchase)
	router := newTestRouter(f)

	req := httptest.NewRequest(http.MethodPost, "/payments/complete?hash="+tx.Hash, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), ord.ReturnURL)
}

func TestCompleteEndpointMissingHash(t *testing.T) {
	f := newFixture(newFakeGateway(), nil)
	router := newTestRouter(f)

	req := httptest.NewRequest(http.MethodGet, "/payments/complete", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotifyEndpointAcknowledges(t *testing.T) {
	gw := newFakeGateway()
	gw.notify = &fakeNotificationRequest{
		result: &gateway.NotificationResult{Valid: true, Status: gateway.NotificationCompleted},
	}
	f := newFixture(gw, nil)
	ord := f.seedOrder(t, 5000)
	tx := seedRedirectTx(t, f, ord, TypePurchase)
	router := newTestRouter(f)

	req := httptest.NewRequest(http.MethodPost, "/payments/notify?hash="+tx.Hash, bytes.NewReader([]byte("payload")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "confirm:")
	assert.Equal(t, StatusSuccess, f.reloadTx(t, tx.ID).Status)
}

func TestNotifyEndpointRejectsInvalid(t *testing.T) {
	gw := newFakeGateway()
	gw.notify = &fakeNotificationRequest{
		result: &gateway.NotificationResult{Valid: false, Message: "bad signature"},
	}
	f := newFixture(gw, nil)
	ord := f.seedOrder(t, 5000)
	tx := seedRedirectTx(t, f, ord, TypePurchase)
	router := newTestRouter(f)

	req := httptest.NewRequest(http.MethodPost, "/payments/notify?hash="+tx.Hash, bytes.NewReader([]byte("payload")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "reject:")
}

func TestNotifyEndpointUnknownHash(t *testing.T) {
	f := newFixture(newFakeGateway(), nil)
	router := newTestRouter(f)

	req := httptest.NewRequest(http.MethodPost, "/payments/notify?hash=unknown", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCaptureEndpoint(t *testing.T) {
	gw := newFakeGateway()
	f := newFixture(gw, nil)
	ord := f.seedOrder(t, 5000)
	parent := seedSuccessTx(t, f, ord, TypeAuthorize)
	router := newTestRouter(f)

	req := httptest.NewRequest(http.MethodPost, "/api/transactions/"+parent.ID.String()+"/capture", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp["status"])
}

func TestRefundEndpointIneligibleParent(t *testing.T) {
	f := newFixture(newFakeGateway(), nil)
	ord := f.seedOrder(t, 5000)
	parent := seedSuccessTx(t, f, ord, TypeAuthorize)
	router := newTestRouter(f)

	req := httptest.NewRequest(http.MethodPost, "/api/transactions/"+parent.ID.String()+"/refund", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
