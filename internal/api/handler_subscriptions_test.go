package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSubscriptionRouter(t *testing.T) *gin.Engine {
	r := gin.New()
	handler := NewHandler(newTestStore(t), nil, &webpush.Options{VAPIDPublicKey: "pub"})
	r.GET("/api/subscriptions", handler.GetSubscription)
	r.PUT("/api/subscriptions", handler.PutSubscription)
	r.DELETE("/api/subscriptions", handler.DeleteSubscription)
	r.GET("/api/vapid_public_key", handler.GetVAPIDPublicKey)
	return r
}

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req, _ = http.NewRequest(method, target, nil)
	} else {
		req, _ = http.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	r.ServeHTTP(w, req)
	return w
}

func TestPutSubscription(t *testing.T) {
	router := setupSubscriptionRouter(t)

	w := serve(router, http.MethodPut, "/api/subscriptions", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())

	w = serve(router, http.MethodPut, "/api/subscriptions", `{"endpoint":"https://push.example/a?x=1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscriptionLifecycle(t *testing.T) {
	router := setupSubscriptionRouter(t)
	endpoint := "https://push.example/a?x=1"
	query := "/api/subscriptions?endpoint=" + endpoint

	w := serve(router, http.MethodGet, query, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(router, http.MethodPut, "/api/subscriptions", `{"endpoint":"`+endpoint+`","p256dh":"k","auth":"a"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	// The endpoint is matched without URL decoding.
	w = serve(router, http.MethodGet, query, "")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, endpoint, body["endpoint"])

	w = serve(router, http.MethodGet, "/api/subscriptions?endpoint="+url.QueryEscape(endpoint), "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(router, http.MethodDelete, "/api/subscriptions", `{"endpoint":"`+endpoint+`"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(router, http.MethodGet, query, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(router, http.MethodGet, "/api/subscriptions", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetVAPIDPublicKey(t *testing.T) {
	w := serve(setupSubscriptionRouter(t), http.MethodGet, "/api/vapid_public_key", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"pub"}`, w.Body.String())

	r := gin.New()
	r.GET("/k", NewHandler(nil, nil, nil).GetVAPIDPublicKey)
	w = serve(r, http.MethodGet, "/k", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
