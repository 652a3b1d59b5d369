package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"smartwallet-gateway/internal/adapter/http/middleware"
	"smartwallet-gateway/internal/adapter/metrics"
	redisStore "smartwallet-gateway/internal/adapter/storage/redis"
	"smartwallet-gateway/internal/core/domain"
	"smartwallet-gateway/internal/core/ports"
	"smartwallet-gateway/internal/core/ports/mocks"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func do(r *gin.Engine, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthAndNoRoute(t *testing.T) {
	ctrl := gomock.NewController(t)
	r := SetupRouter(RouterDeps{
		TransferSvc: mocks.NewMockTransferService(ctrl),
		Mode:        gin.TestMode,
		Logger:      zerolog.Nop(),
	})

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "", nil).Code)
	w := do(r, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))

	w = do(r, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestRouter_RequiresTokenWhenConfigured(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockTransferService(ctrl)
	tokens := mocks.NewMockTokenService(ctrl)

	r := SetupRouter(RouterDeps{
		TransferSvc: svc,
		TokenSvc:    tokens,
		Mode:        gin.TestMode,
		Logger:      zerolog.Nop(),
	})

	// No token
	w := do(r, http.MethodGet, "/api/wallet/ilp.example/alice", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Health stays public
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "", nil).Code)

	tokens.EXPECT().Validate("tok").Return(&ports.TokenClaims{Subject: "cli"}, nil)
	svc.EXPECT().ResolveWallet(gomock.Any(), "ilp.example/alice").Return(sender, nil)
	w = do(r, http.MethodGet, "/api/wallet/ilp.example/alice", "", map[string]string{"Authorization": "Bearer tok"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_OpenWithoutTokenService(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockTransferService(ctrl)
	svc.EXPECT().ResolveWallet(gomock.Any(), "https://ilp.example/alice").Return(sender, nil)

	r := SetupRouter(RouterDeps{TransferSvc: svc, Mode: gin.TestMode, Logger: zerolog.Nop()})

	w := do(r, http.MethodGet, "/api/wallet/https://ilp.example/alice", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	ctrl := gomock.NewController(t)
	rec := metrics.New()

	r := SetupRouter(RouterDeps{
		TransferSvc: mocks.NewMockTransferService(ctrl),
		Metrics:     rec,
		MetricsPath: "/metrics",
		Mode:        gin.TestMode,
		Logger:      zerolog.Nop(),
	})

	do(r, http.MethodGet, "/health", "", nil)
	w := do(r, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "smartwallet_http_requests_total")
}

func TestRouter_RateLimitsTransferGroup(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockTransferService(ctrl)

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	r := SetupRouter(RouterDeps{
		TransferSvc:    svc,
		RateLimitStore: redisStore.NewRateLimitStore(client),
		RateLimitRules: map[string]middleware.RateLimitRule{
			middleware.GroupTransfer: {Limit: 1, Window: time.Minute},
		},
		Mode:   gin.TestMode,
		Logger: zerolog.Nop(),
	})

	svc.EXPECT().GetTransfer(gomock.Any(), gomock.Any()).Return(&domain.TransferAttempt{State: domain.TransferStateCompleted}, nil)

	target := "/api/transfer/6f1c2f0e-8a4b-4d7e-9d55-0e0b7a1f2c11"
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, target, "", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodGet, target, "", nil).Code)

	// Groups without a rule are not limited
	svc.EXPECT().ResolveWallet(gomock.Any(), gomock.Any()).Return(sender, nil).Times(2)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/wallet/ilp.example/alice", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/api/wallet/ilp.example/alice", "", nil).Code)
}

func TestRouter_AuditsWrites(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockTransferService(ctrl)
	audit := mocks.NewMockAuditService(ctrl)

	r := SetupRouter(RouterDeps{
		TransferSvc: svc,
		AuditSvc:    audit,
		Mode:        gin.TestMode,
		Logger:      zerolog.Nop(),
	})

	svc.EXPECT().CreateIncomingPayment(gomock.Any(), gomock.Any()).
		Return(&ports.IncomingPaymentResult{IncomingPayment: incoming, WalletAddress: receiver}, nil)

	done := make(chan *domain.AuditLog, 1)
	audit.EXPECT().Log(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, entry *domain.AuditLog) {
		done <- entry
	})

	w := do(r, http.MethodPost, "/api/incoming-payment",
		`{"receiverWalletUrl":"https://ilp.example/bob","amount":"1000"}`, nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	select {
	case entry := <-done:
		assert.Equal(t, domain.AuditActionIncomingPayment, entry.Action)
		assert.Equal(t, incoming.ID, entry.ResourceID)
	case <-time.After(time.Second):
		t.Fatal("audit not called")
	}
}
