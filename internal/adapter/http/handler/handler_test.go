package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"smartwallet-gateway/internal/core/domain"
	"smartwallet-gateway/internal/core/ports"
	"smartwallet-gateway/internal/core/ports/mocks"
	"smartwallet-gateway/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	sender = &domain.WalletAddress{
		ID: "https://ilp.example/alice", AssetCode: "USD", AssetScale: 2,
		AuthServer: "https://auth.example", ResourceServer: "https://rs.example/alice",
	}
	receiver = &domain.WalletAddress{
		ID: "https://ilp.example/bob", AssetCode: "USD", AssetScale: 2,
		AuthServer: "https://auth.example", ResourceServer: "https://rs.example/bob",
	}
	incoming = &domain.IncomingPayment{
		ID:             "https://rs.example/bob/incoming-payments/ip-1",
		WalletAddress:  receiver.ID,
		IncomingAmount: &domain.Amount{Value: "1000", AssetCode: "USD", AssetScale: 2},
	}
	quote = &domain.Quote{
		ID:            "https://rs.example/alice/quotes/q-1",
		WalletAddress: sender.ID,
		Receiver:      incoming.ID,
		DebitAmount:   domain.Amount{Value: "1010", AssetCode: "USD", AssetScale: 2},
		ReceiveAmount: domain.Amount{Value: "1000", AssetCode: "USD", AssetScale: 2},
		Method:        domain.PaymentMethodILP,
	}
	outgoing = &domain.OutgoingPayment{
		ID:            "https://rs.example/alice/outgoing-payments/op-1",
		WalletAddress: sender.ID,
		QuoteID:       quote.ID,
	}
)

// serve runs a single request through a fresh engine with one route.
func serve(method, route, target string, h gin.HandlerFunc, body string) *httptest.ResponseRecorder {
	r := gin.New()
	r.Handle(method, route, h)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// --- Wallet ---

func TestGetWallet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(svc)

	svc.EXPECT().ResolveWallet(gomock.Any(), "ilp.example/alice").Return(sender, nil)

	w := serve(http.MethodGet, "/api/wallet/*walletUrl", "/api/wallet/ilp.example/alice", h.GetWallet, "")

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, true, resp["success"])
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, sender.ID, data["id"])
	assert.Equal(t, "USD", data["assetCode"])
	assert.NotEmpty(t, resp["request_id"])
}

func TestGetWallet_ResolutionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(svc)

	svc.EXPECT().ResolveWallet(gomock.Any(), "ilp.example/nobody").
		Return(nil, apperror.ErrResolution("https://ilp.example/nobody", errors.New("404")))

	w := serve(http.MethodGet, "/api/wallet/*walletUrl", "/api/wallet/ilp.example/nobody", h.GetWallet, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decode(t, w)
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, apperror.CodeResolution, resp["error_code"])
}

// --- Incoming payment ---

func TestCreateIncomingPayment_NumericAmount(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(svc)

	svc.EXPECT().CreateIncomingPayment(gomock.Any(), ports.IncomingPaymentRequest{
		ReceiverWalletURL: "https://ilp.example/bob",
		Amount:            "1000",
	}).Return(&ports.IncomingPaymentResult{IncomingPayment: incoming, WalletAddress: receiver}, nil)

	w := serve(http.MethodPost, "/api/incoming-payment", "/api/incoming-payment", h.CreateIncomingPayment,
		`{"receiverWalletUrl":" https://ilp.example/bob ","amount":1000}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, incoming.ID, data["incomingPayment"].(map[string]interface{})["id"])
	assert.Equal(t, receiver.ID, data["walletAddress"].(map[string]interface{})["id"])
}

func TestCreateIncomingPayment_ValidationRejectsBeforeService(t *testing.T) {
	bodies := []string{
		``,
		`{"receiverWalletUrl":"https://ilp.example/bob","amount":"0"}`,
		`{"receiverWalletUrl":"https://ilp.example/bob","amount":-5}`,
		`{"receiverWalletUrl":"https://ilp.example/bob","amount":"10.5"}`,
		`{"receiverWalletUrl":"https://ilp.example/bob","amount":"abc"}`,
		`{"amount":"100"}`,
		`{"receiverWalletUrl":"https://ilp.example/bob"`,
	}
	for _, body := range bodies {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockTransferService(ctrl) // no expectations
		h := NewTransferHandler(svc)

		w := serve(http.MethodPost, "/api/incoming-payment", "/api/incoming-payment", h.CreateIncomingPayment, body)

		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, apperror.CodeValidation, decode(t, w)["error_code"], body)
		ctrl.Finish()
	}
}

// --- Quote ---

func TestCreateQuote_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(svc)

	svc.EXPECT().CreateQuote(gomock.Any(), ports.QuoteRequest{
		SenderWalletURL: "$ilp.example/alice",
		Receiver:        incoming.ID,
	}).Return(&ports.QuoteResult{Quote: quote, WalletAddress: sender}, nil)

	body, _ := json.Marshal(map[string]string{
		"senderWalletUrl":    "$ilp.example/alice",
		"receiverPaymentUrl": incoming.ID,
	})
	w := serve(http.MethodPost, "/api/quote", "/api/quote", h.CreateQuote, string(body))

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	q := data["quote"].(map[string]interface{})
	assert.Equal(t, quote.ID, q["id"])
	assert.Equal(t, "ilp", q["method"])
}

func TestCreateQuote_TrimsPaddedURLs(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(svc)

	svc.EXPECT().CreateQuote(gomock.Any(), ports.QuoteRequest{
		SenderWalletURL: "$ilp.example/alice",
		Receiver:        incoming.ID,
	}).Return(&ports.QuoteResult{Quote: quote, WalletAddress: sender}, nil)

	body, _ := json.Marshal(map[string]string{
		"senderWalletUrl":    "  $ilp.example/alice",
		"receiverPaymentUrl": incoming.ID + "  ",
	})
	w := serve(http.MethodPost, "/api/quote", "/api/quote", h.CreateQuote, string(body))

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateQuote_GrantNotFinalized(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(svc)

	svc.EXPECT().CreateQuote(gomock.Any(), gomock.Any()).Return(nil, apperror.ErrGrantNotFinalized("quote"))

	w := serve(http.MethodPost, "/api/quote", "/api/quote", h.CreateQuote,
		`{"senderWalletUrl":"https://ilp.example/alice","receiverPaymentUrl":"https://rs.example/bob/incoming-payments/ip-1"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, apperror.CodeGrantNotFinalized, decode(t, w)["error_code"])
}

// --- Outgoing payment ---

func TestInitiateOutgoingPayment_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(svc)

	svc.EXPECT().InitiateOutgoingPayment(gomock.Any(), ports.OutgoingPaymentInitiation{
		SenderWalletURL: sender.ID,
		QuoteID:         quote.ID,
		DebitAmount:     quote.DebitAmount,
	}).Return(&ports.PendingAuthorization{
		GrantID:       "https://auth.example/continue/c-1",
		InteractURL:   "https://auth.example/interact/i-1",
		ContinueToken: "ct-1",
	}, nil)

	body, _ := json.Marshal(map[string]interface{}{
		"senderWalletUrl": sender.ID,
		"quoteId":         quote.ID,
		"debitAmount":     quote.DebitAmount,
	})
	w := serve(http.MethodPost, "/api/outgoing-payment/initiate", "/api/outgoing-payment/initiate",
		h.InitiateOutgoingPayment, string(body))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "https://auth.example/continue/c-1", data["grantId"])
	assert.Equal(t, "https://auth.example/interact/i-1", data["interactUrl"])
	assert.Equal(t, "ct-1", data["continueToken"])
	assert.NotEmpty(t, resp["message"])
}

func TestInitiateOutgoingPayment_MissingDebitAmount(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(svc)

	w := serve(http.MethodPost, "/api/outgoing-payment/initiate", "/api/outgoing-payment/initiate",
		h.InitiateOutgoingPayment, `{"senderWalletUrl":"https://ilp.example/alice","quoteId":"https://rs.example/q"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCompleteOutgoingPayment_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(svc)

	svc.EXPECT().CompleteOutgoingPayment(gomock.Any(), ports.OutgoingPaymentCompletion{
		SenderWalletURL: sender.ID,
		GrantID:         "https://auth.example/continue/c-1",
		ContinueToken:   "ct-1",
		QuoteID:         quote.ID,
		InteractRef:     "ref-1",
	}).Return(outgoing, nil)

	body, _ := json.Marshal(map[string]string{
		"senderWalletUrl": sender.ID,
		"grantId":         "https://auth.example/continue/c-1",
		"continueToken":   "ct-1",
		"quoteId":         quote.ID,
		"interactRef":     "ref-1",
	})
	w := serve(http.MethodPost, "/api/outgoing-payment/complete", "/api/outgoing-payment/complete",
		h.CompleteOutgoingPayment, string(body))

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, outgoing.ID, data["outgoingPayment"].(map[string]interface{})["id"])
}

func TestCompleteOutgoingPayment_NotReady(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(svc)

	svc.EXPECT().CompleteOutgoingPayment(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrGrantNotReady(errors.New("too_fast")))

	w := serve(http.MethodPost, "/api/outgoing-payment/complete", "/api/outgoing-payment/complete",
		h.CompleteOutgoingPayment,
		`{"senderWalletUrl":"https://ilp.example/alice","grantId":"https://auth.example/continue/c-1","continueToken":"ct","quoteId":"https://rs.example/q"}`)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperror.CodeGrantNotReady, decode(t, w)["error_code"])
}

func TestCompleteOutgoingPayment_AdapterError(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(svc)

	svc.EXPECT().CompleteOutgoingPayment(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrAdapter(403, "insufficient grant", nil))

	w := serve(http.MethodPost, "/api/outgoing-payment/complete", "/api/outgoing-payment/complete",
		h.CompleteOutgoingPayment,
		`{"senderWalletUrl":"https://ilp.example/alice","grantId":"https://auth.example/continue/c-1","continueToken":"ct","quoteId":"https://rs.example/q"}`)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	resp := decode(t, w)
	assert.Equal(t, apperror.CodeAdapter, resp["error_code"])
	assert.Contains(t, resp["error"], "insufficient grant")
}

// --- Transfer ---

func TestPrepareTransfer_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(svc)

	id := uuid.New()
	svc.EXPECT().PrepareTransfer(gomock.Any(), ports.TransferRequest{
		SenderWalletURL:   sender.ID,
		ReceiverWalletURL: receiver.ID,
		Amount:            "1000",
		Currency:          "USD",
	}).Return(&ports.PreparedTransfer{
		TransferID:      id,
		IncomingPayment: incoming,
		Quote:           quote,
		Authorization: ports.PendingAuthorization{
			GrantID:       "https://auth.example/continue/c-1",
			InteractURL:   "https://auth.example/interact/i-1",
			ContinueToken: "ct-1",
		},
		SenderWallet:   sender,
		ReceiverWallet: receiver,
	}, nil)

	w := serve(http.MethodPost, "/api/transfer/simple", "/api/transfer/simple", h.PrepareTransfer,
		`{"senderWalletUrl":"https://ilp.example/alice","receiverWalletUrl":"https://ilp.example/bob","amount":"1000","currency":"USD"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, id.String(), data["transferId"])
	assert.Equal(t, "https://auth.example/interact/i-1", data["authorizationUrl"])
	assert.Equal(t, "https://auth.example/continue/c-1", data["grantId"])
	assert.Equal(t, "ct-1", data["continueToken"])
	assert.NotNil(t, data["incomingPayment"])
	assert.NotNil(t, data["quote"])
	assert.NotNil(t, data["senderWallet"])
	assert.NotNil(t, data["receiverWallet"])
}

func TestPrepareTransfer_ZeroAmount(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(svc)

	w := serve(http.MethodPost, "/api/transfer/simple", "/api/transfer/simple", h.PrepareTransfer,
		`{"senderWalletUrl":"https://ilp.example/alice","receiverWalletUrl":"https://ilp.example/bob","amount":0}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTransfer(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(svc)

	id := uuid.New()
	svc.EXPECT().GetTransfer(gomock.Any(), id).Return(&domain.TransferAttempt{
		ID:               id,
		State:            domain.TransferStateAwaitingAuthorization,
		ContinueTokenEnc: "secret",
	}, nil)

	w := serve(http.MethodGet, "/api/transfer/:id", "/api/transfer/"+id.String(), h.GetTransfer, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "AWAITING_AUTHORIZATION", data["state"])
}

func TestGetTransfer_BadID(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(svc)

	w := serve(http.MethodGet, "/api/transfer/:id", "/api/transfer/not-a-uuid", h.GetTransfer, "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetTransfer_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(svc)

	id := uuid.New()
	svc.EXPECT().GetTransfer(gomock.Any(), id).Return(nil, apperror.ErrTransferNotFound())

	w := serve(http.MethodGet, "/api/transfer/:id", "/api/transfer/"+id.String(), h.GetTransfer, "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperror.CodeTransferNotFound, decode(t, w)["error_code"])
}

func TestCompleteTransfer_EmptyBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(svc)

	id := uuid.New()
	svc.EXPECT().CompleteTransfer(gomock.Any(), id, "").Return(&ports.CompletedTransfer{
		Transfer:        &domain.TransferAttempt{ID: id, State: domain.TransferStateCompleted},
		OutgoingPayment: outgoing,
	}, nil)

	w := serve(http.MethodPost, "/api/transfer/:id/complete", "/api/transfer/"+id.String()+"/complete", h.CompleteTransfer, "")

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "COMPLETED", data["transfer"].(map[string]interface{})["state"])
	assert.Equal(t, outgoing.ID, data["outgoingPayment"].(map[string]interface{})["id"])
}

func TestCompleteTransfer_WithInteractRef(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(svc)

	id := uuid.New()
	svc.EXPECT().CompleteTransfer(gomock.Any(), id, "ref-9").
		Return(nil, apperror.ErrGrantNotReady(errors.New("pending")))

	w := serve(http.MethodPost, "/api/transfer/:id/complete", "/api/transfer/"+id.String()+"/complete",
		h.CompleteTransfer, `{"interactRef":" ref-9 "}`)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCompleteTransfer_BadJSON(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockTransferService(ctrl)
	h := NewTransferHandler(svc)

	w := serve(http.MethodPost, "/api/transfer/:id/complete", "/api/transfer/"+uuid.NewString()+"/complete",
		h.CompleteTransfer, `{"interactRef":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- Health & Swagger ---

func TestHealthCheck_NoDependencies(t *testing.T) {
	w := serve(http.MethodGet, "/health", "/health", HealthCheck(), "")

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "SmartWallet API is running", resp["message"])
}

func TestHealthCheck_Degraded(t *testing.T) {
	ctrl := gomock.NewController(t)
	pg := mocks.NewMockHealthChecker(ctrl)
	pg.EXPECT().Ping(gomock.Any()).Return(errors.New("connection refused"))
	pg.EXPECT().Name().Return("postgresql").AnyTimes()

	w := serve(http.MethodGet, "/health", "/health", HealthCheck(pg), "")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "degraded", resp["status"])
	dep := resp["dependencies"].(map[string]interface{})["postgresql"].(map[string]interface{})
	assert.Equal(t, "unhealthy", dep["status"])
}

func TestSwagger(t *testing.T) {
	SetSwaggerSpec([]byte("openapi: '3.0.3'\ninfo:\n  title: Test"))
	defer SetSwaggerSpec(nil)

	w := serve(http.MethodGet, "/swagger/spec", "/swagger/spec", SwaggerSpec, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "openapi")

	w = serve(http.MethodGet, "/swagger", "/swagger", SwaggerUI, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "swagger-ui")
}

func TestSwagger_NotLoaded(t *testing.T) {
	SetSwaggerSpec(nil)
	w := serve(http.MethodGet, "/swagger/spec", "/swagger/spec", SwaggerSpec, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

