package handler

import (
	"errors"
	"io"
	"strings"

	"smartwallet-gateway/internal/adapter/http/dto"
	"smartwallet-gateway/internal/adapter/http/middleware"
	"smartwallet-gateway/internal/core/ports"
	"smartwallet-gateway/pkg/apperror"
	"smartwallet-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TransferHandler exposes the payment choreography over REST.
type TransferHandler struct {
	svc ports.TransferService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(svc ports.TransferService) *TransferHandler {
	return &TransferHandler{svc: svc}
}

// GetWallet handles GET /api/wallet/*walletUrl.
func (h *TransferHandler) GetWallet(c *gin.Context) {
	walletURL := strings.TrimPrefix(c.Param("walletUrl"), "/")

	wallet, err := h.svc.ResolveWallet(c.Request.Context(), walletURL)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, wallet)
}

// CreateIncomingPayment handles POST /api/incoming-payment.
func (h *TransferHandler) CreateIncomingPayment(c *gin.Context) {
	var req dto.IncomingPaymentRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.svc.CreateIncomingPayment(c.Request.Context(), ports.IncomingPaymentRequest{
		ReceiverWalletURL: req.ReceiverWalletURL,
		Amount:            string(req.Amount),
		AssetCode:         req.AssetCode,
		AssetScale:        req.AssetScale,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, result.IncomingPayment.ID)
	response.Created(c, dto.IncomingPaymentResponse{
		IncomingPayment: result.IncomingPayment,
		WalletAddress:   result.WalletAddress,
	})
}

// CreateQuote handles POST /api/quote.
func (h *TransferHandler) CreateQuote(c *gin.Context) {
	var req dto.QuoteRequest
	if !bind(c, &req) {
		return
	}

	result, err := h.svc.CreateQuote(c.Request.Context(), ports.QuoteRequest{
		SenderWalletURL: req.SenderWalletURL,
		Receiver:        req.ReceiverPaymentURL,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, result.Quote.ID)
	response.Created(c, dto.QuoteResponse{
		Quote:         result.Quote,
		WalletAddress: result.WalletAddress,
	})
}

// InitiateOutgoingPayment handles POST /api/outgoing-payment/initiate.
func (h *TransferHandler) InitiateOutgoingPayment(c *gin.Context) {
	var req dto.OutgoingPaymentInitiateRequest
	if !bind(c, &req) {
		return
	}

	pending, err := h.svc.InitiateOutgoingPayment(c.Request.Context(), ports.OutgoingPaymentInitiation{
		SenderWalletURL: req.SenderWalletURL,
		QuoteID:         req.QuoteID,
		DebitAmount:     req.DebitAmount.ToDomain(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, pending.GrantID)
	response.OKWithMessage(c, dto.OutgoingPaymentInitiateResponse{
		GrantID:       pending.GrantID,
		InteractURL:   pending.InteractURL,
		ContinueToken: pending.ContinueToken,
	}, "Open interactUrl to approve the payment, then call complete")
}

// CompleteOutgoingPayment handles POST /api/outgoing-payment/complete.
func (h *TransferHandler) CompleteOutgoingPayment(c *gin.Context) {
	var req dto.OutgoingPaymentCompleteRequest
	if !bind(c, &req) {
		return
	}

	payment, err := h.svc.CompleteOutgoingPayment(c.Request.Context(), ports.OutgoingPaymentCompletion{
		SenderWalletURL: req.SenderWalletURL,
		GrantID:         req.GrantID,
		ContinueToken:   req.ContinueToken,
		QuoteID:         req.QuoteID,
		InteractRef:     req.InteractRef,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, payment.ID)
	response.Created(c, dto.OutgoingPaymentCompleteResponse{OutgoingPayment: payment})
}

// PrepareTransfer handles POST /api/transfer/simple.
func (h *TransferHandler) PrepareTransfer(c *gin.Context) {
	var req dto.TransferRequest
	if !bind(c, &req) {
		return
	}

	prepared, err := h.svc.PrepareTransfer(c.Request.Context(), ports.TransferRequest{
		SenderWalletURL:   req.SenderWalletURL,
		ReceiverWalletURL: req.ReceiverWalletURL,
		Amount:            string(req.Amount),
		Currency:          req.Currency,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, prepared.TransferID.String())
	response.OKWithMessage(c, dto.TransferResponse{
		TransferID:       prepared.TransferID.String(),
		IncomingPayment:  prepared.IncomingPayment,
		Quote:            prepared.Quote,
		AuthorizationURL: prepared.Authorization.InteractURL,
		GrantID:          prepared.Authorization.GrantID,
		ContinueToken:    prepared.Authorization.ContinueToken,
		SenderWallet:     prepared.SenderWallet,
		ReceiverWallet:   prepared.ReceiverWallet,
	}, "Transfer prepared; the sender must approve it at authorizationUrl")
}

// GetTransfer handles GET /api/transfer/:id.
func (h *TransferHandler) GetTransfer(c *gin.Context) {
	id, ok := transferID(c)
	if !ok {
		return
	}

	attempt, err := h.svc.GetTransfer(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, attempt)
}

// CompleteTransfer handles POST /api/transfer/:id/complete. The body is
// optional.
func (h *TransferHandler) CompleteTransfer(c *gin.Context) {
	id, ok := transferID(c)
	if !ok {
		return
	}

	var req dto.TransferCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	completed, err := h.svc.CompleteTransfer(c.Request.Context(), id, req.InteractRef)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Set(middleware.CtxResourceID, id.String())
	response.OK(c, dto.TransferCompleteResponse{
		OutgoingPayment: completed.OutgoingPayment,
		Transfer:        completed.Transfer,
	})
}

// bind decodes, validates and sanitizes a JSON body, answering 400 on
// failure.
func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		if errors.Is(err, io.EOF) {
			response.Error(c, apperror.Validation("request body is required"))
		} else {
			response.Error(c, apperror.Validation(err.Error()))
		}
		return false
	}
	dto.SanitizeStruct(req)
	return true
}

func transferID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("transfer id must be a UUID"))
		return uuid.Nil, false
	}
	return id, true
}
