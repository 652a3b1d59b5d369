package openpayments

import (
	"encoding/json"
	"strings"

	"smartwallet-gateway/internal/core/domain"
)

// GNAP grant request body.
type grantRequestBody struct {
	AccessToken accessTokenRequest `json:"access_token"`
	Client      string             `json:"client"`
	Interact    *interactRequest   `json:"interact,omitempty"`
}

type accessTokenRequest struct {
	Access []domain.AccessRequest `json:"access"`
}

type interactRequest struct {
	Start  []string        `json:"start"`
	Finish *interactFinish `json:"finish,omitempty"`
}

type interactFinish struct {
	Method string `json:"method"`
	URI    string `json:"uri"`
	Nonce  string `json:"nonce"`
}

type continueRequestBody struct {
	InteractRef string `json:"interact_ref,omitempty"`
}

// GNAP grant response body, finalized or pending.
type grantResponseBody struct {
	AccessToken *struct {
		Value     string `json:"value"`
		Manage    string `json:"manage"`
		ExpiresIn int    `json:"expires_in"`
	} `json:"access_token"`
	Continue *struct {
		AccessToken struct {
			Value string `json:"value"`
		} `json:"access_token"`
		URI  string `json:"uri"`
		Wait int    `json:"wait"`
	} `json:"continue"`
	Interact *struct {
		Redirect string `json:"redirect"`
		Finish   string `json:"finish"`
	} `json:"interact"`
}

func (b grantResponseBody) toDomain() *domain.Grant {
	g := &domain.Grant{}
	if b.AccessToken != nil {
		g.AccessToken = b.AccessToken.Value
		g.ManageURI = b.AccessToken.Manage
		g.ExpiresIn = b.AccessToken.ExpiresIn
	}
	if b.Continue != nil {
		g.ContinueURI = b.Continue.URI
		g.ContinueToken = b.Continue.AccessToken.Value
		g.ContinueWait = b.Continue.Wait
	}
	if b.Interact != nil {
		g.InteractRedirect = b.Interact.Redirect
		g.InteractFinish = b.Interact.Finish
	}
	return g
}

type incomingPaymentBody struct {
	WalletAddress  string         `json:"walletAddress"`
	IncomingAmount *domain.Amount `json:"incomingAmount,omitempty"`
	ExpiresAt      string         `json:"expiresAt,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

type quoteBody struct {
	WalletAddress string `json:"walletAddress"`
	Receiver      string `json:"receiver"`
	Method        string `json:"method"`
}

type outgoingPaymentBody struct {
	WalletAddress string         `json:"walletAddress"`
	QuoteID       string         `json:"quoteId"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// errorBody covers both error shapes seen from Open Payments servers:
// GNAP {"error":{"code","description"}} and resource {"message"} or
// {"error":"code","error_description":"..."}.
type errorBody struct {
	Error            json.RawMessage `json:"error"`
	ErrorDescription string          `json:"error_description"`
	Message          string          `json:"message"`
}

func parseErrorBody(raw []byte) (code, message string) {
	var b errorBody
	if err := json.Unmarshal(raw, &b); err != nil {
		return "", strings.TrimSpace(string(raw))
	}

	var nested struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	}
	if len(b.Error) > 0 && json.Unmarshal(b.Error, &nested) == nil && nested.Code != "" {
		return nested.Code, firstNonEmpty(nested.Description, b.Message, nested.Code)
	}

	var flat string
	if len(b.Error) > 0 && json.Unmarshal(b.Error, &flat) == nil {
		return flat, firstNonEmpty(b.ErrorDescription, b.Message, flat)
	}
	return "", b.Message
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
