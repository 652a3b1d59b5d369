package openpayments

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"smartwallet-gateway/internal/adapter/metrics"
	"smartwallet-gateway/internal/core/domain"
	"smartwallet-gateway/internal/core/ports"
	"smartwallet-gateway/pkg/apperror"

	"github.com/rs/zerolog"
)

// Operation names used for metrics and logs.
const (
	opResolveWallet   = "resolve_wallet"
	opRequestGrant    = "request_grant"
	opContinueGrant   = "continue_grant"
	opIncomingPayment = "create_incoming_payment"
	opQuote           = "create_quote"
	opOutgoingPayment = "create_outgoing_payment"
)

// maxResponseBytes caps how much of an upstream body is read.
const maxResponseBytes = 1 << 20

// GNAP error codes that mean "ask again later" on a continuation.
var notReadyCodes = map[string]bool{
	"too_fast":       true,
	"pending":        true,
	"request_denied": true,
}

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures a Client.
type Options struct {
	// WalletAddressURL identifies the client to authorization servers.
	WalletAddressURL string
	KeyID            string
	PrivateKeyPEM    []byte
	// FinishURI, when set, asks authorization servers to redirect the user
	// there once an interactive grant is approved.
	FinishURI  string
	HTTPClient HTTPClient
	Metrics    *metrics.Recorder
	Logger     zerolog.Logger
}

// Client implements ports.PaymentClient over the Open Payments HTTP API.
type Client struct {
	walletAddressURL string
	finishURI        string
	signer           *Signer
	httpClient       HTTPClient
	metrics          *metrics.Recorder
	log              zerolog.Logger
}

// New builds a client from a signing identity. The key is parsed once here.
func New(opts Options) (*Client, error) {
	walletURL := domain.NormalizeWalletURL(opts.WalletAddressURL)
	if walletURL == "" {
		return nil, fmt.Errorf("open payments: invalid client wallet address %q", opts.WalletAddressURL)
	}
	if opts.KeyID == "" {
		return nil, fmt.Errorf("open payments: key id is required")
	}
	key, err := ParsePrivateKey(opts.PrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("open payments: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		walletAddressURL: walletURL,
		finishURI:        opts.FinishURI,
		signer:           NewSigner(opts.KeyID, key),
		httpClient:       httpClient,
		metrics:          opts.Metrics,
		log:              opts.Logger,
	}, nil
}

var _ ports.PaymentClient = (*Client)(nil)

// ResolveWallet fetches the public wallet address document. Any failure is a
// resolution error.
func (c *Client) ResolveWallet(ctx context.Context, walletURL string) (*domain.WalletAddress, error) {
	target := domain.NormalizeWalletURL(walletURL)
	if target == "" {
		return nil, apperror.ErrResolution(walletURL, errors.New("malformed wallet address"))
	}

	var wallet domain.WalletAddress
	if err := c.do(ctx, opResolveWallet, http.MethodGet, target, "", nil, false, &wallet); err != nil {
		return nil, apperror.ErrResolution(target, err)
	}
	if wallet.AuthServer == "" || wallet.ResourceServer == "" {
		return nil, apperror.ErrResolution(target, errors.New("wallet address document lacks server URLs"))
	}
	if wallet.ID == "" {
		wallet.ID = target
	}
	return &wallet, nil
}

// RequestGrant asks an authorization server for an access token. The grant
// comes back finalized or pending depending on the request and the server.
func (c *Client) RequestGrant(ctx context.Context, authServer string, req domain.GrantRequest) (*domain.Grant, error) {
	body := grantRequestBody{
		AccessToken: accessTokenRequest{Access: req.Access},
		Client:      c.walletAddressURL,
	}
	if req.Interactive {
		body.Interact = &interactRequest{Start: []string{"redirect"}}
		finishURI := firstNonEmpty(req.FinishURI, c.finishURI)
		if finishURI != "" {
			nonce := req.FinishNonce
			if nonce == "" {
				nonce = newNonce()
			}
			body.Interact.Finish = &interactFinish{Method: "redirect", URI: finishURI, Nonce: nonce}
		}
	}

	var resp grantResponseBody
	if err := c.do(ctx, opRequestGrant, http.MethodPost, authServer, "", body, true, &resp); err != nil {
		return nil, err
	}
	grant := resp.toDomain()
	if !grant.IsFinalized() && !grant.IsPending() {
		return nil, apperror.ErrAdapter(0, "grant response carries neither access token nor continuation", nil)
	}
	return grant, nil
}

// ContinueGrant resumes a pending grant. Until the user approves, the
// authorization server answers with a not-ready error or a grant without an
// access token; both become GRANT_002.
func (c *Client) ContinueGrant(ctx context.Context, continueURI, continueToken, interactRef string) (*domain.Grant, error) {
	if continueURI == "" || continueToken == "" {
		return nil, apperror.ErrAdapter(0, "continuation uri and token are required", nil)
	}

	body := continueRequestBody{InteractRef: interactRef}
	var resp grantResponseBody
	err := c.do(ctx, opContinueGrant, http.MethodPost, continueURI, continueToken, body, true, &resp)
	if err != nil {
		var upstream *upstreamError
		if errors.As(err, &upstream) && notReadyCodes[upstream.code] {
			return nil, apperror.ErrGrantNotReady(err)
		}
		return nil, err
	}

	grant := resp.toDomain()
	if !grant.IsFinalized() {
		return nil, apperror.ErrGrantNotReady(errors.New("continuation answered without access token"))
	}
	return grant, nil
}

// CreateIncomingPayment creates an incoming payment on the receiver's
// resource server.
func (c *Client) CreateIncomingPayment(ctx context.Context, resourceServer, accessToken string, spec domain.IncomingPaymentSpec) (*domain.IncomingPayment, error) {
	body := incomingPaymentBody{
		WalletAddress: spec.WalletAddress,
		Metadata:      spec.Metadata,
	}
	if spec.IncomingAmount.Value != "" {
		amount := spec.IncomingAmount
		body.IncomingAmount = &amount
	}
	if spec.ExpiresAt != nil {
		body.ExpiresAt = spec.ExpiresAt.UTC().Format(time.RFC3339)
	}

	var payment domain.IncomingPayment
	if err := c.do(ctx, opIncomingPayment, http.MethodPost, resourceURL(resourceServer, "incoming-payments"), accessToken, body, true, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// CreateQuote prices a payment from the sender wallet to an incoming payment.
func (c *Client) CreateQuote(ctx context.Context, resourceServer, accessToken string, spec domain.QuoteSpec) (*domain.Quote, error) {
	method := spec.Method
	if method == "" {
		method = domain.PaymentMethodILP
	}
	body := quoteBody{WalletAddress: spec.WalletAddress, Receiver: spec.Receiver, Method: method}

	var quote domain.Quote
	if err := c.do(ctx, opQuote, http.MethodPost, resourceURL(resourceServer, "quotes"), accessToken, body, true, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// CreateOutgoingPayment executes a quote from the sender wallet.
func (c *Client) CreateOutgoingPayment(ctx context.Context, resourceServer, accessToken string, spec domain.OutgoingPaymentSpec) (*domain.OutgoingPayment, error) {
	body := outgoingPaymentBody{WalletAddress: spec.WalletAddress, QuoteID: spec.QuoteID, Metadata: spec.Metadata}

	var payment domain.OutgoingPayment
	if err := c.do(ctx, opOutgoingPayment, http.MethodPost, resourceURL(resourceServer, "outgoing-payments"), accessToken, body, true, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// upstreamError is the decoded error answer of an Open Payments server.
type upstreamError struct {
	status  int
	code    string
	message string
}

func (e *upstreamError) Error() string {
	if e.code != "" {
		return fmt.Sprintf("upstream %d %s: %s", e.status, e.code, e.message)
	}
	return fmt.Sprintf("upstream %d: %s", e.status, e.message)
}

// do sends one request and decodes a 2xx JSON answer into out. Non-2xx
// answers and transport failures are returned as OP_001 errors.
func (c *Client) do(ctx context.Context, op, method, url, token string, payload any, sign bool, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return apperror.ErrAdapter(0, "encoding request", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return apperror.ErrAdapter(0, "building request", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "GNAP "+token)
	}
	if sign {
		if err := c.signer.Sign(req); err != nil {
			return apperror.ErrAdapter(0, "signing request", err)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.Upstream(op, 0, time.Since(start))
		c.log.Warn().Err(err).Str("op", op).Str("url", url).Msg("open payments: request failed")
		return apperror.ErrAdapter(0, "open payments server unreachable", err)
	}
	defer resp.Body.Close()
	c.metrics.Upstream(op, resp.StatusCode, time.Since(start))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apperror.ErrAdapter(resp.StatusCode, "reading response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		code, message := parseErrorBody(raw)
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		c.log.Debug().Str("op", op).Int("status", resp.StatusCode).Str("code", code).Msg("open payments: error response")
		return apperror.ErrAdapter(resp.StatusCode, message, &upstreamError{status: resp.StatusCode, code: code, message: message})
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperror.ErrAdapter(resp.StatusCode, "decoding response", err)
	}
	return nil
}

func resourceURL(server, collection string) string {
	return strings.TrimSuffix(server, "/") + "/" + collection
}

func newNonce() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
