package handler_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"smartwallet-gateway/config"
	httpHandler "smartwallet-gateway/internal/adapter/http/handler"
	"smartwallet-gateway/internal/adapter/http/middleware"
	"smartwallet-gateway/internal/adapter/metrics"
	"smartwallet-gateway/internal/adapter/openpayments"
	memStorage "smartwallet-gateway/internal/adapter/storage/memory"
	redisStorage "smartwallet-gateway/internal/adapter/storage/redis"
	"smartwallet-gateway/internal/core/ports"
	"smartwallet-gateway/internal/service"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWallets is an in-process Open Payments deployment hosting two wallets
// behind one authorization server and one resource server.
type fakeWallets struct {
	srv      *httptest.Server
	approved atomic.Bool
	seq      atomic.Int64
	requests atomic.Int64
}

func newFakeWallets(t *testing.T) *fakeWallets {
	t.Helper()
	f := &fakeWallets{}
	mux := http.NewServeMux()

	wallet := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			f.requests.Add(1)
			writeJSON(w, http.StatusOK, map[string]any{
				"id":             f.srv.URL + "/" + name,
				"publicName":     name,
				"assetCode":      "USD",
				"assetScale":     2,
				"authServer":     f.srv.URL + "/auth",
				"resourceServer": f.srv.URL + "/rs",
			})
		}
	}
	mux.HandleFunc("GET /alice", wallet("alice"))
	mux.HandleFunc("GET /bob", wallet("bob"))

	mux.HandleFunc("POST /auth", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		var body struct {
			AccessToken struct {
				Access []struct {
					Type string `json:"type"`
				} `json:"access"`
			} `json:"access_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.AccessToken.Access) == 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": map[string]string{"code": "invalid_request"}})
			return
		}
		kind := body.AccessToken.Access[0].Type
		if kind == "outgoing-payment" {
			id := f.seq.Add(1)
			writeJSON(w, http.StatusOK, map[string]any{
				"interact": map[string]string{"redirect": fmt.Sprintf("%s/interact/%d", f.srv.URL, id)},
				"continue": map[string]any{
					"access_token": map[string]string{"value": "continue-token"},
					"uri":          fmt.Sprintf("%s/auth/continue/%d", f.srv.URL, id),
					"wait":         0,
				},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": map[string]any{"value": "token-" + kind, "manage": f.srv.URL + "/auth/token/1"},
		})
	})

	mux.HandleFunc("POST /auth/continue/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		if r.Header.Get("Authorization") != "GNAP continue-token" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]string{"code": "invalid_continuation"}})
			return
		}
		if !f.approved.Load() {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": map[string]string{"code": "too_fast", "description": "continued too quickly"},
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"access_token": map[string]string{"value": "token-outgoing-payment"}})
	})

	mux.HandleFunc("POST /rs/incoming-payments", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":             fmt.Sprintf("%s/rs/incoming-payments/%d", f.srv.URL, f.seq.Add(1)),
			"walletAddress":  body["walletAddress"],
			"incomingAmount": body["incomingAmount"],
			"completed":      false,
		})
	})

	mux.HandleFunc("POST /rs/quotes", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":            fmt.Sprintf("%s/rs/quotes/%d", f.srv.URL, f.seq.Add(1)),
			"walletAddress": body["walletAddress"],
			"receiver":      body["receiver"],
			"method":        body["method"],
			"debitAmount":   map[string]any{"value": "1010", "assetCode": "USD", "assetScale": 2},
			"receiveAmount": map[string]any{"value": "1000", "assetCode": "USD", "assetScale": 2},
		})
	})

	mux.HandleFunc("POST /rs/outgoing-payments", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		if r.Header.Get("Authorization") != "GNAP token-outgoing-payment" {
			writeJSON(w, http.StatusForbidden, map[string]string{"message": "insufficient grant"})
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":            fmt.Sprintf("%s/rs/outgoing-payments/%d", f.srv.URL, f.seq.Add(1)),
			"walletAddress": body["walletAddress"],
			"quoteId":       body["quoteId"],
			"failed":        false,
		})
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// testApp is the full gateway stack: real Open Payments client against the
// fake wallets, real services, memory attempt store, miniredis cache and
// rate limiting, JWT auth and CORS.
type testApp struct {
	server  *httptest.Server
	wallets *fakeWallets
	token   string
	redis   *miniredis.Miniredis
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	wallets := newFakeWallets(t)

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	require.NoError(t, err)

	log := zerolog.New(io.Discard)
	rec := metrics.New()

	client, err := openpayments.New(openpayments.Options{
		WalletAddressURL: wallets.srv.URL + "/client",
		KeyID:            "test-key",
		PrivateKeyPEM:    pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}),
		HTTPClient:       wallets.srv.Client(),
		Metrics:          rec,
		Logger:           log,
	})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	encSvc, err := service.NewAESEncryptionService("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	require.NoError(t, err)
	tokenSvc := service.NewJWTTokenService("test-jwt-secret-key-32bytes!!", time.Hour, "test-issuer")

	transferSvc := service.NewTransferService(
		client,
		memStorage.NewTransferRepo(),
		redisStorage.NewTransferCache(rdb),
		time.Hour,
		encSvc,
		rec,
		log,
	)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		TransferSvc:    transferSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: redisStorage.NewRateLimitStore(rdb),
		RateLimitRules: map[string]middleware.RateLimitRule{
			middleware.GroupWallet:   {Limit: 1000, Window: time.Minute},
			middleware.GroupPayments: {Limit: 1000, Window: time.Minute},
			middleware.GroupTransfer: {Limit: 1000, Window: time.Minute},
		},
		HealthCheckers: []ports.HealthChecker{redisStorage.NewHealthCheck(rdb)},
		AuditSvc:       service.NewAuditService(nil, log),
		Metrics:        rec,
		MetricsPath:    "/metrics",
		Mode:           "test",
		Logger:         log,
	})

	server := httptest.NewServer(cors.New(middleware.CORSOptions(config.CORSConfig{AllowedOrigins: []string{"*"}})).Handler(router))
	t.Cleanup(server.Close)

	token, _, err := tokenSvc.Generate("e2e")
	require.NoError(t, err)

	return &testApp{server: server, wallets: wallets, token: token, redis: mr}
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"error_code"`
	Error     string          `json:"error"`
	RequestID string          `json:"request_id"`
}

// send performs one authenticated request. It is safe to use from
// goroutines.
func (a *testApp) send(method, path, body string) (int, envelope, error) {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, a.server.URL+path, rd)
	if err != nil {
		return 0, envelope{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, envelope{}, err
	}
	defer resp.Body.Close()

	var env envelope
	err = json.NewDecoder(resp.Body).Decode(&env)
	return resp.StatusCode, env, err
}

func (a *testApp) call(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	status, env, err := a.send(method, path, body)
	require.NoError(t, err)
	return status, env
}

func (a *testApp) prepareBody() string {
	return fmt.Sprintf(`{"senderWalletUrl":%q,"receiverWalletUrl":%q,"amount":1000}`,
		a.wallets.srv.URL+"/alice", a.wallets.srv.URL+"/bob")
}

func (a *testApp) prepare(t *testing.T) (string, map[string]any) {
	t.Helper()
	status, env := a.call(t, http.MethodPost, "/api/transfer/simple", a.prepareBody())
	require.Equal(t, http.StatusOK, status, env.Error)

	var data map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &data))
	return data["transferId"].(string), data
}

func TestE2E_TransferLifecycle(t *testing.T) {
	app := newTestApp(t)

	id, data := app.prepare(t)
	assert.Contains(t, data["authorizationUrl"], "/interact/")
	assert.Contains(t, data["grantId"], "/auth/continue/")
	assert.Equal(t, "continue-token", data["continueToken"])
	quote := data["quote"].(map[string]any)
	assert.Equal(t, "ilp", quote["method"])
	assert.True(t, app.redis.Exists("transfer:"+id), "prepared attempt is cached")

	// Not approved yet: retryable, attempt keeps waiting
	status, env := app.call(t, http.MethodPost, "/api/transfer/"+id+"/complete", "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "GRANT_002", env.ErrorCode)

	status, env = app.call(t, http.MethodGet, "/api/transfer/"+id, "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "AWAITING_AUTHORIZATION")
	assert.NotContains(t, string(env.Data), "continue-token")

	app.wallets.approved.Store(true)

	status, env = app.call(t, http.MethodPost, "/api/transfer/"+id+"/complete", `{"interactRef":"ref-1"}`)
	require.Equal(t, http.StatusOK, status, env.Error)
	var done struct {
		OutgoingPayment struct {
			ID string `json:"id"`
		} `json:"outgoingPayment"`
		Transfer struct {
			State string `json:"state"`
		} `json:"transfer"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &done))
	assert.Contains(t, done.OutgoingPayment.ID, "/outgoing-payments/")
	assert.Equal(t, "COMPLETED", done.Transfer.State)

	// A completed attempt cannot be completed again
	status, env = app.call(t, http.MethodPost, "/api/transfer/"+id+"/complete", "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "TRF_002", env.ErrorCode)
}

func TestE2E_ManualSteps(t *testing.T) {
	app := newTestApp(t)
	alice := app.wallets.srv.URL + "/alice"
	bob := app.wallets.srv.URL + "/bob"

	status, env := app.call(t, http.MethodPost, "/api/incoming-payment",
		fmt.Sprintf(`{"receiverWalletUrl":%q,"amount":"500","assetCode":"EUR"}`, bob))
	require.Equal(t, http.StatusCreated, status, env.Error)
	var ip struct {
		IncomingPayment struct {
			ID             string `json:"id"`
			IncomingAmount struct {
				AssetCode string `json:"assetCode"`
			} `json:"incomingAmount"`
		} `json:"incomingPayment"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &ip))
	assert.Equal(t, "USD", ip.IncomingPayment.IncomingAmount.AssetCode)

	status, env = app.call(t, http.MethodPost, "/api/quote",
		fmt.Sprintf(`{"senderWalletUrl":%q,"receiverPaymentUrl":%q}`, alice, ip.IncomingPayment.ID))
	require.Equal(t, http.StatusCreated, status, env.Error)
	var q struct {
		Quote struct {
			ID          string         `json:"id"`
			DebitAmount map[string]any `json:"debitAmount"`
		} `json:"quote"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &q))

	debit, _ := json.Marshal(q.Quote.DebitAmount)
	status, env = app.call(t, http.MethodPost, "/api/outgoing-payment/initiate",
		fmt.Sprintf(`{"senderWalletUrl":%q,"quoteId":%q,"debitAmount":%s}`, alice, q.Quote.ID, debit))
	require.Equal(t, http.StatusOK, status, env.Error)
	var pending struct {
		GrantID       string `json:"grantId"`
		ContinueToken string `json:"continueToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &pending))

	app.wallets.approved.Store(true)
	status, env = app.call(t, http.MethodPost, "/api/outgoing-payment/complete",
		fmt.Sprintf(`{"senderWalletUrl":%q,"grantId":%q,"continueToken":%q,"quoteId":%q}`,
			alice, pending.GrantID, pending.ContinueToken, q.Quote.ID))
	require.Equal(t, http.StatusCreated, status, env.Error)
	assert.Contains(t, string(env.Data), q.Quote.ID)
}

func TestE2E_ValidationMakesNoUpstreamCalls(t *testing.T) {
	app := newTestApp(t)

	for _, amount := range []string{`"0"`, `-1`, `"12.5"`, `"ten"`} {
		body := fmt.Sprintf(`{"senderWalletUrl":%q,"receiverWalletUrl":%q,"amount":%s}`,
			app.wallets.srv.URL+"/alice", app.wallets.srv.URL+"/bob", amount)
		status, env := app.call(t, http.MethodPost, "/api/transfer/simple", body)
		assert.Equal(t, http.StatusBadRequest, status, amount)
		assert.Equal(t, "VAL_001", env.ErrorCode, amount)
	}
	assert.Zero(t, app.wallets.requests.Load())
}

func TestE2E_UnknownWallet(t *testing.T) {
	app := newTestApp(t)

	body := fmt.Sprintf(`{"senderWalletUrl":%q,"receiverWalletUrl":%q,"amount":"1000"}`,
		app.wallets.srv.URL+"/alice", app.wallets.srv.URL+"/carol")
	status, env := app.call(t, http.MethodPost, "/api/transfer/simple", body)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "RES_001", env.ErrorCode)
}

func TestE2E_RequiresToken(t *testing.T) {
	app := newTestApp(t)

	resp, err := http.Get(app.server.URL + "/api/wallet/" + app.wallets.srv.URL + "/alice")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = http.Get(app.server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestE2E_MetricsExposed(t *testing.T) {
	app := newTestApp(t)
	app.prepare(t)

	resp, err := http.Get(app.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)

	assert.Contains(t, string(b), `smartwallet_choreography_steps_total{outcome="ok",step="outgoing_grant"} 1`)
	assert.Contains(t, string(b), "smartwallet_open_payments_requests_total")
}

func TestE2E_ConcurrentTransfersAreIsolated(t *testing.T) {
	app := newTestApp(t)
	const n = 10

	type prepared struct {
		TransferID string `json:"transferId"`
		GrantID    string `json:"grantId"`
	}

	var (
		wg      sync.WaitGroup
		results = make(chan prepared, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, env, err := app.send(http.MethodPost, "/api/transfer/simple", app.prepareBody())
			if !assert.NoError(t, err) || !assert.Equal(t, http.StatusOK, status, env.Error) {
				return
			}
			var p prepared
			if assert.NoError(t, json.Unmarshal(env.Data, &p)) {
				results <- p
			}
		}()
	}
	wg.Wait()
	close(results)

	ids := make(map[string]bool)
	grants := make(map[string]bool)
	for p := range results {
		ids[p.TransferID] = true
		grants[p.GrantID] = true
	}
	require.Len(t, ids, n)
	assert.Len(t, grants, n, "every attempt keeps its own continuation")

	app.wallets.approved.Store(true)
	for id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			status, env, err := app.send(http.MethodPost, "/api/transfer/"+id+"/complete", "")
			assert.NoError(t, err)
			assert.Equal(t, http.StatusOK, status, env.Error)
		}(id)
	}
	wg.Wait()

	for id := range ids {
		status, env := app.call(t, http.MethodGet, "/api/transfer/"+id, "")
		require.Equal(t, http.StatusOK, status)
		assert.Contains(t, string(env.Data), "COMPLETED")
	}
}
