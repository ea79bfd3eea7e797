package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fretehub/credit-ledger/internal/auth"
	"github.com/fretehub/credit-ledger/internal/config"
	"github.com/fretehub/credit-ledger/internal/models"
	"github.com/fretehub/credit-ledger/internal/repository/memory"
	"github.com/fretehub/credit-ledger/internal/services"
	"github.com/fretehub/credit-ledger/internal/shipment"
)

type fixedStatus struct{ raw string }

func (f fixedStatus) Status(context.Context, string) (shipment.Status, error) {
	return shipment.ParseStatus(f.raw)
}

type testAPI struct {
	srv      *httptest.Server
	tokens   *auth.TokenManager
	repos    memory.Repositories
	clientID string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{RateRPS: 0, WebhookToken: "hook-secret"}
	repos := memory.NewRepositories(nil)
	clientID := uuid.NewString()
	repos.Clients.Add(models.Client{ID: clientID, Name: "Loja API"})

	bal := services.NewBalanceService(repos.Transactions, repos.Clients)
	syncer := services.NewBalanceSyncer(nil, repos.Clients, bal, nil, log)
	recharge := services.NewRechargeService(repos.Transactions, bal, syncer, repos.AuditLogs, log)
	status := fixedStatus{raw: "in_transit"}
	tm := auth.NewTokenManager("test-secret", "credit-ledger")

	h := NewRouter(RouterDeps{
		Cfg:          cfg,
		Log:          log,
		Tokens:       tm,
		Balance:      bal,
		Recharge:     recharge,
		Reservations: services.NewReservationService(repos.Transactions, bal, repos.AuditLogs, nil, false, log),
		Webhook:      services.NewWebhookService(repos.Invoices, recharge, nil, log),
		Sweep:        services.NewSweepService(repos.Transactions, status, syncer, repos.AuditLogs, nil, log),
		Backfill:     services.NewBackfillService(repos.Transactions, status, syncer, repos.AuditLogs, nil, log),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv, tokens: tm, repos: repos, clientID: clientID}
}

func (a *testAPI) token(t *testing.T, role string) string {
	t.Helper()
	tok, _, err := a.tokens.Issue("tester", role, time.Hour)
	require.NoError(t, err)
	return tok
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

type balanceBody struct {
	Available decimal.Decimal `json:"saldoDisponivel"`
	Blocked   decimal.Decimal `json:"creditosBloqueados"`
	Consumed  decimal.Decimal `json:"creditosConsumidos"`
	Total     decimal.Decimal `json:"totalRecargas"`
}

func TestRouter_Health(t *testing.T) {
	a := newTestAPI(t)
	resp, body := a.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestRouter_RequiresToken(t *testing.T) {
	a := newTestAPI(t)
	resp, _ := a.do(t, http.MethodGet, "/api/v1/creditos/saldo?clienteId="+a.clientID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = a.do(t, http.MethodGet, "/api/v1/creditos/saldo?clienteId="+a.clientID, "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_RechargeReserveAndBalance(t *testing.T) {
	a := newTestAPI(t)
	tok := a.token(t, auth.RolePartner)

	recharge := map[string]any{"clienteId": a.clientID, "valor": "500", "referencia": "NF-1"}
	resp, body := a.do(t, http.MethodPost, "/api/v1/creditos/recarga", tok, recharge)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"valor":500`)
	assert.Contains(t, string(body), `"novoSaldo":500`)

	resp, body = a.do(t, http.MethodPost, "/api/v1/creditos/recarga", tok, recharge)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"duplicado":true`)

	reserve := map[string]any{"clienteId": a.clientID, "shipmentRef": "BR123", "valor": "30"}
	resp, body = a.do(t, http.MethodPost, "/api/v1/creditos/reservas", tok, reserve)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"status":"bloqueado"`)
	assert.Contains(t, string(body), `"valor":30`)

	resp, body = a.do(t, http.MethodPost, "/api/v1/creditos/reservas", tok, reserve)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, string(body))

	resp, body = a.do(t, http.MethodGet, "/api/v1/creditos/saldo?clienteId="+a.clientID, tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"saldoDisponivel":470`)
	assert.Contains(t, string(body), `"creditosBloqueados":30`)
	var b balanceBody
	require.NoError(t, json.Unmarshal(body, &b))
	assert.True(t, b.Available.Equal(decimal.NewFromInt(470)), b.Available.String())
	assert.True(t, b.Blocked.Equal(decimal.NewFromInt(30)))
	assert.True(t, b.Total.Equal(decimal.NewFromInt(500)))

	resp, body = a.do(t, http.MethodGet, "/api/v1/creditos/transacoes?clienteId="+a.clientID, tok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var txs []models.CreditTransaction
	require.NoError(t, json.Unmarshal(body, &txs))
	require.Len(t, txs, 2)

	resp, _ = a.do(t, http.MethodGet, "/api/v1/creditos/transacoes/"+txs[0].ID, tok, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = a.do(t, http.MethodGet, "/api/v1/creditos/transacoes/"+uuid.NewString(), tok, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_ErrorMapping(t *testing.T) {
	a := newTestAPI(t)
	tok := a.token(t, auth.RolePartner)

	tests := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"missing amount", map[string]any{"clienteId": a.clientID}, http.StatusBadRequest, "missing_parameter"},
		{"negative amount", map[string]any{"clienteId": a.clientID, "valor": "-5"}, http.StatusBadRequest, "invalid_parameter"},
		{"over limit", map[string]any{"clienteId": a.clientID, "valor": "50000.01"}, http.StatusUnprocessableEntity, "limit_exceeded"},
		{"unknown client", map[string]any{"clienteId": uuid.NewString(), "valor": "10"}, http.StatusNotFound, "client_not_found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := a.do(t, http.MethodPost, "/api/v1/creditos/recarga", tok, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
			assert.Contains(t, string(body), `"code":"`+tt.code+`"`)
		})
	}

	resp, _ := a.do(t, http.MethodGet, "/api/v1/creditos/saldo", tok, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_AdminRequiresAdminRole(t *testing.T) {
	a := newTestAPI(t)

	resp, _ := a.do(t, http.MethodPost, "/api/v1/admin/reconciliacao", a.token(t, auth.RolePartner), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	admin := a.token(t, auth.RoleAdmin)
	resp, body := a.do(t, http.MethodPost, "/api/v1/creditos/recarga", admin,
		map[string]any{"clienteId": a.clientID, "valor": "100"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	resp, body = a.do(t, http.MethodPost, "/api/v1/creditos/reservas", admin,
		map[string]any{"clienteId": a.clientID, "shipmentRef": "BR9", "valor": "10"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = a.do(t, http.MethodPost, "/api/v1/admin/reconciliacao", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"consumidas":1`)

	resp, _ = a.do(t, http.MethodPost, "/api/v1/admin/correcao?dryRun=maybe", admin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, body = a.do(t, http.MethodPost, "/api/v1/admin/correcao?dryRun=true", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"dryRun":true`)
	assert.Contains(t, string(body), `"valorEstornado":0`)
}

func TestRouter_PaymentWebhook(t *testing.T) {
	a := newTestAPI(t)
	a.repos.Invoices.Add(models.Invoice{ID: uuid.NewString(), Reference: "FAT-77", ClientID: a.clientID, Status: models.InvoicePending})
	notice := map[string]any{"valorPago": "120.50", "dataPagamento": "2026-03-01", "referenciaFatura": "FAT-77"}

	resp, _ := a.do(t, http.MethodPost, "/api/v1/webhooks/pagamento", "", notice)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	send := func() (*http.Response, []byte) {
		b, _ := json.Marshal(notice)
		req, err := http.NewRequest(http.MethodPost, a.srv.URL+"/api/v1/webhooks/pagamento", bytes.NewReader(b))
		require.NoError(t, err)
		req.Header.Set("X-Webhook-Token", "hook-secret")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		out, _ := io.ReadAll(resp.Body)
		return resp, out
	}

	resp, body := send()
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"duplicado":false`)

	resp, body = send()
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"duplicado":true`)
	assert.Equal(t, 1, a.repos.Transactions.Len())
}

func TestRouter_ReserveValidation(t *testing.T) {
	a := newTestAPI(t)
	tok := a.token(t, auth.RolePartner)

	resp, body := a.do(t, http.MethodPost, "/api/v1/creditos/reservas", tok,
		map[string]any{"clienteId": "not-a-uuid", "valor": "0"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var apiErr struct {
		Code    string `json:"code"`
		Details []struct {
			Field string `json:"field"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(body, &apiErr))
	assert.Equal(t, "invalid_parameter", apiErr.Code)
	fields := []string{}
	for _, d := range apiErr.Details {
		fields = append(fields, d.Field)
	}
	assert.ElementsMatch(t, []string{"clienteId", "shipmentRef", "valor"}, fields)
	assert.Zero(t, a.repos.Transactions.Len())
}
