package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoVaultGate/vaultgate/internal/middleware"
	"github.com/GoVaultGate/vaultgate/internal/model"
	"github.com/GoVaultGate/vaultgate/internal/service"
	"github.com/GoVaultGate/vaultgate/internal/vault"
)

type stubSwapper struct{}

func (stubSwapper) Swap(_ context.Context, req vault.SwapRequest) (*big.Int, error) {
	return new(big.Int).Set(req.MinAmountOut), nil
}

func (stubSwapper) GrantApproval(context.Context, common.Address) error { return nil }

type stubTransfer struct{}

func (stubTransfer) Pull(context.Context, common.Address, common.Address, *big.Int) error {
	return nil
}

func (stubTransfer) Push(context.Context, common.Address, common.Address, *big.Int) error {
	return nil
}

func (stubTransfer) PushNative(context.Context, common.Address, *big.Int) error { return nil }

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	v, err := vault.New(vault.Params{
		Settlement:    common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		WithdrawLimit: mustAmount(t, "1000"),
		PerUserCap:    mustAmount(t, "10000"),
		BankCap:       mustAmount(t, "100000"),
	}, stubSwapper{}, stubTransfer{})
	require.NoError(t, err)

	svc := service.NewVaultService(v, nil)
	h := NewVaultHandler(svc, service.NewValuationService(nil))

	account := &model.Account{
		ID:      "acct-1",
		APIKey:  "sk-test",
		Address: "0x0000000000000000000000000000000000000a11",
	}

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextAccountKey, account)
		c.Next()
	})
	r.POST("/v1/vault/deposit", h.Deposit)
	r.POST("/v1/vault/deposit/asset", h.DepositAsset)
	r.POST("/v1/vault/withdraw", h.Withdraw)
	r.GET("/v1/vault/balance", h.Balance)
	r.GET("/v1/vault/capacity", h.Capacity)
	r.GET("/v1/vault/stats", h.Stats)
	return r
}

func mustAmount(t *testing.T, s string) *big.Int {
	t.Helper()
	amount, err := model.ParseAmount(s)
	require.NoError(t, err)
	return amount
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewBuffer(payload)
	} else {
		reader = bytes.NewBuffer(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestDepositEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/v1/vault/deposit", model.DepositRequest{Amount: "1500"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.DepositResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "1500", resp.Credited)
	assert.False(t, resp.Swapped)

	w = doJSON(r, http.MethodGet, "/v1/vault/balance", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var balance model.BalanceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &balance))
	assert.Equal(t, "1500", balance.Balance)
}

func TestDepositAboveCapEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/v1/vault/deposit", model.DepositRequest{Amount: "10001"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ABOVE_LIMIT", resp["code"])
}

func TestDepositAssetEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/v1/vault/deposit/asset", model.DepositAssetRequest{
		Asset:  "0x00000000000000000000000000000000000000bb",
		Amount: "1000",
		Quoted: "950",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.DepositResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Swapped)
	// 950 quoted at the default 9500 bps tolerance.
	assert.Equal(t, "902.5", resp.Credited)
}

func TestWithdrawWithoutBalanceEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/v1/vault/withdraw", model.WithdrawRequest{Amount: "10"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "NO_FUND", resp["code"])
}

func TestInvalidAmountEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(r, http.MethodPost, "/v1/vault/deposit", model.DepositRequest{Amount: "abc"})
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestCapacityEndpoint(t *testing.T) {
	r := newTestRouter(t)

	require.Equal(t, http.StatusOK, doJSON(r, http.MethodPost, "/v1/vault/deposit", model.DepositRequest{Amount: "4000"}).Code)

	w := doJSON(r, http.MethodGet, "/v1/vault/capacity", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.CapacityResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "6000", resp.User)
	assert.Equal(t, "96000", resp.Bank)
	assert.Equal(t, "4000", resp.Total)
}
