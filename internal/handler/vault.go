package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GoVaultGate/vaultgate/internal/middleware"
	"github.com/GoVaultGate/vaultgate/internal/model"
	"github.com/GoVaultGate/vaultgate/internal/service"
)

type VaultHandler struct {
	svc       *service.VaultService
	valuation *service.ValuationService
}

func NewVaultHandler(svc *service.VaultService, valuation *service.ValuationService) *VaultHandler {
	return &VaultHandler{svc: svc, valuation: valuation}
}

func (h *VaultHandler) Deposit(c *gin.Context) {
	account, ok := callerAccount(c)
	if !ok {
		return
	}
	var req model.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.svc.Deposit(c.Request.Context(), account, req)
	if err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		c.Error(err)
		return
	}
	middleware.AddAuditContext(c, "credited", resp.Credited)
	c.JSON(http.StatusOK, resp)
}

func (h *VaultHandler) DepositAsset(c *gin.Context) {
	account, ok := callerAccount(c)
	if !ok {
		return
	}
	var req model.DepositAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.svc.DepositAsset(c.Request.Context(), account, req)
	if err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		c.Error(err)
		return
	}
	middleware.AddAuditContext(c, "asset_in", resp.AssetIn)
	middleware.AddAuditContext(c, "credited", resp.Credited)
	c.JSON(http.StatusOK, resp)
}

func (h *VaultHandler) DepositNative(c *gin.Context) {
	account, ok := callerAccount(c)
	if !ok {
		return
	}
	var req model.DepositNativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.svc.DepositNative(c.Request.Context(), account, req)
	if err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		c.Error(err)
		return
	}
	middleware.AddAuditContext(c, "credited", resp.Credited)
	c.JSON(http.StatusOK, resp)
}

func (h *VaultHandler) Withdraw(c *gin.Context) {
	account, ok := callerAccount(c)
	if !ok {
		return
	}
	var req model.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.svc.Withdraw(c.Request.Context(), account, req)
	if err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *VaultHandler) WithdrawAsset(c *gin.Context) {
	account, ok := callerAccount(c)
	if !ok {
		return
	}
	var req model.WithdrawAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.svc.WithdrawAsset(c.Request.Context(), account, req)
	if err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *VaultHandler) Balance(c *gin.Context) {
	account, ok := callerAccount(c)
	if !ok {
		return
	}
	asset := c.Query("asset")
	var (
		resp *model.BalanceResponse
		err  error
	)
	if asset == "" {
		resp, err = h.svc.Balance(account)
	} else {
		resp, err = h.svc.LegacyBalance(account, asset)
	}
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *VaultHandler) Capacity(c *gin.Context) {
	account, ok := callerAccount(c)
	if !ok {
		return
	}
	resp, err := h.svc.Capacity(account)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *VaultHandler) Stats(c *gin.Context) {
	account, ok := callerAccount(c)
	if !ok {
		return
	}
	resp, err := h.svc.Stats(account, c.Query("asset"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *VaultHandler) Valuation(c *gin.Context) {
	asset := c.Param("asset")
	resp, err := h.valuation.Valuation(c.Request.Context(), asset)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func callerAccount(c *gin.Context) (*model.Account, bool) {
	accountVal, exists := c.Get(middleware.ContextAccountKey)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing account context"})
		return nil, false
	}
	return accountVal.(*model.Account), true
}
