package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GoVaultGate/vaultgate/internal/middleware"
	"github.com/GoVaultGate/vaultgate/internal/model"
	"github.com/GoVaultGate/vaultgate/internal/service"
)

type AdminHandler struct {
	svc      *service.VaultService
	auditSvc *service.AuditService
}

func NewAdminHandler(svc *service.VaultService, auditSvc *service.AuditService) *AdminHandler {
	return &AdminHandler{svc: svc, auditSvc: auditSvc}
}

func (h *AdminHandler) GetSlippage(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Slippage())
}

func (h *AdminHandler) SetSlippage(c *gin.Context) {
	var req model.SlippageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	resp, err := h.svc.SetSlippage(req.Bps)
	if err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		c.Error(err)
		return
	}
	middleware.AddAuditContext(c, "bps", req.Bps)
	c.JSON(http.StatusOK, resp)
}

func (h *AdminHandler) Sweep(c *gin.Context) {
	var req model.SweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.Sweep(c.Request.Context(), req); err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		c.Error(err)
		return
	}
	middleware.AddAuditContext(c, "swept_asset", req.Asset)
	middleware.AddAuditContext(c, "swept_to", req.To)
	c.JSON(http.StatusOK, gin.H{"status": "swept"})
}

func (h *AdminHandler) GrantApproval(c *gin.Context) {
	asset := c.Param("asset")
	if err := h.svc.GrantApproval(c.Request.Context(), asset); err != nil {
		middleware.AddAuditContext(c, "error", err.Error())
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "approved", "asset": asset})
}

func (h *AdminHandler) ListAuditLogs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	accountID := c.Query("account_id")

	var from, to *time.Time
	if raw := c.Query("from"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			from = &parsed
		}
	}
	if raw := c.Query("to"); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			to = &parsed
		}
	}

	records, err := h.auditSvc.List(c.Request.Context(), accountID, limit, from, to)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}
