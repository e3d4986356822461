package handler

import (
	"fmt"

	"rubi-trail/internal/adapter/http/dto"
	"rubi-trail/internal/adapter/http/middleware"
	"rubi-trail/internal/core/ports"
	"rubi-trail/pkg/apperror"
	"rubi-trail/pkg/response"

	"github.com/gin-gonic/gin"
)

// LoyaltyHandler handles balance and scan endpoints.
type LoyaltyHandler struct {
	ledgerSvc  ports.LedgerService
	scanReward int64
}

// NewLoyaltyHandler creates a new LoyaltyHandler crediting scanReward coins per new scan.
func NewLoyaltyHandler(ledgerSvc ports.LedgerService, scanReward int64) *LoyaltyHandler {
	return &LoyaltyHandler{ledgerSvc: ledgerSvc, scanReward: scanReward}
}

// Scan handles POST /api/attractions/scan.
func (h *LoyaltyHandler) Scan(c *gin.Context) {
	account, ok := middleware.AccountFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidSession())
		return
	}

	var req dto.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation("qrText is required"))
		return
	}
	dto.TrimStruct(&req)

	result, err := h.ledgerSvc.CreditForScan(c.Request.Context(), account.ID, req.QRText, h.scanReward)
	if err != nil {
		response.Error(c, err)
		return
	}

	if !result.Credited {
		response.OK(c, dto.ScanResponse{
			Success:    false,
			Message:    apperror.ErrDuplicateScan().Message,
			AddedCoins: 0,
			NewBalance: result.NewBalance,
		})
		return
	}

	response.OK(c, dto.ScanResponse{
		Success:    true,
		Message:    fmt.Sprintf("Scan accepted! +%d coins", result.AmountAdded),
		AddedCoins: result.AmountAdded,
		NewBalance: result.NewBalance,
	})
}

// Me handles GET /api/me.
func (h *LoyaltyHandler) Me(c *gin.Context) {
	account, ok := middleware.AccountFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidSession())
		return
	}

	balance, err := h.ledgerSvc.Balance(c.Request.Context(), account.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	user := dto.NewUserResponse(account)
	user.Coins = balance
	response.OK(c, user)
}
