package handler

import (
	"strconv"

	"rubi-trail/internal/adapter/http/dto"
	"rubi-trail/internal/adapter/http/middleware"
	"rubi-trail/internal/core/ports"
	"rubi-trail/pkg/apperror"
	"rubi-trail/pkg/response"

	"github.com/gin-gonic/gin"
)

// VoucherHandler handles the reward catalog and voucher lifecycle.
type VoucherHandler struct {
	voucherSvc    ports.VoucherService
	publicBaseURL string
}

// NewVoucherHandler creates a new VoucherHandler.
func NewVoucherHandler(voucherSvc ports.VoucherService, publicBaseURL string) *VoucherHandler {
	return &VoucherHandler{voucherSvc: voucherSvc, publicBaseURL: publicBaseURL}
}

// ListRewards handles GET /api/rewards.
func (h *VoucherHandler) ListRewards(c *gin.Context) {
	rewards, err := h.voucherSvc.ListRewards(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.RewardResponse, 0, len(rewards))
	for _, r := range rewards {
		items = append(items, dto.NewRewardResponse(r))
	}
	response.OK(c, items)
}

// Buy handles POST /api/rewards/:id/buy.
func (h *VoucherHandler) Buy(c *gin.Context) {
	account, ok := middleware.AccountFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidSession())
		return
	}

	rewardID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || rewardID <= 0 {
		response.Error(c, apperror.Validation("invalid reward id"))
		return
	}

	result, err := h.voucherSvc.Purchase(c.Request.Context(), account.ID, rewardID)
	if err != nil {
		if apperror.Is(err, apperror.CodeInsufficientFunds) {
			balance, _ := apperror.BalanceOf(err)
			appErr, _ := apperror.As(err)
			response.OK(c, dto.PurchaseResponse{
				Success:    false,
				Message:    appErr.Message,
				NewBalance: balance,
			})
			return
		}
		response.Error(c, err)
		return
	}

	response.OK(c, dto.PurchaseResponse{
		Success:    true,
		Message:    "Purchase successful!",
		NewBalance: result.NewBalance,
		Voucher: &dto.VoucherLink{
			Code:      result.Voucher.Token,
			RedeemURL: result.RedeemURL,
		},
	})
}

// Get handles GET /api/vouchers/:token.
func (h *VoucherHandler) Get(c *gin.Context) {
	details, err := h.voucherSvc.Get(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.NewVoucherResponse(details))
}

// Redeem handles POST /api/vouchers/:token/redeem.
func (h *VoucherHandler) Redeem(c *gin.Context) {
	_, err := h.voucherSvc.Redeem(c.Request.Context(), c.Param("token"))
	if err != nil {
		if apperror.Is(err, apperror.CodeAlreadyRedeemed) {
			appErr, _ := apperror.As(err)
			response.OK(c, dto.RedeemResponse{Success: false, Message: appErr.Message})
			return
		}
		response.Error(c, err)
		return
	}

	response.OK(c, dto.RedeemResponse{Success: true, Message: "Voucher redeemed"})
}

// ListMine handles GET /api/vouchers.
func (h *VoucherHandler) ListMine(c *gin.Context) {
	account, ok := middleware.AccountFrom(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidSession())
		return
	}

	vouchers, err := h.voucherSvc.ListForAccount(c.Request.Context(), account.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.VoucherSummary, 0, len(vouchers))
	for _, v := range vouchers {
		items = append(items, dto.NewVoucherSummary(v, h.publicBaseURL))
	}
	response.OK(c, items)
}
