package handler

import (
	"errors"
	"net/http"
	"strings"

	"beathaus/internal/middleware"
	"beathaus/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CheckoutHandler struct {
	checkout   *service.CheckoutService
	reconciler *service.ReconcileService
	poller     *service.Poller
}

func NewCheckoutHandler(checkout *service.CheckoutService, reconciler *service.ReconcileService, poller *service.Poller) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, reconciler: reconciler, poller: poller}
}

// Initiate starts an STK push checkout for the authenticated payer.
func (h *CheckoutHandler) Initiate(c *gin.Context) {
	payerID := middleware.GetUserID(c)
	var req struct {
		PhoneNumber string                 `json:"phone_number" binding:"required"`
		Amount      float64                `json:"amount"`
		PaymentKind string                 `json:"payment_kind" binding:"required"`
		ReferenceID string                 `json:"reference_id" binding:"required"`
		Metadata    map[string]interface{} `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	in := service.CheckoutInput{
		PayerID:     &payerID,
		PhoneNumber: req.PhoneNumber,
		Amount:      decimal.NewFromFloat(req.Amount),
		Kind:        strings.ToUpper(req.PaymentKind),
		ReferenceID: req.ReferenceID,
		Metadata:    req.Metadata,
	}
	res, err := h.checkout.Initiate(c.Request.Context(), in)
	if err != nil {
		status, msg := checkoutErrorResponse(err)
		c.JSON(status, gin.H{"success": false, "error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"checkout_id": res.CheckoutRequestID,
		"merchant_id": res.MerchantRequestID,
		"payment_id":  res.PaymentID,
	})
}

func checkoutErrorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidPhone),
		errors.Is(err, service.ErrInvalidKind):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrProviderNotConfigured):
		// operator problem, keep the user-facing message generic
		return http.StatusServiceUnavailable, "payments are temporarily unavailable"
	case errors.Is(err, service.ErrProviderRejected):
		return http.StatusBadGateway, err.Error()
	default:
		return http.StatusBadGateway, "could not reach payment provider, please retry"
	}
}

// Status reports the current state of a checkout. With wait=true it holds the
// request while polling locally, and reports TIMEOUT if the bounded wait runs
// out — without touching the stored attempt, which may still resolve later.
func (h *CheckoutHandler) Status(c *gin.Context) {
	payerID := middleware.GetUserID(c)
	checkoutID := c.Param("checkout_request_id")

	if c.Query("wait") == "true" {
		attempt, timedOut := h.poller.WaitForOutcome(c.Request.Context(), checkoutID)
		if attempt != nil && attempt.PayerID != nil && *attempt.PayerID != payerID {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": service.ErrAttemptNotFound.Error()})
			return
		}
		if timedOut {
			c.JSON(http.StatusOK, gin.H{
				"success":     true,
				"status":      "TIMEOUT",
				"result_desc": "Payment timeout",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":        true,
			"status":         attempt.Status,
			"receipt_number": attempt.ReceiptNumber,
			"result_desc":    attempt.ResultDesc,
		})
		return
	}

	res, err := h.reconciler.QueryStatus(c.Request.Context(), checkoutID, &payerID)
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "status lookup failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"status":         res.Status,
		"receipt_number": res.ReceiptNumber,
		"result_desc":    res.ResultDesc,
	})
}
