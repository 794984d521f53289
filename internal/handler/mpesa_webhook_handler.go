package handler

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	"beathaus/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// StkCallbackEnvelope is the nested payload Daraja posts after an STK push
// resolves. CallbackMetadata is present only on success.
type StkCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []StkCallbackItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

type StkCallbackItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

type MpesaWebhookHandler struct {
	reconciler *service.ReconcileService
}

func NewMpesaWebhookHandler(reconciler *service.ReconcileService) *MpesaWebhookHandler {
	return &MpesaWebhookHandler{reconciler: reconciler}
}

// Handle processes the Daraja callback. It always acknowledges with 2xx:
// erroring the webhook only triggers redelivery, and redelivery cannot fix a
// payload we could not match. Idempotency lives in the reconciler, not here.
func (h *MpesaWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		log.Printf("[MPESA callback] read body error: %v", err)
		c.JSON(http.StatusOK, gin.H{"success": false})
		return
	}
	var envelope StkCallbackEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		log.Printf("[MPESA callback] unmarshal error: %v body=%s", err, string(body))
		c.JSON(http.StatusOK, gin.H{"success": false})
		return
	}
	cb := envelope.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		log.Printf("[MPESA callback] no CheckoutRequestID in payload, acknowledging")
		c.JSON(http.StatusOK, gin.H{"success": false})
		return
	}
	log.Printf("[MPESA callback] checkout_request_id=%s result_code=%d desc=%q", cb.CheckoutRequestID, cb.ResultCode, cb.ResultDesc)

	outcome := service.Outcome{
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        strconv.Itoa(cb.ResultCode),
		ResultDesc:        cb.ResultDesc,
	}
	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "MpesaReceiptNumber":
			if v, ok := item.Value.(string); ok {
				outcome.ReceiptNumber = v
			}
		case "Amount":
			if v, ok := item.Value.(float64); ok {
				d := decimal.NewFromFloat(v)
				outcome.PaidAmount = &d
			}
		case "PhoneNumber":
			switch v := item.Value.(type) {
			case string:
				outcome.PhoneNumber = v
			case float64:
				outcome.PhoneNumber = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
	}
	h.reconciler.Settle(outcome)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
