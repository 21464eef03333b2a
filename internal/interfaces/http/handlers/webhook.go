// internal/interfaces/http/handlers/webhook.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/payment"
)

// WebhookHandler receives payment provider callbacks
type WebhookHandler struct {
	paymentService *payment.Service
	config         *config.Config
	log            *logrus.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(paymentService *payment.Service, cfg *config.Config, log *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{
		paymentService: paymentService,
		config:         cfg,
		log:            log,
	}
}

// chargeEvent mirrors the provider's webhook envelope for charge events
type chargeEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID           string            `json:"id"`
			Amount       int64             `json:"amount"`
			ReceiptEmail string            `json:"receipt_email"`
			Metadata     map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// HandlePaymentWebhook handles POST /webhooks/payment. The raw body is
// verified against the signature header before any parsing matters; events
// other than successful captures are acknowledged and ignored.
func (h *WebhookHandler) HandlePaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Failed to read request body",
		})
		return
	}

	signature := c.GetHeader("X-Webhook-Signature")
	if err := h.paymentService.VerifySignature(body, signature); err != nil {
		h.log.WithField("remote", c.ClientIP()).Warn("Rejected webhook with invalid signature")
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid signature",
		})
		return
	}

	var event chargeEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid event payload",
		})
		return
	}

	if event.Type != "charge.succeeded" {
		c.JSON(http.StatusOK, gin.H{
			"message": "Event ignored",
		})
		return
	}

	productID, err := strconv.ParseUint(event.Data.Object.Metadata["product_id"], 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Charge metadata is missing a valid product ID",
		})
		return
	}

	receipt, err := h.paymentService.RecordCapturedCharge(c.Request.Context(), payment.CapturedCharge{
		ProductID:  uint(productID),
		Email:      event.Data.Object.ReceiptEmail,
		AmountPaid: event.Data.Object.Amount,
		ChargeID:   event.Data.Object.ID,
	})
	if err != nil {
		h.respondPaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Charge recorded",
		"data": gin.H{
			"order_id": receipt.Order.ID,
		},
	})
}

// respondPaymentError maps payment service errors to HTTP responses
func (h *WebhookHandler) respondPaymentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, payment.ErrUnknownProduct):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Charge references an unknown product",
		})
	case errors.Is(err, payment.ErrMissingEmail):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Charge carries no buyer email",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to record charge",
		})
	}
}
