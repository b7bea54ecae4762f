package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/fretboard/internal/auth"
	"github.com/lalith-99/fretboard/internal/live"
	"github.com/lalith-99/fretboard/internal/models"
	"github.com/lalith-99/fretboard/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ClientHandler serves client profiles and invoices. A client reads and
// edits their own record; ClientRecordRoles read anyone's and
// BillingRoles issue invoices.
type ClientHandler struct {
	repo      repository.ClientRepository
	publisher *live.Publisher
	access    access
	logger    *zap.Logger
}

func NewClientHandler(repo repository.ClientRepository, publisher *live.Publisher, gate *auth.Gate, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{repo: repo, publisher: publisher, access: access{gate: gate}, logger: logger}
}

type profileRequest struct {
	DisplayName string `json:"display_name" binding:"required"`
	Email       string `json:"email" binding:"omitempty,email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

type createInvoiceRequest struct {
	Number   string          `json:"number" binding:"required"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Status   string          `json:"status"`
}

// GetProfile handles GET /v1/clients/:uid
func (h *ClientHandler) GetProfile(c *gin.Context) {
	uid, ok := parseID(c, "uid", "client")
	if !ok {
		return
	}
	if err := h.access.selfOr(c, uid, auth.ClientRecordRoles); err != nil {
		respondError(c, h.logger, err)
		return
	}

	p, err := h.repo.GetProfile(c.Request.Context(), uid)
	if err != nil {
		h.logger.Error("failed to get client profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get profile"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// PutProfile handles PUT /v1/clients/:uid
func (h *ClientHandler) PutProfile(c *gin.Context) {
	uid, ok := parseID(c, "uid", "client")
	if !ok {
		return
	}
	if err := h.access.selfOr(c, uid, auth.ClientRecordRoles); err != nil {
		respondError(c, h.logger, err)
		return
	}
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	p, err := h.repo.UpsertProfile(c.Request.Context(), models.ClientProfile{
		UID:         uid,
		DisplayName: req.DisplayName,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
	})
	if err != nil {
		h.logger.Error("failed to save client profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save profile"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// ListInvoices handles GET /v1/clients/:uid/invoices
func (h *ClientHandler) ListInvoices(c *gin.Context) {
	uid, ok := parseID(c, "uid", "client")
	if !ok {
		return
	}
	if err := h.access.selfOr(c, uid, auth.ClientRecordRoles); err != nil {
		respondError(c, h.logger, err)
		return
	}

	invoices, err := h.repo.ListInvoices(c.Request.Context(), uid)
	if err != nil {
		h.logger.Error("failed to list invoices", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list invoices"})
		return
	}
	c.JSON(http.StatusOK, invoices)
}

// CreateInvoice handles POST /v1/clients/:uid/invoices (BillingRoles).
func (h *ClientHandler) CreateInvoice(c *gin.Context) {
	uid, ok := parseID(c, "uid", "client")
	if !ok {
		return
	}
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !req.Amount.IsPositive() {
		badRequest(c, "amount must be positive")
		return
	}
	status, ok := invoiceStatus(req.Status)
	if !ok {
		badRequest(c, "status must be draft, sent or paid")
		return
	}
	currency := strings.ToUpper(req.Currency)
	if currency == "" {
		currency = "USD"
	}

	profile, err := h.repo.GetProfile(c.Request.Context(), uid)
	if err != nil {
		h.logger.Error("failed to get client profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create invoice"})
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "client not found"})
		return
	}

	inv, err := h.repo.CreateInvoice(c.Request.Context(), uid, req.Number, req.Amount, currency, status)
	if err != nil {
		h.logger.Error("failed to create invoice", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create invoice"})
		return
	}
	h.publisher.Changed(c.Request.Context(), live.ClientInvoicesTopic(uid.String()))
	c.JSON(http.StatusCreated, inv)
}

func invoiceStatus(s string) (string, bool) {
	switch s {
	case "":
		return models.InvoiceDraft, true
	case models.InvoiceDraft, models.InvoiceSent, models.InvoicePaid:
		return s, true
	default:
		return "", false
	}
}
