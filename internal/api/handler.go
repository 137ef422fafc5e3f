package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/miraucorp/trade-service/internal/trade"
	"github.com/miraucorp/trade-service/pkg/apperr"
	"github.com/miraucorp/trade-service/pkg/model"
)

// TradeService defines the trade operations needed by the handler.
type TradeService interface {
	CreateMarketTrade(ctx context.Context, p trade.CreateTradeParams) (*trade.CreatedTrade, error)
	GetLimitRateRange(ctx context.Context, p trade.LimitRangeParams) (near, far decimal.Decimal, err error)
	GetLimitTradeDraft(ctx context.Context, p trade.CreateLimitTradeParams) (*model.Trade, error)
	CreateLimitTrade(ctx context.Context, p trade.CreateLimitTradeParams) (*model.Trade, error)
	CancelLimitTrade(ctx context.Context, tradeID, contactID, partnerID string) error
	RetryTrade(ctx context.Context, tradeID, contactID, partnerID string) error
	UpdateTradeStatus(ctx context.Context, tradeID string, status model.TradeStatus, contactID, partnerID string) error
	ListTrades(ctx context.Context, q trade.ListTradesQuery) ([]model.Trade, error)
	GetTrade(ctx context.Context, tradeID, contactID, partnerID string) (*model.Trade, error)
}

// TradeHandler handles HTTP API requests for trade operations.
type TradeHandler struct {
	logger  *zap.Logger
	service TradeService
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(logger *zap.Logger, service TradeService) *TradeHandler {
	return &TradeHandler{
		logger:  logger,
		service: service,
	}
}

// caller extracts the contact and partner identity headers set by the
// gateway. Every trade route requires both.
func caller(c *fiber.Ctx) (contactID, partnerID string, err error) {
	contactID = c.Get("contactId")
	partnerID = c.Get("partnerId")
	if contactID == "" || partnerID == "" {
		return "", "", apperr.New(fiber.StatusBadRequest, "contactId and partnerId headers are required")
	}
	return contactID, partnerID, nil
}

func errorResponse(c *fiber.Ctx, err error) error {
	return c.Status(apperr.StatusOf(err)).JSON(fiber.Map{"error": err.Error()})
}

// CreateTradeHandler books a market trade.
func (h *TradeHandler) CreateTradeHandler(c *fiber.Ctx) error {
	contactID, partnerID, err := caller(c)
	if err != nil {
		return errorResponse(c, err)
	}

	var req CreateTradeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	action, err := model.ParseTradeType(req.Action)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	created, err := h.service.CreateMarketTrade(c.Context(), trade.CreateTradeParams{
		ContactID: contactID,
		PartnerID: partnerID,
		WalletID:  req.WalletID,
		AccountID: req.AccountID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Action:    action,
	})
	if err != nil {
		h.logger.Error("api.create_trade.failed",
			zap.String("contact", contactID),
			zap.Error(err))
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toTradeCreatedResponse(created))
}

// ListTradesHandler lists the contact's trades. The open query parameter is
// tri-state: absent lists market trades, true/false open/settled limit orders.
func (h *TradeHandler) ListTradesHandler(c *fiber.Ctx) error {
	contactID, partnerID, err := caller(c)
	if err != nil {
		return errorResponse(c, err)
	}
	_ = partnerID

	q := trade.ListTradesQuery{
		ContactID: contactID,
		WalletID:  c.Query("walletId"),
	}

	switch c.Query("open") {
	case "":
	case "true":
		open := true
		q.Open = &open
	case "false":
		open := false
		q.Open = &open
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "open must be 'true' or 'false'"})
	}

	if raw := c.Query("startDate"); raw != "" {
		start, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "startDate must be YYYY-MM-DD"})
		}
		q.StartDate = start
	}
	if raw := c.Query("endDate"); raw != "" {
		end, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "endDate must be YYYY-MM-DD"})
		}
		q.EndDate = end
	}

	trades, err := h.service.ListTrades(c.Context(), q)
	if err != nil {
		h.logger.Error("api.list_trades.failed",
			zap.String("contact", contactID),
			zap.Error(err))
		return errorResponse(c, err)
	}

	return c.JSON(toContactTradeResponses(trades))
}

// GetTradeHandler returns one of the contact's trades.
func (h *TradeHandler) GetTradeHandler(c *fiber.Ctx) error {
	contactID, partnerID, err := caller(c)
	if err != nil {
		return errorResponse(c, err)
	}

	t, err := h.service.GetTrade(c.Context(), c.Params("tradeId"), contactID, partnerID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(toContactTradeResponse(t))
}

// LimitRangeHandler returns the accepted limit rate interval for a pair.
func (h *TradeHandler) LimitRangeHandler(c *fiber.Ctx) error {
	contactID, partnerID, err := caller(c)
	if err != nil {
		return errorResponse(c, err)
	}

	var req LimitRangeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	action, err := model.ParseTradeType(req.Action)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	near, far, err := h.service.GetLimitRateRange(c.Context(), trade.LimitRangeParams{
		ContactID: contactID,
		PartnerID: partnerID,
		Ticker:    req.Ticker,
		Currency:  req.Currency,
		Amount:    req.Amount,
		Action:    action,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(LimitRangeResponse{NearRate: near, FarRate: far})
}

// LimitDraftHandler prices a limit order without booking it.
func (h *TradeHandler) LimitDraftHandler(c *fiber.Ctx) error {
	p, err := h.limitParams(c)
	if err != nil {
		return errorResponse(c, err)
	}

	t, err := h.service.GetLimitTradeDraft(c.Context(), *p)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(toContactTradeResponse(t))
}

// CreateLimitTradeHandler books a limit order.
func (h *TradeHandler) CreateLimitTradeHandler(c *fiber.Ctx) error {
	p, err := h.limitParams(c)
	if err != nil {
		return errorResponse(c, err)
	}

	t, err := h.service.CreateLimitTrade(c.Context(), *p)
	if err != nil {
		h.logger.Error("api.create_limit_trade.failed",
			zap.String("contact", p.ContactID),
			zap.Error(err))
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(toContactTradeResponse(t))
}

// CancelLimitTradeHandler requests cancellation of an open limit order.
func (h *TradeHandler) CancelLimitTradeHandler(c *fiber.Ctx) error {
	contactID, partnerID, err := caller(c)
	if err != nil {
		return errorResponse(c, err)
	}

	if err := h.service.CancelLimitTrade(c.Context(), c.Params("tradeId"), contactID, partnerID); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// RetryTradeHandler re-dispatches a stuck market trade to the worker.
func (h *TradeHandler) RetryTradeHandler(c *fiber.Ctx) error {
	contactID, partnerID, err := caller(c)
	if err != nil {
		return errorResponse(c, err)
	}

	if err := h.service.RetryTrade(c.Context(), c.Params("tradeId"), contactID, partnerID); err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

// UpdateTradeStatusHandler forces a trade into a terminal status.
func (h *TradeHandler) UpdateTradeStatusHandler(c *fiber.Ctx) error {
	contactID, partnerID, err := caller(c)
	if err != nil {
		return errorResponse(c, err)
	}

	var req UpdateTradeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := req.Validate(); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	err = h.service.UpdateTradeStatus(c.Context(), c.Params("tradeId"),
		model.TradeStatus(req.TradeStatus), contactID, partnerID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func (h *TradeHandler) limitParams(c *fiber.Ctx) (*trade.CreateLimitTradeParams, error) {
	contactID, partnerID, err := caller(c)
	if err != nil {
		return nil, err
	}

	var req CreateLimitTradeRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, apperr.New(fiber.StatusBadRequest, err.Error())
	}
	if err := req.Validate(); err != nil {
		return nil, apperr.New(fiber.StatusBadRequest, err.Error())
	}

	action, err := model.ParseTradeType(req.Action)
	if err != nil {
		return nil, err
	}

	return &trade.CreateLimitTradeParams{
		CreateTradeParams: trade.CreateTradeParams{
			ContactID: contactID,
			PartnerID: partnerID,
			WalletID:  req.WalletID,
			AccountID: req.AccountID,
			Amount:    req.Amount,
			Currency:  req.Currency,
			Action:    action,
		},
		LimitRate: req.LimitRate,
	}, nil
}
