// Package trade orchestrates the trade lifecycle: quoting, pricing, balance
// validation, persistence, and handoff to the asynchronous workers.
package trade

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/miraucorp/trade-service/internal/metrics"
	"github.com/miraucorp/trade-service/internal/pricing"
	"github.com/miraucorp/trade-service/internal/store"
	"github.com/miraucorp/trade-service/pkg/apperr"
	"github.com/miraucorp/trade-service/pkg/model"
)

// Policy holds the booking rules that vary per environment.
type Policy struct {
	Testnet            bool
	MaxOpenLimitTrades int
	QuoteTTL           time.Duration
}

// Service orchestrates pricing, validation, persistence and worker handoff
// for market and limit trades.
type Service struct {
	logger *zap.Logger
	mapper *pricing.Mapper
	calc   *pricing.Calculator
	store  store.Store

	quotes   QuoteClient
	accounts AccountClient
	wallets  WalletClient
	fees     FeeClient
	bus      CommandBus
	crm      Notifier

	policy Policy
}

// NewService constructs a fully wired trade service.
func NewService(
	logger *zap.Logger,
	mapper *pricing.Mapper,
	calc *pricing.Calculator,
	st store.Store,
	quotes QuoteClient,
	accounts AccountClient,
	wallets WalletClient,
	fees FeeClient,
	bus CommandBus,
	crm Notifier,
	policy Policy,
) *Service {
	return &Service{
		logger:   logger,
		mapper:   mapper,
		calc:     calc,
		store:    st,
		quotes:   quotes,
		accounts: accounts,
		wallets:  wallets,
		fees:     fees,
		bus:      bus,
		crm:      crm,
		policy:   policy,
	}
}

// CreateMarketTrade prices a market trade against a live quote, validates
// balances, persists it and dispatches it to the fulfillment worker.
func (s *Service) CreateMarketTrade(ctx context.Context, p CreateTradeParams) (*CreatedTrade, error) {
	s.logger.Info("trade.create.start",
		zap.String("contact", p.ContactID),
		zap.String("action", string(p.Action)),
		zap.String("currency", p.Currency),
	)

	account, wallet, err := s.fetchAccountAndWallet(ctx, p.AccountID, p.WalletID, p.ContactID, p.PartnerID)
	if err != nil {
		return nil, err
	}

	ticker := tickerFor(wallet, account)
	quote, err := s.quotes.MarketQuote(ctx, p.ContactID, ticker, p.Currency, p.Amount, p.Action)
	if err != nil {
		metrics.IncTradeCreated(string(model.OrderTypeMarket), string(p.Action), "quote_failed")
		return nil, fmt.Errorf("market quote for %s: %w", ticker, err)
	}

	tradeID := uuid.New().String()
	t := s.mapper.ToMarketTrade(tradeID, *quote, p.Action, p.ContactID, p.PartnerID, p.WalletID, p.AccountID)

	if err := validateBalanceAndWallet(p.Action, account, wallet, &t); err != nil {
		metrics.IncTradeCreated(string(model.OrderTypeMarket), string(p.Action), "rejected")
		return nil, err
	}
	if err := s.wallets.ValidateAmount(ctx, &t); err != nil {
		metrics.IncTradeCreated(string(model.OrderTypeMarket), string(p.Action), "rejected")
		return nil, err
	}

	if err := s.store.InsertTrade(ctx, t); err != nil {
		metrics.IncTradeCreated(string(model.OrderTypeMarket), string(p.Action), "error")
		return nil, fmt.Errorf("insert trade %s: %w", tradeID, err)
	}

	// The worker re-reads the quote when executing; a cache miss there only
	// costs it a fresh lookup.
	if err := s.store.SetJSON(ctx, quoteKey(tradeID), quote, s.policy.QuoteTTL); err != nil {
		s.logger.Warn("trade.create.quote_cache_failed",
			zap.String("trade", tradeID), zap.Error(err))
	}

	// Fulfillment is asynchronous: the trade is already booked, so a publish
	// failure is retried through the retry endpoint, not by failing here.
	if err := s.bus.PublishFulfillTrade(ctx, tradeID, false, p.ContactID, p.PartnerID); err != nil {
		s.logger.Error("trade.create.fulfill_publish_failed",
			zap.String("trade", tradeID), zap.Error(err))
	}

	s.crm.TradeCreated(ctx, &t)
	metrics.IncTradeCreated(string(model.OrderTypeMarket), string(p.Action), "ok")

	s.logger.Info("trade.create.booked",
		zap.String("trade", tradeID),
		zap.String("source", t.SourceCurrency),
		zap.String("target", t.TargetCurrency),
	)

	return &CreatedTrade{
		Trade:         t,
		RateCreatedAt: quote.RateCreated,
		RateExpiresAt: quote.RateExpires,
	}, nil
}

// GetLimitRateRange returns the accepted limit rate interval for the pair,
// anchored on the current market rate.
func (s *Service) GetLimitRateRange(ctx context.Context, p LimitRangeParams) (near, far decimal.Decimal, err error) {
	if err = s.validateLimitTicker(p.Ticker, p.Currency); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	quote, err := s.quotes.MarketQuote(ctx, p.ContactID, p.Ticker, p.Currency, p.Amount, p.Action)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("market quote for %s: %w", p.Ticker, err)
	}

	return pricing.ValidLimitRateRange(p.Action, quote.PaymentFiatRate)
}

// GetLimitTradeDraft prices a limit order without booking it, so the
// customer can review amounts and fees before committing.
func (s *Service) GetLimitTradeDraft(ctx context.Context, p CreateLimitTradeParams) (*model.Trade, error) {
	account, wallet, err := s.fetchAccountAndWallet(ctx, p.AccountID, p.WalletID, p.ContactID, p.PartnerID)
	if err != nil {
		return nil, err
	}

	ticker := tickerFor(wallet, account)
	if err := s.validateLimitTicker(ticker, p.Currency); err != nil {
		return nil, err
	}

	quote, err := s.quotes.MarketQuote(ctx, p.ContactID, ticker, p.Currency, p.Amount, p.Action)
	if err != nil {
		return nil, fmt.Errorf("market quote for %s: %w", ticker, err)
	}

	if err := pricing.ValidateLimitRate(p.Action, p.LimitRate, quote.PaymentFiatRate); err != nil {
		return nil, err
	}

	records, err := s.fees.GetFees(ctx, p.ContactID)
	if err != nil {
		return nil, fmt.Errorf("fee schedule for %s: %w", p.ContactID, err)
	}

	lr, err := s.calc.LimitRate(pricing.LimitRateParams{
		Action:    p.Action,
		LimitRate: p.LimitRate,
		Ticker:    ticker,
		Amount:    p.Amount,
		Currency:  p.Currency,
	}, pricing.NewFeeSchedule(records))
	if err != nil {
		return nil, err
	}

	t, err := s.mapper.ToLimitTrade(uuid.New().String(), *lr, p.Action,
		p.ContactID, p.PartnerID, p.WalletID, p.AccountID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := validateBalanceAndWallet(p.Action, account, wallet, &t); err != nil {
		return nil, err
	}
	if err := s.wallets.ValidateAmount(ctx, &t); err != nil {
		return nil, err
	}

	return &t, nil
}

// CreateLimitTrade books a limit order and dispatches it to the limit worker.
func (s *Service) CreateLimitTrade(ctx context.Context, p CreateLimitTradeParams) (*model.Trade, error) {
	t, err := s.GetLimitTradeDraft(ctx, p)
	if err != nil {
		metrics.IncTradeCreated(string(model.OrderTypeLimit), string(p.Action), "rejected")
		return nil, err
	}

	if err := s.store.InsertLimitTrade(ctx, *t, s.policy.MaxOpenLimitTrades); err != nil {
		metrics.IncTradeCreated(string(model.OrderTypeLimit), string(p.Action), "error")
		return nil, err
	}

	if err := s.bus.PublishProcessLimitTrade(ctx, t.TradeID, false, p.ContactID, p.PartnerID); err != nil {
		s.logger.Error("trade.limit.process_publish_failed",
			zap.String("trade", t.TradeID), zap.Error(err))
	}

	s.crm.TradeCreated(ctx, t)
	metrics.IncTradeCreated(string(model.OrderTypeLimit), string(p.Action), "ok")

	s.logger.Info("trade.limit.booked",
		zap.String("trade", t.TradeID),
		zap.String("contact", p.ContactID),
	)

	return t, nil
}

// CancelLimitTrade asks the limit worker to unwind an open limit order.
// The worker owns the status transition; this only verifies ownership and
// dispatches the command.
func (s *Service) CancelLimitTrade(ctx context.Context, tradeID, contactID, partnerID string) error {
	t, err := s.ownedTrade(ctx, tradeID, contactID, partnerID)
	if err != nil {
		return err
	}
	if !t.IsLimit() {
		return apperr.New(http.StatusBadRequest, "not a limit trade")
	}

	if err := s.bus.PublishCancelLimitTrade(ctx, tradeID, contactID, partnerID); err != nil {
		return fmt.Errorf("publish cancel for %s: %w", tradeID, err)
	}

	s.crm.TradeCancelRequested(ctx, t)
	s.logger.Info("trade.limit.cancel_requested", zap.String("trade", tradeID))
	return nil
}

// RetryTrade re-dispatches a stuck market trade to the fulfillment worker.
func (s *Service) RetryTrade(ctx context.Context, tradeID, contactID, partnerID string) error {
	t, err := s.ownedTrade(ctx, tradeID, contactID, partnerID)
	if err != nil {
		return err
	}

	if t.TradeStatus == model.StatusCredited || t.TradeStatus == model.StatusFailed {
		return apperr.New(http.StatusForbidden,
			fmt.Sprintf("trade already finalized with status %s", t.TradeStatus))
	}

	if err := s.bus.PublishFulfillTrade(ctx, tradeID, true, contactID, partnerID); err != nil {
		return fmt.Errorf("publish retry for %s: %w", tradeID, err)
	}

	s.logger.Info("trade.retry_requested",
		zap.String("trade", tradeID),
		zap.String("status", string(t.TradeStatus)),
	)
	return nil
}

// UpdateTradeStatus forces a trade into a terminal status. Only the two
// terminal statuses may be forced; everything else belongs to the worker.
func (s *Service) UpdateTradeStatus(ctx context.Context, tradeID string, status model.TradeStatus, contactID, partnerID string) error {
	if status != model.StatusCredited && status != model.StatusFailed {
		return apperr.New(http.StatusBadRequest,
			fmt.Sprintf("status %s cannot be set manually", status))
	}

	if _, err := s.ownedTrade(ctx, tradeID, contactID, partnerID); err != nil {
		return err
	}

	if err := s.bus.PublishUpdateTradeStatus(ctx, tradeID, status, contactID, partnerID); err != nil {
		return fmt.Errorf("publish status update for %s: %w", tradeID, err)
	}

	s.logger.Info("trade.status_update_requested",
		zap.String("trade", tradeID),
		zap.String("status", string(status)),
	)
	return nil
}

// ListTrades returns the contact's trades. Limit orders are listed by
// open/closed state, market trades by date window (default: last 7 days).
func (s *Service) ListTrades(ctx context.Context, q ListTradesQuery) ([]model.Trade, error) {
	if q.Open != nil {
		if *q.Open {
			return s.store.GetOpenLimitTrades(ctx, q.ContactID, q.WalletID)
		}
		return s.store.GetClosedLimitTrades(ctx, q.ContactID, q.WalletID)
	}

	start, end := q.StartDate, q.EndDate
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -7)
	}
	return s.store.GetTradesForContact(ctx, q.ContactID, start, end, q.WalletID)
}

// GetTrade returns one of the contact's trades by id.
func (s *Service) GetTrade(ctx context.Context, tradeID, contactID, partnerID string) (*model.Trade, error) {
	return s.ownedTrade(ctx, tradeID, contactID, partnerID)
}

// ownedTrade fetches a trade and verifies it belongs to the caller.
func (s *Service) ownedTrade(ctx context.Context, tradeID, contactID, partnerID string) (*model.Trade, error) {
	t, err := s.store.GetTrade(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if t.ContactID != contactID || t.PartnerID != partnerID {
		return nil, apperr.New(http.StatusBadRequest, "trade does not belong to contact")
	}
	return t, nil
}

// fetchAccountAndWallet loads both sides of the pair concurrently.
func (s *Service) fetchAccountAndWallet(ctx context.Context, accountID, walletID, contactID, partnerID string) (*model.FiatAccount, *model.CryptoWallet, error) {
	var (
		account *model.FiatAccount
		wallet  *model.CryptoWallet
		accErr  error
		walErr  error
	)

	done := make(chan struct{}, 2)
	go func() {
		account, accErr = s.accounts.GetAccount(ctx, accountID, contactID)
		done <- struct{}{}
	}()
	go func() {
		wallet, walErr = s.wallets.GetWallet(ctx, walletID, contactID, partnerID)
		done <- struct{}{}
	}()
	<-done
	<-done

	if accErr != nil {
		return nil, nil, fmt.Errorf("get account %s: %w", accountID, accErr)
	}
	if walErr != nil {
		return nil, nil, fmt.Errorf("get wallet %s: %w", walletID, walErr)
	}
	return account, wallet, nil
}

// tickerFor derives the pair ticker from the wallet's coin and the account's
// fiat currency, e.g. "BTC_USD".
func tickerFor(wallet *model.CryptoWallet, account *model.FiatAccount) string {
	return wallet.Currency + "_" + account.BasicAccount.CurrencyCode
}

func quoteKey(tradeID string) string {
	return "trade:quote:" + tradeID
}

// validateBalanceAndWallet enforces the booking-time checks: the wallet
// allows the action, the source side is fully funded, and a BUY has a wallet
// address to credit.
func validateBalanceAndWallet(action model.TradeType, account *model.FiatAccount, wallet *model.CryptoWallet, t *model.Trade) error {
	switch {
	case action == model.TradeTypeBuy && wallet.DisabledActions.Buy:
		return apperr.New(http.StatusBadRequest,
			fmt.Sprintf("Buy %s temporarily disabled", wallet.Currency))
	case action == model.TradeTypeSell && wallet.DisabledActions.Sell:
		return apperr.New(http.StatusBadRequest,
			fmt.Sprintf("Sell %s temporarily disabled", wallet.Currency))
	}

	balance := wallet.SpendableBalance
	if action == model.TradeTypeBuy {
		balance = account.FinancialAccount.CurrentBalance
	}
	if t.SourceTotal.GreaterThan(balance) {
		return apperr.New(http.StatusBadRequest,
			fmt.Sprintf("Not enough balance: %s %s", balance, t.SourceCurrency))
	}

	if action == model.TradeTypeBuy && wallet.Type != "LEDGER" && wallet.ReceivingAddress == "" {
		return fmt.Errorf("wallet %s has no receiving address, it might not have been initialized", wallet.WalletID)
	}

	return nil
}

// Limit orders settle in USD only, on the majors the venue quotes limit
// books for.
var limitFiats = map[string]bool{"USD": true}

var limitCryptos = map[bool]map[string]bool{
	false: {"BTC": true, "ETH": true, "BCH": true, "LTC": true, "TRX": true},
	true:  {"TBTC": true, "TETH": true, "TBCH": true, "TLTC": true, "TRX": true},
}

// validateLimitTicker restricts limit orders to supported pairs and makes
// sure the amount currency belongs to the pair.
func (s *Service) validateLimitTicker(ticker, selectedCurrency string) error {
	cryptos := limitCryptos[s.policy.Testnet]

	sep := strings.LastIndex(ticker, "_")
	if sep < 0 {
		return apperr.New(http.StatusBadRequest, fmt.Sprintf("invalid limit trade ticker %s", ticker))
	}

	crypto, fiat := ticker[:sep], ticker[sep+1:]
	if !cryptos[crypto] || !limitFiats[fiat] {
		return apperr.New(http.StatusBadRequest, fmt.Sprintf("invalid limit trade ticker %s", ticker))
	}
	if selectedCurrency != crypto && selectedCurrency != fiat {
		return apperr.New(http.StatusBadRequest,
			fmt.Sprintf("currency %s is not part of ticker %s", selectedCurrency, ticker))
	}
	return nil
}
