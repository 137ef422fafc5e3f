package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/miraucorp/trade-service/pkg/apperr"
	"github.com/miraucorp/trade-service/pkg/model"
)

// ErrTradeNotFound is returned when a trade id has no row.
var ErrTradeNotFound = apperr.New(http.StatusNotFound, "trade not found")

// ErrTooManyOpenLimitTrades rejects a new limit order when the contact
// already has the maximum number of open orders for that coin.
var ErrTooManyOpenLimitTrades = apperr.New(http.StatusBadRequest, "too many open limit trades")

// Store defines the contract for caching and persisting trades.
type Store interface {
	InsertTrade(ctx context.Context, trade model.Trade) error
	InsertLimitTrade(ctx context.Context, trade model.Trade, maxOpen int) error
	GetTrade(ctx context.Context, tradeID string) (*model.Trade, error)
	GetTradesForContact(ctx context.Context, contactID string, start, end time.Time, walletID string) ([]model.Trade, error)
	GetOpenLimitTrades(ctx context.Context, contactID, walletID string) ([]model.Trade, error)
	GetClosedLimitTrades(ctx context.Context, contactID, walletID string) ([]model.Trade, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	HealthCheck(ctx context.Context) error
	Close() error
}

type HybridStore struct {
	redis  *redis.Client
	PG     *pgxpool.Pool
	logger *zap.Logger
}

type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// NewHybrid creates a Redis-first, Postgres-backed store.
func NewHybrid(redisAddr string, redisDB int, pgURL string, pgPoolConfig PGPoolConfig, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   redisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	var pgPool *pgxpool.Pool
	if pgURL != "" {
		cfg, err := pgxpool.ParseConfig(pgURL)
		if err != nil {
			return nil, fmt.Errorf("invalid pg config: %w", err)
		}
		if pgPoolConfig.MaxConns > 0 {
			cfg.MaxConns = pgPoolConfig.MaxConns
		}
		if pgPoolConfig.MinConns > 0 {
			cfg.MinConns = pgPoolConfig.MinConns
		}
		if pgPoolConfig.MaxConnLifetime > 0 {
			cfg.MaxConnLifetime = pgPoolConfig.MaxConnLifetime
		}
		if pgPoolConfig.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = pgPoolConfig.MaxConnIdleTime
		}
		if pgPoolConfig.HealthCheckPeriod > 0 {
			cfg.HealthCheckPeriod = pgPoolConfig.HealthCheckPeriod
		}
		pgPool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	return &HybridStore{redis: rdb, PG: pgPool, logger: logger}, nil
}

const insertTradeSQL = `
	INSERT INTO trading.trade (
		trade_id, contact_id, partner_id,
		trade_type, trade_status, trade_substatus, trade_error,
		source_amount, source_currency, fee_in_source_currency, source_total, source_wallet_id,
		target_amount, target_currency, fee_in_target_currency, target_total, target_wallet_id,
		rate, inverse_rate, fees,
		order_type, executed_pct, created_at, updated_at, expires_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
	        $15, $16, $17, $18, $19, $20, $21, $22, NOW(), NOW(), $23)`

const insertTradeFxSQL = `
	INSERT INTO trading.trade_fx (
		trade_id, fx_type, provider, quote_or_actual,
		source_amount, source_currency, source_total,
		target_amount, target_currency, target_total,
		rate, inverse_rate,
		order_type, volume_executed, created_at, expires_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

// InsertTrade persists a market trade and its FX legs in one transaction.
func (s *HybridStore) InsertTrade(ctx context.Context, trade model.Trade) error {
	return pgx.BeginFunc(ctx, s.PG, func(tx pgx.Tx) error {
		return s.insertTradeTx(ctx, tx, trade)
	})
}

// InsertLimitTrade persists a limit order, but only while the contact has
// fewer than maxOpen open limit orders on the same source coin. Open orders
// consume venue liquidity, hence the cap.
func (s *HybridStore) InsertLimitTrade(ctx context.Context, trade model.Trade, maxOpen int) error {
	return pgx.BeginFunc(ctx, s.PG, func(tx pgx.Tx) error {
		var open int
		err := tx.QueryRow(ctx, `
			SELECT COUNT(*)
			FROM trading.trade
			WHERE contact_id = $1
			  AND order_type = $2
			  AND trade_status = $3
			  AND source_currency = $4`,
			trade.ContactID, model.OrderTypeLimit, model.StatusOrderOpened, trade.SourceCurrency,
		).Scan(&open)
		if err != nil {
			return fmt.Errorf("count open limit trades: %w", err)
		}
		if open >= maxOpen {
			return fmt.Errorf("%w: only %d open limit trades allowed for %s",
				ErrTooManyOpenLimitTrades, maxOpen, trade.SourceCurrency)
		}
		return s.insertTradeTx(ctx, tx, trade)
	})
}

func (s *HybridStore) insertTradeTx(ctx context.Context, tx pgx.Tx, trade model.Trade) error {
	fees, err := json.Marshal(trade.Fees)
	if err != nil {
		return fmt.Errorf("marshal fees: %w", err)
	}

	var expiresAt *time.Time
	if !trade.ExpiresAt.IsZero() {
		expiresAt = &trade.ExpiresAt
	}

	_, err = tx.Exec(ctx, insertTradeSQL,
		trade.TradeID, trade.ContactID, trade.PartnerID,
		trade.TradeType, trade.TradeStatus, nullable(string(trade.TradeSubstatus)), nullable(trade.TradeError),
		trade.SourceAmount, trade.SourceCurrency, trade.FeeInSourceCurrency, trade.SourceTotal, trade.SourceWalletID,
		trade.TargetAmount, trade.TargetCurrency, trade.FeeInTargetCurrency, trade.TargetTotal, trade.TargetWalletID,
		trade.Rate, trade.InverseRate, fees,
		nullable(string(trade.OrderType)), nullable(trade.ExecutedPct), expiresAt,
	)
	if err != nil {
		s.logger.Error("store.pg.insert_trade_failed",
			zap.String("trade_id", trade.TradeID),
			zap.Error(err))
		return err
	}

	for _, fx := range trade.Fxs {
		var fxExpires, fxCreated *time.Time
		if !fx.ExpiresAt.IsZero() {
			fxExpires = &fx.ExpiresAt
		}
		if !fx.CreatedAt.IsZero() {
			fxCreated = &fx.CreatedAt
		}
		_, err = tx.Exec(ctx, insertTradeFxSQL,
			trade.TradeID, fx.Type, fx.Provider, fx.QuoteOrActual,
			fx.SourceAmount, fx.SourceCurrency, fx.SourceTotal,
			fx.TargetAmount, fx.TargetCurrency, fx.TargetTotal,
			fx.Rate, fx.InverseRate,
			nullable(string(fx.OrderType)), fx.VolumeExecuted, fxCreated, fxExpires,
		)
		if err != nil {
			s.logger.Error("store.pg.insert_trade_fx_failed",
				zap.String("trade_id", trade.TradeID),
				zap.Error(err))
			return err
		}
	}
	return nil
}

const selectTradeSQL = `
	SELECT trade_id, contact_id, partner_id,
	       trade_type, trade_status, COALESCE(trade_substatus, ''), COALESCE(trade_error, ''),
	       source_amount, source_currency, fee_in_source_currency, source_total, source_wallet_id,
	       target_amount, target_currency, fee_in_target_currency, target_total, target_wallet_id,
	       rate, inverse_rate, fees,
	       COALESCE(debit_tx_id, ''), COALESCE(credit_tx_id, ''), COALESCE(refund_tx_id, ''),
	       COALESCE(order_type, ''), COALESCE(executed_pct, ''),
	       created_at, updated_at, COALESCE(expires_at, 'epoch'::timestamptz)
	FROM trading.trade`

// GetTrade fetches one trade with its FX legs.
func (s *HybridStore) GetTrade(ctx context.Context, tradeID string) (*model.Trade, error) {
	row := s.PG.QueryRow(ctx, selectTradeSQL+` WHERE trade_id = $1 LIMIT 1`, tradeID)

	trade, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrTradeNotFound, tradeID)
		}
		return nil, fmt.Errorf("get trade %s: %w", tradeID, err)
	}

	fxs, err := s.getTradeFxs(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	trade.Fxs = fxs
	return trade, nil
}

func (s *HybridStore) getTradeFxs(ctx context.Context, tradeID string) ([]model.TradeFx, error) {
	rows, err := s.PG.Query(ctx, `
		SELECT fx_type, provider, quote_or_actual,
		       source_amount, source_currency, source_total,
		       target_amount, target_currency, target_total,
		       rate, inverse_rate,
		       COALESCE(order_type, ''), volume_executed,
		       COALESCE(created_at, 'epoch'::timestamptz), COALESCE(expires_at, 'epoch'::timestamptz)
		FROM trading.trade_fx
		WHERE trade_id = $1
		ORDER BY id`, tradeID)
	if err != nil {
		return nil, fmt.Errorf("get trade fxs %s: %w", tradeID, err)
	}
	defer rows.Close()

	var fxs []model.TradeFx
	for rows.Next() {
		var fx model.TradeFx
		var orderType string
		if err := rows.Scan(&fx.Type, &fx.Provider, &fx.QuoteOrActual,
			&fx.SourceAmount, &fx.SourceCurrency, &fx.SourceTotal,
			&fx.TargetAmount, &fx.TargetCurrency, &fx.TargetTotal,
			&fx.Rate, &fx.InverseRate,
			&orderType, &fx.VolumeExecuted,
			&fx.CreatedAt, &fx.ExpiresAt); err != nil {
			return nil, err
		}
		fx.OrderType = model.OrderType(orderType)
		if fx.CreatedAt.Equal(epoch) {
			fx.CreatedAt = time.Time{}
		}
		if fx.ExpiresAt.Equal(epoch) {
			fx.ExpiresAt = time.Time{}
		}
		fxs = append(fxs, fx)
	}
	return fxs, rows.Err()
}

// GetTradesForContact lists a contact's market trades inside [start, end],
// end inclusive. Limit orders have their own listings.
func (s *HybridStore) GetTradesForContact(ctx context.Context, contactID string, start, end time.Time, walletID string) ([]model.Trade, error) {
	rows, err := s.PG.Query(ctx, selectTradeSQL+`
		WHERE contact_id = $1
		  AND (order_type IS NULL OR order_type = $2)
		  AND created_at >= $3 AND created_at < $4
		  AND ($5 = '' OR source_wallet_id = $5 OR target_wallet_id = $5)
		ORDER BY created_at DESC`,
		contactID, model.OrderTypeMarket, start, end.AddDate(0, 0, 1), walletID)
	if err != nil {
		return nil, fmt.Errorf("get trades for contact %s: %w", contactID, err)
	}
	defer rows.Close()
	return scanTrades(rows)
}

// GetOpenLimitTrades lists a contact's limit orders still in flight.
func (s *HybridStore) GetOpenLimitTrades(ctx context.Context, contactID, walletID string) ([]model.Trade, error) {
	return s.limitTrades(ctx, contactID, walletID, "NOT IN")
}

// GetClosedLimitTrades lists a contact's settled limit orders.
func (s *HybridStore) GetClosedLimitTrades(ctx context.Context, contactID, walletID string) ([]model.Trade, error) {
	return s.limitTrades(ctx, contactID, walletID, "IN")
}

func (s *HybridStore) limitTrades(ctx context.Context, contactID, walletID, op string) ([]model.Trade, error) {
	rows, err := s.PG.Query(ctx, selectTradeSQL+`
		WHERE contact_id = $1
		  AND order_type = $2
		  AND trade_status `+op+` ($3, $4)
		  AND ($5 = '' OR source_wallet_id = $5 OR target_wallet_id = $5)
		ORDER BY created_at DESC`,
		contactID, model.OrderTypeLimit, model.StatusCompleted, model.StatusFailed, walletID)
	if err != nil {
		return nil, fmt.Errorf("get limit trades for contact %s: %w", contactID, err)
	}
	defer rows.Close()
	return scanTrades(rows)
}

var epoch = time.Unix(0, 0).UTC()

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(row rowScanner) (*model.Trade, error) {
	var t model.Trade
	var substatus, orderType string
	var fees []byte
	if err := row.Scan(&t.TradeID, &t.ContactID, &t.PartnerID,
		&t.TradeType, &t.TradeStatus, &substatus, &t.TradeError,
		&t.SourceAmount, &t.SourceCurrency, &t.FeeInSourceCurrency, &t.SourceTotal, &t.SourceWalletID,
		&t.TargetAmount, &t.TargetCurrency, &t.FeeInTargetCurrency, &t.TargetTotal, &t.TargetWalletID,
		&t.Rate, &t.InverseRate, &fees,
		&t.DebitTxID, &t.CreditTxID, &t.RefundTxID,
		&orderType, &t.ExecutedPct,
		&t.CreatedAt, &t.UpdatedAt, &t.ExpiresAt); err != nil {
		return nil, err
	}
	t.TradeSubstatus = model.TradeSubstatus(substatus)
	t.OrderType = model.OrderType(orderType)
	if t.ExpiresAt.Equal(epoch) {
		t.ExpiresAt = time.Time{}
	}
	if len(fees) > 0 {
		if err := json.Unmarshal(fees, &t.Fees); err != nil {
			return nil, fmt.Errorf("unmarshal fees for %s: %w", t.TradeID, err)
		}
	}
	return &t, nil
}

func scanTrades(rows pgx.Rows) ([]model.Trade, error) {
	var trades []model.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, *t)
	}
	return trades, rows.Err()
}

// nullable maps "" to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *HybridStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, data, ttl).Err()
}

func (s *HybridStore) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (s *HybridStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil {
		return fmt.Errorf("redis not initialized")
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
	}
	return nil
}

func (s *HybridStore) Close() error {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
