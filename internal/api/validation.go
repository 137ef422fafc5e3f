package api

import (
	"fmt"
	"strings"
)

// Validate normalizes Action (trim, upper-case) in place so the same value
// that passed validation is the one parsed downstream.
func (r *CreateTradeRequest) Validate() error {
	if strings.TrimSpace(r.WalletID) == "" {
		return fmt.Errorf("walletId is required")
	}
	if strings.TrimSpace(r.AccountID) == "" {
		return fmt.Errorf("accountId is required")
	}
	if strings.TrimSpace(r.Currency) == "" {
		return fmt.Errorf("currency is required")
	}
	r.Action = strings.ToUpper(strings.TrimSpace(r.Action))
	if r.Action != "BUY" && r.Action != "SELL" {
		return fmt.Errorf("action must be 'BUY' or 'SELL'")
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("amount must be greater than 0")
	}
	return nil
}

func (r *CreateLimitTradeRequest) Validate() error {
	if err := r.CreateTradeRequest.Validate(); err != nil {
		return err
	}
	if !r.LimitRate.IsPositive() {
		return fmt.Errorf("limitRate must be greater than 0")
	}
	return nil
}

func (r *LimitRangeRequest) Validate() error {
	if strings.TrimSpace(r.Ticker) == "" {
		return fmt.Errorf("ticker is required")
	}
	if strings.TrimSpace(r.Currency) == "" {
		return fmt.Errorf("currency is required")
	}
	r.Action = strings.ToUpper(strings.TrimSpace(r.Action))
	if r.Action != "BUY" && r.Action != "SELL" {
		return fmt.Errorf("action must be 'BUY' or 'SELL'")
	}
	if !r.Amount.IsPositive() {
		return fmt.Errorf("amount must be greater than 0")
	}
	return nil
}

func (r *UpdateTradeStatusRequest) Validate() error {
	if strings.TrimSpace(r.TradeStatus) == "" {
		return fmt.Errorf("tradeStatus is required")
	}
	return nil
}
