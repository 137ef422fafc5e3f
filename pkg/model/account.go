package model

import "github.com/shopspring/decimal"

// FiatAccount is the account-service view of a customer's fiat account.
type FiatAccount struct {
	AccountID   string `json:"accountId"`
	AccountType string `json:"accountType"`

	BasicAccount struct {
		CurrencyCode string `json:"currencyCode"`
	} `json:"basicAccount"`

	FinancialAccount struct {
		CurrentBalance decimal.Decimal `json:"currentBalance"`
	} `json:"financialAccount"`
}

// CryptoWallet is the wallet-service view of a customer's crypto wallet.
type CryptoWallet struct {
	WalletID         string          `json:"walletId"`
	Currency         string          `json:"currency"`
	Type             string          `json:"type"`
	ReceivingAddress string          `json:"receivingAddress"`
	SpendableBalance decimal.Decimal `json:"spendableBalance"`

	DisabledActions struct {
		Buy  bool `json:"buy"`
		Sell bool `json:"sell"`
	} `json:"disabledActions"`
}
