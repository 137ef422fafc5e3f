package coin

import (
	"fmt"
	"net/http"

	"github.com/miraucorp/trade-service/pkg/apperr"
)

// Kind classifies a currency code.
type Kind string

const (
	Crypto Kind = "CRYPTO"
	Fiat   Kind = "FIAT"
)

// ErrUnknownCurrency is returned for codes absent from the active registry.
var ErrUnknownCurrency = apperr.New(http.StatusBadRequest, "unknown currency")

type entry struct {
	decimals int32
	kind     Kind
}

// Registry maps currency codes to kind and display-decimal precision.
// The mainnet and testnet tables are never mixed: the active one is chosen
// once at construction and the registry is immutable afterwards.
type Registry struct {
	coins map[string]entry
}

var mainnetCoins = map[string]entry{
	"BTC": {decimals: 8, kind: Crypto},
	"ETH": {decimals: 18, kind: Crypto},
	"BCH": {decimals: 8, kind: Crypto},
	"LTC": {decimals: 8, kind: Crypto},
	"TRX": {decimals: 6, kind: Crypto},
	"USD": {decimals: 2, kind: Fiat},
}

var testnetCoins = map[string]entry{
	"TBTC": {decimals: 8, kind: Crypto},
	"TETH": {decimals: 18, kind: Crypto},
	"TBCH": {decimals: 8, kind: Crypto},
	"TLTC": {decimals: 8, kind: Crypto},
	"TRX":  {decimals: 6, kind: Crypto},
	"USD":  {decimals: 2, kind: Fiat},
}

// NewRegistry selects the mainnet or testnet coin table.
func NewRegistry(testnet bool) *Registry {
	if testnet {
		return &Registry{coins: testnetCoins}
	}
	return &Registry{coins: mainnetCoins}
}

// Decimals returns the display-decimal precision for code.
func (r *Registry) Decimals(code string) (int32, error) {
	c, err := r.lookup(code)
	if err != nil {
		return 0, err
	}
	return c.decimals, nil
}

// Kind returns whether code is a crypto or a fiat currency.
func (r *Registry) Kind(code string) (Kind, error) {
	c, err := r.lookup(code)
	if err != nil {
		return "", err
	}
	return c.kind, nil
}

func (r *Registry) lookup(code string) (entry, error) {
	c, ok := r.coins[code]
	if !ok {
		return entry{}, fmt.Errorf("%w: %s", ErrUnknownCurrency, code)
	}
	return c, nil
}
