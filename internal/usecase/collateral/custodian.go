package collateral

import (
	"context"
	"fmt"
	"strings"
	"sync"

	collateralv1 "github.com/muhammadchandra19/exchange-core/internal/domain/collateral/v1"
	"github.com/muhammadchandra19/exchange-core/pkg/logger"
	"github.com/shopspring/decimal"
)

// Balance is the custody position of one trader in one asset.
type Balance struct {
	Available decimal.Decimal `json:"available"`
	Held      decimal.Decimal `json:"held"`
}

// Custodian is an in-memory balance keeper.
// In unlimited mode reservations always succeed and balances may go negative.
type Custodian struct {
	mu        sync.Mutex
	balances  map[string]map[string]*Balance
	unlimited bool
	logger    logger.Interface
}

// NewCustodian creates an empty custodian.
func NewCustodian(unlimited bool, log logger.Interface) *Custodian {
	return &Custodian{
		balances:  make(map[string]map[string]*Balance),
		unlimited: unlimited,
		logger:    log,
	}
}

func (c *Custodian) balance(trader, asset string) *Balance {
	assets, ok := c.balances[trader]
	if !ok {
		assets = make(map[string]*Balance)
		c.balances[trader] = assets
	}
	b, ok := assets[asset]
	if !ok {
		b = &Balance{Available: decimal.Zero, Held: decimal.Zero}
		assets[asset] = b
	}
	return b
}

// Deposit credits amount to the available balance.
func (c *Custodian) Deposit(trader, asset string, amount decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := c.balance(trader, asset)
	b.Available = b.Available.Add(amount)
}

// Seed loads balances written as trader:asset:amount entries.
func (c *Custodian) Seed(entries []string) error {
	for _, entry := range entries {
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return fmt.Errorf("invalid balance entry %q", entry)
		}
		amount, err := decimal.NewFromString(parts[2])
		if err != nil {
			return fmt.Errorf("invalid amount in %q: %w", entry, err)
		}
		c.Deposit(parts[0], parts[1], amount)
	}
	return nil
}

// Balance returns a copy of the position.
func (c *Custodian) Balance(trader, asset string) Balance {
	c.mu.Lock()
	defer c.mu.Unlock()
	return *c.balance(trader, asset)
}

// Reserve moves amount from available to held.
func (c *Custodian) Reserve(_ context.Context, trader, asset string, amount decimal.Decimal) (bool, error) {
	if amount.IsNegative() {
		return false, fmt.Errorf("negative reservation %s", amount)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	b := c.balance(trader, asset)
	if !c.unlimited && b.Available.LessThan(amount) {
		return false, nil
	}
	b.Available = b.Available.Sub(amount)
	b.Held = b.Held.Add(amount)
	return true, nil
}

// Release moves amount from held back to available.
func (c *Custodian) Release(_ context.Context, trader, asset string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("negative release %s", amount)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	b := c.balance(trader, asset)
	if !c.unlimited && b.Held.LessThan(amount) {
		return fmt.Errorf("release of %s %s exceeds held %s for %s", amount, asset, b.Held, trader)
	}
	b.Held = b.Held.Sub(amount)
	b.Available = b.Available.Add(amount)
	return nil
}

// Settle moves the notional from buyer to seller and the quantity from seller to buyer, out of held funds.
func (c *Custodian) Settle(ctx context.Context, s collateralv1.Settlement) error {
	t := s.Trade

	c.mu.Lock()
	defer c.mu.Unlock()

	buyerQuote := c.balance(t.Buyer(), s.QuoteAsset)
	sellerBase := c.balance(t.Seller(), s.BaseAsset)
	if !c.unlimited {
		if buyerQuote.Held.LessThan(t.Notional) {
			return fmt.Errorf("trade %s: buyer %s holds %s %s, needs %s", t.ID, t.Buyer(), buyerQuote.Held, s.QuoteAsset, t.Notional)
		}
		if sellerBase.Held.LessThan(t.Quantity) {
			return fmt.Errorf("trade %s: seller %s holds %s %s, needs %s", t.ID, t.Seller(), sellerBase.Held, s.BaseAsset, t.Quantity)
		}
	}

	buyerQuote.Held = buyerQuote.Held.Sub(t.Notional)
	sellerBase.Held = sellerBase.Held.Sub(t.Quantity)

	buyerBase := c.balance(t.Buyer(), s.BaseAsset)
	buyerBase.Available = buyerBase.Available.Add(t.Quantity)
	sellerQuote := c.balance(t.Seller(), s.QuoteAsset)
	sellerQuote.Available = sellerQuote.Available.Add(t.Notional)

	c.logger.DebugContext(ctx, "trade settled", logger.Field{Key: "trade_id", Value: t.ID})
	return nil
}

var _ collateralv1.Custodian = (*Custodian)(nil)
