// Package pricing implements the numeric core of the betting engine:
// probability/odds conversion, fee decomposition, and constant-product
// price impact. Every function is pure and deterministic; there is no
// internal state and no clock.
package pricing

import (
	"fmt"
	"math"

	"github.com/zentrolabs/zentro-engine/internal/domain"
)

// Config holds the fee and slippage parameters for a pricing computation.
// Each fee is a fraction in [0,1). Config is immutable per call; callers
// may override DefaultConfig per computation.
type Config struct {
	BaseFee      float64
	LiquidityFee float64
	ProtocolFee  float64
	MaxSlippage  float64
}

// DefaultConfig returns the documented default fee schedule:
// 0.1% base, 0.2% liquidity, 0.05% protocol, 5% max slippage.
func DefaultConfig() Config {
	return Config{
		BaseFee:      0.001,
		LiquidityFee: 0.002,
		ProtocolFee:  0.0005,
		MaxSlippage:  0.05,
	}
}

// MarketOdds is the normalized odds pair for a binary market plus the
// implied probability of the yes outcome.
type MarketOdds struct {
	Yes                float64 `json:"yes"`
	No                 float64 `json:"no"`
	ImpliedProbability float64 `json:"implied_probability"`
}

// FeeBreakdown decomposes the trading fees charged on an amount.
type FeeBreakdown struct {
	BaseFee      float64 `json:"base_fee"`
	LiquidityFee float64 `json:"liquidity_fee"`
	ProtocolFee  float64 `json:"protocol_fee"`
	TotalFees    float64 `json:"total_fees"`
	NetAmount    float64 `json:"net_amount"`
}

// ImpactResult describes how a trade moves the pool price.
type ImpactResult struct {
	PriceImpact float64 `json:"price_impact"`
	NewPrice    float64 `json:"new_price"`
	Slippage    float64 `json:"slippage"`
}

// Odds normalizes independent yes/no pool prices into market odds. The
// prices are treated as raw AMM pool outputs, not probabilities: nothing
// here assumes yesPrice+noPrice == 1.
func Odds(yesPrice, noPrice float64) (MarketOdds, error) {
	total := yesPrice + noPrice
	if total == 0 {
		return MarketOdds{}, fmt.Errorf("pricing: yes+no price sum is zero: %w", domain.ErrDivisionByZero)
	}

	yes := yesPrice / total
	return MarketOdds{
		Yes:                yes,
		No:                 noPrice / total,
		ImpliedProbability: yes,
	}, nil
}

// OddsToProbability converts decimal odds to an implied probability via
// p = 1/(odds+1).
func OddsToProbability(odds float64) float64 {
	return 1 / (odds + 1)
}

// ProbabilityToOdds converts an implied probability in (0,1) to decimal
// odds via (1-p)/p.
func ProbabilityToOdds(p float64) (float64, error) {
	if p <= 0 || p >= 1 {
		return 0, fmt.Errorf("pricing: probability %v outside (0,1): %w", p, domain.ErrInvalidInput)
	}
	return (1 - p) / p, nil
}

// TradingFees decomposes the fees charged on a positive trade amount.
// The invariant NetAmount + TotalFees == amount holds to floating epsilon.
func TradingFees(amount float64, cfg Config) (FeeBreakdown, error) {
	if amount <= 0 {
		return FeeBreakdown{}, fmt.Errorf("pricing: amount %v must be positive: %w", amount, domain.ErrInvalidInput)
	}

	base := amount * cfg.BaseFee
	liquidity := amount * cfg.LiquidityFee
	protocol := amount * cfg.ProtocolFee
	total := base + liquidity + protocol

	return FeeBreakdown{
		BaseFee:      base,
		LiquidityFee: liquidity,
		ProtocolFee:  protocol,
		TotalFees:    total,
		NetAmount:    amount - total,
	}, nil
}

// PriceImpact computes how a trade of tradeAmount against a pool with the
// given liquidity and current price moves the price, using the constant
// product k = liquidity * currentPrice. A zero tradeAmount is a valid
// no-op yielding zero impact.
func PriceImpact(tradeAmount, liquidity, currentPrice float64) (ImpactResult, error) {
	newLiquidity := liquidity + tradeAmount
	if newLiquidity <= 0 {
		return ImpactResult{}, fmt.Errorf("pricing: post-trade liquidity %v: %w", newLiquidity, domain.ErrDivisionByZero)
	}
	if currentPrice <= 0 {
		return ImpactResult{}, fmt.Errorf("pricing: current price %v: %w", currentPrice, domain.ErrDivisionByZero)
	}

	k := liquidity * currentPrice
	newPrice := k / newLiquidity
	impact := math.Abs(newPrice-currentPrice) / currentPrice

	return ImpactResult{
		PriceImpact: impact,
		NewPrice:    newPrice,
		Slippage:    impact,
	}, nil
}

// MinimumReceived returns the worst-case output of a trade given a
// slippage tolerance in [0,1).
func MinimumReceived(expected, slippageTolerance float64) (float64, error) {
	if err := checkTolerance(slippageTolerance); err != nil {
		return 0, err
	}
	return expected * (1 - slippageTolerance), nil
}

// MaximumInput returns the worst-case input of a trade given a slippage
// tolerance in [0,1).
func MaximumInput(expected, slippageTolerance float64) (float64, error) {
	if err := checkTolerance(slippageTolerance); err != nil {
		return 0, err
	}
	return expected * (1 + slippageTolerance), nil
}

func checkTolerance(tol float64) error {
	if tol < 0 || tol >= 1 {
		return fmt.Errorf("pricing: slippage tolerance %v outside [0,1): %w", tol, domain.ErrInvalidInput)
	}
	return nil
}
