package handlers

import (
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

// roundCents rounds a dollar amount to the nearest cent.
func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// calculateTax applies a flat rate to the subtotal, rounded to cents.
func calculateTax(subtotal, rate float64) float64 {
	return roundCents(subtotal * rate)
}

// shippingTiers carries the tiered free-shipping thresholds.
type shippingTiers struct {
	FreeMin  float64 // free shipping at or above this subtotal
	MidMin   float64 // reduced rate at or above this subtotal
	MidCost  float64
	BaseCost float64
}

// calculateShipping returns the shipping cost for a subtotal.
func calculateShipping(subtotal float64, t shippingTiers) float64 {
	switch {
	case subtotal >= t.FreeMin:
		return 0
	case subtotal >= t.MidMin:
		return t.MidCost
	default:
		return t.BaseCost
	}
}

const orderNumberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// generateOrderNumber builds the human-readable order identifier:
// ORD-<millisecond timestamp in base36>-<5 random base36 chars>.
func generateOrderNumber() string {
	ts := strings.ToUpper(strconv.FormatInt(time.Now().UnixMilli(), 36))

	suffix := make([]byte, 5)
	for i := range suffix {
		suffix[i] = orderNumberAlphabet[rand.IntN(len(orderNumberAlphabet))]
	}

	return "ORD-" + ts + "-" + string(suffix)
}
