package handlers

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

var defaultTiers = shippingTiers{
	FreeMin:  100,
	MidMin:   50,
	MidCost:  5.99,
	BaseCost: 9.99,
}

func TestCalculateShipping(t *testing.T) {
	assert.Equal(t, 0.0, calculateShipping(100.00, defaultTiers))
	assert.Equal(t, 0.0, calculateShipping(250.00, defaultTiers))
	assert.Equal(t, 5.99, calculateShipping(99.99, defaultTiers))
	assert.Equal(t, 5.99, calculateShipping(50.00, defaultTiers))
	assert.Equal(t, 9.99, calculateShipping(49.99, defaultTiers))
	assert.Equal(t, 9.99, calculateShipping(0.01, defaultTiers))
}

func TestCalculateTax(t *testing.T) {
	assert.Equal(t, 0.80, calculateTax(10.00, 0.08))
	// 16.97 * 0.08 = 1.3576, rounds to 1.36
	assert.Equal(t, 1.36, calculateTax(16.97, 0.08))
	assert.Equal(t, 0.0, calculateTax(0, 0.08))
}

// Two items at 4.99 plus one at 6.99: subtotal 16.97, which sits below
// the mid shipping tier, so the full checkout total is 28.32.
func TestCheckoutTotals(t *testing.T) {
	subtotal := roundCents(2*4.99 + 1*6.99)
	assert.Equal(t, 16.97, subtotal)

	tax := calculateTax(subtotal, 0.08)
	assert.Equal(t, 1.36, tax)

	shipping := calculateShipping(subtotal, defaultTiers)
	assert.Equal(t, 9.99, shipping)

	assert.Equal(t, 28.32, roundCents(subtotal+tax+shipping))
}

func TestRoundCents(t *testing.T) {
	assert.Equal(t, 0.1, roundCents(0.1+0.2-0.2))
	assert.Equal(t, 1.36, roundCents(1.3576))
	assert.Equal(t, 1.35, roundCents(1.3549))
}

func TestGenerateOrderNumber(t *testing.T) {
	pattern := regexp.MustCompile(`^ORD-[0-9A-Z]+-[0-9A-Z]{5}$`)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		n := generateOrderNumber()
		assert.Regexp(t, pattern, n)
		seen[n] = true
	}
	// 100 draws colliding would be a broken generator, not bad luck.
	assert.Greater(t, len(seen), 90)
}
