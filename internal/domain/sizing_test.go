package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func obs(usdSize, portfolio, price float64) ObservedTrade {
	return ObservedTrade{
		TxHash:         "0xtx",
		USDSize:        usdSize,
		PortfolioValue: portfolio,
		Price:          price,
	}
}

func TestSizeCopyOrder_Proportional(t *testing.T) {
	// usd=100 sobre portfolio 2000 → 5%; 5% de 500 = $25; techo $75; 25/0.40 = 62.5 tokens
	d := SizeCopyOrder(obs(100, 2000, 0.40), 500, DefaultSizingConfig())

	assert.InDelta(t, 0.05, d.PortfolioFraction, 1e-9)
	assert.InDelta(t, 25.0, d.USDSize, 1e-9)
	assert.InDelta(t, 62.5, d.TokenSize, 1e-9)
	assert.False(t, d.Capped)
	assert.False(t, d.FloorBumped)
}

func TestSizeCopyOrder_CheapPriceNoBump(t *testing.T) {
	// price=0.01 → 2500 tokens; ambos suelos ya satisfechos → sin bump
	d := SizeCopyOrder(obs(100, 2000, 0.01), 500, DefaultSizingConfig())

	assert.InDelta(t, 25.0, d.USDSize, 1e-9)
	assert.InDelta(t, 2500.0, d.TokenSize, 1e-9)
	assert.False(t, d.FloorBumped)
}

func TestSizeCopyOrder_CapAtMaxFraction(t *testing.T) {
	// La contraparte usó el 50% de su portfolio → nos recorta al 15%
	d := SizeCopyOrder(obs(1000, 2000, 0.50), 500, DefaultSizingConfig())

	assert.True(t, d.Capped)
	assert.InDelta(t, 75.0, d.USDSize, 1e-9) // 500 * 0.15
	assert.InDelta(t, 150.0, d.TokenSize, 1e-9)
}

func TestSizeCopyOrder_FloorBumpUSDHigher(t *testing.T) {
	// capped ≈ $0.50, price=0.05: 5 tokens valen $0.25 < $1 → manda el suelo USD
	d := SizeCopyOrder(obs(1, 1000, 0.05), 500, DefaultSizingConfig())

	assert.True(t, d.FloorBumped)
	assert.InDelta(t, 1.0, d.USDSize, 1e-9)
	assert.InDelta(t, 20.0, d.TokenSize, 1e-9)
}

func TestSizeCopyOrder_FloorBumpTokensHigher(t *testing.T) {
	// price=0.60: 5 tokens valen $3 > $1 → manda el suelo de tokens
	d := SizeCopyOrder(obs(1, 1000, 0.60), 500, DefaultSizingConfig())

	assert.True(t, d.FloorBumped)
	assert.InDelta(t, 5.0, d.TokenSize, 1e-9)
	assert.InDelta(t, 3.0, d.USDSize, 1e-9)
}

func TestSizeCopyOrder_FloorBumpOverridesCap(t *testing.T) {
	// Balance 5 → techo $0.75, pero el bump al suelo USD lo supera: el
	// suelo de venue manda sobre MaxFraction.
	cfg := DefaultSizingConfig()
	d := SizeCopyOrder(obs(1, 1000, 0.05), 5, cfg)

	assert.True(t, d.FloorBumped)
	assert.InDelta(t, 1.0, d.USDSize, 1e-9)
	assert.InDelta(t, 20.0, d.TokenSize, 1e-9)
	assert.Greater(t, d.USDSize, 5*cfg.MaxFraction)
}

func TestSizeCopyOrder_AfterBumpBothFloorsSatisfied(t *testing.T) {
	cfg := DefaultSizingConfig()
	cases := []struct {
		usd, portfolio, price, balance float64
	}{
		{0.10, 1000, 0.05, 100},
		{0.10, 1000, 0.60, 100},
		{1, 0, 0.30, 10}, // portfolio desconocido → fallback 1%
		{5, 100, 0, 50},  // precio degenerado
		{0.01, 10000, 0.001, 20},
	}

	for _, tc := range cases {
		d := SizeCopyOrder(obs(tc.usd, tc.portfolio, tc.price), tc.balance, cfg)
		satisfied := d.USDSize >= cfg.MinUSD-1e-9 || d.TokenSize >= cfg.MinTokens-1e-9
		assert.True(t, satisfied, "usd=%v tokens=%v for %+v", d.USDSize, d.TokenSize, tc)
	}
}

func TestSizeCopyOrder_CapHoldsUnlessBumped(t *testing.T) {
	cfg := DefaultSizingConfig()
	cases := []ObservedTrade{
		obs(100, 2000, 0.40),
		obs(1000, 2000, 0.50),
		obs(50, 500, 0.90),
		obs(10, 100, 0.10),
	}

	const balance = 500.0
	for _, o := range cases {
		d := SizeCopyOrder(o, balance, cfg)
		if !d.FloorBumped {
			assert.LessOrEqual(t, d.TokenSize*o.Price, balance*cfg.MaxFraction+1e-9)
		}
	}
}

func TestSizeCopyOrder_FallbackFraction(t *testing.T) {
	// Portfolio 0 → fracción fallback 1%
	d := SizeCopyOrder(obs(100, 0, 0.50), 1000, DefaultSizingConfig())

	assert.InDelta(t, 0.01, d.PortfolioFraction, 1e-9)
	assert.InDelta(t, 10.0, d.USDSize, 1e-9)
}

func TestSizeCopyOrder_ZeroPriceDegenerate(t *testing.T) {
	// price <= 0 → token_size = capped_usd (fallback degenerado), sin pánico
	d := SizeCopyOrder(obs(100, 2000, 0), 500, DefaultSizingConfig())

	assert.InDelta(t, 25.0, d.USDSize, 1e-9)
	assert.InDelta(t, 25.0, d.TokenSize, 1e-9)
}
