package domain

// sizing.go — Cálculo del tamaño de la orden de copia.
//
// El sizing es proporcional: si la cuenta observada usó el 5% de su
// portfolio, nosotros usamos el 5% del nuestro, con un techo duro del 15%
// del balance independiente de lo que haga la contraparte, y con los
// mínimos del venue ($1 / 5 tokens) siempre garantizados.

// SizingConfig contiene los límites del sizer.
type SizingConfig struct {
	MaxFraction      float64 // fracción máxima del balance por orden
	MinUSD           float64 // mínimo notional USDC del venue
	MinTokens        float64 // mínimo en tokens del venue
	FallbackFraction float64 // fracción usada cuando el portfolio estimado es <= 0
}

// DefaultSizingConfig devuelve los límites de producción de Polymarket.
func DefaultSizingConfig() SizingConfig {
	return SizingConfig{
		MaxFraction:      0.15,
		MinUSD:           1.0,
		MinTokens:        5.0,
		FallbackFraction: 0.01,
	}
}

// SizingDecision es el resultado del sizer: función pura de sus inputs,
// sin efectos secundarios.
type SizingDecision struct {
	SourceID          string
	USDSize           float64
	TokenSize         float64
	PortfolioFraction float64 // fracción del portfolio de la contraparte que usó su trade
	Capped            bool    // true si el techo MaxFraction recortó el tamaño
	FloorBumped       bool    // true si hubo que subir al mínimo del venue
}

// SizeCopyOrder calcula el tamaño de nuestra orden de copia.
//
// Total: nunca falla. Inputs degenerados (portfolio 0, precio 0, balance 0)
// producen una orden mínima recortada, no un error.
func SizeCopyOrder(obs ObservedTrade, balance float64, cfg SizingConfig) SizingDecision {
	d := SizingDecision{SourceID: obs.TxHash}

	// 1. ¿Qué fracción de su portfolio usó la contraparte?
	d.PortfolioFraction = cfg.FallbackFraction
	if obs.PortfolioValue > 0 {
		d.PortfolioFraction = obs.USDSize / obs.PortfolioValue
	}

	// 2-4. Tamaño proporcional, recortado al techo duro.
	proportionalUSD := d.PortfolioFraction * balance
	maxAllowedUSD := balance * cfg.MaxFraction

	cappedUSD := proportionalUSD
	if proportionalUSD > maxAllowedUSD {
		cappedUSD = maxAllowedUSD
		d.Capped = true
	}

	// 5. Tokens al precio observado.
	tokenSize := cappedUSD
	if obs.Price > 0 {
		tokenSize = cappedUSD / obs.Price
	}

	// 6. Mínimos del venue: si cualquiera de los dos suelos está violado,
	// re-derivar desde el suelo de mayor valor para satisfacer ambos.
	// El bump puede superar el techo MaxFraction — override aceptado: una
	// orden por debajo del mínimo sería rechazada de todas formas.
	if cappedUSD < cfg.MinUSD || tokenSize < cfg.MinTokens {
		d.FloorBumped = true
		usdForMinTokens := obs.Price * cfg.MinTokens
		if usdForMinTokens > cfg.MinUSD {
			tokenSize = cfg.MinTokens
			cappedUSD = tokenSize * obs.Price
		} else {
			cappedUSD = cfg.MinUSD
			if obs.Price > 0 {
				tokenSize = cappedUSD / obs.Price
			} else {
				tokenSize = cfg.MinTokens
			}
		}
	}

	d.USDSize = cappedUSD
	d.TokenSize = tokenSize
	return d
}
