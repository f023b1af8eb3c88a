package ports

import (
	"context"

	"github.com/danielrs/polycopy/internal/domain"
)

// Notifier presenta el estado del portfolio al usuario.
type Notifier interface {
	// Notify muestra el snapshot actual (en consola, una tabla formateada).
	// Un snapshot con Stale=true se etiqueta como datos antiguos.
	Notify(ctx context.Context, snap domain.PortfolioSnapshot) error
}
