package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/danielrs/polycopy/internal/domain"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime el snapshot en el modo configurado.
func (c *Console) Notify(_ context.Context, snap domain.PortfolioSnapshot) error {
	if len(snap.Positions) == 0 {
		fmt.Fprintf(c.out, "[%s] no open positions\n", snap.TakenAt.Format("15:04:05"))
		return nil
	}

	if c.table {
		c.printFull(snap)
	} else {
		c.printCompact(snap)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(snap domain.PortfolioSnapshot) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s]%s %d pos  val:$%.2f  pnl:%s",
		snap.TakenAt.Format("15:04:05"), staleLabel(snap),
		len(snap.Positions), snap.TotalValue, signedUSD(snap.TotalPnL))

	shown := 0
	for _, rep := range snap.Positions {
		if shown >= 3 {
			break
		}
		fmt.Fprintf(&sb, " | %s %s %s",
			compactName(rep.Position.Title, 25),
			rep.Position.Direction(),
			signedUSD(rep.PnL.PnL))
		shown++
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la tabla completa con totales.
func (c *Console) printFull(snap domain.PortfolioSnapshot) {
	fmt.Fprintf(c.out, "\n[%s]%s %d positions\n",
		snap.TakenAt.Format("2006-01-02 15:04:05"), staleLabel(snap), len(snap.Positions))

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Market", "Dir", "Size", "Avg", "Cur", "Value", "PnL", "PnL%")

	for i, rep := range snap.Positions {
		cur := fmt.Sprintf("%.3f", rep.PnL.CurrentPrice)
		if !rep.PnL.HasQuote {
			cur += "*"
		}

		table.Append(
			fmt.Sprintf("%d", i+1),
			truncate(rep.Position.Title, 40),
			rep.Position.Direction(),
			fmt.Sprintf("%.2f", rep.Position.NetSize),
			fmt.Sprintf("%.3f", rep.Position.AvgPrice()),
			cur,
			fmt.Sprintf("$%.2f", rep.PnL.Value),
			signedUSD(rep.PnL.PnL),
			fmt.Sprintf("%+.1f%%", rep.PnL.PnLPct),
		)
	}

	table.Render()

	fmt.Fprintf(c.out, "  Cost: $%.2f  Value: $%.2f  Unrealized: %s  Realized: %s  Total: %s\n",
		snap.TotalCost, snap.TotalValue,
		signedUSD(snap.UnrealizedPnL), signedUSD(snap.RealizedPnL), signedUSD(snap.TotalPnL))
	if snap.WinRate > 0 {
		fmt.Fprintf(c.out, "  Win rate: %.1f%%\n", snap.WinRate)
	}
	fmt.Fprintln(c.out, "  * = sin cotización, valorado al precio medio de entrada")
	fmt.Fprintln(c.out)
}

func staleLabel(snap domain.PortfolioSnapshot) string {
	if snap.Stale {
		return " [STALE " + time.Since(snap.TakenAt).Round(time.Second).String() + "]"
	}
	return ""
}

func signedUSD(v float64) string {
	return fmt.Sprintf("%+.2f$", v)
}

// compactName recorta el título de mercado para el modo compacto.
func compactName(s string, max int) string {
	s = strings.TrimPrefix(s, "Will ")
	return truncate(s, max)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
