package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ivanov2024/Inventory-managment-microservice/internal/application/dto"
)

var (
	accent = lipgloss.Color("#2563EB")
	dim    = lipgloss.Color("#6B7280")
	inCol  = lipgloss.Color("#22C55E")
	outCol = lipgloss.Color("#EF4444")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
	dimStyle    = lipgloss.NewStyle().Foreground(dim)
	headerStyle = lipgloss.NewStyle().Bold(true)
	inStyle     = lipgloss.NewStyle().Foreground(inCol)
	outStyle    = lipgloss.NewStyle().Foreground(outCol)
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1)
)

const dateLayout = "2006-01-02 15:04:05"

// renderHistory tabla de movimientos con el producto como encabezado.
func renderHistory(p *dto.ProductResponse, txs []dto.StockTransactionResponse) string {
	var b strings.Builder

	head := titleStyle.Render(fmt.Sprintf("#%d %s", p.ID, p.Name)) + "\n" +
		dimStyle.Render(fmt.Sprintf("cantidad actual: %d", p.Quantity))
	b.WriteString(boxStyle.Render(head))
	b.WriteString("\n")

	if len(txs) == 0 {
		b.WriteString(dimStyle.Render("sin movimientos"))
		return b.String()
	}

	reasonWidth := len("Motivo")
	for _, t := range txs {
		if n := lipgloss.Width(t.Reason); n > reasonWidth {
			reasonWidth = n
		}
	}
	row := func(id, date, change, reason string) string {
		return fmt.Sprintf("%8s  %-19s  %8s  %s", id, date, change, reason)
	}

	b.WriteString(headerStyle.Render(row("ID", "Fecha", "Cambio", "Motivo")))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(strings.Repeat("─", 8+2+19+2+8+2+reasonWidth)))
	for _, t := range txs {
		change := fmt.Sprintf("%+d", t.ChangeAmount)
		if t.ChangeAmount > 0 {
			change = inStyle.Render(fmt.Sprintf("%8s", change))
		} else {
			change = outStyle.Render(fmt.Sprintf("%8s", change))
		}
		b.WriteString("\n")
		b.WriteString(row(fmt.Sprint(t.ID), t.CreatedAt.Local().Format(dateLayout), change, t.Reason))
	}
	return b.String()
}
