package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// WriteText renders the view for a terminal. Styling is dropped when w is not a TTY.
func WriteText(w io.Writer, v View) error {
	re := lipgloss.NewRenderer(w)

	var (
		title  = re.NewStyle().Bold(true)
		muted  = re.NewStyle().Faint(true)
		cell   = re.NewStyle().Padding(0, 1)
		number = cell.Align(lipgloss.Right)
		header = cell.Bold(true)
		card   = re.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
		strong = re.NewStyle().Bold(true)
		warn   = re.NewStyle().Foreground(lipgloss.Color("#f59e0b"))
	)

	rows := make([][]string, 0, len(v.Rows))
	for _, r := range v.Rows {
		rows = append(rows, []string{r.Description, r.Quantity, r.UnitPrice, r.LineTotal, r.Category})
	}

	items := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Item", "Qty", "Price", "Total", "Category").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if col >= 1 && col <= 3 {
				return number
			}
			return cell
		})

	cards := make([]string, 0, len(v.Cards))
	for _, c := range v.Cards {
		cards = append(cards, card.Render(lipgloss.JoinVertical(
			lipgloss.Left,
			c.Label,
			strong.Render(c.Total),
			muted.Render(fmt.Sprintf("%d items", c.Count)),
		)))
	}

	totals := lipgloss.JoinVertical(
		lipgloss.Left,
		fmt.Sprintf("%-10s %10s", "Subtotal", v.Totals.Subtotal),
		fmt.Sprintf("%-10s %10s", "Tax", v.Totals.Tax),
		strong.Render(fmt.Sprintf("%-10s %10s", "Total", v.Totals.Total)),
	)

	sections := []string{
		title.Render(v.StoreName),
		muted.Render(v.Date),
		items.String(),
	}
	if len(cards) > 0 {
		sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	sections = append(sections, totals)
	if len(v.Notes) > 0 {
		notes := make([]string, 0, len(v.Notes))
		for _, n := range v.Notes {
			notes = append(notes, warn.Render("! "+n))
		}
		sections = append(sections, strings.Join(notes, "\n"))
	}

	_, err := fmt.Fprintln(w, lipgloss.JoinVertical(lipgloss.Left, sections...))
	return err
}

// WriteError renders a failed upload for a terminal
func WriteError(w io.Writer, message string) error {
	re := lipgloss.NewRenderer(w)
	alert := re.NewStyle().Foreground(lipgloss.Color("#ef4444")).Bold(true)
	_, err := fmt.Fprintln(w, alert.Render("Error: "+message))
	return err
}
