package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/amirbrooks/tasklite/internal/store"
)

type renderer struct {
	out      io.Writer
	legend   lipgloss.Style
	header   lipgloss.Style
	cell     lipgloss.Style
	done     lipgloss.Style
	priority lipgloss.Style
	due      lipgloss.Style
}

func (a *app) renderer() *renderer {
	r := lipgloss.NewRenderer(a.stdout)
	cell := r.NewStyle().Padding(0, 1)
	rd := &renderer{
		out:      a.stdout,
		legend:   r.NewStyle(),
		header:   cell.Bold(true),
		cell:     cell,
		done:     cell,
		priority: cell,
		due:      cell,
	}
	if a.cfg.NoColor {
		return rd
	}
	rd.legend = r.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("14"))
	rd.header = cell.Bold(true).Foreground(lipgloss.Color("12"))
	rd.done = cell.Foreground(lipgloss.Color("2"))
	rd.priority = cell.Foreground(lipgloss.Color("3"))
	rd.due = cell.Foreground(lipgloss.Color("1"))
	return rd
}

// rowStyle: completed wins, then due today/overdue, then priority.
func (rd *renderer) rowStyle(t store.Task) lipgloss.Style {
	switch {
	case t.Done:
		return rd.done
	case t.IsDueToday():
		return rd.due
	case t.Priority:
		return rd.priority
	default:
		return rd.cell
	}
}

func (rd *renderer) tasks(tasks []store.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(rd.out, "No tasks found.")
		return
	}
	fmt.Fprintln(rd.out, rd.legend.Render("Legend:"))
	fmt.Fprintf(rd.out, "%s: Priority task\n", rd.priority.UnsetPadding().Render("Yellow"))
	fmt.Fprintf(rd.out, "%s: Due today\n", rd.due.UnsetPadding().Render("Red"))
	fmt.Fprintf(rd.out, "%s: Completed\n", rd.done.UnsetPadding().Render("Green"))
	fmt.Fprintln(rd.out)

	styles := make([]lipgloss.Style, len(tasks))
	rows := make([][]string, len(tasks))
	for i, t := range tasks {
		styles[i] = rd.rowStyle(t)
		rows[i] = []string{
			strconv.Itoa(t.ID),
			t.Name,
			orDash(t.DueDate),
			orDash(strings.Join(t.Tags, ", ")),
			yesNo(t.Done),
		}
	}
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Title", "Due Date", "Tags", "Completed").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return rd.header
			}
			if row >= 0 && row < len(styles) {
				return styles[row]
			}
			return rd.cell
		})
	fmt.Fprintln(rd.out, tbl.Render())
}

func renderTaskDetail(t *store.Task) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%d. %s\n", t.ID, t.Name))
	b.WriteString(fmt.Sprintf("Priority: %s\n", yesNo(t.Priority)))
	b.WriteString(fmt.Sprintf("Completed: %s\n", yesNo(t.Done)))
	if t.DueDate != "" {
		b.WriteString(fmt.Sprintf("Due: %s\n", t.DueDate))
	}
	if len(t.Tags) > 0 {
		b.WriteString(fmt.Sprintf("Tags: %s\n", strings.Join(t.Tags, ", ")))
	}
	b.WriteString(fmt.Sprintf("Created: %s\n", t.CreatedAt))
	if t.UpdatedAt != "" {
		b.WriteString(fmt.Sprintf("Updated: %s\n", t.UpdatedAt))
	}
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
