// Package output prints command results for people, with styling when the
// destination is a terminal, or as JSON for scripts.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

type OutputFormat struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func Heading(s string) string {
	return headingStyle.Render(s)
}

func Dim(s string) string {
	return dimStyle.Render(s)
}

// Status colours a dataset status or check outcome by how good it is.
func Status(s string) string {
	switch s {
	case "SUCCESS":
		return passStyle.Render(s)
	case "FAILED":
		return failStyle.Render(s)
	case "PARTIAL", "UNAVAILABLE":
		return warnStyle.Render(s)
	default:
		return s
	}
}

func Success(w io.Writer, message string, args ...any) {
	fmt.Fprintf(w, "warehouse: "+message+"\n", args...)
}

func Error(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %s\n", failStyle.Render("error:"), err)
}

func Warning(w io.Writer, message string, args ...any) {
	fmt.Fprintf(w, warnStyle.Render("warning:")+" "+message+"\n", args...)
}

func JSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(OutputFormat{
		Status: "success",
		Data:   data,
	})
}

func JSONError(w io.Writer, err error) error {
	return json.NewEncoder(w).Encode(OutputFormat{
		Status:  "error",
		Message: err.Error(),
	})
}

// Table prints rows with columns padded to a common width. Cell widths are
// measured without styling, so styled cells line up too.
func Table(w io.Writer, data [][]string) {
	if len(data) == 0 {
		return
	}

	widths := make([]int, len(data[0]))
	for _, row := range data {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	for _, row := range data {
		var b strings.Builder
		for i, cell := range row {
			b.WriteString(cell)
			if i < len(row)-1 && i < len(widths) {
				b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)+2))
			}
		}
		fmt.Fprintln(w, b.String())
	}
}
