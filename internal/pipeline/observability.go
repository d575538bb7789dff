package pipeline

import (
	"fmt"
	"log"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Observer defines the interface for structured observability during
// deployment.
type Observer interface {
	// Printf logs a progress message.
	Printf(format string, v ...interface{})

	// Warnf logs a non-fatal warning.
	Warnf(format string, v ...interface{})
}

// ConsoleObserver implements Observer using the standard log package,
// with color when attached to a terminal.
type ConsoleObserver struct {
	warnStyle lipgloss.Style
	color     bool
}

// NewConsoleObserver creates a new console-based observer.
func NewConsoleObserver() *ConsoleObserver {
	return &ConsoleObserver{
		warnStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		color:     isatty.IsTerminal(os.Stderr.Fd()),
	}
}

// Printf implements Observer.
func (o *ConsoleObserver) Printf(format string, v ...interface{}) {
	log.Printf(format, v...)
}

// Warnf implements Observer.
func (o *ConsoleObserver) Warnf(format string, v ...interface{}) {
	msg := fmt.Sprintf("WARNING: "+format, v...)
	if o.color {
		msg = o.warnStyle.Render(msg)
	}
	log.Print(msg)
}
