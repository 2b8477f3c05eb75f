package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
)

// Status prints one-line startup and command results: "✓ ..." for steps
// that succeeded, "! ..." for warnings and "✗ ..." for failures.
type Status struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewStatus creates a status printer that writes to w.
// If w is nil, it defaults to os.Stdout.
func NewStatus(w io.Writer) *Status {
	if w == nil {
		w = os.Stdout
	}
	return &Status{writer: w}
}

// Success reports a completed step.
func (s *Status) Success(format string, args ...any) {
	s.print(successStyle.Render("✓"), format, args...)
}

// Warn reports a step that completed in a degraded way.
func (s *Status) Warn(format string, args ...any) {
	s.print(warningStyle.Render("!"), format, args...)
}

// Fail reports a failed step.
func (s *Status) Fail(err error) {
	s.print(failureStyle.Render("✗"), "Error: %v", err)
}

// Println writes an unmarked line.
func (s *Status) Println(format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.writer, format+"\n", args...)
}

func (s *Status) print(mark, format string, args ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.writer, "%s %s\n", mark, fmt.Sprintf(format, args...))
}
