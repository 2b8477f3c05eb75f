package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name  string
		print func(s *Status)
		want  []string
	}{
		{
			name:  "success",
			print: func(s *Status) { s.Success("Providers loaded (%d configured)", 2) },
			want:  []string{"✓", "Providers loaded (2 configured)"},
		},
		{
			name:  "warning",
			print: func(s *Status) { s.Warn("no provider configured") },
			want:  []string{"!", "no provider configured"},
		},
		{
			name:  "failure",
			print: func(s *Status) { s.Fail(errors.New("boom")) },
			want:  []string{"✗", "Error: boom"},
		},
		{
			name:  "plain",
			print: func(s *Status) { s.Println("Press Ctrl+C to stop") },
			want:  []string{"Press Ctrl+C to stop\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			tt.print(NewStatus(buf))
			for _, w := range tt.want {
				if !strings.Contains(buf.String(), w) {
					t.Errorf("output %q missing %q", buf.String(), w)
				}
			}
		})
	}
}

func TestNewStatusDefaultsToStdout(t *testing.T) {
	if s := NewStatus(nil); s.writer == nil {
		t.Error("expected a default writer")
	}
}
