package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/linht/dw1000-manager/bustrace"
)

// dumpTrace prints a bus trace file, one primitive per line
func dumpTrace(w io.Writer, path string, errorsOnly bool) error {
	r, err := bustrace.NewReader(path, bustrace.Filter{ErrorsOnly: errorsOnly})
	if err != nil {
		return fmt.Errorf("failed to open trace: %w", err)
	}
	defer r.Close()

	for {
		event, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read trace: %w", err)
		}

		session := event.SessionID
		if len(session) > 8 {
			session = session[:8]
		}

		line := fmt.Sprintf("%s %s #%d %-8s %x",
			event.Timestamp.Format("15:04:05.000000"), session, event.Sequence, event.Phase, event.Data)
		if event.Error != "" {
			line += " error: " + event.Error
		}
		fmt.Fprintln(w, line)
	}
}
