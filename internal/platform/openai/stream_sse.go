package openai

import (
	"bufio"
	"io"
	"strings"
)

// streamSSE reads a text/event-stream body and invokes onEvent once per
// event with the event name (possibly empty) and concatenated data lines.
// Returning an error from onEvent aborts the stream.
func streamSSE(r io.Reader, onEvent func(event string, data string) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		event string
		data  strings.Builder
	)

	flush := func() error {
		if data.Len() == 0 && event == "" {
			return nil
		}
		err := onEvent(event, data.String())
		event = ""
		data.Reset()
		return err
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "event:") {
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		}
		if strings.HasPrefix(line, "data:") {
			chunk := strings.TrimPrefix(line, "data:")
			chunk = strings.TrimPrefix(chunk, " ")
			if data.Len() > 0 {
				data.WriteString("\n")
			}
			data.WriteString(chunk)
			continue
		}
	}
	if err := flush(); err != nil {
		return err
	}
	return scanner.Err()
}
