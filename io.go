package main

import (
	"io"

	"github.com/chzyer/readline"
)

// lineSource wraps a readline instance so the REPL loop can read
// history-and-editing-capable input the way bufio.Reader used to, with
// Ctrl-D treated as a clean exit request and Ctrl-C discarding the current
// line.
type lineSource struct {
	rl *readline.Instance
}

func newLineSource() (*lineSource, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "db > ",
		HistoryFile:     "",
		InterruptPrompt: "^C",
		EOFPrompt:       ".exit",
	})
	if err != nil {
		return nil, err
	}
	return &lineSource{rl: rl}, nil
}

func (l *lineSource) Close() error {
	return l.rl.Close()
}

// readLine returns the next trimmed input line. ok is false when the user
// requested exit (Ctrl-D/EOF); err is non-nil only on a genuine I/O error.
func (l *lineSource) readLine() (line string, ok bool, err error) {
	s, err := l.rl.Readline()
	if err == readline.ErrInterrupt {
		return "", true, nil
	}
	if err == io.EOF {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}
