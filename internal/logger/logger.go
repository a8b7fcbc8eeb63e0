package logger

import (
	"log/slog"
	"os"
)

// Init routes the default slog logger to a file so log output never fights
// the TUI for the terminal.
func Init(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(file, nil))
	slog.SetDefault(logger)
	return nil
}
