package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	slogmulti "github.com/samber/slog-multi"
)

type LogCode string

const (
	SYSTEM LogCode = "SYSTEM"

	// Entity writes
	DATA_CREATE LogCode = "DATA_CREATE"
	DATA_UPDATE LogCode = "DATA_UPDATE"
	DATA_DELETE LogCode = "DATA_DELETE"

	// Link manager
	LINK   LogCode = "LINK"
	UNLINK LogCode = "UNLINK"

	BACKUP LogCode = "BACKUP"
	AUTH   LogCode = "AUTH"
)

// Log collectors expect _time and _msg rather than slog's default keys.
func renameTimeAndMessage(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		return slog.Attr{Key: "_time", Value: slog.StringValue(a.Value.Time().Format("2006-01-02 15:04:05"))}
	}
	if a.Key == slog.MessageKey {
		return slog.Attr{Key: "_msg", Value: a.Value}
	}
	return a
}

func JsonFileOptions(addSource bool) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level:       slog.LevelDebug,
		ReplaceAttr: renameTimeAndMessage,
		AddSource:   addSource,
	}
}

// NewLogger fans records out to a json handler on w and a text handler on
// stderr, tagging the json stream with the service name.
func NewLogger(w io.Writer, service string) *slog.Logger {
	var jsonHandler slog.Handler = slog.NewJSONHandler(w, JsonFileOptions(true))
	jsonHandler = jsonHandler.WithAttrs([]slog.Attr{slog.String("service_type", service)})

	textHandler := slog.NewTextHandler(os.Stderr, nil)

	return slog.New(slogmulti.Fanout(jsonHandler, textHandler))
}

// OpenLogFile opens (appending) logDir/name, creating the directory if needed.
func OpenLogFile(logDir, name string) (*os.File, error) {
	if err := os.MkdirAll(logDir, 0777); err != nil {
		return nil, fmt.Errorf("error creating log dir %v: %w", logDir, err)
	}
	path := filepath.Join(logDir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("error opening log file %v: %w", path, err)
	}
	return f, nil
}
