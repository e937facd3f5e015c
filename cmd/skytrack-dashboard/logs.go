package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/rivo/tview"
)

// LogLevel represents the severity of a log message
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// LogMessage represents a single log entry
type LogMessage struct {
	Time    time.Time
	Level   LogLevel
	Message string
}

// LogManager keeps the recent dashboard events and renders them into the
// logs panel.
type LogManager struct {
	textView    *tview.TextView
	messages    []LogMessage
	maxMessages int
	mu          sync.Mutex
}

// NewLogManager creates a new log manager
func NewLogManager(maxMessages int) *LogManager {
	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetMaxLines(maxMessages)
	textView.SetBorder(true).SetTitle(" Events ")

	return &LogManager{
		textView:    textView,
		messages:    make([]LogMessage, 0, maxMessages),
		maxMessages: maxMessages,
	}
}

// View returns the tview component
func (lm *LogManager) View() tview.Primitive {
	return lm.textView
}

// Add records a message with the specified level
func (lm *LogManager) Add(level LogLevel, format string, args ...any) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.messages = append(lm.messages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	})
	if len(lm.messages) > lm.maxMessages {
		lm.messages = lm.messages[len(lm.messages)-lm.maxMessages:]
	}

	lm.refresh()
}

func (lm *LogManager) Info(format string, args ...any)  { lm.Add(LogLevelInfo, format, args...) }
func (lm *LogManager) Warn(format string, args ...any)  { lm.Add(LogLevelWarn, format, args...) }
func (lm *LogManager) Error(format string, args ...any) { lm.Add(LogLevelError, format, args...) }

// Messages returns a copy of the retained messages.
func (lm *LogManager) Messages() []LogMessage {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return append([]LogMessage(nil), lm.messages...)
}

func (lm *LogManager) refresh() {
	lm.textView.Clear()
	for _, msg := range lm.messages {
		fmt.Fprintf(lm.textView, "[gray]%s[-] [%s]%-5s[-] %s\n",
			msg.Time.Format("15:04:05"), levelColor(msg.Level), msg.Level, tview.Escape(msg.Message))
	}
	lm.textView.ScrollToEnd()
}

func levelColor(level LogLevel) string {
	switch level {
	case LogLevelDebug:
		return "gray"
	case LogLevelWarn:
		return "yellow"
	case LogLevelError:
		return "red"
	default:
		return "white"
	}
}
