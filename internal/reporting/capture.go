package reporting

import (
	"fmt"
	"strings"
	"sync"
)

// Message is one recorded reporter call.
type Message struct {
	Level string
	Text  string
}

// CaptureReporter records everything it is given. Tests use it to assert on
// what a user would have seen.
type CaptureReporter struct {
	mu       sync.Mutex
	Messages []Message
	Tables   [][][]string
}

func NewCaptureReporter() *CaptureReporter {
	return &CaptureReporter{}
}

func (c *CaptureReporter) record(level, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Messages = append(c.Messages, Message{Level: level, Text: text})
}

func (c *CaptureReporter) Step(format string, args ...any) {
	c.record("step", fmt.Sprintf(format, args...))
}

func (c *CaptureReporter) Info(format string, args ...any) {
	c.record("info", fmt.Sprintf(format, args...))
}

func (c *CaptureReporter) Success(format string, args ...any) {
	c.record("ok", fmt.Sprintf(format, args...))
}

func (c *CaptureReporter) Warn(format string, args ...any) {
	c.record("warn", fmt.Sprintf(format, args...))
}

func (c *CaptureReporter) Error(err error) {
	if err != nil {
		c.record("error", err.Error())
	}
}

func (c *CaptureReporter) Advisory(title string, lines ...string) {
	c.record("advisory", strings.Join(append([]string{title}, lines...), "\n"))
}

func (c *CaptureReporter) ConnectionInfo(port int, service, remoteRoot string) {
	c.record("ready", fmt.Sprintf("port=%d service=%s remote_root=%s", port, service, remoteRoot))
}

func (c *CaptureReporter) Table(headers []string, rows [][]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Tables = append(c.Tables, append([][]string{headers}, rows...))
}

// Has reports whether any message at level contains substr.
func (c *CaptureReporter) Has(level, substr string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.Messages {
		if m.Level == level && strings.Contains(m.Text, substr) {
			return true
		}
	}
	return false
}

// Count returns how many messages were recorded at level.
func (c *CaptureReporter) Count(level string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.Messages {
		if m.Level == level {
			n++
		}
	}
	return n
}
