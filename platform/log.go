package platform

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Hook 按天切换日志文件: <logPath>/<yyyy-mm-dd>/<fileName>.log
type Hook struct {
	mu       sync.Mutex
	writer   *os.File
	logPath  string
	fileName string
	fileDate string
}

func (h *Hook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *Hook) Fire(entry *logrus.Entry) error {
	line, err := entry.Bytes()
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	//需要切换日志文件
	if date := entry.Time.Format("2006-01-02"); h.writer == nil || h.fileDate != date {
		if err := h.rotate(date); err != nil {
			return err
		}
	}
	_, err = h.writer.Write(line)
	return err
}

func (h *Hook) rotate(date string) error {
	if h.writer != nil {
		_ = h.writer.Close()
		h.writer = nil
	}
	dir := filepath.Join(h.logPath, date)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, h.fileName+".log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	h.writer = f
	h.fileDate = date
	return nil
}

type LogFormatter struct {
}

func (m *LogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}

	timestamp := entry.Time.Format("2006-01-02 15:04:05.000")
	fmt.Fprintf(b, "[%s] [%s] %s", timestamp, entry.Level, entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, " %s=%v", k, entry.Data[k])
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// NewLogger writes to stderr and, when logPath is set, to a daily log file.
func NewLogger(logPath, fileName, level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&LogFormatter{})
	logger.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if logPath != "" {
		logger.AddHook(&Hook{logPath: logPath, fileName: fileName})
	}
	return logger
}
