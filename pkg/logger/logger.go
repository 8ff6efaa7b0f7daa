package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	return [...]string{"DEBUG", "INFO", "WARN", "ERROR"}[l]
}

var (
	mu     sync.Mutex
	level  = LevelInfo
	output io.Writer = os.Stdout

	tags = map[Level]func(a ...any) string{
		LevelDebug: color.New(color.FgHiBlack).SprintFunc(),
		LevelInfo:  color.New(color.FgGreen, color.Bold).SprintFunc(),
		LevelWarn:  color.New(color.FgYellow, color.Bold).SprintFunc(),
		LevelError: color.New(color.FgRed, color.Bold).SprintFunc(),
	}
)

// * SetLevel sets the minimum level that gets written
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	level = l
}

// * SetOutput redirects log lines, mostly useful in tests
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func Enabled(l Level) bool {
	mu.Lock()
	defer mu.Unlock()
	return l >= level
}

func Debug(format string, args ...any) { write(LevelDebug, format, args...) }

func Info(format string, args ...any) { write(LevelInfo, format, args...) }

func Warn(format string, args ...any) { write(LevelWarn, format, args...) }

func Error(format string, args ...any) { write(LevelError, format, args...) }

func write(l Level, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()

	if l < level {
		return
	}

	fmt.Fprintf(output, "%s [%s] %s\n",
		time.Now().Format("2006-01-02 15:04:05"),
		tags[l](l.String()),
		fmt.Sprintf(format, args...),
	)
}
