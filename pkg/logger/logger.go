// logger.go

package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fatih/color"
)

// Level 日志级别
type Level int32

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
	FATAL: "FATAL",
}

var levelColors = map[Level]*color.Color{
	DEBUG: color.New(color.FgHiBlack),
	INFO:  color.New(color.FgCyan),
	WARN:  color.New(color.FgYellow),
	ERROR: color.New(color.FgRed),
	FATAL: color.New(color.FgRed, color.Bold),
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("LEVEL(%d)", int32(l))
}

// ParseLevel 解析日志级别字符串，无法识别时返回 INFO
func ParseLevel(s string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG, true
	case "INFO", "":
		return INFO, true
	case "WARN", "WARNING":
		return WARN, true
	case "ERROR":
		return ERROR, true
	case "FATAL":
		return FATAL, true
	}
	return INFO, false
}

var (
	globalLevel atomic.Int32
	output      io.Writer = os.Stderr
	outputMu    sync.Mutex
	exitFunc    = os.Exit
)

func init() {
	globalLevel.Store(int32(INFO))
}

// SetGlobalLogLevel 设置全局日志级别
func SetGlobalLogLevel(l Level) {
	globalLevel.Store(int32(l))
}

// GlobalLogLevel 返回当前全局日志级别
func GlobalLogLevel() Level {
	return Level(globalLevel.Load())
}

// SetOutput 设置日志输出目标
func SetOutput(w io.Writer) {
	outputMu.Lock()
	defer outputMu.Unlock()
	output = w
	for _, l := range registry {
		l.std.SetOutput(w)
	}
}

// Logger 带模块名称的日志记录器
type Logger struct {
	name string
	std  *log.Logger
}

var registry = map[string]*Logger{}

// New 返回指定模块的日志记录器，同名模块共享同一实例
func New(name string) *Logger {
	outputMu.Lock()
	defer outputMu.Unlock()
	if l, ok := registry[name]; ok {
		return l
	}
	l := &Logger{
		name: name,
		std:  log.New(output, "", log.LstdFlags),
	}
	registry[name] = l
	return l
}

// 各模块预定义的日志记录器
var (
	Server  = New("Server")
	Game    = New("Game")
	Lobby   = New("Lobby")
	Room    = New("Room")
	Store   = New("Store")
	Gateway = New("Gateway")
)

func (l *Logger) logf(level Level, format string, args ...interface{}) {
	if level < GlobalLogLevel() {
		return
	}
	tag := levelColors[level].Sprintf("[%s]", level)
	l.std.Printf("%s [%s] %s", tag, l.name, fmt.Sprintf(format, args...))
}

// Debug 调试日志
func (l *Logger) Debug(format string, args ...interface{}) { l.logf(DEBUG, format, args...) }

// Info 信息日志
func (l *Logger) Info(format string, args ...interface{}) { l.logf(INFO, format, args...) }

// Warn 警告日志
func (l *Logger) Warn(format string, args ...interface{}) { l.logf(WARN, format, args...) }

// Error 错误日志
func (l *Logger) Error(format string, args ...interface{}) { l.logf(ERROR, format, args...) }

// Fatal 记录日志后以状态码1退出
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.logf(FATAL, format, args...)
	exitFunc(1)
}
