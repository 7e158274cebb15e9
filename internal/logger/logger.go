package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Level はログレベルを表す
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// logrusLevel は対応する logrus のレベルを返す
func (l Level) logrusLevel() logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// ParseLevel は文字列からレベルを返す。不明な値は LevelInfo
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// IDField はスコープIDを格納するフィールド名
const IDField = "id"

const timestampFormat = "2006-01-02 15:04:05.000"

// Logger はスレッドセーフなロガー
type Logger struct {
	base *logrus.Logger
}

// Default はデフォルトのロガー
var Default = New(os.Stdout, LevelInfo)

// New は新しいロガーを作成する
func New(out io.Writer, minLevel Level) *Logger {
	base := logrus.New()
	base.SetOutput(out)
	base.SetLevel(minLevel.logrusLevel())
	base.SetFormatter(textFormatter())
	return &Logger{base: base}
}

func textFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: timestampFormat,
	}
}

// SetLevel はログレベルを設定する
func (l *Logger) SetLevel(level Level) {
	l.base.SetLevel(level.logrusLevel())
}

// SetOutput は出力先を変更する
func (l *Logger) SetOutput(w io.Writer) {
	l.base.SetOutput(w)
}

// SetFormat は出力形式を設定する ("json" または "text")
func (l *Logger) SetFormat(format string) {
	switch strings.ToLower(format) {
	case "json":
		l.base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timestampFormat})
	default:
		l.base.SetFormatter(textFormatter())
	}
}

// log は指定されたレベルでログを出力する
func (l *Logger) log(level Level, id string, format string, args ...any) {
	lv := level.logrusLevel()
	if !l.base.IsLevelEnabled(lv) {
		return
	}

	entry := logrus.NewEntry(l.base)
	if id != "" {
		entry = entry.WithField(IDField, id)
	}
	entry.Logf(lv, format, args...)
}

// Debug はデバッグログを出力する
func (l *Logger) Debug(id string, format string, args ...any) {
	l.log(LevelDebug, id, format, args...)
}

// Info は情報ログを出力する
func (l *Logger) Info(id string, format string, args ...any) {
	l.log(LevelInfo, id, format, args...)
}

// Warn は警告ログを出力する
func (l *Logger) Warn(id string, format string, args ...any) {
	l.log(LevelWarn, id, format, args...)
}

// Error はエラーログを出力する
func (l *Logger) Error(id string, format string, args ...any) {
	l.log(LevelError, id, format, args...)
}

// グローバル関数（デフォルトロガーを使用）

// Debug はデバッグログを出力する
func Debug(id string, format string, args ...any) {
	Default.Debug(id, format, args...)
}

// Info は情報ログを出力する
func Info(id string, format string, args ...any) {
	Default.Info(id, format, args...)
}

// Warn は警告ログを出力する
func Warn(id string, format string, args ...any) {
	Default.Warn(id, format, args...)
}

// Error はエラーログを出力する
func Error(id string, format string, args ...any) {
	Default.Error(id, format, args...)
}
