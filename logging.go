package gatehouse

import (
	"context"
	"fmt"

	"github.com/goliatone/go-logger/glog"
)

// Logger is the structured logger used across the package. It is an alias so
// callers can pass any glog-compatible logger without importing this package's
// types.
type Logger = glog.Logger

// LoggerProvider resolves named loggers so each component can log under its
// own scope ("gatehouse", "gatehouse.token_service", ...).
type LoggerProvider = glog.LoggerProvider

// LegacyLogger matches the printf-style logger earlier releases accepted.
type LegacyLogger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// FormattedLogger is the f-suffixed logger shape common to stdlib wrappers and
// most logging frameworks.
type FormattedLogger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// ResolveLogger returns the provider and scoped logger a component should use.
// A non-nil provider wins; if it yields a nil logger for the name we fall back
// to the given logger, wrapping it so the returned provider stays usable for
// further scopes. With neither, the package default logger is used.
func ResolveLogger(name string, provider LoggerProvider, fallback Logger) (LoggerProvider, Logger) {
	if provider != nil {
		if logger := provider.GetLogger(name); logger != nil {
			return provider, logger
		}
	}

	if fallback != nil {
		return staticLoggerProvider{logger: fallback}, fallback
	}

	logger := defaultLogger()
	return staticLoggerProvider{logger: logger}, logger
}

type staticLoggerProvider struct {
	logger Logger
}

func (p staticLoggerProvider) GetLogger(string) Logger {
	return p.logger
}

func defaultLogger() Logger {
	return glog.NewLogger(
		glog.WithName("gatehouse"),
		glog.WithAddSource(false),
	).GetLogger("gatehouse")
}

// FromLegacyLogger adapts the old printf-style logger. A nil logger resolves
// to a safe no-op so wiring code can pass through optional loggers untouched.
func FromLegacyLogger(l LegacyLogger) Logger {
	if l == nil {
		return noopLogger{}
	}
	return legacyAdapter{target: l}
}

type legacyAdapter struct {
	target LegacyLogger
}

func (a legacyAdapter) Trace(message string, args ...any) { a.target.Debug(message, args...) }
func (a legacyAdapter) Debug(message string, args ...any) { a.target.Debug(message, args...) }
func (a legacyAdapter) Info(message string, args ...any)  { a.target.Info(message, args...) }
func (a legacyAdapter) Warn(message string, args ...any)  { a.target.Warn(message, args...) }
func (a legacyAdapter) Error(message string, args ...any) { a.target.Error(message, args...) }
func (a legacyAdapter) Fatal(message string, args ...any) { a.target.Error(message, args...) }
func (a legacyAdapter) WithContext(context.Context) Logger { return a }

// FromFormattedLogger adapts Debugf/Infof/Warnf/Errorf loggers.
func FromFormattedLogger(l FormattedLogger) Logger {
	if l == nil {
		return noopLogger{}
	}
	return formattedAdapter{target: l}
}

type formattedAdapter struct {
	target FormattedLogger
}

func (a formattedAdapter) Trace(message string, args ...any) { a.target.Debugf(message, args...) }
func (a formattedAdapter) Debug(message string, args ...any) { a.target.Debugf(message, args...) }
func (a formattedAdapter) Info(message string, args ...any)  { a.target.Infof(message, args...) }
func (a formattedAdapter) Warn(message string, args ...any)  { a.target.Warnf(message, args...) }
func (a formattedAdapter) Error(message string, args ...any) { a.target.Errorf(message, args...) }
func (a formattedAdapter) Fatal(message string, args ...any) { a.target.Errorf(message, args...) }
func (a formattedAdapter) WithContext(context.Context) Logger { return a }

// ToFormattedLogger exposes a structured Logger through the f-suffixed shape.
// Messages are rendered up front, so structured args do not survive the trip.
func ToFormattedLogger(l Logger) FormattedLogger {
	if l == nil {
		l = noopLogger{}
	}
	return formattedView{target: l}
}

type formattedView struct {
	target Logger
}

func (v formattedView) Debugf(format string, args ...any) { v.target.Debug(fmt.Sprintf(format, args...)) }
func (v formattedView) Infof(format string, args ...any)  { v.target.Info(fmt.Sprintf(format, args...)) }
func (v formattedView) Warnf(format string, args ...any)  { v.target.Warn(fmt.Sprintf(format, args...)) }
func (v formattedView) Errorf(format string, args ...any) { v.target.Error(fmt.Sprintf(format, args...)) }

type noopLogger struct{}

func (noopLogger) Trace(string, ...any)          {}
func (noopLogger) Debug(string, ...any)          {}
func (noopLogger) Info(string, ...any)           {}
func (noopLogger) Warn(string, ...any)           {}
func (noopLogger) Error(string, ...any)          {}
func (noopLogger) Fatal(string, ...any)          {}
func (noopLogger) WithContext(context.Context) Logger { return noopLogger{} }
