package log

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// Info takes a pointer subLogger struct and string sends to StageLogEvent
func Info(sl *SubLogger, data string) {
	stage(sl, levelInfo, func() string { return data })
}

// Infoln takes a pointer subLogger struct and interface sends to StageLogEvent
func Infoln(sl *SubLogger, v ...any) {
	stage(sl, levelInfo, func() string { return fmt.Sprint(v...) })
}

// Infof takes a pointer subLogger struct, string and interface formats sends to StageLogEvent
func Infof(sl *SubLogger, data string, v ...any) {
	stage(sl, levelInfo, func() string { return fmt.Sprintf(data, v...) })
}

// Debug takes a pointer subLogger struct and string sends to StageLogEvent
func Debug(sl *SubLogger, data string) {
	stage(sl, levelDebug, func() string { return data })
}

// Debugln takes a pointer subLogger struct, string and interface sends to StageLogEvent
func Debugln(sl *SubLogger, v ...any) {
	stage(sl, levelDebug, func() string { return fmt.Sprint(v...) })
}

// Debugf takes a pointer subLogger struct, string and interface formats sends to StageLogEvent
func Debugf(sl *SubLogger, data string, v ...any) {
	stage(sl, levelDebug, func() string { return fmt.Sprintf(data, v...) })
}

// Warn takes a pointer subLogger struct & string and sends to StageLogEvent
func Warn(sl *SubLogger, data string) {
	stage(sl, levelWarn, func() string { return data })
}

// Warnln takes a pointer subLogger struct & interface formats and sends to StageLogEvent
func Warnln(sl *SubLogger, v ...any) {
	stage(sl, levelWarn, func() string { return fmt.Sprint(v...) })
}

// Warnf takes a pointer subLogger struct, string and interface formats sends to StageLogEvent
func Warnf(sl *SubLogger, data string, v ...any) {
	stage(sl, levelWarn, func() string { return fmt.Sprintf(data, v...) })
}

// Error takes a pointer subLogger struct & interface formats and sends to StageLogEvent
func Error(sl *SubLogger, data string) {
	stage(sl, levelError, func() string { return data })
}

// Errorln takes a pointer subLogger struct, string & interface formats and sends to StageLogEvent
func Errorln(sl *SubLogger, v ...any) {
	stage(sl, levelError, func() string { return fmt.Sprint(v...) })
}

// Errorf takes a pointer subLogger struct, string and interface formats sends to StageLogEvent
func Errorf(sl *SubLogger, data string, v ...any) {
	stage(sl, levelError, func() string { return fmt.Sprintf(data, v...) })
}

type level uint8

const (
	levelInfo level = iota
	levelDebug
	levelWarn
	levelError
)

func stage(sl *SubLogger, lvl level, fn func() string) {
	mu.RLock()
	fields := sl.getFields()
	hook := customLogHook
	mu.RUnlock()
	if fields == nil {
		return
	}
	header := fields.header(lvl)
	if header == "" {
		return
	}
	if hook != nil && hook(header, fields.name, fn()) {
		return
	}
	fields.write(header, fn())
}

// header returns the configured header when the level is enabled
func (l *logFields) header(lvl level) string {
	switch lvl {
	case levelInfo:
		if l.info {
			return l.logger.InfoHeader
		}
	case levelDebug:
		if l.debug {
			return l.logger.DebugHeader
		}
	case levelWarn:
		if l.warn {
			return l.logger.WarnHeader
		}
	case levelError:
		if l.error {
			return l.logger.ErrorHeader
		}
	}
	return ""
}

func (l *logFields) write(header, data string) {
	var sb strings.Builder
	sb.WriteString(header)
	if l.logger.ShowLogSystemName {
		sb.WriteString(l.logger.Spacer)
		sb.WriteString(l.name)
	}
	sb.WriteString(l.logger.Spacer)
	if l.logger.TimestampFormat != "" {
		sb.WriteString(time.Now().Format(l.logger.TimestampFormat))
		sb.WriteString(l.logger.Spacer)
	}
	sb.WriteString(data)
	if !strings.HasSuffix(data, "\n") {
		sb.WriteByte('\n')
	}
	if _, err := l.output.Write([]byte(sb.String())); err != nil {
		displayError(err)
	}
}

func displayError(err error) {
	if err != nil {
		log.Printf("Logger write error: %v\n", err)
	}
}
