package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/findwinds/QuantCode/common/convert"
	"github.com/findwinds/QuantCode/common/file"
)

var (
	errSubloggerConfigIsNil  = errors.New("sublogger config is nil")
	errUnhandledOutputWriter = errors.New("unhandled output writer")
	errSubLoggerNotFound     = errors.New("sub logger not found")
	errFileLoggingNotSetup   = errors.New("file output requested without file settings")
)

func getWriters(s *SubLoggerConfig) (io.Writer, error) {
	if s == nil {
		return nil, errSubloggerConfigIsNil
	}
	mw, err := MultiWriter()
	if err != nil {
		return nil, err
	}
	outputWriters := strings.Split(s.Output, "|")
	for x := range outputWriters {
		var writer io.Writer
		switch strings.ToLower(strings.TrimSpace(outputWriters[x])) {
		case "stdout", "console":
			writer = os.Stdout
		case "stderr":
			writer = os.Stderr
		case "file":
			if !fileLoggingConfiguredCorrectly {
				return nil, errFileLoggingNotSetup
			}
			writer = globalLogFile
		case "":
			continue
		default:
			return nil, fmt.Errorf("%w: %s", errUnhandledOutputWriter, outputWriters[x])
		}
		if err = mw.Add(writer); err != nil {
			return nil, err
		}
	}
	return mw, nil
}

// GenDefaultSettings return struct with known sane/working logger settings
func GenDefaultSettings() Config {
	return Config{
		Enabled: convert.BoolPtr(true),
		SubLoggerConfig: SubLoggerConfig{
			Level:  "INFO|WARN|ERROR",
			Output: "console",
		},
		AdvancedSettings: advancedSettings{
			ShowLogSystemName: convert.BoolPtr(true),
			Spacer:            spacer,
			TimeStampFormat:   timestampFormat,
			Headers: headers{
				Info:  "[INFO]",
				Warn:  "[WARN]",
				Debug: "[DEBUG]",
				Error: "[ERROR]",
			},
		},
	}
}

func configureSubLogger(subLogger, levels string, output io.Writer) error {
	logPtr, found := subLoggers[subLogger]
	if !found {
		return fmt.Errorf("%w: %v", errSubLoggerNotFound, subLogger)
	}
	logPtr.output = output
	logPtr.levels = splitLevel(levels)
	return nil
}

// SetupSubLoggers configure all sub loggers with provided configuration values
func SetupSubLoggers(s []SubLoggerConfig) error {
	mu.Lock()
	defer mu.Unlock()
	for x := range s {
		output, err := getWriters(&s[x])
		if err != nil {
			return err
		}
		if err = configureSubLogger(strings.ToUpper(s[x].Name), s[x].Level, output); err != nil {
			return err
		}
	}
	return nil
}

// SetupGlobalLogger setup the global loggers with the provided config values.
// A disabled config silences every sub logger.
func SetupGlobalLogger(cfg *Config) error {
	if cfg == nil {
		return errSubloggerConfigIsNil
	}
	mu.Lock()
	defer mu.Unlock()
	if globalLogFile != nil {
		displayError(globalLogFile.Close())
		globalLogFile = nil
	}
	fileLoggingConfiguredCorrectly = false
	if cfg.LoggerFileConfig != nil && cfg.LoggerFileConfig.FileName != "" {
		f, err := file.Writer(filepath.Join(cfg.LoggerFileConfig.Path, cfg.LoggerFileConfig.FileName))
		if err != nil {
			return err
		}
		globalLogFile = f
		fileLoggingConfiguredCorrectly = true
	}
	globalLogConfig = cfg

	enabled := cfg.Enabled == nil || *cfg.Enabled
	for x := range subLoggers {
		if !enabled {
			subLoggers[x].levels = Levels{}
			continue
		}
		output, err := getWriters(&cfg.SubLoggerConfig)
		if err != nil {
			return err
		}
		subLoggers[x].levels = splitLevel(cfg.Level)
		subLoggers[x].output = output
	}
	logger = newLogger(cfg)
	if !enabled {
		return nil
	}
	for x := range cfg.SubLoggers {
		output, err := getWriters(&cfg.SubLoggers[x])
		if err != nil {
			return err
		}
		if err = configureSubLogger(strings.ToUpper(cfg.SubLoggers[x].Name), cfg.SubLoggers[x].Level, output); err != nil {
			return err
		}
	}
	return nil
}

func newLogger(c *Config) Logger {
	return Logger{
		TimestampFormat:   c.AdvancedSettings.TimeStampFormat,
		Spacer:            c.AdvancedSettings.Spacer,
		ErrorHeader:       c.AdvancedSettings.Headers.Error,
		InfoHeader:        c.AdvancedSettings.Headers.Info,
		WarnHeader:        c.AdvancedSettings.Headers.Warn,
		DebugHeader:       c.AdvancedSettings.Headers.Debug,
		ShowLogSystemName: c.AdvancedSettings.ShowLogSystemName != nil && *c.AdvancedSettings.ShowLogSystemName,
	}
}

func splitLevel(level string) (l Levels) {
	enabledLevels := strings.Split(level, "|")
	for x := range enabledLevels {
		switch strings.ToUpper(strings.TrimSpace(enabledLevels[x])) {
		case "DEBUG":
			l.Debug = true
		case "INFO":
			l.Info = true
		case "WARN":
			l.Warn = true
		case "ERROR":
			l.Error = true
		}
	}
	return
}

func registerNewSubLogger(subLogger string) *SubLogger {
	temp := &SubLogger{
		name:   strings.ToUpper(subLogger),
		output: os.Stdout,
		levels: splitLevel("INFO|WARN|ERROR"),
	}
	subLoggers[temp.name] = temp
	return temp
}

// register all loggers at package init()
func init() {
	Global = registerNewSubLogger("LOG")
	BackTester = registerNewSubLogger("BACKTESTER")
	Broker = registerNewSubLogger("BROKER")
	EventBus = registerNewSubLogger("EVENTBUS")
	ConfigMgr = registerNewSubLogger("CONFIG")
	Data = registerNewSubLogger("DATA")
	Strategy = registerNewSubLogger("STRATEGY")
	Statistics = registerNewSubLogger("STATISTICS")
	Report = registerNewSubLogger("REPORT")

	def := GenDefaultSettings()
	logger = newLogger(&def)
}
