package logging

import (
	"os"
	"strings"

	"github.com/2beens/tricoach/pkg"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LoggerSetupParams struct {
	LogFileName      string
	LogToStdout      bool
	LogLevel         string
	LogFormatJSON    bool
	Environment      string
	SentryEnabled    bool
	SentryDSN        string
	SentryServerName string
}

// Setup configures the global logrus logger. The returned func closes the log
// file, if any, and is safe to call when logging only goes to stdout.
func Setup(params LoggerSetupParams) (closeLogFile func()) {
	if params.LogFormatJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	logrus.SetLevel(GetLevel(params.LogLevel))

	if params.SentryEnabled {
		setupSentry(params)
	}

	if params.LogFileName == "" {
		logrus.SetOutput(os.Stdout)
		logrus.Println("writing logs only to STDOUT")
		return func() {}
	}

	logFile := newLogFile(params.LogFileName)
	if params.LogToStdout {
		logrus.SetOutput(pkg.NewCombinedWriter(os.Stdout, logFile))
		logrus.Printf("writing logs to [%s] and STDOUT", logFile.Filename)
	} else {
		logrus.SetOutput(logFile)
	}

	return func() {
		if err := logFile.Close(); err != nil {
			logrus.SetOutput(os.Stderr)
			logrus.Errorf("close log file: %s", err)
		}
	}
}

func setupSentry(params LoggerSetupParams) {
	err := sentry.Init(sentry.ClientOptions{
		Environment:      params.Environment,
		Dsn:              params.SentryDSN,
		TracesSampleRate: 0.2,
		ServerName:       params.SentryServerName,
	})
	if err != nil {
		logrus.Errorf("sentry.Init: %s", err)
		return
	}

	logrus.AddHook(NewSentryHook([]logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
	}))
	logrus.Infoln("sentry set up successfully")
}

// newLogFile returns a size rotated log file. Rotated files are kept and compressed.
func newLogFile(fileName string) *lumberjack.Logger {
	if !strings.HasSuffix(fileName, ".log") {
		fileName += ".log"
	}
	return &lumberjack.Logger{
		Filename:  fileName,
		MaxSize:   20, // megabytes
		LocalTime: false,
		Compress:  true,
	}
}

// GetLevel maps a level name to a logrus level, trace for unknown names.
func GetLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.TraceLevel
	}
	return parsed
}
