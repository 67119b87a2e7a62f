// Package logger builds the logrus logger shared by the stores, the scheduler and the CLI.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const timestampFormat = "15:04:05 MST 2006/01/02"

type Config struct {
	Level  string // trace, debug, info, warn, error
	Format string // text or json
	Output io.Writer
}

func New(cfg Config) (*logrus.Logger, error) {
	l := logrus.New()

	level := logrus.InfoLevel
	if cfg.Level != "" {
		var err error
		level, err = logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, errors.Wrapf(err, "log level %q", cfg.Level)
		}
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
		})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timestampFormat})
	default:
		return nil, errors.Errorf("unknown log format %q", cfg.Format)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	l.SetOutput(out)
	return l, nil
}
