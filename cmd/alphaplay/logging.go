package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/alphavideo/config"
)

// configureLogging points the standard logrus logger at w using the
// configured level and format.
func configureLogging(cfg *config.Config, w io.Writer) {
	logrus.SetOutput(w)
	logrus.SetLevel(cfg.LogLevel())

	switch cfg.Logging.Format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			DisableColors: !shouldColorize(w),
		})
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
