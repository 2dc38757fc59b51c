package logconfig

import (
	"flag"

	prefixed "github.com/BertoldVdb/logrus-prefixed-formatter"
	"github.com/sirupsen/logrus"
)

var loglevel *int

// InitParam registers the -loglevel flag. Call it before flag.Parse.
func InitParam() {
	loglevel = flag.Int("loglevel", int(logrus.InfoLevel), "The loglevel to use. Valid values are from 0 to 6. Higher values output more information")
}

// GetLogger creates a configured logger. The level from the -loglevel flag
// wins over the provided default.
func GetLogger(level logrus.Level) *logrus.Entry {
	logger := logrus.New()

	if loglevel != nil {
		logger.SetLevel(logrus.Level(*loglevel))
	} else {
		logger.SetLevel(level)
	}

	formatter := new(prefixed.TextFormatter)
	formatter.TimestampFormat = "2006-01-02 15:04:05"
	formatter.FullTimestamp = true
	formatter.PrefixPadding = 20
	logger.SetFormatter(formatter)

	return logrus.NewEntry(logger)
}
