package hook

import (
	"io"

	"github.com/sirupsen/logrus"
)

type writerHook struct {
	writer io.Writer
	levels []logrus.Level
}

func (h *writerHook) Levels() []logrus.Level {
	return h.levels
}

func (h *writerHook) Fire(entry *logrus.Entry) error {
	serialized, err := entry.Logger.Formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.writer.Write(serialized)
	return err
}

// RegisterSplitLogger sends debug and info entries to outWriter and
// everything from warn up to errWriter. Job listings printed by the CLI
// go to stdout, so this keeps diagnostics out of pipelines.
func RegisterSplitLogger(logger *logrus.Logger, outWriter io.Writer, errWriter io.Writer) {
	logger.SetOutput(io.Discard)

	var outLevels, errLevels []logrus.Level
	for _, level := range logrus.AllLevels {
		if level > logrus.WarnLevel {
			outLevels = append(outLevels, level)
		} else {
			errLevels = append(errLevels, level)
		}
	}

	logger.AddHook(&writerHook{writer: outWriter, levels: outLevels})
	logger.AddHook(&writerHook{writer: errWriter, levels: errLevels})
}
