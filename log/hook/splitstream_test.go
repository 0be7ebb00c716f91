package hook

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestRegisterSplitLogger(t *testing.T) {
	var stdout, stderr bytes.Buffer

	logger := logrus.New()
	logger.SetLevel(logrus.TraceLevel)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	RegisterSplitLogger(logger, &stdout, &stderr)

	logger.Trace("out0")
	logger.Debug("out1")
	logger.Info("out2")
	logger.Warn("err1")
	logger.Error("err2")

	assert.Contains(t, stdout.String(), "msg=out0")
	assert.Contains(t, stdout.String(), "msg=out1")
	assert.Contains(t, stdout.String(), "msg=out2")
	assert.NotContains(t, stdout.String(), "err")

	assert.Contains(t, stderr.String(), "msg=err1")
	assert.Contains(t, stderr.String(), "msg=err2")
	assert.NotContains(t, stderr.String(), "out")
}
