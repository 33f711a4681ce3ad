package logger

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupNeverLeavesNilLoggers(t *testing.T) {
	Setup(true, false, false)
	require.NotNil(t, User)
	require.NotNil(t, Op)
}

func TestCLIFormatterStatusPrefix(t *testing.T) {
	f := &CLIFormatter{DisableTimestamp: true, DisableLevel: true, DisableColors: true}

	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Level:   logrus.InfoLevel,
		Message: "Task completed: extract",
		Data:    logrus.Fields{"status": "OK"},
		Time:    time.Now(),
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "[OK] Task completed: extract\n", string(out))
}

func TestCLIFormatterSortsFields(t *testing.T) {
	f := &CLIFormatter{DisableTimestamp: true, DisableColors: true}

	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Level:   logrus.DebugLevel,
		Message: "waiting",
		Data:    logrus.Fields{"task": "transform", "deps": "[extract]"},
		Time:    time.Now(),
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG: waiting deps=[extract] task=transform\n", string(out))
}
