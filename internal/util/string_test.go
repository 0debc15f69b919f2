package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "한국어...", TruncateString("한국어 텍스트", 3))
}

func TestJoinMentions(t *testing.T) {
	assert.Equal(t, "<#1>, <#2>", JoinMentions("<#", []string{"1", "2"}, ", "))
	assert.Equal(t, "<@&9>", JoinMentions("<@&", []string{"9"}, " or "))
	assert.Empty(t, JoinMentions("<#", nil, ", "))
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := t.TempDir() + "/logs/bot.log"
	logger, err := NewLogger("debug", path)
	assert.NoError(t, err)
	logger.Info("hello")
	_ = logger.Sync()
	assert.FileExists(t, path)
}
