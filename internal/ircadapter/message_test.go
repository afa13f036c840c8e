package ircadapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleCommand(t *testing.T) {
	msg, err := Parse("NICK alice")
	require.NoError(t, err)
	assert.Equal(t, "", msg.Prefix)
	assert.Equal(t, "NICK", msg.Command)
	assert.Equal(t, []string{"alice"}, msg.Params)
}

func TestParseWithPrefix(t *testing.T) {
	msg, err := Parse(":alice!alice@host PRIVMSG #general :Hello world")
	require.NoError(t, err)
	assert.Equal(t, "alice!alice@host", msg.Prefix)
	assert.Equal(t, "PRIVMSG", msg.Command)
	assert.Equal(t, []string{"#general", "Hello world"}, msg.Params)
}

func TestParseJoin(t *testing.T) {
	msg, err := Parse("JOIN #general")
	require.NoError(t, err)
	assert.Equal(t, "JOIN", msg.Command)
	assert.Equal(t, []string{"#general"}, msg.Params)
}

func TestParseNoParams(t *testing.T) {
	msg, err := Parse("QUIT")
	require.NoError(t, err)
	assert.Equal(t, "QUIT", msg.Command)
	assert.Empty(t, msg.Params)
}

func TestParseQuitWithReason(t *testing.T) {
	msg, err := Parse("QUIT :Gone to lunch")
	require.NoError(t, err)
	assert.Equal(t, "QUIT", msg.Command)
	assert.Equal(t, []string{"Gone to lunch"}, msg.Params)
}

func TestParseUserCommand(t *testing.T) {
	msg, err := Parse("USER alice 0 * :Alice Smith")
	require.NoError(t, err)
	assert.Equal(t, "USER", msg.Command)
	assert.Equal(t, []string{"alice", "0", "*", "Alice Smith"}, msg.Params)
}

func TestParseStripsCRLF(t *testing.T) {
	msg, err := Parse("NICK alice\r\n")
	require.NoError(t, err)
	assert.Equal(t, "NICK", msg.Command)
	assert.Equal(t, []string{"alice"}, msg.Params)
}

func TestParseCommandCaseInsensitive(t *testing.T) {
	msg, err := Parse("privmsg #test :hello")
	require.NoError(t, err)
	assert.Equal(t, "PRIVMSG", msg.Command)
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse("")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestParseMissingCommandAfterPrefix(t *testing.T) {
	_, err := Parse(":alice")
	assert.ErrorIs(t, err, ErrMissingCommand)
}

func TestFormatRoundTrip(t *testing.T) {
	cases := []string{
		"NICK alice",
		":alice!alice@host PRIVMSG #general :Hello world",
		"JOIN #general",
		"QUIT :Gone to lunch",
		"USER alice 0 * :Alice Smith",
	}
	for _, line := range cases {
		msg, err := Parse(line)
		require.NoError(t, err)
		assert.Equal(t, line, msg.Format())
	}
}

func TestFormatTrailingWithNoSpacesNotColonPrefixed(t *testing.T) {
	msg := Message{Command: "PING", Params: []string{"token"}}
	assert.Equal(t, "PING token", msg.Format())
}

func TestFormatEmptyTrailingParamGetsColon(t *testing.T) {
	msg := Message{Prefix: "concord", Command: "CAP", Params: []string{"*", "LS", ""}}
	assert.Equal(t, ":concord CAP * LS :", msg.Format())
}
