package ircadapter

import (
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~runxiyu/concord/internal/engine"
)

func TestHandleJoinAndListAndNames(t *testing.T) {
	eng := engine.New(nil, log.Default())
	session, err := eng.Connect("alice", engine.ProtocolIRC, nil)
	require.NoError(t, err)

	joinMsg := Message{Command: "JOIN", Params: []string{"#general"}}
	replies := handleCommand(eng, session.ID, "alice", joinMsg)
	assert.Empty(t, replies)

	listReplies := handleCommand(eng, session.ID, "alice", Message{Command: "LIST"})
	require.Len(t, listReplies, 2)
	assert.Contains(t, listReplies[1], "End of /LIST")

	namesReplies := handleCommand(eng, session.ID, "alice", Message{Command: "NAMES", Params: []string{"#general"}})
	require.Len(t, namesReplies, 2)
	assert.Contains(t, namesReplies[0], "alice")
}

func TestHandlePrivmsgNoSuchUser(t *testing.T) {
	eng := engine.New(nil, log.Default())
	session, err := eng.Connect("alice", engine.ProtocolIRC, nil)
	require.NoError(t, err)

	replies := handleCommand(eng, session.ID, "alice", Message{
		Command: "PRIVMSG",
		Params:  []string{"bob", "hi"},
	})
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "401")
}

func TestHandleTopicSetAndQuery(t *testing.T) {
	eng := engine.New(nil, log.Default())
	session, err := eng.Connect("alice", engine.ProtocolIRC, nil)
	require.NoError(t, err)
	handleCommand(eng, session.ID, "alice", Message{Command: "JOIN", Params: []string{"#general"}})

	setReplies := handleCommand(eng, session.ID, "alice", Message{
		Command: "TOPIC",
		Params:  []string{"#general", "Hello"},
	})
	assert.Empty(t, setReplies)

	queryReplies := handleCommand(eng, session.ID, "alice", Message{
		Command: "TOPIC",
		Params:  []string{"#general"},
	})
	require.Len(t, queryReplies, 1)
	assert.Contains(t, queryReplies[0], "Hello")
}

func TestHandlePrivmsgNoSuchChannelUses403(t *testing.T) {
	eng := engine.New(nil, log.Default())
	alice, err := eng.Connect("alice", engine.ProtocolIRC, nil)
	require.NoError(t, err)

	replies := handleCommand(eng, alice.ID, "alice", Message{
		Command: "PRIVMSG",
		Params:  []string{"#ghost-channel", "hi"},
	})
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "403")
}

func TestHandlePrivmsgNotMemberUses442(t *testing.T) {
	eng := engine.New(nil, log.Default())
	alice, err := eng.Connect("alice", engine.ProtocolIRC, nil)
	require.NoError(t, err)
	bob, err := eng.Connect("bob", engine.ProtocolIRC, nil)
	require.NoError(t, err)
	handleCommand(eng, alice.ID, "alice", Message{Command: "JOIN", Params: []string{"#general"}})

	replies := handleCommand(eng, bob.ID, "bob", Message{
		Command: "PRIVMSG",
		Params:  []string{"#general", "hi"},
	})
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "442")
}

func TestHandleTopicNoSuchChannelUses403(t *testing.T) {
	eng := engine.New(nil, log.Default())
	session, err := eng.Connect("alice", engine.ProtocolIRC, nil)
	require.NoError(t, err)

	replies := handleCommand(eng, session.ID, "alice", Message{
		Command: "TOPIC",
		Params:  []string{"#ghost-channel", "new topic"},
	})
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "403")
}

func TestHandleTopicNotMemberUses442(t *testing.T) {
	eng := engine.New(nil, log.Default())
	alice, err := eng.Connect("alice", engine.ProtocolIRC, nil)
	require.NoError(t, err)
	bob, err := eng.Connect("bob", engine.ProtocolIRC, nil)
	require.NoError(t, err)
	handleCommand(eng, alice.ID, "alice", Message{Command: "JOIN", Params: []string{"#general"}})

	replies := handleCommand(eng, bob.ID, "bob", Message{
		Command: "TOPIC",
		Params:  []string{"#general", "new topic"},
	})
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "442")
}

func TestHandleWhoisUnknownNick(t *testing.T) {
	eng := engine.New(nil, log.Default())
	session, err := eng.Connect("alice", engine.ProtocolIRC, nil)
	require.NoError(t, err)

	replies := handleCommand(eng, session.ID, "alice", Message{Command: "WHOIS", Params: []string{"ghost"}})
	require.Len(t, replies, 1)
	assert.Contains(t, replies[0], "401")
}

func TestHandlePingPong(t *testing.T) {
	eng := engine.New(nil, log.Default())
	session, err := eng.Connect("alice", engine.ProtocolIRC, nil)
	require.NoError(t, err)

	replies := handleCommand(eng, session.ID, "alice", Message{Command: "PING", Params: []string{"xyz"}})
	require.Len(t, replies, 1)
	assert.Equal(t, "PONG concord xyz", replies[0])
}
