package engine

import (
	"context"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	return New(nil, log.Default())
}

func drain(ch <-chan Event) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}

func recvOrNil(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(200 * time.Millisecond):
		return nil
	}
}

func TestCanonicalizeChannelIdempotentAndShaped(t *testing.T) {
	cases := []string{"#General", "general", "#rust", "  #Foo"}
	for _, c := range cases {
		first := canonicalizeChannel(c)
		second := canonicalizeChannel(first)
		assert.Equal(t, first, second)
		assert.True(t, len(first) > 0 && first[0] == '#')
		assert.Equal(t, first, canonicalizeChannelLower(first))
	}
}

func canonicalizeChannelLower(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

func TestConnectAndDisconnect(t *testing.T) {
	e := testEngine(t)

	session, err := e.Connect("alice", ProtocolWebSocket, nil)
	require.NoError(t, err)
	assert.False(t, e.IsNickAvailable("alice"))

	e.Disconnect(session.ID)
	assert.True(t, e.IsNickAvailable("alice"))
}

func TestStaleReconnectRecovery(t *testing.T) {
	e := testEngine(t)

	s1, err := e.Connect("alice", ProtocolWebSocket, nil)
	require.NoError(t, err)
	s2, err := e.Connect("alice", ProtocolWebSocket, nil)
	require.NoError(t, err)

	_, ok := e.GetSession(s1.ID)
	assert.False(t, ok)
	_, ok = e.GetSession(s2.ID)
	assert.True(t, ok)

	nickID, ok := e.nickToSession.Load("alice")
	require.True(t, ok)
	assert.Equal(t, s2.ID, nickID)
}

func TestJoinAndMessageScenarioA(t *testing.T) {
	e := testEngine(t)

	alice, err := e.Connect("alice", ProtocolWebSocket, nil)
	require.NoError(t, err)
	bob, err := e.Connect("bob", ProtocolWebSocket, nil)
	require.NoError(t, err)

	require.NoError(t, e.Join(alice.ID, "#general"))
	require.NoError(t, e.Join(bob.ID, "#general"))

	drain(alice.Events())
	drain(bob.Events())

	require.NoError(t, e.SendMessage(alice.ID, "#general", "Hello from Alice!"))

	evt := recvOrNil(t, bob.Events())
	require.NotNil(t, evt)
	msg, ok := evt.(MessageEvent)
	require.True(t, ok)
	assert.Equal(t, "alice", msg.From)
	assert.Equal(t, "#general", msg.Target)
	assert.Equal(t, "Hello from Alice!", msg.Content)

	assert.Nil(t, recvOrNil(t, alice.Events()))
}

func TestDirectMessageScenarioB(t *testing.T) {
	e := testEngine(t)

	alice, err := e.Connect("alice", ProtocolWebSocket, nil)
	require.NoError(t, err)
	bob, err := e.Connect("bob", ProtocolWebSocket, nil)
	require.NoError(t, err)

	require.NoError(t, e.SendMessage(alice.ID, "bob", "Hey Bob!"))

	evt := recvOrNil(t, bob.Events())
	require.NotNil(t, evt)
	msg := evt.(MessageEvent)
	assert.Equal(t, "alice", msg.From)
	assert.Equal(t, "bob", msg.Target)
	assert.Equal(t, "Hey Bob!", msg.Content)

	assert.Nil(t, recvOrNil(t, alice.Events()))
}

func TestPartVisibilityScenarioC(t *testing.T) {
	e := testEngine(t)

	alice, _ := e.Connect("alice", ProtocolWebSocket, nil)
	bob, _ := e.Connect("bob", ProtocolWebSocket, nil)

	require.NoError(t, e.Join(alice.ID, "#general"))
	require.NoError(t, e.Join(bob.ID, "#general"))
	drain(alice.Events())
	drain(bob.Events())

	require.NoError(t, e.Part(bob.ID, "#general", nil))

	aliceEvt := recvOrNil(t, alice.Events())
	require.NotNil(t, aliceEvt)
	part := aliceEvt.(PartEvent)
	assert.Equal(t, "bob", part.Nick)

	bobEvt := recvOrNil(t, bob.Events())
	require.NotNil(t, bobEvt)
	bobPart := bobEvt.(PartEvent)
	assert.Equal(t, "bob", bobPart.Nick)
}

func TestTopicBroadcastScenarioD(t *testing.T) {
	e := testEngine(t)

	alice, _ := e.Connect("alice", ProtocolWebSocket, nil)
	require.NoError(t, e.Join(alice.ID, "#general"))
	drain(alice.Events())

	require.NoError(t, e.SetTopic(alice.ID, "#general", "Welcome to Concord!"))

	evt := recvOrNil(t, alice.Events())
	require.NotNil(t, evt)
	topic := evt.(TopicChangeEvent)
	assert.Equal(t, "#general", topic.Channel)
	assert.Equal(t, "alice", topic.SetBy)
	assert.Equal(t, "Welcome to Concord!", topic.Topic)
}

func TestListChannelsSnapshotScenarioG(t *testing.T) {
	e := testEngine(t)

	alice, _ := e.Connect("alice", ProtocolWebSocket, nil)
	require.NoError(t, e.Join(alice.ID, "#general"))
	require.NoError(t, e.Join(alice.ID, "#rust"))

	channels := e.ListChannels()
	require.Len(t, channels, 2)

	names := map[string]bool{}
	for _, c := range channels {
		names[c.Name] = true
	}
	assert.True(t, names["#general"])
	assert.True(t, names["#rust"])
}

func TestSelfEchoPolicyJoinIncludesJoiner(t *testing.T) {
	e := testEngine(t)

	alice, _ := e.Connect("alice", ProtocolWebSocket, nil)
	require.NoError(t, e.Join(alice.ID, "#general"))

	evt := recvOrNil(t, alice.Events())
	require.NotNil(t, evt)
	join, ok := evt.(JoinEvent)
	require.True(t, ok)
	assert.Equal(t, "alice", join.Nick)
}

func TestNotMemberErrorsOnSendAndTopic(t *testing.T) {
	e := testEngine(t)

	alice, _ := e.Connect("alice", ProtocolWebSocket, nil)
	bob, _ := e.Connect("bob", ProtocolWebSocket, nil)
	require.NoError(t, e.Join(bob.ID, "#general"))

	err := e.SendMessage(alice.ID, "#general", "hi")
	require.Error(t, err)
	assert.Equal(t, KindNotMember, KindOf(err))

	err = e.SetTopic(alice.ID, "#general", "nope")
	require.Error(t, err)
	assert.Equal(t, KindNotMember, KindOf(err))
}

func TestNoSuchChannelAndUser(t *testing.T) {
	e := testEngine(t)
	alice, _ := e.Connect("alice", ProtocolWebSocket, nil)

	err := e.SendMessage(alice.ID, "#nope", "hi")
	require.Error(t, err)
	assert.Equal(t, KindNoSuchChannel, KindOf(err))

	err = e.SendMessage(alice.ID, "carol", "hi")
	require.Error(t, err)
	assert.Equal(t, KindNoSuchUser, KindOf(err))
}

func TestRateLimiterExhaustion(t *testing.T) {
	e := testEngine(t)
	e.limiter = NewRateLimiterWithParams(2, 0.0001)

	alice, _ := e.Connect("alice", ProtocolWebSocket, nil)
	bob, _ := e.Connect("bob", ProtocolWebSocket, nil)
	require.NoError(t, e.Join(alice.ID, "#general"))
	require.NoError(t, e.Join(bob.ID, "#general"))

	require.NoError(t, e.SendMessage(alice.ID, "#general", "one"))
	require.NoError(t, e.SendMessage(alice.ID, "#general", "two"))

	err := e.SendMessage(alice.ID, "#general", "three")
	require.Error(t, err)
	assert.Equal(t, KindRateLimited, KindOf(err))
}

func TestFetchHistoryWithoutStoreReturnsEmpty(t *testing.T) {
	e := testEngine(t)
	messages, hasMore, err := e.FetchHistory(context.Background(), "#general", nil, 50)
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.False(t, hasMore)
}

func TestGetMembersSnapshot(t *testing.T) {
	e := testEngine(t)
	alice, _ := e.Connect("alice", ProtocolWebSocket, nil)
	bob, _ := e.Connect("bob", ProtocolWebSocket, nil)
	require.NoError(t, e.Join(alice.ID, "#general"))
	require.NoError(t, e.Join(bob.ID, "#general"))

	members, err := e.GetMembers("#general")
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestShardedMapConcurrentAccess(t *testing.T) {
	sm := NewShardedMap[string, int](StringHashFNV)
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 1000; j++ {
				sm.Store("k", i*1000+j)
				sm.Load("k")
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	_, ok := sm.Load("k")
	assert.True(t, ok)
}
