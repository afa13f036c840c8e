package wsadapter

import (
	"context"
	"encoding/json"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~runxiyu/concord/internal/engine"
)

func TestCommandDecodeSendMessage(t *testing.T) {
	var cmd command
	require.NoError(t, json.Unmarshal([]byte(`{"type":"send_message","channel":"#general","content":"hi"}`), &cmd))
	assert.Equal(t, cmdSendMessage, cmd.Type)
	assert.Equal(t, "#general", cmd.Channel)
	assert.Equal(t, "hi", cmd.Content)
}

func TestDispatchJoinAndListChannels(t *testing.T) {
	eng := engine.New(nil, log.Default())
	handler := NewHandler(eng, nil, log.Default())

	session, err := eng.Connect("alice", engine.ProtocolWebSocket, nil)
	require.NoError(t, err)

	err = handler.dispatch(context.Background(), session, command{Type: cmdJoinChannel, Channel: "#general"})
	require.NoError(t, err)

	// Join sends exactly three events to the joiner: Join, Topic, Names.
	<-session.Events()
	<-session.Events()
	<-session.Events()

	err = handler.dispatch(context.Background(), session, command{Type: cmdListChannels})
	require.NoError(t, err)

	evt := <-session.Events()
	list, ok := evt.(engine.ChannelListEvent)
	require.True(t, ok)
	assert.Len(t, list.Channels, 1)
}

func TestDispatchUnknownCommand(t *testing.T) {
	eng := engine.New(nil, log.Default())
	handler := NewHandler(eng, nil, log.Default())
	session, err := eng.Connect("alice", engine.ProtocolWebSocket, nil)
	require.NoError(t, err)

	err = handler.dispatch(context.Background(), session, command{Type: "nonsense"})
	assert.Error(t, err)
}

// limitRecordingStore is a Noop store that remembers the limit of the last
// history fetch it served.
type limitRecordingStore struct {
	engine.Noop
	lastLimit int
}

func (s *limitRecordingStore) FetchChannelHistory(_ context.Context, _ string, _ *time.Time, limit int) ([]engine.HistoryMessage, bool, error) {
	s.lastLimit = limit
	return nil, false, nil
}

func TestDispatchFetchHistoryClampsLimit(t *testing.T) {
	store := &limitRecordingStore{}
	eng := engine.New(store, log.Default())
	handler := NewHandler(eng, nil, log.Default())
	session, err := eng.Connect("alice", engine.ProtocolWebSocket, nil)
	require.NoError(t, err)

	huge := 10000
	err = handler.dispatch(context.Background(), session, command{Type: cmdFetchHistory, Channel: "#general", Limit: &huge})
	require.NoError(t, err)

	evt := <-session.Events()
	hist, ok := evt.(engine.HistoryEvent)
	require.True(t, ok)
	assert.Empty(t, hist.Messages)
	assert.False(t, hist.HasMore)
	assert.Equal(t, maxHistoryLimit, store.lastLimit)
}
