package ircadapter

import (
	"bufio"
	"log"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.sr.ht/~runxiyu/concord/internal/engine"
)

func TestQuitBeforeRegistrationClosesConnection(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	eng := engine.New(nil, log.Default())
	done := make(chan struct{})
	go func() {
		HandleConnection(server, eng, log.Default())
		close(done)
	}()

	_, err := client.Write([]byte("QUIT :bye\r\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(client)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, line, "ERROR")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("HandleConnection did not return after pre-registration QUIT")
	}
}

func TestRegisterThenQuitClosesConnection(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	eng := engine.New(nil, log.Default())
	done := make(chan struct{})
	go func() {
		HandleConnection(server, eng, log.Default())
		close(done)
	}()

	_, err := client.Write([]byte("NICK alice\r\nUSER alice 0 * :Alice\r\n"))
	require.NoError(t, err)

	reader := bufio.NewReader(client)
	for i := 0; i < 5; i++ {
		_, err := reader.ReadString('\n')
		require.NoError(t, err)
	}

	_, err = client.Write([]byte("QUIT :done\r\n"))
	require.NoError(t, err)

	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Contains(t, line, "ERROR")

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("HandleConnection did not return after registered QUIT")
	}
}
