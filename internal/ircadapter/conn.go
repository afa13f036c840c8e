/*
 * Per-connection registration state machine and duplex event loop
 *
 * Copyright (C) 2024  Runxi Yu <https://runxiyu.org>
 * SPDX-License-Identifier: AGPL-3.0-or-later
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package ircadapter

import (
	"bufio"
	"log"
	"net"
	"strings"

	"github.com/google/uuid"

	"git.sr.ht/~runxiyu/concord/internal/engine"
)

// regState tags whether a connection has completed NICK+USER registration.
// Mirrors the teacher's course-selection state machine in shape (an enum
// of exactly two reachable phases) but carries chat registration fields.
type regState struct {
	registered bool

	// Unregistered fields.
	pass         string
	nick         string
	userReceived bool

	// Registered fields.
	sessionID uuid.UUID
}

// lineOrErr is what the reader goroutine posts back to the connection loop;
// the zero value of err signals a successfully read line.
type lineOrErr struct {
	line string
	err  error
}

// HandleConnection runs one IRC client connection from accept to close. It
// blocks until the client disconnects or a fatal I/O error occurs.
func HandleConnection(conn net.Conn, eng *engine.Engine, logger *log.Logger) {
	peer := conn.RemoteAddr().String()
	logger.Printf("IRC client connected: %s", peer)
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			logger.Printf("IRC connection %s panicked: %v", peer, r)
		}
	}()

	reader := bufio.NewReader(conn)
	state := &regState{}

	lines := make(chan lineOrErr, 1)
	go func() {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				lines <- lineOrErr{err: err}
				return
			}
			lines <- lineOrErr{line: strings.TrimRight(line, "\r\n")}
		}
	}()

	var events <-chan engine.Event

loop:
	for {
		if events != nil {
			select {
			case le, ok := <-lines:
				if !ok || le.err != nil {
					break loop
				}
				if !processRegisteredLine(conn, eng, state, le.line) {
					break loop
				}
			case event, ok := <-events:
				if !ok {
					break loop
				}
				writeLines(conn, eventToLines(state.nick, event))
			}
		} else {
			le, ok := <-lines
			if !ok || le.err != nil {
				break loop
			}
			if le.line == "" {
				continue
			}
			switch processRegistrationLine(conn, eng, state, le.line) {
			case regQuit:
				break loop
			case regDone:
				if session, ok := eng.GetSession(state.sessionID); ok {
					events = session.Events()
				}
			}
		}
	}

	if state.registered {
		eng.Disconnect(state.sessionID)
		logger.Printf("IRC client disconnected: %s (%s)", peer, state.nick)
	} else {
		logger.Printf("IRC client disconnected before registering: %s", peer)
	}
}

// processRegisteredLine parses and dispatches one line from a registered
// client. Returns false when the connection should close, which happens
// only on QUIT; lines that fail to parse are ignored.
func processRegisteredLine(conn net.Conn, eng *engine.Engine, state *regState, line string) bool {
	if line == "" {
		return true
	}
	msg, err := Parse(line)
	if err != nil {
		return true
	}

	if msg.Command == "QUIT" {
		reason := "Client quit"
		if len(msg.Params) > 0 {
			reason = msg.Params[0]
		}
		writeLines(conn, []string{"ERROR :Closing Link: " + state.nick + " (Quit: " + reason + ")"})
		return false
	}

	writeLines(conn, handleCommand(eng, state.sessionID, state.nick, msg))
	return true
}

// regResult is what processRegistrationLine reports back about one
// pre-registration line: whether registration just completed, the client
// quit and the connection should close, or neither (keep reading).
type regResult int

const (
	regContinue regResult = iota
	regDone
	regQuit
)

// processRegistrationLine advances the registration state machine by one
// line, returning regDone once NICK and USER have both been supplied and
// the engine has accepted the connection, regQuit if the client sent QUIT
// before registering, and regContinue otherwise.
func processRegistrationLine(conn net.Conn, eng *engine.Engine, state *regState, line string) regResult {
	msg, err := Parse(line)
	if err != nil {
		return regContinue
	}

	if msg.Command == "CAP" {
		if len(msg.Params) > 0 && msg.Params[0] == "LS" {
			writeLines(conn, []string{Message{Prefix: serverName, Command: "CAP", Params: []string{"*", "LS", ""}}.Format()})
		}
		return regContinue
	}

	switch msg.Command {
	case "PASS":
		if len(msg.Params) > 0 {
			state.pass = msg.Params[0]
		}
	case "NICK":
		if len(msg.Params) == 0 {
			writeLines(conn, []string{errNonicknamegivenLine("*")})
			return regContinue
		}
		wanted := msg.Params[0]
		if !eng.IsNickAvailable(wanted) {
			writeLines(conn, []string{errNicknameinuseLine("*", wanted)})
			return regContinue
		}
		state.nick = wanted
	case "USER":
		state.userReceived = true
	case "QUIT":
		reason := "Client quit"
		if len(msg.Params) > 0 {
			reason = msg.Params[0]
		}
		writeLines(conn, []string{"ERROR :Closing Link: * (Quit: " + reason + ")"})
		return regQuit
	default:
		writeLines(conn, []string{errNotregisteredLine()})
		return regContinue
	}

	if state.nick == "" || !state.userReceived {
		return regContinue
	}

	session, err := eng.Connect(state.nick, engine.ProtocolIRC, nil)
	if err != nil {
		writeLines(conn, []string{errNicknameinuseLine("*", state.nick)})
		state.nick = ""
		state.userReceived = false
		return regContinue
	}

	state.registered = true
	state.sessionID = session.ID
	writeLines(conn, WelcomeBurst(state.nick))
	return regDone
}

func writeLines(conn net.Conn, lines []string) {
	for _, line := range lines {
		if _, err := conn.Write([]byte(line + "\r\n")); err != nil {
			return
		}
	}
}
