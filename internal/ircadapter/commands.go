/*
 * Post-registration command dispatch
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
	"strings"

	"github.com/google/uuid"

	"git.sr.ht/~runxiyu/concord/internal/engine"
)

// handleCommand processes one command from an already-registered session,
// returning the wire lines to send back immediately. Broadcasts to other
// sessions arrive separately over the session's event channel.
func handleCommand(eng *engine.Engine, sessionID uuid.UUID, nick string, msg Message) []string {
	switch msg.Command {
	case "JOIN":
		return handleJoin(eng, sessionID, nick, msg)
	case "PART":
		return handlePart(eng, sessionID, nick, msg)
	case "PRIVMSG":
		return handlePrivmsg(eng, sessionID, nick, msg)
	case "TOPIC":
		return handleTopic(eng, sessionID, nick, msg)
	case "NAMES":
		return handleNames(eng, nick, msg)
	case "LIST":
		return handleList(eng, nick, msg)
	case "WHO":
		return handleWho(eng, nick, msg)
	case "WHOIS":
		return handleWhois(eng, nick, msg)
	case "QUIT":
		return nil // handled at the connection level
	case "PING":
		token := "concord"
		if len(msg.Params) > 0 {
			token = msg.Params[0]
		}
		return []string{pongLine(token)}
	case "PONG":
		return nil
	case "NICK", "USER", "PASS":
		return []string{errAlreadyregisteredLine(nick)}
	case "CAP":
		if len(msg.Params) > 0 && msg.Params[0] == "LS" {
			return []string{Message{Prefix: serverName, Command: "CAP", Params: []string{"*", "LS", ""}}.Format()}
		}
		return nil
	case "MODE":
		if len(msg.Params) == 0 {
			return []string{errNeedmoreparamsLine(nick, "MODE")}
		}
		target := msg.Params[0]
		if strings.HasPrefix(target, "#") {
			return []string{ServerReply(serverName, "324", nick, target, "+").Format()}
		}
		return []string{ServerReply(serverName, "221", nick, "+").Format()}
	case "USERHOST", "ISON":
		return nil
	default:
		return []string{errUnknowncommandLine(nick, msg.Command)}
	}
}

func handleJoin(eng *engine.Engine, sessionID uuid.UUID, nick string, msg Message) []string {
	if len(msg.Params) == 0 {
		return []string{errNeedmoreparamsLine(nick, "JOIN")}
	}

	var replies []string
	for _, channel := range strings.Split(msg.Params[0], ",") {
		channel = strings.TrimSpace(channel)
		if channel == "" {
			continue
		}
		if err := eng.Join(sessionID, channel); err != nil {
			replies = append(replies, errNosuchchannelLine(nick, channel))
		}
	}
	return replies
}

func handlePart(eng *engine.Engine, sessionID uuid.UUID, nick string, msg Message) []string {
	if len(msg.Params) == 0 {
		return []string{errNeedmoreparamsLine(nick, "PART")}
	}

	var reason *string
	if len(msg.Params) > 1 {
		reason = &msg.Params[1]
	}

	var replies []string
	for _, channel := range strings.Split(msg.Params[0], ",") {
		channel = strings.TrimSpace(channel)
		if channel == "" {
			continue
		}
		if err := eng.Part(sessionID, channel, reason); err != nil {
			replies = append(replies, errNotonchannelLine(nick, channel))
		}
	}
	return replies
}

func handlePrivmsg(eng *engine.Engine, sessionID uuid.UUID, nick string, msg Message) []string {
	if len(msg.Params) < 2 {
		return []string{errNeedmoreparamsLine(nick, "PRIVMSG")}
	}
	target, content := msg.Params[0], msg.Params[1]

	if err := eng.SendMessage(sessionID, target, content); err != nil {
		return []string{errorLineForKind(nick, target, err)}
	}
	return nil
}

func handleTopic(eng *engine.Engine, sessionID uuid.UUID, nick string, msg Message) []string {
	if len(msg.Params) == 0 {
		return []string{errNeedmoreparamsLine(nick, "TOPIC")}
	}
	channel := msg.Params[0]

	if len(msg.Params) > 1 {
		if err := eng.SetTopic(sessionID, channel, msg.Params[1]); err != nil {
			return []string{errorLineForKind(nick, channel, err)}
		}
		return nil
	}

	if _, err := eng.GetMembers(channel); err != nil {
		return []string{errNosuchchannelLine(nick, channel)}
	}

	bare := strings.TrimPrefix(channel, "#")
	for _, info := range eng.ListChannels() {
		if strings.EqualFold(strings.TrimPrefix(info.Name, "#"), bare) {
			if info.Topic == "" {
				return []string{rplNotopicLine(nick, channel)}
			}
			return []string{rplTopicLine(nick, channel, info.Topic)}
		}
	}
	return []string{errNosuchchannelLine(nick, channel)}
}

// errorLineForKind maps an engine error onto the numeric spec.md section 7
// assigns its Kind, falling back to a NOTICE carrying the kind and message
// for kinds the IRC numeric set has no dedicated reply for.
func errorLineForKind(nick, subject string, err error) string {
	switch engine.KindOf(err) {
	case engine.KindNotMember:
		return errNotonchannelLine(nick, subject)
	case engine.KindNoSuchChannel:
		return errNosuchchannelLine(nick, subject)
	case engine.KindNoSuchUser:
		return errNosuchnickLine(nick, subject)
	default:
		return errorNoticeLine(nick, engine.KindOf(err).String(), err.Error())
	}
}

func handleNames(eng *engine.Engine, nick string, msg Message) []string {
	if len(msg.Params) == 0 {
		return []string{errNeedmoreparamsLine(nick, "NAMES")}
	}
	channel := msg.Params[0]

	members, err := eng.GetMembers(channel)
	if err != nil {
		return []string{rplEndofnamesLine(nick, channel)}
	}

	nicks := make([]string, len(members))
	for i, m := range members {
		nicks[i] = m.Nickname
	}
	return []string{
		rplNamreplyLine(nick, channel, nicks),
		rplEndofnamesLine(nick, channel),
	}
}

func handleList(eng *engine.Engine, nick string, msg Message) []string {
	channels := eng.ListChannels()
	replies := make([]string, 0, len(channels)+1)
	for _, ch := range channels {
		replies = append(replies, rplListLine(nick, ch.Name, ch.MemberCount, ch.Topic))
	}
	replies = append(replies, rplListendLine(nick))
	return replies
}

func handleWho(eng *engine.Engine, nick string, msg Message) []string {
	if len(msg.Params) == 0 {
		return []string{errNeedmoreparamsLine(nick, "WHO")}
	}
	target := msg.Params[0]

	var replies []string
	if strings.HasPrefix(target, "#") {
		members, err := eng.GetMembers(target)
		if err == nil {
			for _, m := range members {
				replies = append(replies, ServerReply(
					serverName, rplWhoreply, nick, target, m.Nickname,
					serverName, serverName, m.Nickname, "H",
					"0 "+m.Nickname,
				).Format())
			}
		}
		replies = append(replies, ServerReply(serverName, rplEndofwho, nick, target, "End of /WHO list").Format())
		return replies
	}

	return []string{ServerReply(serverName, rplEndofwho, nick, target, "End of /WHO list").Format()}
}

func handleWhois(eng *engine.Engine, nick string, msg Message) []string {
	if len(msg.Params) == 0 {
		return []string{errNeedmoreparamsLine(nick, "WHOIS")}
	}
	target := msg.Params[0]

	if !eng.IsNickAvailable(target) {
		return []string{
			rplWhoisuserLine(nick, target),
			rplWhoisserverLine(nick, target),
			rplEndofwhoisLine(nick, target),
		}
	}
	return []string{errNosuchnickLine(nick, target)}
}
