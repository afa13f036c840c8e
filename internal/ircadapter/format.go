/*
 * Reply-line builders and Event-to-wire-line translation
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
	"strconv"
	"strings"

	"git.sr.ht/~runxiyu/concord/internal/engine"
)

const serverName = "concord"

func rplWelcomeLine(nick string) string {
	return ServerReply(serverName, rplWelcome, nick, "Welcome to Concord, "+nick+"!").Format()
}

func rplYourhostLine(nick string) string {
	return ServerReply(serverName, rplYourhost, nick, "Your host is "+serverName+", running version 0.1.0").Format()
}

func rplCreatedLine(nick string) string {
	return ServerReply(serverName, rplCreated, nick, "This server was created today").Format()
}

func rplMyinfoLine(nick string) string {
	return ServerReply(serverName, rplMyinfo, nick, serverName, "0.1.0", "o", "o").Format()
}

func errNomotdLine(nick string) string {
	return ServerReply(serverName, errNomotd, nick, "MOTD File is missing").Format()
}

// WelcomeBurst is the sequence of lines sent immediately after registration.
func WelcomeBurst(nick string) []string {
	return []string{
		rplWelcomeLine(nick),
		rplYourhostLine(nick),
		rplCreatedLine(nick),
		rplMyinfoLine(nick),
		errNomotdLine(nick),
	}
}

func joinLine(nick, channel string) string {
	return Message{Prefix: UserPrefix(nick, serverName), Command: "JOIN", Params: []string{channel}}.Format()
}

func partLine(nick, channel string, reason *string) string {
	params := []string{channel}
	if reason != nil {
		params = append(params, *reason)
	}
	return Message{Prefix: UserPrefix(nick, serverName), Command: "PART", Params: params}.Format()
}

func privmsgLine(nick, target, message string) string {
	return Message{Prefix: UserPrefix(nick, serverName), Command: "PRIVMSG", Params: []string{target, message}}.Format()
}

func quitLine(nick string, reason *string) string {
	var params []string
	if reason != nil {
		params = append(params, *reason)
	}
	return Message{Prefix: UserPrefix(nick, serverName), Command: "QUIT", Params: params}.Format()
}

func nickChangeLine(oldNick, newNick string) string {
	return Message{Prefix: UserPrefix(oldNick, serverName), Command: "NICK", Params: []string{newNick}}.Format()
}

func topicChangeLine(setBy, channel, topic string) string {
	return Message{Prefix: UserPrefix(setBy, serverName), Command: "TOPIC", Params: []string{channel, topic}}.Format()
}

func rplTopicLine(nick, channel, topic string) string {
	return ServerReply(serverName, rplTopic, nick, channel, topic).Format()
}

func rplNotopicLine(nick, channel string) string {
	return ServerReply(serverName, rplNotopic, nick, channel, "No topic is set").Format()
}

func rplNamreplyLine(nick, channel string, members []string) string {
	return ServerReply(serverName, rplNamreply, nick, "=", channel, strings.Join(members, " ")).Format()
}

func rplEndofnamesLine(nick, channel string) string {
	return ServerReply(serverName, rplEndofnames, nick, channel, "End of /NAMES list").Format()
}

func rplListLine(nick, channel string, memberCount int, topic string) string {
	return ServerReply(serverName, rplList, nick, channel, strconv.Itoa(memberCount), topic).Format()
}

func rplListendLine(nick string) string {
	return ServerReply(serverName, rplListend, nick, "End of /LIST").Format()
}

func rplWhoisuserLine(requestor, nick string) string {
	return ServerReply(serverName, rplWhoisuser, requestor, nick, nick, serverName, "*", nick).Format()
}

func rplWhoisserverLine(requestor, nick string) string {
	return ServerReply(serverName, rplWhoisserver, requestor, nick, serverName, "Concord IRC-compatible chat server").Format()
}

func rplEndofwhoisLine(requestor, nick string) string {
	return ServerReply(serverName, rplEndofwhois, requestor, nick, "End of /WHOIS list").Format()
}

func errNosuchnickLine(nick, target string) string {
	return ServerReply(serverName, errNosuchnick, nick, target, "No such nick/channel").Format()
}

func errNosuchchannelLine(nick, channel string) string {
	return ServerReply(serverName, errNosuchchannel, nick, channel, "No such channel").Format()
}

func errUnknowncommandLine(nick, command string) string {
	return ServerReply(serverName, errUnknowncommand, nick, command, "Unknown command").Format()
}

func errNonicknamegivenLine(nick string) string {
	return ServerReply(serverName, errNonicknamegiven, nick, "No nickname given").Format()
}

func errNicknameinuseLine(nick, wanted string) string {
	return ServerReply(serverName, errNicknameinuse, nick, wanted, "Nickname is already in use").Format()
}

func errNotonchannelLine(nick, channel string) string {
	return ServerReply(serverName, errNotonchannel, nick, channel, "You're not on that channel").Format()
}

func errNotregisteredLine() string {
	return ServerReply(serverName, errNotregistered, "*", "You have not registered").Format()
}

func errNeedmoreparamsLine(nick, command string) string {
	return ServerReply(serverName, errNeedmoreparams, nick, command, "Not enough parameters").Format()
}

func errAlreadyregisteredLine(nick string) string {
	return ServerReply(serverName, errAlreadyregistered, nick, "You may not reregister").Format()
}

func pongLine(token string) string {
	return Message{Command: "PONG", Params: []string{serverName, token}}.Format()
}

func noticeLine(nick, message string) string {
	return ServerReply(serverName, "NOTICE", nick, message).Format()
}

func errorNoticeLine(nick, code, message string) string {
	return ServerReply(serverName, "NOTICE", nick, "["+code+"] "+message).Format()
}

// eventToLines translates one engine.Event into the wire lines a client
// registered as myNick should receive for it. ChannelListEvent and
// HistoryEvent are WebSocket-only and produce nothing here.
func eventToLines(myNick string, event engine.Event) []string {
	switch e := event.(type) {
	case engine.MessageEvent:
		return []string{privmsgLine(e.From, e.Target, e.Content)}
	case engine.JoinEvent:
		return []string{joinLine(e.Nick, e.Channel)}
	case engine.PartEvent:
		return []string{partLine(e.Nick, e.Channel, e.Reason)}
	case engine.QuitEvent:
		return []string{quitLine(e.Nick, e.Reason)}
	case engine.TopicChangeEvent:
		return []string{topicChangeLine(e.SetBy, e.Channel, e.Topic)}
	case engine.NickChangeEvent:
		return []string{nickChangeLine(e.Old, e.New)}
	case engine.NamesEvent:
		nicks := make([]string, len(e.Members))
		for i, m := range e.Members {
			nicks[i] = m.Nickname
		}
		return []string{
			rplNamreplyLine(myNick, e.Channel, nicks),
			rplEndofnamesLine(myNick, e.Channel),
		}
	case engine.TopicEvent:
		if e.Topic == "" {
			return []string{rplNotopicLine(myNick, e.Channel)}
		}
		return []string{rplTopicLine(myNick, e.Channel, e.Topic)}
	case engine.ServerNoticeEvent:
		return []string{noticeLine(myNick, e.Message)}
	case engine.ErrorEvent:
		return []string{errorNoticeLine(myNick, e.Code, e.Message)}
	case engine.ChannelListEvent, engine.HistoryEvent:
		return nil
	default:
		return nil
	}
}
