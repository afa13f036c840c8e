/*
 * Input validation (spec section 4.6)
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

package engine

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	maxNicknameLength = 32
	minChannameLength = 2
	maxChannameLength = 50
	maxTopicLength    = 390
	maxContentLength  = 2000
)

var channelCaser = cases.Lower(language.Und)

// canonicalizeChannel normalizes a channel parameter to the table key
// shape: lowercase, single leading '#'. Idempotent: canon(canon(s)) ==
// canon(s).
func canonicalizeChannel(name string) string {
	lower := channelCaser.String(strings.TrimSpace(name))
	lower = strings.TrimPrefix(lower, "#")
	return "#" + lower
}

func validateNickname(nick string) error {
	if nick == "" {
		return newError(KindInvalidInput, "nickname must not be empty")
	}
	if len(nick) > maxNicknameLength {
		return newError(KindInvalidInput, "nickname too long")
	}
	first := rune(nick[0])
	if !unicode.IsLetter(first) {
		return newError(KindInvalidInput, "nickname must start with a letter")
	}
	for _, r := range nick[1:] {
		if !isNicknameRune(r) {
			return newError(KindInvalidInput, "nickname contains an invalid character")
		}
	}
	return nil
}

func isNicknameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '_', '-', '[', ']', '{', '}', '\\', '`', '|':
		return true
	}
	return false
}

func validateChannelName(canonical string) error {
	if len(canonical) < minChannameLength || len(canonical) > maxChannameLength {
		return newError(KindInvalidInput, "channel name length out of range")
	}
	if strings.ContainsAny(canonical, " ,") {
		return newError(KindInvalidInput, "channel name contains spaces or commas")
	}
	for _, r := range canonical {
		if unicode.IsControl(r) {
			return newError(KindInvalidInput, "channel name contains control characters")
		}
	}
	return nil
}

func validateTopic(topic string) error {
	if len(topic) > maxTopicLength {
		return newError(KindInvalidInput, "topic too long")
	}
	if strings.ContainsAny(topic, "\r\n") {
		return newError(KindInvalidInput, "topic must not contain CR or LF")
	}
	return nil
}

func validateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return newError(KindInvalidInput, "message content must not be empty")
	}
	if len(content) > maxContentLength {
		return newError(KindInvalidInput, "message content too long")
	}
	return nil
}
