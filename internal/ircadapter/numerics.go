/*
 * RFC 2812 numeric reply codes
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

const (
	// Connection registration
	rplWelcome  = "001"
	rplYourhost = "002"
	rplCreated  = "003"
	rplMyinfo   = "004"

	// Channel operations
	rplTopic      = "332"
	rplNotopic    = "331"
	rplNamreply   = "353"
	rplEndofnames = "366"

	// LIST
	rplList    = "322"
	rplListend = "323"

	// WHO / WHOIS
	rplWhoreply    = "352"
	rplEndofwho    = "315"
	rplWhoisuser   = "311"
	rplWhoisserver = "312"
	rplEndofwhois  = "318"

	// Errors
	errNosuchnick       = "401"
	errNosuchchannel    = "403"
	errUnknowncommand   = "421"
	errNonicknamegiven  = "431"
	errNicknameinuse    = "433"
	errNotonchannel     = "442"
	errNotregistered    = "451"
	errNeedmoreparams   = "461"
	errAlreadyregistered = "462"
	errNomotd           = "422"
)
