package bulk

import (
	"strconv"
	"strings"
)

// wireguardPeer is the decoded form of a Surge WireGuard section's
// "peer = (public-key = ..., endpoint = ..., ...)" line. The grammar is a
// parenthesized, comma-separated key=value list; values may be bare tokens
// or double-quoted. Grounded on subparser.cpp's parsePeers, which applies
// the regex pair R"(\((.*?)\))" (extract the parenthesized body) then
// R"(([a-z-]+) ?= ?([^" ),]+|".*?"),? ?)" (split into key/value pairs). No
// library in the retrieved corpus covers this exact ad hoc grammar, so it's
// hand-tokenized here rather than reached for a general INI/config parser.
type wireguardPeer struct {
	PublicKey  string
	Endpoint   string
	ClientId   string
	AllowedIPs string
}

// parsePeer extracts the "(...)" body of a peer line and tokenizes its
// key=value pairs.
func parsePeer(raw string) (wireguardPeer, bool) {
	open := strings.Index(raw, "(")
	close := strings.LastIndex(raw, ")")
	if open < 0 || close < 0 || close <= open {
		return wireguardPeer{}, false
	}
	body := raw[open+1 : close]

	var peer wireguardPeer
	for _, field := range splitPeerFields(body) {
		eq := strings.Index(field, "=")
		if eq < 0 {
			continue
		}
		key := strings.TrimSpace(field[:eq])
		val := strings.Trim(strings.TrimSpace(field[eq+1:]), `"`)
		switch key {
		case "public-key":
			peer.PublicKey = val
		case "endpoint":
			peer.Endpoint = val
		case "client-id":
			peer.ClientId = val
		case "allowed-ips":
			peer.AllowedIPs = val
		}
	}
	return peer, peer.PublicKey != "" && peer.Endpoint != ""
}

// splitPeerFields splits a peer body on top-level commas, tolerating commas
// that appear inside a quoted value (e.g. allowed-ips = "0.0.0.0/0, ::/0").
func splitPeerFields(body string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	for _, r := range body {
		switch r {
		case '"':
			inQuotes = !inQuotes
			cur.WriteRune(r)
		case ',':
			if inQuotes {
				cur.WriteRune(r)
			} else {
				fields = append(fields, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		fields = append(fields, cur.String())
	}
	return fields
}

// splitEndpoint splits a peer's "endpoint" value on the last ":" so IPv6
// literal hosts (which themselves contain colons) survive.
func splitEndpoint(endpoint string) (host, port string) {
	i := strings.LastIndex(endpoint, ":")
	if i < 0 {
		return endpoint, ""
	}
	return endpoint[:i], endpoint[i+1:]
}

func parsePortInt(s string) int {
	v, _ := strconv.Atoi(strings.TrimSpace(s))
	return v
}
