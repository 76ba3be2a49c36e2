// Package ssd emits the SSD subscription dialect (C9): a single JSON
// object carrying subscriber traffic/expiry info and a `servers` array,
// base64-wrapped behind an `ssd://` prefix. Grounded on
// _examples/original_source/src/generator/config/subexport.cpp's
// proxyToSSD.
package ssd

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/nodeconv/subconverter/node"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ssCiphers restricts which ShadowsocksR nodes degrade cleanly to plain
// Shadowsocks for SSD, same whitelist as generator/mixed's SSSub emitter.
var ssCiphers = map[string]bool{
	"aes-128-gcm": true, "aes-192-gcm": true, "aes-256-gcm": true,
	"aes-128-cfb": true, "aes-192-cfb": true, "aes-256-cfb": true,
	"chacha20-ietf-poly1305": true, "chacha20-ietf": true, "chacha20": true, "rc4-md5": true,
}

// Emit renders the SSD document. group defaults to "SSD" when empty;
// userinfo is the raw `Subscription-UserInfo` header value (spec §4.3/
// §4.9 "userinfo headers are carried through"), parsed for
// upload/download/total/expire the way proxyToSSD does.
func Emit(nodes []node.Proxy, group, userinfo string) string {
	if group == "" {
		group = "SSD"
	}

	doc := map[string]interface{}{
		"airport": group, "port": 1, "encryption": "aes-128-gcm", "password": "password",
	}
	if userinfo != "" {
		applyUserInfo(doc, userinfo)
	}

	var servers []map[string]interface{}
	index := 0
	for _, n := range nodes {
		plugin := n.Plugin
		switch n.Type {
		case node.Shadowsocks:
			if plugin == "obfs-local" {
				plugin = "simple-obfs"
			}
		case node.ShadowsocksR:
			if !ssCiphers[n.EncryptMethod] || n.Protocol != "origin" || n.OBFS != "plain" {
				continue
			}
			plugin = ""
		default:
			continue
		}
		servers = append(servers, map[string]interface{}{
			"server": n.Hostname, "port": int(n.Port), "encryption": n.EncryptMethod,
			"password": n.Password, "plugin": plugin, "plugin_options": n.PluginOption,
			"remarks": n.Remark, "id": index,
		})
		index++
	}
	doc["servers"] = servers

	body, err := json.Marshal(doc)
	if err != nil {
		return ""
	}
	return "ssd://" + base64.StdEncoding.EncodeToString(body)
}

func applyUserInfo(doc map[string]interface{}, userinfo string) {
	fields := map[string]string{}
	for _, kv := range strings.Split(strings.ReplaceAll(userinfo, "; ", "&"), "&") {
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			fields[kv[:idx]] = kv[idx+1:]
		}
	}
	upload, _ := strconv.ParseFloat(fields["upload"], 64)
	download, _ := strconv.ParseFloat(fields["download"], 64)
	total, _ := strconv.ParseFloat(fields["total"], 64)
	const gib = 1024 * 1024 * 1024
	doc["traffic_used"] = (upload + download) / gib
	doc["traffic_total"] = total / gib
	if expiry := fields["expire"]; expiry != "" {
		if secs, err := strconv.ParseInt(expiry, 10, 64); err == nil {
			doc["expiry"] = time.Unix(secs, 0).UTC().Format("2006-01-02 15:04")
		}
	}
}
