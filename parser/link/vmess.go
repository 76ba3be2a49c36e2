package link

import (
	"regexp"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/nodeconv/subconverter/node"
)

func init() {
	register("vmess://")
	register("vmess1://")
}

var (
	reVmessShadowrocket = regexp.MustCompile(`^vmess://([A-Za-z0-9-_]+)\?(.*)$`)
	reVmessStd          = regexp.MustCompile(`^vmess://(.*?)@(.*)$`)
	reVmessKitsunebi    = regexp.MustCompile(`^vmess1://(.*?)\?(.*)$`)
	reQuantumultLine    = regexp.MustCompile(`^(.*?) = (.*)$`)
)

// explodeVmess dispatches across the five dialects spec §4.3 lists for
// "vmess://", grounded on subparser.cpp's explodeVmess dispatcher.
func explodeVmess(link string) node.Proxy {
	switch {
	case reVmessShadowrocket.MatchString(link):
		return explodeShadowrocket(link)
	case reVmessStd.MatchString(link):
		return explodeStdVMess(link)
	case reVmessKitsunebi.MatchString(link):
		return explodeKitsunebi(link)
	}

	body := strings.TrimPrefix(strings.TrimPrefix(link, "vmess://"), "vmess1://")
	decoded, ok := urlSafeBase64Decode(body)
	if !ok {
		return node.Proxy{}
	}
	if reQuantumultLine.MatchString(decoded) {
		return explodeQuan(decoded)
	}

	var raw map[string]interface{}
	if err := jsoniter.UnmarshalFromString(decoded, &raw); err != nil {
		return node.Proxy{}
	}
	return vmessFromJSON(raw)
}

func str(m map[string]interface{}, key string) string {
	switch t := m[key].(type) {
	case string:
		return t
	case float64:
		return strconv.FormatInt(int64(t), 10)
	}
	return ""
}

// vmessFromJSON builds a Proxy from the v2rayN-style decoded JSON object
// (fields: v, ps, add, port, id, aid, net, type, host, path, tls, sni).
func vmessFromJSON(m map[string]interface{}) node.Proxy {
	add, port := str(m, "add"), str(m, "port")
	if add == "" || port == "" || port == "0" {
		return node.Proxy{}
	}
	var out node.Proxy
	commonConstruct(&out, node.VMess, "", str(m, "ps"), add, port, node.TriUndef, node.TriUndef, node.TriUndef, node.TriUndef)
	finishVmess(&out, str(m, "id"), str(m, "aid"), str(m, "net"), "auto", str(m, "path"), str(m, "host"), "", str(m, "tls"), str(m, "sni"), str(m, "type"))
	return out
}

// finishVmess fills the fields vmessConstruct computes after the common
// ones, including the quic/non-quic host+path split and TLS gate.
func finishVmess(n *node.Proxy, id, aid, net, cipher, path, host, edge, tls, sni, fakeType string) {
	if id == "" {
		id = node.AllZeroUUID
	}
	n.UserId = id
	n.AlterId = uint16(toInt(aid))
	n.EncryptMethod = cipher
	if net == "" {
		net = "tcp"
	}
	n.TransferProtocol = net
	n.Edge = edge
	n.ServerName = sni

	if net == "quic" {
		n.QUICSecure = host
		n.QUICSecret = path
	} else {
		if host == "" && !isIPv4(n.Hostname) && !isIPv6(n.Hostname) {
			n.Host = n.Hostname
		} else {
			n.Host = strings.TrimSpace(host)
		}
		if path == "" {
			path = "/"
		}
		n.Path = strings.TrimSpace(path)
	}
	n.FakeType = fakeType
	n.TLSSecure = tls == "tls"
}

// explodeStdVMess parses "vmess://uuid@host:port?…query…#remark".
func explodeStdVMess(link string) node.Proxy {
	m := reVmessStd.FindStringSubmatch(link)
	if m == nil {
		return node.Proxy{}
	}
	userinfo, rest := m[1], m[2]
	remark := ""
	if idx := strings.IndexByte(rest, '#'); idx >= 0 {
		remark = urlDecode(rest[idx+1:])
		rest = rest[:idx]
	}
	hostport, query := rest, ""
	if idx := strings.IndexByte(rest, '?'); idx >= 0 {
		hostport, query = rest[:idx], rest[idx+1:]
	}
	hp := strings.SplitN(hostport, ":", 2)
	if len(hp) != 2 || hp[1] == "0" {
		return node.Proxy{}
	}
	server, port := hp[0], hp[1]

	q := parseQuery(query)
	var out node.Proxy
	commonConstruct(&out, node.VMess, q["group"], remark, server, port, node.TriUndef, node.TriUndef, triFromQuery(q, "allowInsecure"), node.TriUndef)
	finishVmess(&out, userinfo, q["alterId"], q["type"], "auto", q["path"], q["host"], "", q["tls"], q["sni"], "")
	return out
}

// explodeShadowrocket parses "vmess://<base64(method:uuid@host:port)>?…".
func explodeShadowrocket(link string) node.Proxy {
	m := reVmessShadowrocket.FindStringSubmatch(link)
	if m == nil {
		return node.Proxy{}
	}
	decoded, ok := urlSafeBase64Decode(m[1])
	if !ok {
		return node.Proxy{}
	}
	at := strings.LastIndexByte(decoded, '@')
	if at < 0 {
		return node.Proxy{}
	}
	methodUUID, hostport := decoded[:at], decoded[at+1:]
	hp := strings.SplitN(hostport, ":", 2)
	if len(hp) != 2 {
		return node.Proxy{}
	}
	server, port := hp[0], hp[1]
	mu := strings.SplitN(methodUUID, ":", 2)
	uuid := methodUUID
	if len(mu) == 2 {
		uuid = mu[1]
	}

	q := parseQuery(m[2])
	var out node.Proxy
	commonConstruct(&out, node.VMess, q["remarks"], q["remarks"], server, port, node.TriUndef, node.TriUndef, node.TriUndef, node.TriUndef)
	finishVmess(&out, uuid, q["aid"], q["net"], "auto", q["path"], q["host"], "", q["tls"], q["peer"], q["type"])
	return out
}

// explodeKitsunebi parses "vmess1://uuid@host:port?…" (vmess1 scheme).
func explodeKitsunebi(link string) node.Proxy {
	m := reVmessKitsunebi.FindStringSubmatch(link)
	if m == nil {
		return node.Proxy{}
	}
	return explodeStdVMess("vmess://" + m[1] + "?" + m[2])
}

// explodeQuan parses the Quantumult "name = vmess, host, port, key=value,
// ..." line form, reusing the key=value tail as a generic field bag.
func explodeQuan(line string) node.Proxy {
	parts := strings.SplitN(line, " = ", 2)
	if len(parts) != 2 {
		return node.Proxy{}
	}
	remark := strings.TrimSpace(parts[0])
	fields := strings.Split(parts[1], ",")
	if len(fields) < 3 {
		return node.Proxy{}
	}
	proto := strings.TrimSpace(fields[0])
	if proto != "vmess" {
		return node.Proxy{}
	}
	server := strings.TrimSpace(fields[1])
	port := strings.TrimSpace(fields[2])

	opts := map[string]string{}
	for _, f := range fields[3:] {
		kv := strings.SplitN(strings.TrimSpace(f), "=", 2)
		if len(kv) == 2 {
			opts[strings.TrimSpace(kv[0])] = strings.Trim(strings.TrimSpace(kv[1]), `"`)
		}
	}

	var out node.Proxy
	commonConstruct(&out, node.VMess, "", remark, server, port, node.TriUndef, node.TriUndef, triFromQuery(opts, "over-tls"), node.TriUndef)
	finishVmess(&out, opts["id"], "0", opts["obfs"], "auto", "", opts["obfs-host"], "", "", "", "")
	return out
}
