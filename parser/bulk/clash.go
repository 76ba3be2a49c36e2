package bulk

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nodeconv/subconverter/node"
)

// clashProxy models one entry of a Clash "proxies"/"Proxy" list; every
// transport sub-object is destructured the way subparser.cpp's explodeClash
// does per proxy type, legacy flat keys ("ws-path"/"ws-headers") included.
type clashProxy struct {
	Type     string      `yaml:"type"`
	Name     string      `yaml:"name"`
	Server   string      `yaml:"server"`
	Port     interface{} `yaml:"port"`
	UDP      interface{} `yaml:"udp"`
	SCV      interface{} `yaml:"skip-cert-verify"`

	// vmess
	UUID       string      `yaml:"uuid"`
	AlterId    interface{} `yaml:"alterId"`
	Cipher     string      `yaml:"cipher"`
	Network    string      `yaml:"network"`
	ServerName string      `yaml:"servername"`
	TLS        interface{} `yaml:"tls"`
	WSOpts     struct {
		Path    string            `yaml:"path"`
		Headers map[string]string `yaml:"headers"`
	} `yaml:"ws-opts"`
	WSPath    string            `yaml:"ws-path"`
	WSHeaders map[string]string `yaml:"ws-headers"`
	HTTPOpts  struct {
		Path    []string            `yaml:"path"`
		Headers map[string][]string `yaml:"headers"`
	} `yaml:"http-opts"`
	H2Opts struct {
		Path []string `yaml:"path"`
		Host []string `yaml:"host"`
	} `yaml:"h2-opts"`
	GRPCOpts struct {
		ServiceName string `yaml:"grpc-service-name"`
	} `yaml:"grpc-opts"`

	// ss
	Password   string `yaml:"password"`
	Plugin     string `yaml:"plugin"`
	PluginOpts struct {
		Mode string      `yaml:"mode"`
		Host string      `yaml:"host"`
		TLS  interface{} `yaml:"tls"`
		Path string      `yaml:"path"`
		Mux  interface{} `yaml:"mux"`
	} `yaml:"plugin-opts"`
	OBFS     string `yaml:"obfs"`
	OBFSHost string `yaml:"obfs-host"`

	// ssr
	Protocol      string `yaml:"protocol"`
	ProtocolParam string `yaml:"protocol-param"`
	ProtocolParam2 string `yaml:"protocolparam"`
	OBFSParam     string `yaml:"obfs-param"`
	OBFSParam2    string `yaml:"obfsparam"`

	// socks/http
	Username string `yaml:"username"`

	// trojan
	SNI string `yaml:"sni"`

	// snell
	PSK    string `yaml:"psk"`
	OBFSOpts struct {
		Mode string `yaml:"mode"`
		Host string `yaml:"host"`
	} `yaml:"obfs-opts"`
	Version interface{} `yaml:"version"`

	// wireguard
	PublicKey    string   `yaml:"public-key"`
	PrivateKey   string   `yaml:"private-key"`
	PresharedKey string   `yaml:"preshared-key"`
	DNS          []string `yaml:"dns"`
	MTU          interface{} `yaml:"mtu"`
	IP           string   `yaml:"ip"`
	IPv6         string   `yaml:"ipv6"`
}

type clashDoc struct {
	Proxies []clashProxy `yaml:"proxies"`
	Proxy   []clashProxy `yaml:"Proxy"`
}

// explodeClash parses a Clash-style YAML document's "proxies" (or legacy
// "Proxy") section. Grounded on subparser.cpp's explodeClash.
func explodeClash(blob []byte) ([]node.Proxy, bool) {
	var doc clashDoc
	if err := yaml.Unmarshal(blob, &doc); err != nil {
		return nil, false
	}
	entries := doc.Proxies
	if len(entries) == 0 {
		entries = doc.Proxy
	}
	if len(entries) == 0 {
		return nil, false
	}

	out := make([]node.Proxy, 0, len(entries))
	for _, e := range entries {
		port := yamlNumString(e.Port)
		if port == "" || port == "0" || e.Server == "" {
			continue
		}

		var p node.Proxy
		switch e.Type {
		case "vmess":
			path, host, edge := "", "", ""
			switch e.Network {
			case "http":
				if len(e.HTTPOpts.Path) > 0 {
					path = e.HTTPOpts.Path[0]
				}
				if hs, ok := e.HTTPOpts.Headers["Host"]; ok && len(hs) > 0 {
					host = hs[0]
				}
			case "ws":
				if e.WSOpts.Path != "" || len(e.WSOpts.Headers) > 0 {
					path = e.WSOpts.Path
					host = e.WSOpts.Headers["Host"]
					edge = e.WSOpts.Headers["Edge"]
				} else {
					path = e.WSPath
					host = e.WSHeaders["Host"]
					edge = e.WSHeaders["Edge"]
				}
				if path == "" {
					path = "/"
				}
			case "h2":
				path = strings.Join(e.H2Opts.Path, "")
				if len(e.H2Opts.Host) > 0 {
					host = e.H2Opts.Host[0]
				}
			case "grpc":
				host = e.ServerName
				path = e.GRPCOpts.ServiceName
			}
			tls := ""
			if yamlBool(e.TLS) {
				tls = "tls"
			}
			constructVmess(&p, node.DefaultGroupVMess, e.Name, e.Server, port,
				e.UUID, yamlNumString(e.AlterId), e.Network, e.Cipher, path, host, edge, tls, e.ServerName)
		case "ss":
			plugin, pluginOpts := clashSSPlugin(e)
			method := normalizeAEADCipher(e.Cipher)
			constructSS(&p, node.DefaultGroupSS, e.Name, e.Server, port, e.Password, method, plugin, pluginOpts)
		case "socks5":
			constructSocks(&p, node.DefaultGroupSocks, e.Name, e.Server, port, e.Username, e.Password)
		case "ssr":
			cipher := e.Cipher
			if cipher == "dummy" {
				cipher = "none"
			}
			protoParam := e.ProtocolParam
			if protoParam == "" {
				protoParam = e.ProtocolParam2
			}
			obfsParam := e.OBFSParam
			if obfsParam == "" {
				obfsParam = e.OBFSParam2
			}
			constructSSR(&p, node.DefaultGroupSSR, e.Name, e.Server, port, e.Protocol, cipher, e.OBFS, e.Password, obfsParam, protoParam)
		case "http":
			constructHTTP(&p, node.DefaultGroupHTTP, e.Name, e.Server, port, e.Username, e.Password, yamlBool(e.TLS))
		case "trojan":
			network, path := "tcp", ""
			switch e.Network {
			case "grpc":
				network, path = "grpc", e.GRPCOpts.ServiceName
			case "ws":
				network, path = "ws", e.WSOpts.Path
			}
			constructTrojan(&p, node.DefaultGroupTrojan, e.Name, e.Server, port, e.Password, network, e.SNI, path)
		case "snell":
			var np node.Proxy
			commonConstruct(&np, node.Snell, node.DefaultGroupSnell, e.Name, e.Server, port)
			np.Password = e.PSK
			np.OBFS = e.OBFSOpts.Mode
			np.Host = e.OBFSOpts.Host
			np.SnellVersion = uint16(toInt(yamlNumString(e.Version)))
			p = np
		case "wireguard":
			var np node.Proxy
			commonConstruct(&np, node.WireGuard, node.DefaultGroupWireGuard, e.Name, e.Server, port)
			np.SelfIP = e.IP
			np.SelfIPv6 = e.IPv6
			np.PrivateKey = e.PrivateKey
			np.PublicKey = e.PublicKey
			np.PreSharedKey = e.PresharedKey
			np.DnsServers = e.DNS
			np.Mtu = uint16(toInt(yamlNumString(e.MTU)))
			p = np
		default:
			continue
		}
		out = append(out, p)
	}
	return out, true
}

func clashSSPlugin(e clashProxy) (plugin, opts string) {
	mode, host := e.PluginOpts.Mode, e.PluginOpts.Host
	switch e.Plugin {
	case "obfs":
		plugin = "obfs-local"
	case "v2ray-plugin":
		plugin = "v2ray-plugin"
		tlsOpt := ""
		if yamlBool(e.PluginOpts.TLS) {
			tlsOpt = "tls;"
		}
		mux := ""
		if yamlBool(e.PluginOpts.Mux) {
			mux = "mux=4;"
		}
		opts = "mode=" + mode + ";" + tlsOpt
		if host != "" {
			opts += "host=" + host + ";"
		}
		if e.PluginOpts.Path != "" {
			opts += "path=" + e.PluginOpts.Path + ";"
		}
		opts += mux
		return plugin, opts
	default:
		if e.OBFS != "" {
			plugin = "obfs-local"
			mode, host = e.OBFS, e.OBFSHost
		}
	}
	if plugin == "obfs-local" {
		opts = "obfs=" + mode
		if host != "" {
			opts += ";obfs-host=" + host
		}
	}
	return plugin, opts
}

func normalizeAEADCipher(cipher string) string {
	if cipher == "AEAD_CHACHA20_POLY1305" {
		return "chacha20-ietf-poly1305"
	}
	if strings.Contains(cipher, "AEAD") {
		c := strings.ReplaceAll(strings.ReplaceAll(cipher, "AEAD_", ""), "_", "-")
		return strings.ToLower(c)
	}
	return cipher
}

func yamlBool(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	}
	return false
}

func yamlNumString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatInt(int64(t), 10)
	}
	return ""
}
