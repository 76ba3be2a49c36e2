package link

import (
	"net/url"
	"strings"

	"github.com/nodeconv/subconverter/node"
)

func init() { register("surge:///install-config") }

// explodeSurgeInstall delegates: the real payload is the URL-decoded
// "url=" query parameter, itself a single-node link re-entering Explode.
func explodeSurgeInstall(link string) node.Proxy {
	idx := strings.IndexByte(link, '?')
	if idx < 0 {
		return node.Proxy{}
	}
	vals, err := url.ParseQuery(link[idx+1:])
	if err != nil {
		return node.Proxy{}
	}
	target := vals.Get("url")
	if target == "" {
		return node.Proxy{}
	}
	return Explode(target)
}
