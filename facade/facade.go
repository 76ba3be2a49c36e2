package facade

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/nodeconv/subconverter/cmn"
	"github.com/nodeconv/subconverter/cmn/glogx"
	"github.com/nodeconv/subconverter/fetch"
	"github.com/nodeconv/subconverter/generator/clash"
	"github.com/nodeconv/subconverter/generator/loon"
	"github.com/nodeconv/subconverter/generator/mellow"
	"github.com/nodeconv/subconverter/generator/mixed"
	"github.com/nodeconv/subconverter/generator/quanx"
	"github.com/nodeconv/subconverter/generator/singbox"
	"github.com/nodeconv/subconverter/generator/ssd"
	"github.com/nodeconv/subconverter/generator/surfboard"
	"github.com/nodeconv/subconverter/generator/surge"
	"github.com/nodeconv/subconverter/group"
	"github.com/nodeconv/subconverter/node"
	"github.com/nodeconv/subconverter/parser/detect"
	"github.com/nodeconv/subconverter/preprocess"
	"github.com/nodeconv/subconverter/ruleset"
	"github.com/nodeconv/subconverter/script"
	"github.com/nodeconv/subconverter/settings"
	"github.com/nodeconv/subconverter/template"
)

// Request is the inbound /sub (or shortcut-endpoint) request, decoupled
// from net/http so the façade can be driven by tests or other transports
// without a live *http.Request.
type Request struct {
	Query     url.Values
	UserAgent string
	Method    string
	SelfURL   string // scheme://host/path, used to build managed-config references
}

// Response is what Subconvert hands back to the transport layer to write
// out verbatim.
type Response struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	NodeCount  int
}

func errorResponse(status int, msg string) Response {
	return Response{StatusCode: status, Body: msg}
}

// Deps bundles the capabilities Subconvert wires together: every one of
// them is a leaf package built earlier in the pipeline (C1/C2/C6/C7/C8/C9/
// C10); Subconvert itself contains no protocol- or format-specific logic,
// only the orchestration spec.md §4.11 describes.
type Deps struct {
	Fetcher      *fetch.Fetcher
	FetchOpts    fetch.Options
	Cache        *fetch.Cache
	Rulesets     *ruleset.Engine
	Renderer     *template.Renderer
	VM           script.VM
	Gate         script.Gate
	DefaultURL   string
	InsertURLs   string
	EnableInsert bool
}

// Subconvert implements spec.md §4.11's twelve-step algorithm.
func Subconvert(ctx context.Context, req Request, deps *Deps) Response {
	q := req.Query

	// Step 1: select target, resolving target=auto against the UA table.
	target := queryGet(q, "target")
	surgeVer := 3
	if v := queryGet(q, "ver"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			surgeVer = n
		}
	}
	var clashNewName node.TriBool
	if v := queryGet(q, "new_name"); v != "" {
		clashNewName.Set(v)
	}
	if target == "auto" {
		if t, newName, sv, ok := matchUserAgent(req.UserAgent); ok {
			target = t
			if !newName.IsUndef() {
				clashNewName = newName
			}
			if sv != -1 {
				surgeVer = sv
			}
		}
	}
	if target == "" || !isKnownTarget(target) {
		return errorResponse(400, "Invalid target!")
	}

	// Step 2: simple-subscription vs full.
	simple := isSimpleSubscription(target)

	gso := settings.GSO.Get()
	ext := settings.FromSettings(gso)
	ext.Target = target
	ext.SurgeVer = surgeVer
	if !clashNewName.IsUndef() {
		ext.NewVariableName = clashNewName.Get(ext.NewVariableName)
	}

	// Step 4: request-arg overlay (query string is the second-highest
	// precedence layer, spec §4.12). Fields MergeQuery understands (the
	// "present wins, absent preserves" tri-state/list fields) go through
	// it; the remaining plain scalars are resolved directly against their
	// tri-state query value so an absent parameter preserves ext's
	// current (Settings-layer) value instead of collapsing to false.
	ext.AppendType = triFromQuery(q, "append_type").Get(ext.AppendType)
	ext.FilterDeprecated = triFromQuery(q, "fdn").Get(ext.FilterDeprecated)
	ext.ExpandRulesets = triFromQuery(q, "expand").Get(ext.ExpandRulesets)
	ext.ClassicRuleset = triFromQuery(q, "classic").Get(ext.ClassicRuleset)
	ext.NodeListOnly = triFromQuery(q, "list").Get(ext.NodeListOnly)
	ext.Prepend = triFromQuery(q, "prepend").Get(ext.Prepend)
	if v := queryGet(q, "dev_id"); v != "" {
		ext.QuanXDevID = v
	}
	if v := queryGet(q, "filename"); v != "" {
		ext.Filename = v
	}
	if v := queryGet(q, "interval"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			ext.Interval = n
		}
	}
	if v := queryGet(q, "strict"); v != "" {
		ext.Strict = v == "true"
	}

	queryExt := &settings.Extra{
		Group:      queryGet(q, "group"),
		Sort:       triFromQuery(q, "sort").Get(false),
		SortScript: queryGet(q, "sort_script"),
		UDP:        triFromQuery(q, "udp"),
		TCPFastOpen: triFromQuery(q, "tfo"),
		AllowInsecure: triFromQuery(q, "scv"),
		TLS13:      triFromQuery(q, "tls13"),
		Rename:     parseRenameParam(queryGet(q, "rename")),
		Groups:     parseGroupsParam(queryBase64(q, "groups")),
		Rulesets:   parseRulesetParam(queryBase64(q, "ruleset")),
	}
	ext.MergeQuery(queryExt)

	include := splitRegexList(queryGet(q, "include"))
	exclude := splitRegexList(queryGet(q, "exclude"))
	customGroups := queryExt.Groups
	customRulesets := queryExt.Rulesets

	// Step 4 (continued): resolve external configuration, overriding
	// bases/groups/rulesets/rename/emoji/include/exclude if present.
	var ruleBase string
	if cfgRef := queryGet(q, "config"); cfgRef != "" && deps.Fetcher != nil {
		if body, _, err := deps.Fetcher.Fetch(ctx, cfgRef, deps.FetchOpts); err == nil {
			if extcfg, err := parseExternalConfig(body); err == nil {
				ruleBase = pickRuleBase(extcfg, target)
				if len(extcfg.Custom.Include) > 0 {
					include = extcfg.Custom.Include
				}
				if len(extcfg.Custom.Exclude) > 0 {
					exclude = extcfg.Custom.Exclude
				}
				if len(extcfg.Custom.Rename) > 0 {
					ext.Rename = extcfg.renameConfigs()
				}
				if len(extcfg.Custom.Emoji) > 0 {
					ext.Emoji = extcfg.emojiConfigs()
				}
				if !simple {
					if len(extcfg.Custom.ProxyGroups) > 0 {
						customGroups = extcfg.groupConfigs()
					}
					if len(extcfg.Custom.Rulesets) > 0 {
						customRulesets = extcfg.rulesetConfigs()
					}
				}
				if extcfg.Custom.AddEmoji != nil {
					ext.AddEmoji = *extcfg.Custom.AddEmoji
				}
				if extcfg.Custom.RemoveOldEmoji != nil {
					ext.RemoveEmoji = *extcfg.Custom.RemoveOldEmoji
				}
			} else {
				glog.Warningf("[facade] failed to parse external config %s: %v", cfgRef, err)
			}
		} else {
			glog.Warningf("[facade] failed to fetch external config %s: %v", cfgRef, err)
		}
	}

	emojiOverride := queryGet(q, "emoji")
	if emojiOverride != "" {
		ext.AddEmoji = true
		ext.RemoveEmoji = true
	}
	if v := triFromQuery(q, "add_emoji"); !v.IsUndef() {
		ext.AddEmoji = v.Get(ext.AddEmoji)
	}
	if v := triFromQuery(q, "remove_emoji"); !v.IsUndef() {
		ext.RemoveEmoji = v.Get(ext.RemoveEmoji)
	}

	// Step 6: fetch every insert-url and url, exploding each into nodes.
	argURL := queryGet(q, "url")
	if argURL == "" {
		argURL = deps.DefaultURL
	}
	enableInsert := triFromQuery(q, "insert").Get(deps.EnableInsert)

	var insertNodes, nodes []node.Proxy
	if deps.InsertURLs != "" && enableInsert {
		groupID := -1
		for _, u := range strings.Split(deps.InsertURLs, "|") {
			u = strings.TrimSpace(u)
			if u == "" {
				continue
			}
			got, err := fetchNodes(ctx, deps, u, groupID)
			if err != nil || len(got) == 0 {
				glog.Warningf("[facade] insert url %q produced no nodes: %v", u, err)
			}
			insertNodes = append(insertNodes, got...)
			groupID--
		}
	}

	if argURL == "" && len(insertNodes) == 0 {
		return errorResponse(400, "Invalid request!")
	}
	var subInfo string
	if argURL != "" {
		groupID := 0
		skipFailed := gso.SkipFailedLinks
		for _, u := range strings.Split(argURL, "|") {
			u = strings.TrimSpace(u)
			if u == "" {
				continue
			}
			got, hdr, err := fetchNodesWithHeader(ctx, deps, u, groupID)
			if len(got) == 0 {
				if skipFailed {
					glog.Warningf("[facade] link produced no nodes, skipping: %s (%v)", u, err)
				} else {
					return errorResponse(400, "The following link doesn't contain any valid node info: "+u)
				}
			}
			if subInfo == "" && hdr != nil {
				subInfo = hdr.Get("Subscription-Userinfo")
			}
			nodes = append(nodes, got...)
			groupID++
		}
	}

	if len(nodes) == 0 && len(insertNodes) == 0 {
		return errorResponse(400, "No nodes were found!")
	}

	resp := Response{StatusCode: 200, Headers: map[string]string{}}
	if subInfo != "" && triFromQuery(q, "append_info").Get(true) {
		resp.Headers["Subscription-UserInfo"] = subInfo
	}
	if req.Method == "HEAD" {
		return resp
	}

	// Step 8: splice insert-nodes in per prepend_insert.
	if ext.Prepend {
		nodes = append(insertNodes, nodes...)
	} else {
		nodes = append(nodes, insertNodes...)
	}

	if grp := queryGet(q, "group"); grp != "" {
		for i := range nodes {
			nodes[i].Group = grp
		}
	}

	// Step 10: preprocess (filter/rename/emoji/sort/dedup).
	nodes = preprocess.Run(ctx, nodes, preprocess.Options{
		Include:     include,
		Exclude:     exclude,
		Rename:      ext.Rename,
		Emoji:       ext.Emoji,
		RemoveEmoji: ext.RemoveEmoji,
		AddEmoji:    ext.AddEmoji,
		Sort:        ext.Sort,
		SortScript:  ext.SortScript,
		VM:          deps.VM,
		Gate:        deps.Gate,
	})

	// Step 11: load groups/rulesets (full targets only) and dispatch.
	var built []group.Built
	var rulesetContent []node.RulesetContent
	if !simple {
		if len(customGroups) > 0 {
			built = group.Build(ctx, customGroups, nodes, deps.VM, deps.Gate)
		}
		if len(customRulesets) > 0 && deps.Rulesets != nil {
			rulesetContent = deps.Rulesets.Load(ctx, customRulesets)
		}
	}

	resp.NodeCount = len(nodes)
	body := dispatch(target, nodes, ruleBase, rulesetContent, built, ext, surgeVer, subInfo)

	if gso.ManagedConfigPrefix != "" && managedConfigCapable(target) {
		self := req.SelfURL
		if self == "" {
			self = gso.ManagedConfigPrefix + "/sub?" + q.Encode()
		}
		interval := ext.Interval
		if interval == 0 {
			interval = 86400
		}
		body = fmt.Sprintf("#!MANAGED-CONFIG %s interval=%d strict=%t\n%s", self, interval, ext.Strict, body)
	}

	resp.Body = body
	return resp
}

func pickRuleBase(c *externalConfig, target string) string {
	switch target {
	case "clash", "clashr":
		return c.Custom.ClashRuleBase
	case "surge":
		return c.Custom.SurgeRuleBase
	case "surfboard":
		return c.Custom.SurfboardRuleBase
	case "mellow":
		return c.Custom.MellowRuleBase
	case "quan":
		return c.Custom.QuanRuleBase
	case "quanx":
		return c.Custom.QuanXRuleBase
	case "loon":
		return c.Custom.LoonRuleBase
	case "sssub":
		return c.Custom.SSSubRuleBase
	default:
		return ""
	}
}

func managedConfigCapable(target string) bool {
	switch target {
	case "surge", "surfboard", "quanx":
		return true
	default:
		return false
	}
}

func fetchNodes(ctx context.Context, deps *Deps, u string, groupID int) ([]node.Proxy, error) {
	nodes, _, err := fetchNodesWithHeader(ctx, deps, u, groupID)
	return nodes, err
}

func fetchNodesWithHeader(ctx context.Context, deps *Deps, u string, groupID int) ([]node.Proxy, http.Header, error) {
	if deps.Fetcher == nil {
		return nil, nil, cmn.ErrMissingURL
	}
	body, hdr, err := deps.Fetcher.Fetch(ctx, u, deps.FetchOpts)
	if err != nil {
		return nil, hdr, errors.Wrapf(err, "fetch %s", u)
	}
	if glogx.FastV(4, glogx.SmoduleFacade) {
		glog.Infof("[facade] fetched %d bytes from %s", len(body), u)
	}
	nodes := detect.Explode(body)
	for i := range nodes {
		nodes[i].GroupId = groupID
	}
	return nodes, hdr, nil
}

func splitRegexList(raw string) []string {
	if raw == "" {
		return nil
	}
	return []string{raw}
}

// dispatch fans out to the one emitter target names; mixed/ssd/sssub
// targets carry their own per-target Kind/flag instead of the shared
// (nodes, base, rulesets, groups, ext) signature the full targets share.
func dispatch(target string, nodes []node.Proxy, base string, rulesets []node.RulesetContent, built []group.Built, ext *settings.Extra, surgeVer int, subInfo string) string {
	switch target {
	case "clash":
		return clash.Emit(nodes, base, rulesets, built, ext, false)
	case "clashr":
		return clash.Emit(nodes, base, rulesets, built, ext, true)
	case "surge":
		return surge.Emit(nodes, base, rulesets, built, ext, surgeVer)
	case "quan", "quanx":
		return quanx.Emit(nodes, base, rulesets, built, ext)
	case "singbox":
		return singbox.Emit(nodes, base, rulesets, built, ext, true)
	case "loon":
		return loon.Emit(nodes, base, rulesets, built, ext)
	case "mellow":
		return mellow.Emit(nodes, base, rulesets, built, ext)
	case "surfboard":
		return surfboard.Emit(nodes, base, rulesets, built, ext)
	case "ssd":
		return ssd.Emit(nodes, ext.Group, subInfo)
	case "sssub":
		return mixed.EmitSSSub(nodes)
	case "ss":
		return mixed.Emit(nodes, mixed.SS, ext.NodeListOnly)
	case "ssr":
		return mixed.Emit(nodes, mixed.SSR, ext.NodeListOnly)
	case "v2ray":
		return mixed.Emit(nodes, mixed.VMess, ext.NodeListOnly)
	case "trojan":
		return mixed.Emit(nodes, mixed.Trojan, ext.NodeListOnly)
	case "mixed":
		return mixed.Emit(nodes, mixed.SS|mixed.SSR|mixed.VMess|mixed.Trojan, ext.NodeListOnly)
	default:
		return ""
	}
}
