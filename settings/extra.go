package settings

import "github.com/nodeconv/subconverter/node"

// Extra is the per-request configuration computed by merging global
// Settings, the URL query, and an external YAML/TOML config layer (spec
// §3.6, §4.12). Layer precedence, lowest first: built-in defaults <
// preference file < external config (when defaultExtConfig or ?config=) <
// query string < matched User-Agent profile.
type Extra struct {
	Target       string
	SurgeVer     int
	Group        string
	Include      []string
	Exclude      []string
	Rename       []node.RegexMatchConfig
	Emoji        []node.RegexMatchConfig
	AddEmoji     bool
	RemoveEmoji  bool
	AppendType   bool
	Sort         bool
	SortScript   string
	FilterDeprecated bool
	ExpandRulesets   bool
	ClassicRuleset   bool
	NewVariableName  bool // clash_new_field_name
	NodeListOnly     bool
	Prepend          bool // prepend insert-nodes instead of append
	Interval         int
	Strict           bool
	QuanXDevID       string
	Filename         string

	UDP           node.TriBool
	TCPFastOpen   node.TriBool
	AllowInsecure node.TriBool
	TLS13         node.TriBool

	Groups   []node.ProxyGroupConfig
	Rulesets []node.RulesetConfig
}

// FromSettings seeds an Extra with the global Settings layer -- the lowest
// precedence tier in spec §4.12 -- before query/external/profile layers are
// merged in by the façade.
func FromSettings(s *Settings) *Extra {
	return &Extra{
		UDP:              s.UDP,
		TCPFastOpen:      s.TCPFastOpen,
		AllowInsecure:    s.AllowInsecure,
		TLS13:            s.TLS13,
		AppendType:       s.AppendProxyType,
		FilterDeprecated: s.FilterDeprecated,
		NewVariableName:  s.ClashNewFieldName,
		QuanXDevID:       s.QuanXDevID,
	}
}

// MergeQuery overlays query-string-derived overrides on top of the current
// layer; only tri-states and scalars explicitly present in delta are
// applied ("Define" semantics -- query wins only where set).
func (e *Extra) MergeQuery(delta *Extra) {
	if delta.Target != "" {
		e.Target = delta.Target
	}
	if delta.Group != "" {
		e.Group = delta.Group
	}
	if len(delta.Include) > 0 {
		e.Include = delta.Include
	}
	if len(delta.Exclude) > 0 {
		e.Exclude = delta.Exclude
	}
	if len(delta.Rename) > 0 {
		e.Rename = delta.Rename
	}
	if len(delta.Emoji) > 0 {
		e.Emoji = delta.Emoji
	}
	if len(delta.Groups) > 0 {
		e.Groups = delta.Groups
	}
	if len(delta.Rulesets) > 0 {
		e.Rulesets = delta.Rulesets
	}
	e.AddEmoji = e.AddEmoji || delta.AddEmoji
	e.RemoveEmoji = e.RemoveEmoji || delta.RemoveEmoji
	e.Sort = e.Sort || delta.Sort
	if delta.SortScript != "" {
		e.SortScript = delta.SortScript
	}
	udp, tfo, scv, tls13 := delta.UDP, delta.TCPFastOpen, delta.AllowInsecure, delta.TLS13
	e.UDP = udp.Define(e.UDP)
	e.TCPFastOpen = tfo.Define(e.TCPFastOpen)
	e.AllowInsecure = scv.Define(e.AllowInsecure)
	e.TLS13 = tls13.Define(e.TLS13)
}
