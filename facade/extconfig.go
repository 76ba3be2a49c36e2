package facade

import (
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"github.com/nodeconv/subconverter/node"
)

// externalConfig is the subset of the external per-request configuration
// document this façade understands: rule bases, rename/emoji overrides,
// include/exclude, and custom groups/rulesets (spec §4.11 step 4, §6.3's
// "INI / YAML / TOML all accepted" note applied to the per-request
// `config=` layer rather than just the global preference file).
type externalConfig struct {
	Custom struct {
		ClashRuleBase     string   `yaml:"clash_rule_base" toml:"clash_rule_base"`
		SurgeRuleBase     string   `yaml:"surge_rule_base" toml:"surge_rule_base"`
		SurfboardRuleBase string   `yaml:"surfboard_rule_base" toml:"surfboard_rule_base"`
		MellowRuleBase    string   `yaml:"mellow_rule_base" toml:"mellow_rule_base"`
		QuanRuleBase      string   `yaml:"quan_rule_base" toml:"quan_rule_base"`
		QuanXRuleBase     string   `yaml:"quanx_rule_base" toml:"quanx_rule_base"`
		LoonRuleBase      string   `yaml:"loon_rule_base" toml:"loon_rule_base"`
		SSSubRuleBase     string   `yaml:"sssub_rule_base" toml:"sssub_rule_base"`
		Rename            []string `yaml:"rename" toml:"rename"`
		Emoji             []string `yaml:"emoji" toml:"emoji"`
		Include           []string `yaml:"include" toml:"include"`
		Exclude           []string `yaml:"exclude" toml:"exclude"`
		ProxyGroups       []string `yaml:"proxy_groups" toml:"proxy_groups"`
		Rulesets          []string `yaml:"surge_ruleset" toml:"surge_ruleset"`
		EnableRuleGen     *bool    `yaml:"enable_rule_generator" toml:"enable_rule_generator"`
		OverwriteRules    *bool    `yaml:"overwrite_original_rules" toml:"overwrite_original_rules"`
		AddEmoji          *bool    `yaml:"add_emoji" toml:"add_emoji"`
		RemoveOldEmoji    *bool    `yaml:"remove_old_emoji" toml:"remove_old_emoji"`
	} `yaml:"custom" toml:"custom"`
}

// parseExternalConfig detects the document dialect the way spec §6.3
// describes for the preference file -- a top-level YAML "custom:" key, a
// TOML "version=" line, else INI -- and applies it here as well, since the
// per-request external config shares the same three-dialect surface.
func parseExternalConfig(body []byte) (*externalConfig, error) {
	text := string(body)
	cfg := &externalConfig{}

	switch {
	case strings.Contains(text, "custom:"):
		if err := yaml.Unmarshal(body, cfg); err != nil {
			return nil, err
		}
	case containsTOMLVersionLine(text):
		if err := toml.Unmarshal(body, cfg); err != nil {
			return nil, err
		}
	default:
		f, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, body)
		if err != nil {
			return nil, err
		}
		applyINISection(f, cfg)
	}
	return cfg, nil
}

func containsTOMLVersionLine(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "version") {
			return true
		}
	}
	return false
}

func applyINISection(f *ini.File, cfg *externalConfig) {
	sec := f.Section("custom")
	c := &cfg.Custom
	c.ClashRuleBase = sec.Key("clash_rule_base").String()
	c.SurgeRuleBase = sec.Key("surge_rule_base").String()
	c.SurfboardRuleBase = sec.Key("surfboard_rule_base").String()
	c.MellowRuleBase = sec.Key("mellow_rule_base").String()
	c.QuanRuleBase = sec.Key("quan_rule_base").String()
	c.QuanXRuleBase = sec.Key("quanx_rule_base").String()
	c.LoonRuleBase = sec.Key("loon_rule_base").String()
	c.SSSubRuleBase = sec.Key("sssub_rule_base").String()
	c.Include = sec.Key("include").Strings(",")
	c.Exclude = sec.Key("exclude").Strings(",")
	c.Rename = sec.Key("rename").Strings("`")
	c.Emoji = sec.Key("emoji").Strings("`")
	c.ProxyGroups = sec.Key("proxy_groups").Strings("@")
	c.Rulesets = sec.Key("surge_ruleset").Strings("@")
	if sec.HasKey("add_emoji") {
		v := sec.Key("add_emoji").MustBool(false)
		c.AddEmoji = &v
	}
	if sec.HasKey("remove_old_emoji") {
		v := sec.Key("remove_old_emoji").MustBool(false)
		c.RemoveOldEmoji = &v
	}
	if sec.HasKey("enable_rule_generator") {
		v := sec.Key("enable_rule_generator").MustBool(true)
		c.EnableRuleGen = &v
	}
	if sec.HasKey("overwrite_original_rules") {
		v := sec.Key("overwrite_original_rules").MustBool(false)
		c.OverwriteRules = &v
	}
}

// renameConfigs/emojiConfigs flatten the YAML/TOML string-list form (one
// "match@replace" string per entry) into RegexMatchConfig the same way the
// `rename=`/`emoji=` query fields do.
func (c *externalConfig) renameConfigs() []node.RegexMatchConfig {
	return parseRegexMatchList(strings.Join(c.Custom.Rename, "`"), "`", "@")
}

func (c *externalConfig) emojiConfigs() []node.RegexMatchConfig {
	return parseRegexMatchList(strings.Join(c.Custom.Emoji, "`"), "`", ",")
}

func (c *externalConfig) groupConfigs() []node.ProxyGroupConfig {
	return parseGroupsParam(strings.Join(c.Custom.ProxyGroups, "@"))
}

func (c *externalConfig) rulesetConfigs() []node.RulesetConfig {
	return parseRulesetParam(strings.Join(c.Custom.Rulesets, "@"))
}
