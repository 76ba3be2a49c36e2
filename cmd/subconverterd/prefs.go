package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"github.com/nodeconv/subconverter/settings"
)

// prefsDoc is the on-disk shape of the preference file (spec §6.3):
// INI/YAML/TOML all accepted, detected by a top-level YAML "common:" key,
// else a TOML "version=" line, else INI. Distinct from facade's per-request
// externalConfig -- this is the process-wide Settings layer, not the
// `config=` overlay -- so it gets its own BurntSushi/toml binding rather
// than reusing pelletier/go-toml/v2, giving the global preference file and
// the per-request external config independent TOML stacks the way the pack
// carries both libraries for.
type prefsDoc struct {
	Common struct {
		APIMode               bool   `yaml:"api_mode" toml:"api_mode" ini:"api_mode"`
		ManagedConfigPrefix   string `yaml:"managed_config_prefix" toml:"managed_config_prefix" ini:"managed_config_prefix"`
		DefaultExtConfig      string `yaml:"default_external_config" toml:"default_external_config" ini:"default_external_config"`
		BasePath              string `yaml:"base_path" toml:"base_path" ini:"base_path"`
		CacheDir              string `yaml:"cache_subdir" toml:"cache_subdir" ini:"cache_subdir"`
		TemplatePath          string `yaml:"template_path" toml:"template_path" ini:"template_path"`
		MaxAllowedDownload    string `yaml:"max_allowed_download_size" toml:"max_allowed_download_size" ini:"max_allowed_download_size"`
		MaxAllowedRules       int    `yaml:"max_allowed_rulesets" toml:"max_allowed_rulesets" ini:"max_allowed_rulesets"`
		AsyncFetchRuleset     bool   `yaml:"async_fetch_ruleset" toml:"async_fetch_ruleset" ini:"async_fetch_ruleset"`
		ServeCacheOnFetchFail bool   `yaml:"serve_cache_on_fetch_fail" toml:"serve_cache_on_fetch_fail" ini:"serve_cache_on_fetch_fail"`
		SkipFailedLinks       bool   `yaml:"skip_failed_links" toml:"skip_failed_links" ini:"skip_failed_links"`
		AppendProxyType       bool   `yaml:"append_proxy_type" toml:"append_proxy_type" ini:"append_proxy_type"`
		ClashNewFieldName     bool   `yaml:"clash_use_new_field_name" toml:"clash_use_new_field_name" ini:"clash_use_new_field_name"`
		FilterDeprecated      bool   `yaml:"filter_deprecated_nodes" toml:"filter_deprecated_nodes" ini:"filter_deprecated_nodes"`
		Token                 string `yaml:"api_access_token" toml:"api_access_token" ini:"api_access_token"`
		QuanXDevID            string `yaml:"quanx_dev_id" toml:"quanx_dev_id" ini:"quanx_dev_id"`
		CacheTTL              int64  `yaml:"cache_subscription" toml:"cache_subscription" ini:"cache_subscription"`
		SurgeSSRPath          string `yaml:"surge_ssr_path" toml:"surge_ssr_path" ini:"surge_ssr_path"`
	} `yaml:"common" toml:"common"`
}

// loadPrefs reads path and returns the Settings layer it describes,
// starting from settings.Default() so a sparse file only overrides what it
// names (spec §4.12 "built-in defaults" is the bottom layer underneath the
// preference file, not replaced by it).
func loadPrefs(path string) (*settings.Settings, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := string(body)
	doc := &prefsDoc{}

	switch {
	case strings.Contains(text, "common:"):
		if err := yaml.Unmarshal(body, doc); err != nil {
			return nil, err
		}
	case containsTOMLVersionLine(text):
		if err := toml.Unmarshal(body, doc); err != nil {
			return nil, err
		}
	default:
		f, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, body)
		if err != nil {
			return nil, err
		}
		if err := f.Section("common").MapTo(&doc.Common); err != nil {
			return nil, err
		}
	}

	s := settings.Default()
	c := doc.Common
	s.APIMode = c.APIMode
	s.ManagedConfigPrefix = c.ManagedConfigPrefix
	s.DefaultExtConfig = c.DefaultExtConfig
	s.BasePath = c.BasePath
	s.CacheDir = c.CacheDir
	s.TemplatePath = c.TemplatePath
	if n, err := strconv.ParseInt(strings.TrimSuffix(c.MaxAllowedDownload, "MB"), 10, 64); err == nil && c.MaxAllowedDownload != "" {
		s.MaxAllowedDownloadSize = n << 20
	}
	if c.MaxAllowedRules != 0 {
		s.MaxAllowedRules = c.MaxAllowedRules
	}
	s.AsyncFetchRuleset = c.AsyncFetchRuleset
	s.ServeCacheOnFetchFail = c.ServeCacheOnFetchFail
	s.SkipFailedLinks = c.SkipFailedLinks
	s.AppendProxyType = c.AppendProxyType
	s.ClashNewFieldName = c.ClashNewFieldName
	s.FilterDeprecated = c.FilterDeprecated
	s.Token = c.Token
	s.QuanXDevID = c.QuanXDevID
	if c.CacheTTL != 0 {
		s.CacheTTL = c.CacheTTL
	}
	s.SurgeSSRPath = c.SurgeSSRPath
	return s, nil
}

func containsTOMLVersionLine(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "version") {
			return true
		}
	}
	return false
}
