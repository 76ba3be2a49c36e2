package node

// RegexMatchConfig is one rename/emoji rewrite rule. Match+Replace and
// Script are mutually exclusive (spec §3.4): when Script is set the node
// is handed to the script VM's rename/getEmoji entry point instead of a
// regex substitution.
type RegexMatchConfig struct {
	Match   string
	Replace string
	Script  string
}

func (r RegexMatchConfig) HasScript() bool { return r.Script != "" }
