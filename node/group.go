package node

// GroupType enumerates the client-side policy group kinds (spec §3.2).
type GroupType int

const (
	Select GroupType = iota
	URLTest
	Fallback
	LoadBalance
	Relay
	SSID
)

// BalanceStrategy selects the load-balancing policy for a LoadBalance group.
type BalanceStrategy int

const (
	ConsistentHashing BalanceStrategy = iota
	RoundRobin
)

// ProxyGroupConfig is the user-authored template expanded by the group
// builder (C8) into a concrete, per-target member list.
type ProxyGroupConfig struct {
	Name          string
	Type          GroupType
	Proxies       []string // match patterns, see preprocess.ApplyMatcher
	UsingProvider []string // external provider names ("!!PROVIDER=...")
	Url           string
	Interval      int
	Timeout       int
	Tolerance     int
	Strategy      BalanceStrategy

	Lazy              TriBool
	DisableUdp        TriBool
	Persistent        TriBool
	EvaluateBeforeUse TriBool
}
