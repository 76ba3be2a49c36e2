package script

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/nodeconv/subconverter/node"
)

// ExprVM is the standard-library-backed VM. What code means depends on the
// entry point:
//
//	filter:           field OP value [&& field OP value ...]
//	rename, getEmoji: a template in which $remark, $hostname, $group,
//	                  $type and $port are replaced by the node's values
//	compare:          a field name; the two nodes' values for it are
//	                  compared as strings, giving -1, 0 or 1
//	parse:            not evaluated; the result is nil
//
// where field is one of remark, hostname (or server), group, type, port
// (any other name reads as ""), and OP is one of == != contains prefix
// suffix. It exists to give the five named
// entry points of spec §4.2 a concrete, swappable implementation; callers
// only ever see the VM interface.
type ExprVM struct{}

var _ VM = ExprVM{}

func (ExprVM) Eval(_ context.Context, code string, entry EntryPoint, n, other *node.Proxy) (Value, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Value{IsNil: true}, nil
	}
	switch entry {
	case EntryFilter:
		ok, err := evalPredicate(code, n)
		return Value{Bool: ok}, err
	case EntryRename, EntryEmoji:
		s, err := evalTemplate(code, n)
		return Value{String: s}, err
	case EntryCompare:
		c, err := evalCompare(code, n, other)
		return Value{Int: c}, err
	case EntryParse:
		return Value{IsNil: true}, nil
	default:
		return Value{IsNil: true}, fmt.Errorf("script: unknown entry point %q", entry)
	}
}

// evalPredicate supports a conjunction of "field OP literal" clauses
// joined by "&&"; used by filter().
func evalPredicate(code string, n *node.Proxy) (bool, error) {
	clauses := strings.Split(code, "&&")
	for _, c := range clauses {
		ok, err := evalClause(strings.TrimSpace(c), n)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func evalClause(clause string, n *node.Proxy) (bool, error) {
	for _, op := range []string{"!=", "==", "contains", "prefix", "suffix"} {
		idx := strings.Index(clause, op)
		if idx <= 0 {
			continue
		}
		field := strings.TrimSpace(clause[:idx])
		want := strings.Trim(strings.TrimSpace(clause[idx+len(op):]), `"'`)
		got := fieldValue(n, field)
		switch op {
		case "==":
			return got == want, nil
		case "!=":
			return got != want, nil
		case "contains":
			return strings.Contains(got, want), nil
		case "prefix":
			return strings.HasPrefix(got, want), nil
		case "suffix":
			return strings.HasSuffix(got, want), nil
		}
	}
	return false, fmt.Errorf("script: unparsable clause %q", clause)
}

// evalTemplate does "$field" substitution into a literal template string,
// enough to express rename()/getEmoji() results that splice in a field.
func evalTemplate(code string, n *node.Proxy) (string, error) {
	r := strings.NewReplacer(
		"$remark", n.Remark,
		"$hostname", n.Hostname,
		"$group", n.Group,
		"$type", n.Type.String(),
		"$port", strconv.Itoa(int(n.Port)),
	)
	return r.Replace(code), nil
}

func evalCompare(code string, a, b *node.Proxy) (int, error) {
	field := strings.TrimSpace(code)
	av, bv := fieldValue(a, field), fieldValue(b, field)
	switch {
	case av < bv:
		return -1, nil
	case av > bv:
		return 1, nil
	default:
		return 0, nil
	}
}

func fieldValue(n *node.Proxy, field string) string {
	switch strings.ToLower(strings.TrimSpace(field)) {
	case "remark":
		return n.Remark
	case "hostname", "server":
		return n.Hostname
	case "group":
		return n.Group
	case "type":
		return n.Type.String()
	case "port":
		return strconv.Itoa(int(n.Port))
	default:
		return ""
	}
}
