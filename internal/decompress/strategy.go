package decompress

import (
	"strings"

	"github.com/JonMunkholm/betaconv/internal/compression"
)

// Strategy is the closed set of ways an upload can be unwrapped.
type Strategy int

const (
	StrategyPassThrough Strategy = iota
	StrategyZipFirstEntry
	StrategyTarFirstEntry
	StrategyGzip
	StrategyBzip2
	StrategyXz
)

// String returns the stable name used in logs, JSON and the audit log.
func (s Strategy) String() string {
	switch s {
	case StrategyZipFirstEntry:
		return "zip-first-entry"
	case StrategyTarFirstEntry:
		return "tar-first-entry"
	case StrategyGzip:
		return "gzip"
	case StrategyBzip2:
		return "bz2"
	case StrategyXz:
		return "xz"
	default:
		return "pass-through"
	}
}

// codec returns the single-stream codec for the gzip/bz2/xz strategies.
func (s Strategy) codec() compression.Codec {
	switch s {
	case StrategyGzip:
		return compression.Gzip
	case StrategyBzip2:
		return compression.Bzip2
	case StrategyXz:
		return compression.Xz
	default:
		return compression.None
	}
}

// suffixRule binds a file-name suffix to a strategy. For tar rules, codec is
// the compression implied by the suffix; content sniffing takes precedence.
type suffixRule struct {
	suffix   string
	strategy Strategy
	codec    compression.Codec
}

// suffixRules is matched longest-suffix-first, so ".tar.gz" beats ".gz".
var suffixRules = []suffixRule{
	{".zip", StrategyZipFirstEntry, compression.None},
	{".tar", StrategyTarFirstEntry, compression.None},
	{".tar.gz", StrategyTarFirstEntry, compression.Gzip},
	{".tgz", StrategyTarFirstEntry, compression.Gzip},
	{".tar.bz2", StrategyTarFirstEntry, compression.Bzip2},
	{".tar.xz", StrategyTarFirstEntry, compression.Xz},
	{".gz", StrategyGzip, compression.Gzip},
	{".bz2", StrategyBzip2, compression.Bzip2},
	{".xz", StrategyXz, compression.Xz},
}

// Suffixes returns the recognized file-name suffixes in table order.
func Suffixes() []string {
	out := make([]string, len(suffixRules))
	for i, r := range suffixRules {
		out[i] = r.suffix
	}
	return out
}

// match returns the rule with the longest suffix matching filename
// (case-insensitive). ok is false for pass-through names.
func match(filename string) (rule suffixRule, ok bool) {
	lower := strings.ToLower(filename)
	for _, r := range suffixRules {
		if !strings.HasSuffix(lower, r.suffix) {
			continue
		}
		if !ok || len(r.suffix) > len(rule.suffix) {
			rule, ok = r, true
		}
	}
	return rule, ok
}

// Match reports which strategy Resolve would use for filename.
func Match(filename string) Strategy {
	rule, ok := match(filename)
	if !ok {
		return StrategyPassThrough
	}
	return rule.strategy
}
