// Package exclude loads and applies keep rules: glob patterns over
// canonical type/name identifiers that exempt matching resources from
// unused listings and removal. Projects use them for resources reached
// reflectively or from generated code the scan never sees.
package exclude

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/gobwas/glob"

	"aster/internal/errors"
	"aster/internal/resource"
)

// CurrentVersion is the keep-rules file version this build reads.
const CurrentVersion = 1

// Rule is one [[keep]] block in .aster/keep.toml.
type Rule struct {
	// Pattern is a glob over the canonical type/name form, with /
	// as separator: "string/config_*", "drawable/*".
	Pattern string `toml:"pattern"`

	// Reason is an optional note on why the resources are kept.
	Reason string `toml:"reason,omitempty"`
}

// File is the on-disk shape of .aster/keep.toml.
type File struct {
	// Version is the file format version.
	Version int `toml:"version"`

	// Keep holds the rules in file order.
	Keep []Rule `toml:"keep"`
}

type compiledRule struct {
	rule    Rule
	matcher glob.Glob
}

// RuleSet is a compiled, matchable set of keep rules.
type RuleSet struct {
	rules []compiledRule
}

// Load reads and compiles the keep rules at path. A missing file yields
// an empty set; a malformed file, unsupported version, or invalid
// pattern is an error.
func Load(path string) (*RuleSet, error) {
	var file File
	if _, err := toml.DecodeFile(path, &file); err != nil {
		if os.IsNotExist(err) {
			return &RuleSet{}, nil
		}
		return nil, errors.New(errors.ManifestError,
			fmt.Sprintf("cannot parse keep rules at %s", path), err)
	}

	if file.Version == 0 {
		file.Version = CurrentVersion
	}
	if file.Version != CurrentVersion {
		return nil, errors.Newf(errors.ManifestError,
			"keep rules at %s have version %d; this build reads version %d",
			path, file.Version, CurrentVersion)
	}

	return Compile(file.Keep)
}

// Compile turns rules into a matchable set.
func Compile(rules []Rule) (*RuleSet, error) {
	set := &RuleSet{}
	for _, r := range rules {
		matcher, err := glob.Compile(r.Pattern, '/')
		if err != nil {
			return nil, errors.New(errors.ManifestError,
				fmt.Sprintf("invalid keep pattern %q", r.Pattern), err)
		}
		set.rules = append(set.rules, compiledRule{rule: r, matcher: matcher})
	}
	return set, nil
}

// Match returns the first rule matching the identifier's type/name form.
func (s *RuleSet) Match(id resource.Identifier) (Rule, bool) {
	key := id.String()
	for _, cr := range s.rules {
		if cr.matcher.Match(key) {
			return cr.rule, true
		}
	}
	return Rule{}, false
}

// Keeps reports whether any rule matches the identifier.
func (s *RuleSet) Keeps(id resource.Identifier) bool {
	_, ok := s.Match(id)
	return ok
}

// Len returns the number of rules in the set.
func (s *RuleSet) Len() int {
	return len(s.rules)
}

// Save writes the rules to path in the on-disk format.
func Save(path string, rules []Rule) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.New(errors.MutationIOError,
			fmt.Sprintf("cannot write keep rules to %s", path), err)
	}
	defer f.Close()

	file := File{Version: CurrentVersion, Keep: rules}
	if err := toml.NewEncoder(f).Encode(file); err != nil {
		return errors.New(errors.MutationIOError,
			fmt.Sprintf("cannot encode keep rules to %s", path), err)
	}
	return nil
}
