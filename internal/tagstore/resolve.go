package tagstore

import (
	"fmt"
	"strings"
)

// ErrAmbiguousTarget is returned by ResolveTarget when a substring matches
// more than one declared tag.
var ErrAmbiguousTarget = fmt.Errorf("tagstore: ambiguous target")

// ResolveTarget maps an attacker-supplied target string to exactly one
// declared tag name. An exact match always wins; otherwise a target that is
// a substring of exactly one declared name is accepted, and a target
// matching zero or more-than-one declared name is rejected.
func ResolveTarget(declared []string, target string) (string, error) {
	for _, name := range declared {
		if name == target {
			return name, nil
		}
	}

	var matches []string
	for _, name := range declared {
		if strings.Contains(name, target) {
			matches = append(matches, name)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrTagUnknown, target)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s matches %v", ErrAmbiguousTarget, target, matches)
	}
}

// ResolveTargets resolves a list of attacker-supplied targets, skipping
// names that don't resolve (unknown) and logging nothing itself — the
// caller decides how to report skips, matching the "unknown names are
// skipped" rule of the attacker target-selection contract.
func ResolveTargets(declared []string, targets []string) (resolved []string, skipped []string) {
	for _, t := range targets {
		name, err := ResolveTarget(declared, t)
		if err != nil {
			skipped = append(skipped, t)
			continue
		}
		resolved = append(resolved, name)
	}
	return resolved, skipped
}
