package privileges

// Glob matching over permission and resource names. `*` matches any
// run of characters, `?` matches exactly one. A pattern without
// wildcard characters is an exact string comparison. Matching is
// case-sensitive and never falls back to substring semantics.
//
// Date-math expressions (`<...>`) are resolved to concrete names
// before they reach the matcher, so they are matched literally here.

// ContainsWildcard reports whether the pattern has glob metacharacters.
func ContainsWildcard(pattern string) bool {
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '*' || pattern[i] == '?' {
			return true
		}
	}
	return false
}

// Match reports whether candidate matches the glob pattern.
func Match(pattern, candidate string) bool {
	if !ContainsWildcard(pattern) {
		return pattern == candidate
	}

	// Iterative glob with single-star backtracking.
	p, c := 0, 0
	star, starC := -1, 0
	for c < len(candidate) {
		switch {
		case p < len(pattern) && (pattern[p] == '?' || pattern[p] == candidate[c]):
			p++
			c++
		case p < len(pattern) && pattern[p] == '*':
			star = p
			starC = c
			p++
		case star >= 0:
			p = star + 1
			starC++
			c = starC
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

// MatchAny reports whether any pattern matches the candidate.
// An empty pattern set matches nothing.
func MatchAny(patterns []string, candidate string) bool {
	for _, p := range patterns {
		if Match(p, candidate) {
			return true
		}
	}
	return false
}

// MatchAnyCandidate reports whether any pattern matches any candidate.
func MatchAnyCandidate(patterns, candidates []string) bool {
	for _, c := range candidates {
		if MatchAny(patterns, c) {
			return true
		}
	}
	return false
}

// AllPatternsMatched reports whether every pattern matches at least
// one candidate. Used for conjunctive (AND) backend-role rules.
// An empty pattern set is vacuously unsatisfied.
func AllPatternsMatched(patterns, candidates []string) bool {
	if len(patterns) == 0 {
		return false
	}
	for _, p := range patterns {
		matched := false
		for _, c := range candidates {
			if Match(p, c) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// MatchingPatterns returns the subset of patterns matching the candidate.
func MatchingPatterns(patterns []string, candidate string) []string {
	var result []string
	for _, p := range patterns {
		if Match(p, candidate) {
			result = append(result, p)
		}
	}
	return result
}
