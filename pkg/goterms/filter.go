package goterms

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// LoadPatterns reads one regular expression per line. Blank lines and
// surrounding whitespace are dropped.
func LoadPatterns(path string) ([]string, error) {

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pattern file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		pat := strings.TrimSpace(scanner.Text())
		if pat == "" {
			continue
		}
		patterns = append(patterns, pat)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read pattern file %s: %w", path, err)
	}

	return patterns, nil
}

// compilePatterns builds the matchers with the filter semantics: case
// insensitive, anchored at the start of the term name.
func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pat := range patterns {
		re, err := regexp.Compile(`(?i)^(?:` + pat + `)`)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pat, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// FilterTerms keeps terms whose name matches any pattern, deduplicated by
// native id. Input order is preserved, so repeated runs give the same output.
// The second return value lists the surviving native ids in the same order.
func FilterTerms(terms []Term, patterns []string) ([]Term, []string, error) {

	matchers, err := compilePatterns(patterns)
	if err != nil {
		return nil, nil, err
	}

	seen := make(map[string]bool)
	var filtered []Term
	var ids []string

	for _, term := range terms {
		if seen[term.Native] {
			continue
		}
		for _, re := range matchers {
			if re.MatchString(term.Name) {
				seen[term.Native] = true
				filtered = append(filtered, term)
				ids = append(ids, term.Native)
				break
			}
		}
	}

	return filtered, ids, nil
}

// FilterFile is the one-shot form used by the filter subcommand: read the
// term table, read the patterns, filter.
func FilterFile(termsPath, patternsPath string) ([]Term, []string, error) {

	terms, err := ReadCSV(termsPath)
	if err != nil {
		return nil, nil, err
	}

	patterns, err := LoadPatterns(patternsPath)
	if err != nil {
		return nil, nil, err
	}

	return FilterTerms(terms, patterns)
}
