package workqueue

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/Titouaaaan/tutormesh/core"
)

var bracketList = regexp.MustCompile(`\[([^]]+)\]`)

// ParsePartition extracts the role list and the chunk list from classifier
// output. The output must hold exactly two bracket lists of equal, non-zero
// length. Role tags are normalized with core.ParseRole; an unknown tag yields
// an *IntegrityError, every other defect a *ParseError.
func ParsePartition(output string) ([]core.Role, []string, error) {
	matches := bracketList.FindAllStringSubmatch(output, -1)
	if len(matches) != 2 {
		return nil, nil, &ParseError{
			Reason: fmt.Sprintf("expected two bracket lists, found %d", len(matches)),
			Output: output,
		}
	}

	tags := splitList(matches[0][1])
	chunks := splitList(matches[1][1])

	if len(tags) == 0 || len(chunks) == 0 {
		return nil, nil, &ParseError{Reason: "empty list", Output: output}
	}
	if len(tags) != len(chunks) {
		return nil, nil, &ParseError{
			Reason: fmt.Sprintf("cardinality mismatch: %d roles, %d chunks", len(tags), len(chunks)),
			Output: output,
		}
	}

	roles := make([]core.Role, len(tags))
	for i, tag := range tags {
		if tag == "" {
			return nil, nil, &ParseError{Reason: fmt.Sprintf("role %d is empty", i), Output: output}
		}
		r, err := core.ParseRole(tag)
		if err != nil {
			return nil, nil, &IntegrityError{Reason: "unknown role", Tag: tag}
		}
		roles[i] = r
	}
	for i, c := range chunks {
		if c == "" {
			return nil, nil, &ParseError{Reason: fmt.Sprintf("chunk %d is empty", i), Output: output}
		}
	}

	return roles, chunks, nil
}

// splitList splits a comma separated list. An item opened by a single or
// double quote runs until the same quote followed by a comma or the end of
// the list, so apostrophes and commas inside it are kept. One surrounding
// pair of quotes is stripped.
func splitList(s string) []string {
	var (
		items []string
		cur   []rune
		quote rune
	)
	flush := func() {
		items = append(items, unquote(strings.TrimSpace(string(cur))))
		cur = cur[:0]
	}

	rs := []rune(s)
	for i, r := range rs {
		switch {
		case quote != 0:
			if r == quote && closesItem(rs[i+1:]) {
				quote = 0
			}
			cur = append(cur, r)
		case (r == '\'' || r == '"') && strings.TrimSpace(string(cur)) == "":
			quote = r
			cur = append(cur, r)
		case r == ',':
			flush()
		default:
			cur = append(cur, r)
		}
	}
	flush()

	if len(items) == 1 && items[0] == "" {
		return nil
	}
	return items
}

// closesItem reports whether rest starts with optional spaces followed by a
// comma or nothing.
func closesItem(rest []rune) bool {
	t := strings.TrimLeftFunc(string(rest), unicode.IsSpace)
	return t == "" || t[0] == ','
}

func unquote(item string) string {
	if len(item) >= 2 {
		if q := item[0]; (q == '\'' || q == '"') && item[len(item)-1] == q {
			item = strings.TrimSpace(item[1 : len(item)-1])
		}
	}
	return item
}
