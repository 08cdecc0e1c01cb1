package core

import (
	"errors"
	"fmt"
	"strings"
)

// Role identifies one of the fixed tutor specializations. It doubles as the
// Work Queue tag and as the name of the worker node in the lesson graph.
type Role string

const (
	RoleConversational    Role = "conversational"
	RoleReader            Role = "reader"
	RoleListener          Role = "listener"
	RoleQuestionAnswering Role = "questionAnswering"
	RoleGrammarSummary    Role = "grammarSummary"
)

// ErrUnknownRole is returned by ParseRole for tags outside the closed set.
var ErrUnknownRole = errors.New("unknown worker role")

// roleAliases maps spellings produced by classifiers onto canonical roles.
var roleAliases = map[string]Role{
	"listening":      RoleListener,
	"GrammarSummary": RoleGrammarSummary,
}

// Roles returns the closed set of worker roles in a stable order.
func Roles() []Role {
	return []Role{
		RoleConversational,
		RoleReader,
		RoleListener,
		RoleQuestionAnswering,
		RoleGrammarSummary,
	}
}

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleConversational, RoleReader, RoleListener, RoleQuestionAnswering, RoleGrammarSummary:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// ParseRole converts a raw tag into a Role. All whitespace is removed before
// matching, mirroring how classifier output is cleaned.
func ParseRole(s string) (Role, error) {
	tag := strings.Join(strings.Fields(s), "")
	if r := Role(tag); r.Valid() {
		return r, nil
	}
	if r, ok := roleAliases[tag]; ok {
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}
