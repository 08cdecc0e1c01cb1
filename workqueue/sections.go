package workqueue

import (
	"context"
	"fmt"
	"strings"

	"github.com/Titouaaaan/tutormesh/core"
)

// agentTags maps the tutor names used in curriculum headers to roles.
var agentTags = map[string]core.Role{
	"lies-agent":           core.RoleReader,
	"konversatiouns-agent": core.RoleConversational,
	"héier-agent":          core.RoleListener,
	"grammatik-agent":      core.RoleGrammarSummary,
	"froen-agent":          core.RoleQuestionAnswering,
	"reader":               core.RoleReader,
	"conversational":       core.RoleConversational,
	"listener":             core.RoleListener,
	"grammarsummary":       core.RoleGrammarSummary,
	"questionanswering":    core.RoleQuestionAnswering,
}

// categoryTags is used when a section names no tutor.
var categoryTags = map[string]core.Role{
	"gespréich":   core.RoleConversational,
	"liesen":      core.RoleReader,
	"lauschteren": core.RoleListener,
	"grammatik":   core.RoleGrammarSummary,
	"froen":       core.RoleQuestionAnswering,
}

// section is one "Kapitel:" block of curriculum text.
type section struct {
	fields map[string]string
	body   string
}

// SectionClassifier partitions structured curriculum text without a model.
// The text is a sequence of blocks starting with "Kapitel:" and carrying
// Thema, Kategorie, Agent(en) and Inhalt fields. Blocks whose Kapitel and
// Thema match the query are kept in order; the first named tutor (or the
// category) picks the role. The output uses the two-list format understood
// by ParsePartition.
type SectionClassifier struct{}

var _ Classifier = SectionClassifier{}

// Classify implements Classifier.
func (SectionClassifier) Classify(_ context.Context, query, candidate string) (string, error) {
	want := parseFields(query)
	var roles, chunks []string
	for _, s := range splitSections(candidate) {
		if !matches(want, s.fields) {
			continue
		}
		r, ok := sectionRole(s.fields)
		if !ok {
			r = core.RoleReader
		}
		body := strings.TrimSpace(s.body)
		if body == "" {
			continue
		}
		roles = append(roles, string(r))
		chunks = append(chunks, quoteChunk(body))
	}
	if len(roles) == 0 {
		return "", fmt.Errorf("no curriculum section matches %q", strings.TrimSpace(query))
	}
	return "[" + strings.Join(roles, ", ") + "]\n[" + strings.Join(chunks, ", ") + "]", nil
}

func splitSections(text string) []section {
	var (
		out []section
		cur *section
		in  bool
		sb  strings.Builder
	)
	flush := func() {
		if cur != nil {
			cur.body = sb.String()
			out = append(out, *cur)
		}
		sb.Reset()
	}
	for _, line := range strings.Split(text, "\n") {
		key, val, isField := field(line)
		switch {
		case isField && key == "kapitel":
			flush()
			cur = &section{fields: map[string]string{key: val}}
			in = false
		case cur == nil:
		case in:
			sb.WriteString(line)
			sb.WriteByte('\n')
		case isField && key == "inhalt":
			in = true
			if val != "" {
				sb.WriteString(val)
				sb.WriteByte('\n')
			}
		case isField:
			cur.fields[key] = val
		}
	}
	flush()
	return out
}

// field splits "Key: value" header lines.
func field(line string) (string, string, bool) {
	k, v, ok := strings.Cut(strings.TrimSpace(line), ":")
	if !ok {
		return "", "", false
	}
	k = strings.ToLower(strings.TrimSpace(k))
	switch k {
	case "kapitel", "thema", "kategorie", "agent(en)", "inhalt":
		return k, strings.TrimSpace(v), true
	}
	return "", "", false
}

func parseFields(text string) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(text, "\n") {
		if k, v, ok := field(line); ok && v != "" {
			out[k] = v
		}
	}
	return out
}

// matches reports whether s satisfies every Kapitel and Thema constraint of
// want. A query without constraints keeps every section.
func matches(want, s map[string]string) bool {
	for _, k := range []string{"kapitel", "thema"} {
		if w, ok := want[k]; ok && !strings.EqualFold(w, s[k]) {
			return false
		}
	}
	return true
}

func sectionRole(fields map[string]string) (core.Role, bool) {
	for _, name := range strings.Split(fields["agent(en)"], ",") {
		if r, ok := agentTags[strings.ToLower(strings.TrimSpace(name))]; ok {
			return r, true
		}
	}
	r, ok := categoryTags[strings.ToLower(fields["kategorie"])]
	return r, ok
}

// quoteChunk wraps body in double quotes, replacing characters that would
// break the list syntax.
func quoteChunk(body string) string {
	body = strings.NewReplacer(`"`, `'`, "[", "(", "]", ")").Replace(body)
	return `"` + body + `"`
}
