package workqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Titouaaaan/tutormesh/core"
)

func TestParsePartition(t *testing.T) {
	out := "[reader, conversational, GrammarSummary]\n['Text iwwer Lëtzebuerg', 'Dialog am Café, mat Kaffi', \"Verben\"]"

	roles, chunks, err := ParsePartition(out)
	require.NoError(t, err)
	assert.Equal(t, []core.Role{core.RoleReader, core.RoleConversational, core.RoleGrammarSummary}, roles)
	assert.Equal(t, []string{"Text iwwer Lëtzebuerg", "Dialog am Café, mat Kaffi", "Verben"}, chunks)
}

func TestParsePartition_UnquotedChunks(t *testing.T) {
	roles, chunks, err := ParsePartition("[listening]\n[ some text ]")
	require.NoError(t, err)
	assert.Equal(t, []core.Role{core.RoleListener}, roles)
	assert.Equal(t, []string{"some text"}, chunks)
}

func TestParsePartition_ApostrophesInQuotedChunks(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   []string
	}{
		{
			name:   "elision followed by comma",
			output: "[reader, conversational]\n['Liest d'Invitatioun, dann äntwert', 'Moien']",
			want:   []string{"Liest d'Invitatioun, dann äntwert", "Moien"},
		},
		{
			name:   "trailing elision",
			output: "[reader]\n['Schreift eppes an d'']",
			want:   []string{"Schreift eppes an d'"},
		},
		{
			name:   "quoted word at the end",
			output: "[reader]\n[\"Moien 'Lëtzebuerg'\"]",
			want:   []string{"Moien 'Lëtzebuerg'"},
		},
		{
			name:   "unquoted with apostrophe",
			output: "[reader, listener]\n[wéi geet's, Addi]",
			want:   []string{"wéi geet's", "Addi"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, chunks, err := ParsePartition(tt.output)
			require.NoError(t, err)
			assert.Equal(t, tt.want, chunks)
		})
	}
}

func TestParsePartition_Errors(t *testing.T) {
	tests := []struct {
		name      string
		output    string
		integrity bool
	}{
		{name: "no lists", output: "I cannot help with that"},
		{name: "one list", output: "[reader]"},
		{name: "three lists", output: "[reader] [a] [b]"},
		{name: "cardinality mismatch", output: "[reader, listener]\n['a']"},
		{name: "trailing comma", output: "[reader,]\n['a', 'b']"},
		{name: "empty chunk", output: "[reader]\n['']"},
		{name: "unknown role", output: "[singer]\n['a']", integrity: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParsePartition(tt.output)
			require.Error(t, err)
			if tt.integrity {
				var ie *IntegrityError
				assert.ErrorAs(t, err, &ie)
				return
			}
			var pe *ParseError
			assert.ErrorAs(t, err, &pe)
		})
	}
}
