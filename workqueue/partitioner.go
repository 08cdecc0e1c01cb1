package workqueue

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Titouaaaan/tutormesh/core"
	"github.com/Titouaaaan/tutormesh/internal/util"
	"github.com/Titouaaaan/tutormesh/logging"
	"github.com/Titouaaaan/tutormesh/model"
)

// Classifier groups candidate lesson text for a query and returns raw output
// expected to hold the two bracket lists understood by ParsePartition.
type Classifier interface {
	Classify(ctx context.Context, query, candidate string) (string, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, query, candidate string) (string, error)

// Classify implements Classifier.
func (f ClassifierFunc) Classify(ctx context.Context, query, candidate string) (string, error) {
	return f(ctx, query, candidate)
}

// DefaultPartitionPrompt instructs a model to split lesson text into role
// groups. Rendered with text/template; {{.query}} and {{.roles}} are set.
const DefaultPartitionPrompt = `Split the lesson material provided by the user into teaching units.
Only keep material that belongs to this scope:
{{.query}}

Rules:
- group the material by chapter (Kapitel), then by topic (Thema), then by category (Kategorie)
- keep the original order of the material
- choose for every group the single tutor best suited to teach it; allowed tutors: {{.roles}}
- every group must fit into one list element
- wrap every material element in double quotes and never use a double quote inside it

Output exactly two lists of the same length and nothing else:
[tutor for group 1, tutor for group 2, ...]
["material of group 1", "material of group 2", ...]`

// ModelClassifierOptions configures a ModelClassifier.
type ModelClassifierOptions struct {
	Prompt string
}

// ModelClassifier asks a model to partition the candidate text.
type ModelClassifier struct {
	model model.Model
	opts  ModelClassifierOptions
}

// NewModelClassifier returns a Classifier backed by m.
func NewModelClassifier(m model.Model, optFns ...func(o *ModelClassifierOptions)) *ModelClassifier {
	opts := ModelClassifierOptions{Prompt: DefaultPartitionPrompt}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &ModelClassifier{model: m, opts: opts}
}

// Classify implements Classifier.
func (c *ModelClassifier) Classify(ctx context.Context, query, candidate string) (string, error) {
	roles := make([]string, 0, len(core.Roles()))
	for _, r := range core.Roles() {
		roles = append(roles, string(r))
	}
	instructions, err := util.RenderTemplate(c.opts.Prompt, map[string]any{
		"query": query,
		"roles": strings.Join(roles, ", "),
	})
	if err != nil {
		return "", err
	}

	content, err := model.Collect(ctx, c.model, model.Request{
		Instructions: instructions,
		Contents: []core.Content{{
			Role:  "user",
			Parts: []core.Part{core.TextPart{Text: candidate}},
		}},
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, p := range content.Parts {
		if tp, ok := p.(core.TextPart); ok {
			sb.WriteString(tp.Text)
		}
	}
	return sb.String(), nil
}

// Partitioner runs classify, parse and replace as one step.
type Partitioner struct {
	classifier Classifier
	logger     logging.Logger
}

// NewPartitioner returns a Partitioner using classifier.
func NewPartitioner(classifier Classifier, logger logging.Logger) *Partitioner {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Partitioner{classifier: classifier, logger: logger}
}

// Partition fills q with the classified chunks of candidate. Any failure
// (classifier error, *ParseError, *IntegrityError) leaves q untouched.
func (p *Partitioner) Partition(ctx context.Context, q core.WorkQueue, query, candidate string) (int, error) {
	start := time.Now()

	output, err := p.classifier.Classify(ctx, query, candidate)
	if err != nil {
		p.logger.Error("workqueue.partition.classify_failed", "error", err.Error())
		return 0, &ClassificationError{Err: err}
	}

	roles, chunks, err := ParsePartition(output)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			p.logger.Warn("workqueue.partition.parse_failed", "reason", pe.Reason)
		}
		return 0, err
	}

	if err := q.Replace(roles, chunks); err != nil {
		return 0, err
	}

	p.logger.Info("workqueue.partition.done", "items", len(roles), "duration_ms", time.Since(start).Milliseconds())
	return len(roles), nil
}
