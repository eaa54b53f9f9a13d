package decode

import (
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/grid"
	"github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/groups"
)

// Output is the decoded display of one group.
type Output struct {
	GroupID string
	Type    groups.Type
	Text    string
	Error   string
}

// Display returns the text shown under the group. Value results are
// prefixed with "Decoded: ".
func (o Output) Display() string {
	if o.Type == groups.TypeValue && o.Text != "" {
		return "Decoded: " + o.Text
	}
	return o.Text
}

// Engine computes outputs for every group of a session.
type Engine struct {
	eval   *Evaluator
	logger hclog.Logger
}

// NewEngine creates an engine whose value decoders are bounded by timeout.
func NewEngine(timeout time.Duration, logger hclog.Logger) *Engine {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Engine{
		eval:   NewEvaluator(timeout, logger.Named("eval")),
		logger: logger,
	}
}

// Compute decodes one group against the current grid state.
func (e *Engine) Compute(g *groups.Group, gr *grid.Grid) Output {
	values := gr.Values(g.Bits)
	var res Result
	if g.Type == groups.TypeValue {
		res = e.eval.Value(values, g.DecoderSource)
	} else {
		res = Flags(values, g.FlagsDescriptionSource, gr.BitOrder())
	}
	if res.Error != "" {
		e.logger.Trace("Group decode reported an error", "id", g.ID, "error", res.Error)
	}
	return Output{GroupID: g.ID, Type: g.Type, Text: res.Text, Error: res.Error}
}

// Refresh recomputes every group in creation order.
func (e *Engine) Refresh(gr *grid.Grid, store *groups.Store) []Output {
	list := store.List()
	out := make([]Output, 0, len(list))
	for _, g := range list {
		out = append(out, e.Compute(g, gr))
	}
	e.logger.Trace("🔄 Refreshed decode outputs", "groups", len(out))
	return out
}
