// Package validate checks a pipeline graph against its structural rules.
//
// Validation never stops at the first problem. Apart from the empty graph, every rule is
// evaluated for every node and each finding is appended to a timestamped log that the
// editor shows line by line. The result is valid only when no message was recorded in
// [Result].Errors.
//
// Input arity has one asymmetry worth knowing about: a transformation with some, but
// too few, inputs is logged at warning level, yet its message is still recorded as an
// error and therefore makes the graph invalid.
package validate

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowcraft/pkg/errors"
	"github.com/matzehuels/flowcraft/pkg/flow"
)

// Level is the severity of a log entry.
type Level string

// Log levels.
const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// LogEntry is one line of the validation trail.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Level     Level     `json:"level"`
}

// Result is the outcome of a validation run.
type Result struct {
	IsValid bool       `json:"isValid"`
	Errors  []string   `json:"errors"`
	Logs    []LogEntry `json:"logs"`
}

// Counts tallies log entries by level.
type Counts struct {
	Info    int `json:"info"`
	Warning int `json:"warning"`
	Error   int `json:"error"`
}

// Counts tallies the result's log entries by level.
func (r Result) Counts() Counts {
	var c Counts
	for _, e := range r.Logs {
		c.add(e.Level)
	}
	return c
}

func (c *Counts) add(l Level) {
	switch l {
	case LevelInfo:
		c.Info++
	case LevelWarning:
		c.Warning++
	case LevelError:
		c.Error++
	}
}

// Err returns nil for a valid result and an *Error carrying the log trail otherwise.
func (r Result) Err() error {
	if r.IsValid {
		return nil
	}
	return &Error{Errors: r.Errors, Logs: r.Logs}
}

// Error reports a failed validation. It carries the full log trail so that callers
// further up (the compiler, the HTTP API) can surface it unchanged.
type Error struct {
	Errors []string
	Logs   []LogEntry
}

func (e *Error) Error() string {
	switch len(e.Errors) {
	case 0:
		return "pipeline validation failed"
	case 1:
		return "pipeline validation failed: " + e.Errors[0]
	default:
		return fmt.Sprintf("pipeline validation failed with %d errors: %s", len(e.Errors), strings.Join(e.Errors, "; "))
	}
}

// ErrorCode implements errors.Coder.
func (e *Error) ErrorCode() errors.Code { return errors.ErrCodeInvalidGraph }

// Validator runs structural checks. The zero value is not usable; call New.
type Validator struct {
	now    func() time.Time
	logger *log.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock sets the time source for log timestamps.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// WithLogger mirrors every log entry to logger at debug level.
func WithLogger(logger *log.Logger) Option {
	return func(v *Validator) { v.logger = logger }
}

// New creates a Validator.
func New(opts ...Option) *Validator {
	v := &Validator{now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks g with a default Validator.
func Validate(g *flow.Graph) Result {
	return New().Validate(g)
}

// run accumulates one validation pass.
type run struct {
	v      *Validator
	result Result
	counts Counts
}

func (r *run) log(level Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.result.Logs = append(r.result.Logs, LogEntry{Timestamp: r.v.now(), Message: msg, Level: level})
	r.counts.add(level)
	if r.v.logger != nil {
		r.v.logger.Debug(msg, "level", level)
	}
}

// fail logs msg at level and records it as an error.
func (r *run) fail(level Level, format string, args ...any) {
	r.log(level, format, args...)
	r.result.Errors = append(r.result.Errors, r.result.Logs[len(r.result.Logs)-1].Message)
}

// Validate checks g and returns the log trail.
func (v *Validator) Validate(g *flow.Graph) Result {
	r := &run{v: v, result: Result{Errors: []string{}, Logs: []LogEntry{}}}

	if g == nil || g.NodeCount() == 0 {
		r.fail(LevelError, "Pipeline is empty: add at least one Reader and one Target node")
		return r.result
	}

	r.log(LevelInfo, "Validating pipeline with %d nodes and %d edges", g.NodeCount(), g.EdgeCount())

	if len(g.NodesOfKind(flow.KindReader)) == 0 {
		r.fail(LevelError, "Pipeline must contain at least one Reader node")
	}
	if len(g.NodesOfKind(flow.KindTarget)) == 0 {
		r.fail(LevelError, "Pipeline must contain at least one Target node")
	}

	for _, n := range g.Nodes() {
		switch kind := n.Kind(); {
		case kind.IsReader():
			if g.OutDegree(n.ID) == 0 {
				r.fail(LevelError, "Reader %q is not connected to any transformation", n.Title)
			} else {
				r.log(LevelInfo, "Reader %q feeds %d node(s)", n.Title, g.OutDegree(n.ID))
			}
		case kind.IsTarget():
			if g.InDegree(n.ID) == 0 {
				r.fail(LevelError, "Target %q is not connected to any transformation", n.Title)
			} else {
				r.log(LevelInfo, "Target %q is connected", n.Title)
			}
		default:
			r.checkTransformation(g, n)
		}
	}

	c := r.counts
	r.log(LevelInfo, "Validation finished: %d info, %d warning(s), %d error(s)", c.Info, c.Warning, c.Error)

	r.result.IsValid = len(r.result.Errors) == 0
	return r.result
}

func (r *run) checkTransformation(g *flow.Graph, n *flow.Node) {
	kind, ports := n.Kind(), n.Ports()
	c := g.InDegree(n.ID)

	switch {
	case c == 0:
		r.fail(LevelError, "%s %q has no input connections", kind, n.Title)
	case c < ports.Inputs:
		r.fail(LevelWarning, "%s %q requires %d inputs but has only %d", kind, n.Title, ports.Inputs, c)
	case ports.Bounded() && c > ports.MaxInputs:
		r.fail(LevelError, "%s %q exceeds maximum allowed inputs (max %d, got %d)", kind, n.Title, ports.MaxInputs, c)
	default:
		r.log(LevelInfo, "%s %q has %d input connection(s)", kind, n.Title, c)
	}

	if g.OutDegree(n.ID) == 0 {
		r.fail(LevelError, "%s %q has no output connections", kind, n.Title)
	}
}
