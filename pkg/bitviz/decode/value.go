package decode

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"github.com/hashicorp/go-hclog"

	bverrors "github.com/provide-io/bitdoc/go/bitdoc/pkg/bitviz/errors"
)

// decoderTail enforces that the user body defines decode and calls it.
const decoderTail = "\n; if (typeof decode !== 'function') { throw new Error('Define function decode(bits)'); } return decode(bits);\n})"

// maxPrograms bounds the compiled program cache. The oldest entry is
// evicted first.
const maxPrograms = 32

// Evaluator runs user value decoders in a fresh JavaScript runtime per call.
// Compiled programs are cached by source text.
type Evaluator struct {
	timeout time.Duration
	logger  hclog.Logger

	mu       sync.Mutex
	programs map[string]*goja.Program
	order    []string
}

// NewEvaluator creates an evaluator. A zero timeout lets decoders run
// until they return.
func NewEvaluator(timeout time.Duration, logger hclog.Logger) *Evaluator {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Evaluator{
		timeout:  timeout,
		logger:   logger,
		programs: make(map[string]*goja.Program),
	}
}

// Value runs source against the bits and returns the string form of the
// decoder's result. Any failure is reported in Result.Error.
func (e *Evaluator) Value(values []int, source string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("⚠️ Decoder panicked", "panic", r)
			res = Result{Error: fmt.Sprint(r)}
		}
	}()

	prog, err := e.compile(source)
	if err != nil {
		e.logger.Debug("Decoder failed to compile", "error", err)
		return Result{Error: errorMessage(err)}
	}

	vm := goja.New()
	if e.timeout > 0 {
		timer := time.AfterFunc(e.timeout, func() {
			vm.Interrupt(bverrors.ErrDecodeTimeout)
		})
		defer timer.Stop()
	}

	wrapper, err := vm.RunProgram(prog)
	if err != nil {
		return Result{Error: errorMessage(err)}
	}
	fn, ok := goja.AssertFunction(wrapper)
	if !ok {
		return Result{Error: bverrors.ErrMissingDecode.Error()}
	}

	items := make([]any, len(values))
	for i, v := range values {
		items[i] = v
	}
	out, err := fn(goja.Undefined(), vm.NewArray(items...))
	if err != nil {
		e.logger.Debug("Decoder threw", "error", err)
		return Result{Error: errorMessage(err)}
	}
	return Result{Text: out.String()}
}

func (e *Evaluator) compile(source string) (*goja.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if prog, ok := e.programs[source]; ok {
		return prog, nil
	}
	prog, err := goja.Compile("decoder.js", "(function(bits) {\n"+source+decoderTail, false)
	if err != nil {
		return nil, err
	}
	if len(e.order) >= maxPrograms {
		delete(e.programs, e.order[0])
		e.order = e.order[1:]
	}
	e.programs[source] = prog
	e.order = append(e.order, source)
	return prog, nil
}

// errorMessage extracts the message a JavaScript author would see.
func errorMessage(err error) string {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return bverrors.ErrDecodeTimeout.Error()
	}
	var exception *goja.Exception
	if errors.As(err, &exception) {
		if obj, ok := exception.Value().(*goja.Object); ok {
			if msg := obj.Get("message"); msg != nil && !goja.IsUndefined(msg) {
				return msg.String()
			}
		}
		return exception.Value().String()
	}
	var syntax *goja.CompilerSyntaxError
	if errors.As(err, &syntax) {
		return syntax.Message
	}
	return err.Error()
}
