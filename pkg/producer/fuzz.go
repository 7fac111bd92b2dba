package producer

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/sandrolain/glot/pkg/types"
)

// ErrExited signals that the target chose to stop the current
// iteration early; the driver records it as its own outcome.
var ErrExited = errors.New("target exited")

// Outcome classifies one fuzz iteration.
type Outcome uint8

const (
	// Passed: the target returned without error.
	Passed Outcome = iota
	// ViolatedContract: the target surfaced a contract violation.
	ViolatedContract
	// Crashed: the target failed with an unrelated error.
	Crashed
	// ExitedEarly: the target returned ErrExited.
	ExitedEarly
)

func (o Outcome) String() string {
	switch o {
	case Passed:
		return "OK"
	case ViolatedContract:
		return "Error"
	case Crashed:
		return "Crash"
	case ExitedEarly:
		return "Exited"
	default:
		return "?"
	}
}

// Record is one fuzz iteration: the drawn arguments, its outcome and
// the error behind a non-passing outcome.
type Record struct {
	Args    []types.Value
	Outcome Outcome
	Err     error
}

// Report tallies the outcomes of a fuzz run. Generation and checking
// time are tracked separately.
type Report struct {
	Target       string
	Records      []Record
	Passed       int
	Violations   int
	Crashes      int
	Exits        int
	ProducerTime time.Duration
	CheckerTime  time.Duration
}

// Target is the function under test. It receives one drawn argument
// tuple and reports a contract violation, ErrExited, any other error,
// or nil.
type Target func(args []types.Value) error

// FuzzOption configures a fuzz run.
type FuzzOption func(*fuzzConfig)

type fuzzConfig struct {
	verbose io.Writer
}

// WithProgress prints one colored line per iteration to w.
func WithProgress(w io.Writer) FuzzOption {
	return func(c *fuzzConfig) { c.verbose = w }
}

var (
	okLine     = color.New(color.FgGreen)
	errLine    = color.New(color.FgRed)
	crashLine  = color.New(color.FgMagenta)
	exitedLine = color.New(color.FgYellow)
)

// Fuzz runs the target times times on arguments drawn from the
// producer. Contract violations and crashes abort only their own
// iteration; a failing producer aborts the run.
func Fuzz(name string, target Target, times int, p Producer, opts ...FuzzOption) (*Report, error) {
	var cfg fuzzConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	report := &Report{Target: name}
	for i := 0; i < times; i++ {
		begin := time.Now()
		drawn, err := p.Produce()
		report.ProducerTime += time.Since(begin)
		if err != nil {
			return report, err
		}
		args, ok := drawn.([]types.Value)
		if !ok {
			args = []types.Value{drawn}
		}

		begin = time.Now()
		err = target(args)
		report.CheckerTime += time.Since(begin)

		record := Record{Args: args, Err: err}
		var cerr *types.ContractError
		switch {
		case err == nil:
			record.Outcome = Passed
			record.Err = nil
			report.Passed++
		case errors.Is(err, ErrExited):
			record.Outcome = ExitedEarly
			report.Exits++
		case errors.As(err, &cerr):
			record.Outcome = ViolatedContract
			report.Violations++
		default:
			record.Outcome = Crashed
			report.Crashes++
		}
		report.Records = append(report.Records, record)

		if cfg.verbose != nil {
			printRecord(cfg.verbose, name, record)
		}
	}
	return report, nil
}

func printRecord(w io.Writer, name string, r Record) {
	line := fmt.Sprintf("[%s] %s(%s)", r.Outcome, name, showArgs(r.Args))
	switch r.Outcome {
	case Passed:
		okLine.Fprintln(w, line)
	case ViolatedContract:
		errLine.Fprintln(w, line)
		errLine.Fprintln(w, "  "+r.Err.Error())
	case Crashed:
		crashLine.Fprintln(w, line)
		crashLine.Fprintln(w, "  "+r.Err.Error())
	case ExitedEarly:
		exitedLine.Fprintln(w, line)
	}
}

func showArgs(args []types.Value) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += ", "
		}
		out += types.ShowValue(a)
	}
	return out
}
