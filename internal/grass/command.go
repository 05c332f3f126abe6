package grass

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Param is one keyword argument of a GRASS-style command, rendered as
// name=value. Params with an empty Value are omitted.
type Param struct {
	Name  string
	Value string
}

// String returns a string parameter.
func String(name, value string) Param {
	return Param{Name: name, Value: value}
}

// Float returns a float parameter rendered as Python's str(float) would,
// so 10 becomes "10.0".
func Float(name string, value float64) Param {
	return Param{Name: name, Value: FormatFloat(value)}
}

// FormatFloat renders v with the shortest round-trip digits, switching to
// exponent form outside [1e-4, 1e16) and keeping a decimal point on
// integral values.
func FormatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	if abs := math.Abs(v); abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Args renders params in order, skipping empty values.
func Args(params []Param) []string {
	args := make([]string, 0, len(params))
	for _, p := range params {
		if p.Value == "" {
			continue
		}
		args = append(args, p.Name+"="+p.Value)
	}
	return args
}

// Commander runs a GRASS-style command and returns its standard output.
type Commander interface {
	ReadCommand(ctx context.Context, program string, params []Param) (string, error)
}

// CommandError reports a command that could not start or exited non-zero.
// It carries the raw output so callers can surface it.
type CommandError struct {
	Program  string
	Args     []string
	ExitCode int // -1 when the process never ran to completion
	Stdout   string
	Stderr   string
	Duration time.Duration
	Err      error
}

func (e *CommandError) Error() string {
	var b strings.Builder
	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, "%s exited with code %d", e.Program, e.ExitCode)
	} else {
		fmt.Fprintf(&b, "%s failed: %v", e.Program, e.Err)
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		b.WriteString(": ")
		b.WriteString(s)
	}
	return b.String()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

var _ Commander = (*Session)(nil)

// ReadCommand runs program with params inside the session and returns its
// stdout. Any start failure or non-zero exit yields a *CommandError.
func (s *Session) ReadCommand(ctx context.Context, program string, params []Param) (string, error) {
	args := Args(params)
	cmd := exec.CommandContext(ctx, program, args...)
	cmd.Env = s.Env()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	if s.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, s.Stderr)
	} else {
		cmd.Stderr = &stderr
	}

	start := time.Now()
	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	cerr := &CommandError{
		Program:  program,
		Args:     args,
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		cerr.ExitCode = exitErr.ExitCode()
	} else if ctx.Err() != nil {
		cerr.Err = ctx.Err()
	}
	return "", cerr
}
