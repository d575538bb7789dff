package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingObserver captures log lines for assertions.
type recordingObserver struct {
	lines    []string
	warnings []string
}

func (o *recordingObserver) Printf(format string, v ...interface{}) {
	o.lines = append(o.lines, fmt.Sprintf(format, v...))
}

func (o *recordingObserver) Warnf(format string, v ...interface{}) {
	o.warnings = append(o.warnings, fmt.Sprintf(format, v...))
}

// phaseFunc creates a Phase from a function for testing.
type phaseFuncImpl struct {
	name string
	fn   func(*Context) error
}

func phaseFunc(name string, fn func(*Context) error) Phase {
	return &phaseFuncImpl{name: name, fn: fn}
}

func (p *phaseFuncImpl) Name() string           { return p.name }
func (p *phaseFuncImpl) Run(ctx *Context) error { return p.fn(ctx) }

func testContext() (*Context, *recordingObserver) {
	observer := &recordingObserver{}
	return &Context{
		Context:  context.Background(),
		State:    NewState(),
		Observer: observer,
	}, observer
}

func TestRunPhases_Order(t *testing.T) {
	t.Parallel()
	executed := make([]string, 0)

	ctx, _ := testContext()
	phases := []Phase{
		phaseFunc("provision", func(_ *Context) error { executed = append(executed, "provision"); return nil }),
		phaseFunc("foundation", func(_ *Context) error { executed = append(executed, "foundation"); return nil }),
		phaseFunc("services", func(_ *Context) error { executed = append(executed, "services"); return nil }),
	}

	err := RunPhases(ctx, phases, 0)

	require.NoError(t, err)
	assert.Equal(t, []string{"provision", "foundation", "services"}, executed)
}

func TestRunPhases_StopsOnError(t *testing.T) {
	t.Parallel()
	executed := make([]string, 0)

	ctx, _ := testContext()
	phases := []Phase{
		phaseFunc("provision", func(_ *Context) error { executed = append(executed, "provision"); return nil }),
		phaseFunc("foundation", func(_ *Context) error { return fmt.Errorf("store unreachable") }),
		phaseFunc("services", func(_ *Context) error { executed = append(executed, "services"); return nil }),
	}

	err := RunPhases(ctx, phases, 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "foundation phase failed")
	assert.Contains(t, err.Error(), "store unreachable")
	assert.Equal(t, []string{"provision"}, executed)
}

func TestRunPhases_ResumeSkipsEarlierPhases(t *testing.T) {
	t.Parallel()
	executed := make([]string, 0)

	ctx, observer := testContext()
	phases := []Phase{
		phaseFunc("provision", func(_ *Context) error { executed = append(executed, "provision"); return nil }),
		phaseFunc("foundation", func(_ *Context) error { executed = append(executed, "foundation"); return nil }),
		phaseFunc("services", func(_ *Context) error { executed = append(executed, "services"); return nil }),
	}

	err := RunPhases(ctx, phases, 2)

	require.NoError(t, err)
	assert.Equal(t, []string{"services"}, executed)

	var skipped int
	for _, line := range observer.lines {
		if strings.Contains(line, "skipped") {
			skipped++
		}
	}
	assert.Equal(t, 2, skipped)
}

func TestRunPhases_FromOutOfRange(t *testing.T) {
	t.Parallel()
	ctx, _ := testContext()
	phases := []Phase{
		phaseFunc("provision", func(_ *Context) error { return nil }),
	}

	err := RunPhases(ctx, phases, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")

	err = RunPhases(ctx, phases, -1)
	require.Error(t, err)
}

func TestRunPhases_AdvisorySummary(t *testing.T) {
	t.Parallel()
	ctx, observer := testContext()
	phases := []Phase{
		phaseFunc("services", func(c *Context) error {
			c.Advise("registry took longer than expected to become ready")
			return nil
		}),
	}

	err := RunPhases(ctx, phases, 0)

	require.NoError(t, err)
	require.Len(t, ctx.State.Advisories, 1)
	// Advisory is warned once when raised and once in the summary.
	assert.GreaterOrEqual(t, len(observer.warnings), 2)
}

func TestFatal(t *testing.T) {
	t.Parallel()
	assert.NoError(t, Fatal(nil))

	base := errors.New("raft cluster never formed")
	err := Fatal(base)
	assert.True(t, IsFatal(err))
	assert.True(t, IsFatal(fmt.Errorf("bootstrap: %w", err)))
	assert.False(t, IsFatal(base))
	assert.Equal(t, base.Error(), err.Error())
	assert.ErrorIs(t, err, base)
}
