package pipeline

import (
	"context"
	"fmt"

	"github.com/platforge/platforge/internal/config"
	"github.com/platforge/platforge/internal/credentials"
)

// Context wraps all dependencies and state needed for a deployment phase.
type Context struct {
	context.Context
	Config   *config.Config
	Creds    *credentials.Set
	State    *State
	Observer Observer
	Timeouts *config.Timeouts
}

// NewContext creates a new deployment context.
func NewContext(ctx context.Context, cfg *config.Config, creds *credentials.Set) *Context {
	return &Context{
		Context:  ctx,
		Config:   cfg,
		Creds:    creds,
		State:    NewState(),
		Observer: NewConsoleObserver(),
		Timeouts: config.LoadTimeouts(),
	}
}

// Advise records a non-fatal finding. Advisories are logged immediately and
// summarized when the run finishes.
func (c *Context) Advise(format string, v ...interface{}) {
	msg := fmt.Sprintf(format, v...)
	c.State.Advisories = append(c.State.Advisories, msg)
	c.Observer.Warnf("%s", msg)
}
