package exec

import (
	"context"
	"os"
	"sort"
	"time"
)

// config holds everything needed to start one command.
type config struct {
	ctx           context.Context
	env           map[string]string
	dir           string
	timeout       time.Duration
	inheritEnv    bool
	disableColors bool
	extraFiles    []*os.File
	outputLimit   int
}

func newConfig() *config {
	return &config{
		ctx: context.Background(),
		env: make(map[string]string),
	}
}

// clone creates a copy that can be modified without affecting c.
func (c *config) clone() *config {
	out := *c
	out.env = make(map[string]string, len(c.env))
	for k, v := range c.env {
		out.env[k] = v
	}
	out.extraFiles = append([]*os.File(nil), c.extraFiles...)
	return &out
}

// environ builds the child's environment. Explicit variables win over
// inherited ones; keys are emitted in sorted order. The result is never nil,
// since a nil Env makes os/exec fall back to the parent's environment.
func (c *config) environ() []string {
	env := []string{}
	if c.inheritEnv {
		env = append(env, os.Environ()...)
	}

	merged := make(map[string]string, len(c.env)+5)
	for k, v := range c.env {
		merged[k] = v
	}
	if c.disableColors {
		merged["NO_COLOR"] = "1"
		merged["TERM"] = "dumb"
		merged["CLICOLOR"] = "0"
		merged["CLICOLOR_FORCE"] = "0"
		merged["FORCE_COLOR"] = "0"
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+merged[k])
	}
	return env
}
