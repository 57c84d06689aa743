package tools

import (
	"bytes"
	"encoding/json"
	"strings"

	platformerrors "github.com/jmgilman/reposandbox/errors"
)

// Tool names.
const (
	ToolRg   = "rg"
	ToolFind = "find"
	ToolLs   = "ls"
	ToolRead = "read"
	ToolGit  = "git"
)

// Names lists every tool the dispatcher accepts.
var Names = []string{ToolRg, ToolFind, ToolLs, ToolRead, ToolGit}

// Request is one tool invocation against a previously cloned commit.
type Request struct {
	Slug string          `json:"slug"`
	SHA  string          `json:"sha"`
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// Args is implemented by the argument struct of each tool.
type Args interface {
	// Tool returns the name of the tool the arguments belong to.
	Tool() string

	validate() error
}

// RgArgs are the arguments of the rg tool.
type RgArgs struct {
	// Pattern is the regular expression to search for.
	Pattern string `json:"pattern"`

	// Glob optionally restricts which files are searched.
	Glob string `json:"glob,omitempty"`
}

// FindArgs are the arguments of the find tool.
type FindArgs struct {
	// Pattern is matched case-insensitively as a substring of file names.
	Pattern string `json:"pattern"`

	// Type optionally restricts results: "f"/"file" or "d"/"directory".
	Type string `json:"type,omitempty"`
}

// LsArgs are the arguments of the ls tool.
type LsArgs struct {
	// Path defaults to the worktree root.
	Path string `json:"path,omitempty"`
}

// ReadArgs are the arguments of the read tool.
type ReadArgs struct {
	Path string `json:"path"`
}

// GitArgs are the arguments of the git tool.
type GitArgs struct {
	// Command is the git subcommand, e.g. "log".
	Command string `json:"command"`

	// Args are passed to the subcommand unchanged.
	Args []string `json:"args,omitempty"`
}

func (*RgArgs) Tool() string   { return ToolRg }
func (*FindArgs) Tool() string { return ToolFind }
func (*LsArgs) Tool() string   { return ToolLs }
func (*ReadArgs) Tool() string { return ToolRead }
func (*GitArgs) Tool() string  { return ToolGit }

func (a *RgArgs) validate() error {
	if err := required("pattern", a.Pattern); err != nil {
		return err
	}
	return literal("glob", a.Glob)
}

func (a *FindArgs) validate() error {
	if err := required("pattern", a.Pattern); err != nil {
		return err
	}
	switch a.Type {
	case "", "f", "d":
	case "file":
		a.Type = "f"
	case "directory":
		a.Type = "d"
	default:
		return platformerrors.Newf(platformerrors.CodeInvalidInput, "type must be one of f, file, d, directory; got %q", a.Type)
	}
	return nil
}

func (a *LsArgs) validate() error {
	return literal("path", a.Path)
}

func (a *ReadArgs) validate() error {
	return required("path", a.Path)
}

func (a *GitArgs) validate() error {
	if err := required("command", a.Command); err != nil {
		return err
	}
	for _, arg := range a.Args {
		if err := literal("args", arg); err != nil {
			return err
		}
	}
	return validateGit(a)
}

// ParseArgs decodes raw into the argument struct of the named tool and
// validates it. Unknown tools and malformed or incomplete arguments are
// CodeInvalidInput errors. Fields a tool does not define are ignored.
func ParseArgs(name string, raw json.RawMessage) (Args, error) {
	var args Args
	switch name {
	case ToolRg:
		args = &RgArgs{}
	case ToolFind:
		args = &FindArgs{}
	case ToolLs:
		args = &LsArgs{}
	case ToolRead:
		args = &ReadArgs{}
	case ToolGit:
		args = &GitArgs{}
	case "":
		return nil, platformerrors.New(platformerrors.CodeInvalidInput, "tool name is required")
	default:
		return nil, platformerrors.WithContext(
			platformerrors.Newf(platformerrors.CodeInvalidInput, "unknown tool %q", name),
			"allowed", strings.Join(Names, ", "),
		)
	}

	if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if err := json.Unmarshal(trimmed, args); err != nil {
			return nil, platformerrors.Wrapf(err, platformerrors.CodeInvalidInput, "invalid arguments for %s", name)
		}
	}

	if err := args.validate(); err != nil {
		return nil, err
	}
	return args, nil
}

func required(field, value string) error {
	if value == "" {
		return platformerrors.Newf(platformerrors.CodeInvalidInput, "%s is required", field)
	}
	return literal(field, value)
}

// literal rejects values no program argument can carry.
func literal(field, value string) error {
	if strings.ContainsRune(value, 0) {
		return platformerrors.Newf(platformerrors.CodeInvalidInput, "%s contains a NUL byte", field)
	}
	return nil
}
