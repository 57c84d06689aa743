package isolation

// DefaultBwrapBinary is the bubblewrap executable name.
const DefaultBwrapBinary = "bwrap"

// seccompFD is the descriptor the seccomp program is passed on. The first
// entry of exec.Cmd.ExtraFiles becomes descriptor 3 in the child.
const seccompFD = "3"

// Builder constructs bwrap arguments using a fluent interface. Mounts are
// emitted in call order, which matters to bwrap: later mounts shadow
// earlier ones.
type Builder struct {
	binary string
	args   []string
}

// NewBuilder creates a builder for the given bwrap binary.
func NewBuilder(binary string) *Builder {
	if binary == "" {
		binary = DefaultBwrapBinary
	}
	return &Builder{
		binary: binary,
		args:   make([]string, 0, 32),
	}
}

// RoBind adds a read-only bind mount of path onto itself.
func (b *Builder) RoBind(path string) *Builder {
	b.args = append(b.args, "--ro-bind", path, path)
	return b
}

// Bind adds a read-write bind mount of path onto itself.
func (b *Builder) Bind(path string) *Builder {
	b.args = append(b.args, "--bind", path, path)
	return b
}

// Tmpfs mounts an empty tmpfs at path.
func (b *Builder) Tmpfs(path string) *Builder {
	b.args = append(b.args, "--tmpfs", path)
	return b
}

// Dev mounts a minimal /dev.
func (b *Builder) Dev() *Builder {
	b.args = append(b.args, "--dev", "/dev")
	return b
}

// Proc mounts /proc for the new PID namespace.
func (b *Builder) Proc() *Builder {
	b.args = append(b.args, "--proc", "/proc")
	return b
}

// UnsharePID creates an isolated PID namespace.
func (b *Builder) UnsharePID() *Builder {
	b.args = append(b.args, "--unshare-pid")
	return b
}

// DieWithParent kills the sandbox when the worker dies.
func (b *Builder) DieWithParent() *Builder {
	b.args = append(b.args, "--die-with-parent")
	return b
}

// Seccomp loads the seccomp program bwrap finds on descriptor 3.
func (b *Builder) Seccomp() *Builder {
	b.args = append(b.args, "--seccomp", seccompFD)
	return b
}

// Chdir sets the working directory inside the sandbox.
func (b *Builder) Chdir(path string) *Builder {
	b.args = append(b.args, "--chdir", path)
	return b
}

// Build returns the complete argv: the binary, the accumulated options,
// the "--" separator and the inner command.
func (b *Builder) Build(inner []string) []string {
	argv := make([]string, 0, 2+len(b.args)+len(inner))
	argv = append(argv, b.binary)
	argv = append(argv, b.args...)
	argv = append(argv, "--")
	argv = append(argv, inner...)
	return argv
}
