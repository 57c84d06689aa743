//go:build linux

package isolation

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"runtime"

	platformerrors "github.com/jmgilman/reposandbox/errors"
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

// Offsets into struct seccomp_data.
const (
	seccompDataNr   = 0
	seccompDataArch = 4
	seccompDataArg0 = 16
)

// Filter return actions.
const (
	seccompRetKillProcess = 0x80000000
	seccompRetErrno       = 0x00050000
	seccompRetAllow       = 0x7fff0000
)

// x32 syscalls on x86_64 carry this bit in their number.
const x32SyscallBit = 0x40000000

// seccompArch describes the syscall ABI of one supported architecture.
type seccompArch struct {
	audit    uint32
	socketNr uint32
	x32      bool
}

var seccompArches = map[string]seccompArch{
	"amd64": {audit: 0xc000003e, socketNr: 41, x32: true},
	"arm64": {audit: 0xc00000b7, socketNr: 198},
}

// NetworkFilter assembles the seccomp program for goarch (a GOARCH value).
// The program kills the process on an ABI mismatch, denies x32 syscalls,
// and makes socket(2) fail with EPERM for AF_INET and AF_INET6. Every other
// syscall is allowed, so Unix domain sockets keep working.
func NetworkFilter(goarch string) ([]bpf.Instruction, error) {
	arch, ok := seccompArches[goarch]
	if !ok {
		return nil, platformerrors.Newf(platformerrors.CodeUnavailable, "seccomp filter not available for architecture %q", goarch)
	}

	deny := bpf.RetConstant{Val: seccompRetErrno | uint32(unix.EPERM)}
	allow := bpf.RetConstant{Val: seccompRetAllow}

	prog := []bpf.Instruction{
		bpf.LoadAbsolute{Off: seccompDataArch, Size: 4},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: arch.audit, SkipTrue: 1},
		bpf.RetConstant{Val: seccompRetKillProcess},
		bpf.LoadAbsolute{Off: seccompDataNr, Size: 4},
	}
	if arch.x32 {
		prog = append(prog,
			bpf.JumpIf{Cond: bpf.JumpGreaterOrEqual, Val: x32SyscallBit, SkipFalse: 1},
			deny,
		)
	}
	prog = append(prog,
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: arch.socketNr, SkipTrue: 1},
		allow,
		bpf.LoadAbsolute{Off: seccompDataArg0, Size: 4},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: unix.AF_INET, SkipTrue: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: unix.AF_INET6, SkipTrue: 1},
		allow,
		deny,
	)

	return prog, nil
}

// CompileNetworkFilter returns the network filter for goarch in the binary
// form bwrap --seccomp expects: an array of struct sock_filter.
func CompileNetworkFilter(goarch string) ([]byte, error) {
	prog, err := NetworkFilter(goarch)
	if err != nil {
		return nil, err
	}

	raw, err := bpf.Assemble(prog)
	if err != nil {
		return nil, platformerrors.Wrap(err, platformerrors.CodeInternal, "failed to assemble seccomp filter")
	}

	// Both supported architectures are little-endian.
	var buf bytes.Buffer
	for _, ins := range raw {
		_ = binary.Write(&buf, binary.LittleEndian, ins.Op)
		buf.WriteByte(ins.Jt)
		buf.WriteByte(ins.Jf)
		_ = binary.Write(&buf, binary.LittleEndian, ins.K)
	}
	return buf.Bytes(), nil
}

// seccompFile returns an in-memory file holding the compiled network filter,
// positioned at its start. The caller closes it.
func seccompFile() (*os.File, error) {
	prog, err := CompileNetworkFilter(runtime.GOARCH)
	if err != nil {
		return nil, err
	}

	fd, err := unix.MemfdCreate("reposandbox-seccomp", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, platformerrors.Wrap(err, platformerrors.CodeInternal, "failed to create seccomp memfd")
	}
	f := os.NewFile(uintptr(fd), "seccomp")

	if _, err := f.Write(prog); err != nil {
		f.Close()
		return nil, platformerrors.Wrap(err, platformerrors.CodeInternal, "failed to write seccomp filter")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, platformerrors.Wrap(err, platformerrors.CodeInternal, "failed to rewind seccomp filter")
	}
	return f, nil
}
