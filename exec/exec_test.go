package exec

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func TestBasicExecution(t *testing.T) {
	result, err := New().Run("echo", "hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result.Stdout, "hello world") {
		t.Errorf("expected stdout to contain 'hello world', got: %s", result.Stdout)
	}
	if result.ExitCode != 0 {
		t.Errorf("expected exit code 0, got: %d", result.ExitCode)
	}
	if result.TimedOut {
		t.Error("expected TimedOut to be false")
	}
}

func TestNoArgs(t *testing.T) {
	_, err := New().Run()
	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecError, got: %T", err)
	}
	if execErr.ExitCode != -1 {
		t.Errorf("expected exit code -1, got: %d", execErr.ExitCode)
	}
}

func TestCommandFailure(t *testing.T) {
	result, err := New().Run("sh", "-c", "echo oops >&2; exit 3")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var execErr *ExecError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecError, got: %T", err)
	}
	if execErr.ExitCode != 3 {
		t.Errorf("expected exit code 3, got: %d", execErr.ExitCode)
	}
	if !strings.Contains(execErr.Stderr, "oops") {
		t.Errorf("expected stderr to contain 'oops', got: %s", execErr.Stderr)
	}
	if execErr.TimedOut() {
		t.Error("a plain failure must not report a timeout")
	}
	if result == nil {
		t.Fatal("expected result even with error")
	}
}

func TestMissingBinary(t *testing.T) {
	result, err := New().Run("definitely-not-a-real-binary-xyz")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if result.ExitCode != -1 {
		t.Errorf("expected exit code -1, got: %d", result.ExitCode)
	}
}

func TestWithDir(t *testing.T) {
	dir := t.TempDir()
	result, err := New().WithDir(dir).Run("pwd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Stdout, dir) {
		t.Errorf("expected stdout to contain %q, got: %s", dir, result.Stdout)
	}
}

func TestWithEnv(t *testing.T) {
	result, err := New().WithEnv(map[string]string{
		"TEST_VAR": "test_value",
	}).Run("sh", "-c", "echo $TEST_VAR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Stdout, "test_value") {
		t.Errorf("expected stdout to contain 'test_value', got: %s", result.Stdout)
	}
}

func TestWithIsImmutable(t *testing.T) {
	base := New(WithEnv(map[string]string{"TEST_VAR": "base"}))
	_ = base.WithEnv(map[string]string{"TEST_VAR": "derived"})

	result, err := base.Run("sh", "-c", "echo $TEST_VAR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "base" {
		t.Errorf("derived executor leaked into base, got: %s", result.Stdout)
	}
}

func TestWithDisableColors(t *testing.T) {
	result, err := New().WithDisableColors().Run("sh", "-c", "echo $NO_COLOR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "1" {
		t.Errorf("expected NO_COLOR=1, got: %s", result.Stdout)
	}
}

func TestWithTimeout(t *testing.T) {
	start := time.Now()
	result, err := New().WithTimeout(100 * time.Millisecond).Run("sleep", "5")
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}

	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got: %v", err)
	}
	if !result.TimedOut {
		t.Error("expected TimedOut to be true")
	}
	if result.ExitCode != ExitCodeTimeout {
		t.Errorf("expected exit code %d, got: %d", ExitCodeTimeout, result.ExitCode)
	}
	if time.Since(start) > 4*time.Second {
		t.Error("command was not killed promptly")
	}
}

func TestTimeoutKillsProcessGroup(t *testing.T) {
	// The shell forks a sleeping grandchild that holds stdout open.
	start := time.Now()
	_, err := New().WithTimeout(100*time.Millisecond).Run("sh", "-c", "sleep 5 & sleep 5")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got: %v", err)
	}
	if time.Since(start) > 4*time.Second {
		t.Error("grandchild kept the command alive")
	}
}

func TestWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	result, err := New().WithContext(ctx).WithTimeout(10 * time.Second).Run("sleep", "5")
	if err == nil {
		t.Fatal("expected context cancellation error, got nil")
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("caller cancellation must not be reported as a timeout")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
	if result.TimedOut {
		t.Error("expected TimedOut to be false")
	}
}

func TestOutputLimit(t *testing.T) {
	result, err := New().WithOutputLimit(10).Run("sh", "-c", "printf '0123456789abcdef'")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Stdout != "0123456789" {
		t.Errorf("expected first 10 bytes, got: %q", result.Stdout)
	}
	if !result.Truncated {
		t.Error("expected Truncated to be true")
	}
}

func TestSeparateAndCombinedOutput(t *testing.T) {
	result, err := New().Run("sh", "-c", "echo out && echo err >&2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result.Stdout, "out") || strings.Contains(result.Stdout, "err") {
		t.Errorf("unexpected stdout: %s", result.Stdout)
	}
	if !strings.Contains(result.Stderr, "err") {
		t.Errorf("unexpected stderr: %s", result.Stderr)
	}
	if !strings.Contains(result.Combined, "out") || !strings.Contains(result.Combined, "err") {
		t.Errorf("unexpected combined: %s", result.Combined)
	}
}

func TestWithExtraFiles(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "extra")
	if err != nil {
		t.Fatalf("CreateTemp() error = %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString("from fd three"); err != nil {
		t.Fatalf("WriteString() error = %v", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}

	result, err := New().WithExtraFiles(f).Run("sh", "-c", "cat <&3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Stdout != "from fd three" {
		t.Errorf("expected fd 3 content, got: %q", result.Stdout)
	}
}

func TestInheritEnv(t *testing.T) {
	t.Setenv("EXEC_INHERIT_TEST", "inherited")

	result, err := New().Run("sh", "-c", "echo ${EXEC_INHERIT_TEST:-empty}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "empty" {
		t.Errorf("environment leaked without WithInheritEnv: %s", result.Stdout)
	}

	result, err = New(WithInheritEnv()).Run("sh", "-c", "echo $EXEC_INHERIT_TEST")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "inherited" {
		t.Errorf("expected inherited value, got: %s", result.Stdout)
	}
}
