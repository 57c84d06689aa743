package exec

import (
	"strings"
	"testing"
	"time"
)

func TestWrapperPrefix(t *testing.T) {
	sh := NewWrapper(New(), "sh", "-c")

	result, err := sh.Run("echo hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "hello world" {
		t.Errorf("expected 'hello world', got: %s", result.Stdout)
	}
}

func TestWrapperStacking(t *testing.T) {
	// env VAR=x sh -c '...' built from two wrappers
	env := NewWrapper(New(), "env", "STACK_VAR=stacked")
	sh := NewWrapper(env, "sh", "-c")

	result, err := sh.Run("echo $STACK_VAR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "stacked" {
		t.Errorf("expected 'stacked', got: %s", result.Stdout)
	}
}

func TestWrapperWithDir(t *testing.T) {
	dir := t.TempDir()
	pwd := NewWrapper(New(), "pwd")

	result, err := pwd.WithDir(dir).Run()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Stdout, dir) {
		t.Errorf("expected stdout to contain %q, got: %s", dir, result.Stdout)
	}
}

func TestWrapperKeepsPrefixAcrossWith(t *testing.T) {
	sh := NewWrapper(New(), "sh", "-c")

	result, err := sh.
		WithEnv(map[string]string{"WRAPPER_VAR": "wrapper_value"}).
		WithTimeout(5 * time.Second).
		Run("echo $WRAPPER_VAR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.TrimSpace(result.Stdout) != "wrapper_value" {
		t.Errorf("expected 'wrapper_value', got: %s", result.Stdout)
	}
}

func TestWrapperTimeout(t *testing.T) {
	sleep := NewWrapper(New(), "sleep")

	result, err := sleep.WithTimeout(50 * time.Millisecond).Run("5")
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if result.ExitCode != ExitCodeTimeout {
		t.Errorf("expected exit code %d, got: %d", ExitCodeTimeout, result.ExitCode)
	}
}
