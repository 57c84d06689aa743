// Package testutil builds on-disk git repositories for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Test user information used for every fixture commit.
const (
	// TestAuthor is the author name for test commits.
	TestAuthor = "Test User"

	// TestEmail is the email for test commits.
	TestEmail = "test@example.com"
)

// Content of the two commits in a TaggedRepo.
const (
	// FirstReadme is README.md at v1.0.
	FirstReadme = "# Fixture\n\nversion one\n"

	// SecondReadme is README.md at v2.0.
	SecondReadme = "# Fixture\n\nversion two\n"

	// MainGo is src/main.go, added in the second commit. It contains a
	// string full of shell metacharacters for injection tests.
	MainGo = `package main

import "fmt"

func main() {
	fmt.Println("; cat /etc/passwd")
}
`
)

// TaggedRepo is a non-bare repository with two commits on main. The first
// commit carries the annotated tag v1.0 and the second the lightweight tag
// v2.0.
type TaggedRepo struct {
	// Path is the repository's working directory; clone it by path.
	Path string

	// FirstSHA is the commit tagged v1.0.
	FirstSHA string

	// SecondSHA is the commit tagged v2.0 and the tip of main.
	SecondSHA string

	repo *gogit.Repository
}

// NewTaggedRepo creates a TaggedRepo in a temporary directory owned by t.
func NewTaggedRepo(t testing.TB) *TaggedRepo {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture")
	repo, err := gogit.PlainInitWithOptions(path, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{DefaultBranch: plumbing.Main},
	})
	if err != nil {
		t.Fatalf("failed to init fixture repository: %v", err)
	}

	fixture := &TaggedRepo{Path: path, repo: repo}

	fixture.FirstSHA = fixture.Commit(t, "Initial commit", map[string]string{
		"README.md": FirstReadme,
	})
	if _, err := repo.CreateTag("v1.0", plumbing.NewHash(fixture.FirstSHA), &gogit.CreateTagOptions{
		Tagger:  signature(),
		Message: "Release 1.0",
	}); err != nil {
		t.Fatalf("failed to tag v1.0: %v", err)
	}

	fixture.SecondSHA = fixture.Commit(t, "Add main", map[string]string{
		"README.md":   SecondReadme,
		"src/main.go": MainGo,
	})
	if _, err := repo.CreateTag("v2.0", plumbing.NewHash(fixture.SecondSHA), nil); err != nil {
		t.Fatalf("failed to tag v2.0: %v", err)
	}

	return fixture
}

// Commit writes files (path → content) into the working tree, stages them
// and commits. It returns the new commit id.
func (r *TaggedRepo) Commit(t testing.TB, message string, files map[string]string) string {
	t.Helper()

	wt, err := r.repo.Worktree()
	if err != nil {
		t.Fatalf("failed to open worktree: %v", err)
	}

	for name, content := range files {
		if err := util.WriteFile(wt.Filesystem, name, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
		if _, err := wt.Add(name); err != nil {
			t.Fatalf("failed to stage %s: %v", name, err)
		}
	}

	hash, err := wt.Commit(message, &gogit.CommitOptions{Author: signature()})
	if err != nil {
		t.Fatalf("failed to commit: %v", err)
	}
	return hash.String()
}

// Branch creates a branch named name at sha.
func (r *TaggedRepo) Branch(t testing.TB, name, sha string) {
	t.Helper()

	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), plumbing.NewHash(sha))
	if err := r.repo.Storer.SetReference(ref); err != nil {
		t.Fatalf("failed to create branch %s: %v", name, err)
	}
}

// ReadFile reads a file relative to dir, failing the test on error.
func ReadFile(t testing.TB, dir, name string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(data)
}

func signature() *object.Signature {
	return &object.Signature{
		Name:  TestAuthor,
		Email: TestEmail,
		When:  time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}
