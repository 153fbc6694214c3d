package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ArtifactName is the fixed path of the calendar inside the working copy.
const ArtifactName = "calendar.ics"

// State is the terminal outcome of one publication. Intermediate stages are
// never observable by callers.
type State string

const (
	StatePublished State = "published"
	StateNoChange  State = "no_change"
	StateFailed    State = "publish_failed"
)

// ErrUnconfigured means the working copy, its remote or the committer
// identity is missing. This is a first-run setup problem, not a transient
// failure.
var ErrUnconfigured = errors.New("publication working copy is not configured")

// Publisher promotes rendered calendar artifacts into a git working copy
// and pushes them to the configured remote. It assumes the coordinator
// serializes all calls.
type Publisher struct {
	root   string
	remote string
	branch string
	mirror string // optional static mirror, best-effort
}

func New(root, remote, branch, mirror string) *Publisher {
	if remote == "" {
		remote = "origin"
	}
	return &Publisher{root: root, remote: remote, branch: branch, mirror: mirror}
}

// Check verifies the working copy is usable: it exists, is a git work tree,
// has the remote and a committer identity. Meant to run at startup so
// misconfiguration is fatal before any booking is taken.
func (p *Publisher) Check(ctx context.Context) error {
	if p.root == "" {
		return fmt.Errorf("%w: PUBLISH_ROOT is not set", ErrUnconfigured)
	}
	if info, err := os.Stat(p.root); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrUnconfigured, p.root)
	}
	if _, err := p.git(ctx, "rev-parse", "--is-inside-work-tree"); err != nil {
		return fmt.Errorf("%w: %s is not a git working copy", ErrUnconfigured, p.root)
	}
	if _, err := p.git(ctx, "remote", "get-url", p.remote); err != nil {
		return fmt.Errorf("%w: remote %q is not configured", ErrUnconfigured, p.remote)
	}
	if out, err := p.git(ctx, "config", "user.email"); err != nil || strings.TrimSpace(out) == "" {
		return fmt.Errorf("%w: git committer identity (user.email) is not set", ErrUnconfigured)
	}
	return nil
}

// Publish stages the artifact, commits it when it changed and pushes. A
// diverged remote is reconciled with fetch + rebase and one push retry; if
// that still fails the commit stays local for a later publication to carry.
func (p *Publisher) Publish(ctx context.Context, artifact []byte, operation, guestName string, now time.Time) (State, error) {
	if err := p.stage(artifact); err != nil {
		return StateFailed, err
	}
	p.mirrorArtifact(artifact)

	changed, err := p.artifactChanged(ctx)
	if err != nil {
		return StateFailed, err
	}
	if changed {
		if _, err := p.git(ctx, "add", ArtifactName); err != nil {
			return StateFailed, fmt.Errorf("git add: %w", err)
		}
		message := fmt.Sprintf("%s %s: update calendar (%s)",
			operation, guestName, now.Format("2006-01-02 15:04:05"))
		if _, err := p.git(ctx, "commit", "-m", message); err != nil {
			return StateFailed, fmt.Errorf("git commit: %w", err)
		}
	} else if !p.hasPendingCommits(ctx) {
		return StateNoChange, nil
	}

	if err := p.push(ctx); err != nil {
		return StateFailed, err
	}
	return StatePublished, nil
}

// stage overwrites the artifact in the working copy via write-then-rename
// so static readers never see a truncated file.
func (p *Publisher) stage(artifact []byte) error {
	target := filepath.Join(p.root, ArtifactName)
	tmp := filepath.Join(p.root, "."+ArtifactName+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, artifact, 0o644); err != nil {
		return fmt.Errorf("stage artifact: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("stage artifact: %w", err)
	}
	return nil
}

func (p *Publisher) mirrorArtifact(artifact []byte) {
	if p.mirror == "" {
		return
	}
	path := filepath.Join(p.mirror, ArtifactName)
	if err := os.WriteFile(path, artifact, 0o644); err != nil {
		log.Printf("static mirror update failed: %v", err)
	}
}

func (p *Publisher) artifactChanged(ctx context.Context) (bool, error) {
	out, err := p.git(ctx, "status", "--porcelain", "--", ArtifactName)
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	return strings.TrimSpace(out) != "", nil
}

// hasPendingCommits reports whether earlier publications left unpushed
// commits behind. An unknown upstream counts as pending so a fresh branch
// gets its first push.
func (p *Publisher) hasPendingCommits(ctx context.Context) bool {
	out, err := p.git(ctx, "rev-list", "--count", p.upstream(ctx)+"..HEAD")
	if err != nil {
		return true
	}
	return strings.TrimSpace(out) != "0"
}

func (p *Publisher) push(ctx context.Context) error {
	if _, err := p.git(ctx, "push", p.remote, p.branchRef(ctx)); err == nil {
		return nil
	}
	// The remote may have diverged. Fetch, replay our commits on top and
	// retry exactly once.
	if _, err := p.git(ctx, "fetch", p.remote); err != nil {
		return fmt.Errorf("push failed and fetch did not recover: %w", err)
	}
	if _, err := p.git(ctx, "rebase", p.upstream(ctx)); err != nil {
		p.git(ctx, "rebase", "--abort")
		return fmt.Errorf("push failed and rebase did not recover: %w", err)
	}
	if _, err := p.git(ctx, "push", p.remote, p.branchRef(ctx)); err != nil {
		return fmt.Errorf("push failed after rebase: %w", err)
	}
	return nil
}

func (p *Publisher) branchRef(ctx context.Context) string {
	if p.branch != "" {
		return p.branch
	}
	out, err := p.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "HEAD"
	}
	return strings.TrimSpace(out)
}

func (p *Publisher) upstream(ctx context.Context) string {
	return p.remote + "/" + p.branchRef(ctx)
}

func (p *Publisher) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = p.root
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("git %s: %v: %s", args[0], err, strings.TrimSpace(out.String()))
	}
	return out.String(), nil
}
