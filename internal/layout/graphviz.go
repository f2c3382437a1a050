package layout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout bounds a single layout run.
const DefaultTimeout = 10 * time.Second

// ErrTimeout is returned when the layout engine does not finish in time.
var ErrTimeout = errors.New("layout: engine timed out")

// Graphviz runs the Graphviz dot binary to produce SVG scenes.
type Graphviz struct {
	// Path is the dot binary; "dot" is looked up on PATH when empty.
	Path    string
	Timeout time.Duration
}

// NewGraphviz returns a Graphviz service using the given binary and timeout.
func NewGraphviz(path string, timeout time.Duration) *Graphviz {
	return &Graphviz{Path: path, Timeout: timeout}
}

func (g *Graphviz) binary() string {
	if g.Path == "" {
		return "dot"
	}
	return g.Path
}

// Available reports whether the dot binary can be found.
func (g *Graphviz) Available() bool {
	_, err := exec.LookPath(g.binary())
	return err == nil
}

// Render lays out a DOT description and parses the resulting SVG.
func (g *Graphviz) Render(ctx context.Context, dot string) (*Scene, error) {
	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, g.binary(), "-Tsvg")
	cmd.Stdin = strings.NewReader(dot)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, ErrTimeout
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("layout: dot failed: %w: %s", err, msg)
		}
		return nil, fmt.Errorf("layout: dot failed: %w", err)
	}

	return ParseScene(&stdout)
}
