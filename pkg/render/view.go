package render

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// View renders the DOT graph to a temporary SVG and opens it in the
// platform's default viewer. The file is left in place; the viewer keeps
// using it after this returns.
func View(ctx context.Context, dot string) error {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp("", "unihack-*.svg")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := f.Write(svg); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", f.Name(), err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	return open(ctx, f.Name())
}

func open(ctx context.Context, path string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", path)
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", path)
	default:
		cmd = exec.CommandContext(ctx, "xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open viewer: %w", err)
	}
	return nil
}
