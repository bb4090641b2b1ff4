package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/unihack/pkg/query"
	"github.com/matzehuels/unihack/pkg/render"
)

// graphFlags are the flags shared by the graph-producing commands.
type graphFlags struct {
	feature     string
	version     string
	noReduction bool
	output      string
	view        bool
}

// writeSubgraph emits a computed subgraph as DOT text, a rendered file, or
// an opened viewer, depending on flags.
func writeSubgraph(ctx context.Context, sg *query.Subgraph, f *graphFlags) error {
	dot := render.ToDOT(sg)

	if f.view {
		return render.View(ctx, dot)
	}
	if f.output == "" {
		fmt.Println(dot)
		return nil
	}

	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(f.output)) {
	case ".svg":
		data, err = render.RenderSVG(ctx, dot)
	case ".png":
		data, err = render.RenderPNG(ctx, dot)
	default:
		data = []byte(dot)
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", f.output, err)
	}
	if err := os.WriteFile(f.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.output, err)
	}
	printFile(f.output)
	return nil
}
