package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AaronLay10/SemanticZoom/internal/layout"
	"github.com/AaronLay10/SemanticZoom/internal/miner"
	"github.com/AaronLay10/SemanticZoom/internal/render"
	"github.com/AaronLay10/SemanticZoom/internal/surface"
	"github.com/AaronLay10/SemanticZoom/internal/viewport"
)

func runRender(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	var res miner.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	graph := surface.NewCanvas("graph-surface", surface.Size{Width: 900, Height: 600})
	tree := surface.NewCanvas("annotation-surface", surface.Size{Width: 500, Height: 600})
	dot := layout.NewGraphviz(dotPath, layout.DefaultTimeout)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		r := render.NewGraph(graph, viewport.New(viewport.GraphBounds), dot)
		if err := r.Draw(ctx, res.Graph); err != nil {
			return err
		}
		return writeSurface(filepath.Join(outDir, "graph.svg"), graph)
	})
	g.Go(func() error {
		r := render.NewAnnotation(tree, viewport.New(viewport.AnnotationBounds))
		if err := r.Draw(res.Tree); err != nil {
			return err
		}
		return writeSurface(filepath.Join(outDir, "annotation.svg"), tree)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	logEvent("info", "render.completed", "", map[string]interface{}{
		"out":   outDir,
		"nodes": len(res.Graph.Nodes),
		"links": len(res.Graph.Links),
	})
	return nil
}

func writeSurface(path string, c *surface.Canvas) error {
	return os.WriteFile(path, []byte(`<?xml version="1.0" encoding="UTF-8"?>`+"\n"+c.Markup()+"\n"), 0o644)
}
