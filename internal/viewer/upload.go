package viewer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AaronLay10/SemanticZoom/internal/events"
	"github.com/AaronLay10/SemanticZoom/internal/miner"
)

// ErrUpload is returned when a file cannot be sent for discovery.
var ErrUpload = errors.New("upload failed")

// Status lines.
const (
	StatusDiscoveryFailed   = "Error during discovery!"
	StatusAggregationFailed = "Error during aggregation!"
	StatusRenderFailed      = "Error rendering Petri net!"
)

// SupportedExtensions are the event log formats the mining service reads.
var SupportedExtensions = []string{".xes", ".csv"}

// Supported reports whether filename has a supported extension.
func Supported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Upload sends an event log for discovery, records the new log id and draws
// the discovered net and tree.
func (v *Viewer) Upload(ctx context.Context, filename string, r io.Reader) error {
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) || !Supported(name) {
		v.setStatus("Unsupported file type: " + name)
		events.Emit("warning", "upload.rejected", "", v.fields(map[string]interface{}{"file": name}))
		return fmt.Errorf("%w: unsupported file type %q", ErrUpload, name)
	}

	events.Emit("info", "upload.received", "", v.fields(map[string]interface{}{"file": name}))
	v.setStatus("Uploading " + name + "...")
	events.Emit("info", "discovery.started", "", v.fields(map[string]interface{}{"file": name}))

	start := time.Now()
	res, err := v.opts.Miner.Discover(ctx, name, r)
	if err != nil {
		v.observer.ObserveRequest("discover", "error", time.Since(start))
		v.logf("discovery of %s failed: %v", name, err)
		events.Emit("error", "discovery.failed", err.Error(), v.fields(map[string]interface{}{"file": name}))
		v.setStatus(StatusDiscoveryFailed)
		return err
	}
	v.observer.ObserveRequest("discover", "ok", time.Since(start))

	// A new log makes every pending aggregation of the previous one stale.
	v.sched.Supersede()
	v.session.Set(res.LogID)

	events.Emit("info", "discovery.completed", "", v.fields(map[string]interface{}{
		"file":   name,
		"log_id": res.LogID,
		"nodes":  len(res.Graph.Nodes),
		"links":  len(res.Graph.Links),
	}))
	if v.opts.OnDiscovered != nil {
		v.opts.OnDiscovered(ctx, v.id, name, res)
	}

	v.setStatus("Discovered petri net from " + name)

	v.drawMu.Lock()
	defer v.drawMu.Unlock()
	return v.draw(ctx, res)
}

// draw renders a result into both surfaces concurrently. A failed net
// render sets the render error status; the annotation is still drawn.
func (v *Viewer) draw(ctx context.Context, res *miner.Result) error {
	var graphErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		graphErr = v.graph.Draw(gctx, res.Graph)
		v.observer.ObserveRender(SurfaceGraph, time.Since(start), graphErr)
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		err := v.annotation.Draw(res.Tree)
		v.observer.ObserveRender(SurfaceAnnotation, time.Since(start), err)
		return err
	})
	annErr := g.Wait()

	v.push(v.contentUpdate(SurfaceGraph))
	v.push(v.contentUpdate(SurfaceAnnotation))

	if graphErr != nil {
		v.logf("render failed: %v", graphErr)
		events.Emit("error", "render.failed", graphErr.Error(), v.fields(map[string]interface{}{"surface": SurfaceGraph}))
		v.setStatus(StatusRenderFailed)
		return graphErr
	}
	if annErr != nil {
		v.logf("annotation render failed: %v", annErr)
		events.Emit("error", "render.failed", annErr.Error(), v.fields(map[string]interface{}{"surface": SurfaceAnnotation}))
		return annErr
	}

	if ctrl, ok := v.Controller(SurfaceAnnotation); ok {
		events.Emit("info", "viewport.fit", "", v.fields(map[string]interface{}{"scale": ctrl.State().Scale}))
	}
	events.Emit("info", "render.completed", "", v.fields(map[string]interface{}{
		"nodes": len(res.Graph.Nodes),
	}))
	return nil
}

func (v *Viewer) onDispatch(seq uint64, p miner.AggregationParams) {
	events.Emit("info", "aggregation.requested", "", v.fields(map[string]interface{}{
		"seq":       seq,
		"log_id":    p.LogID,
		"level":     p.Level,
		"mode":      p.SemanticMode,
		"threshold": p.Threshold,
	}))
}

func (v *Viewer) onAggregated(seq uint64, res *miner.Result) {
	v.drawMu.Lock()
	defer v.drawMu.Unlock()
	// A discovery may have superseded seq after the scheduler let it through.
	if !v.sched.Current(seq) {
		v.onDiscarded(seq)
		return
	}
	events.Emit("info", "aggregation.completed", "", v.fields(map[string]interface{}{"seq": seq}))
	if res == nil {
		return
	}
	_ = v.draw(v.ctx, res)
}

func (v *Viewer) onAggregationFailed(seq uint64, err error) {
	v.logf("aggregation %d failed: %v", seq, err)
	events.Emit("error", "aggregation.failed", err.Error(), v.fields(map[string]interface{}{"seq": seq}))
	v.setStatus(StatusAggregationFailed)
}

func (v *Viewer) onDiscarded(seq uint64) {
	events.Emit("info", "aggregation.discarded", "stale response", v.fields(map[string]interface{}{"seq": seq}))
}
