// Command semzoom serves the interactive process-mining viewer.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/SemanticZoom/internal/version"
)

type LogLine struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Event     string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func logEvent(level, event, msg string, fields map[string]interface{}) {
	line := LogLine{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level,
		Event:     event,
		Message:   msg,
		Fields:    fields,
	}
	b, _ := json.Marshal(line)
	fmt.Println(string(b))
}

var rootCmd = &cobra.Command{
	Use:           "semzoom",
	Short:         "Interactive Petri net viewer with semantic zoom",
	Long:          `semzoom serves a browser viewer for Petri nets discovered from event logs, with pan and zoom, a process-tree annotation and debounced re-aggregation.`,
	Version:       version.String(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the viewer server",
	RunE:  runServe,
}

var renderCmd = &cobra.Command{
	Use:   "render <result.json>",
	Short: "Render a mining service result to graph.svg and annotation.svg",
	Args:  cobra.ExactArgs(1),
	RunE:  runRender,
}

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Print persisted viewer events from PostgreSQL",
	RunE:  runEvents,
}

var (
	configPath string
	outDir     string
	dotPath    string
	limit      int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to viewer.yaml (defaults apply when empty)")
	renderCmd.Flags().StringVar(&outDir, "out", ".", "Directory to write the SVG files to")
	renderCmd.Flags().StringVar(&dotPath, "dot", "dot", "Graphviz dot binary")
	eventsCmd.Flags().IntVar(&limit, "limit", 50, "Number of events to print")

	rootCmd.AddCommand(serveCmd, renderCmd, eventsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
