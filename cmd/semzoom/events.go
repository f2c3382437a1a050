package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/AaronLay10/SemanticZoom/internal/storage/postgres"
)

func runEvents(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pg, err := postgres.New(cfg.Viewer.Name)
	if err != nil {
		return err
	}
	defer pg.Close()

	rows, err := pg.Query(limit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
