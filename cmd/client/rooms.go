package main

import (
	"context"
	"time"

	"github.com/dkeye/Captions/internal/adapters/wsclient"
	"github.com/dkeye/Captions/internal/ui"
	"github.com/spf13/cobra"
)

var roomsCmd = &cobra.Command{
	Use:   "rooms",
	Short: "List active rooms on the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		rooms, err := wsclient.FetchRooms(ctx, cfg.ServerURL)
		if err != nil {
			return err
		}
		console.Println(ui.RoomsView(rooms))
		return nil
	},
}
