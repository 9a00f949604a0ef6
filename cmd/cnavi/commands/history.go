package commands

import (
	"time"

	"cnavi/internal/chrono"
	"cnavi/internal/pull"
	"cnavi/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history <course title>",
	Short: "Lists the lectures recorded for a course and when they were first seen.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		database := openDB(cfg)
		defer database.Close()

		manager, err := pull.NewManager(pull.ManagerOptions{DB: database})
		if err != nil {
			serviceutil.Fatal("failed to create manager", err)
		}
		lectures, err := manager.History(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("failed to read lectures", err)
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"Lecture", "First seen"})
		for _, l := range lectures {
			seen := time.Unix(l.FirstSeen, 0).In(chrono.Tokyo())
			t.AppendRow(table.Row{l.Title, seen.Format(time.DateTime)})
		}
		t.Render()
	},
}
