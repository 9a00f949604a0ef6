package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"cnavi/internal/chrono"
	"cnavi/internal/db"
	"cnavi/internal/keychain"
	"cnavi/internal/pull"
	"cnavi/lib/platforms/cnavi"
	"cnavi/lib/restyutil"
	"cnavi/lib/serviceutil"
	"cnavi/lib/sqliteutil"
	"cnavi/lib/telemetry"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var pullAll *bool
var pullCourse *string

func init() {
	pullAll = pullCmd.Flags().BoolP("all", "a", false, "List every lecture, not only the ones not seen before.")
	pullCourse = pullCmd.Flags().String("course", "", "Only pull courses whose title matches.")
	rootCmd.AddCommand(pullCmd)
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	return t
}

func renderSummary(w io.Writer, summary pull.Summary) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Course", "Lecture", "New"})
	for _, course := range summary.Courses {
		if course.Err != nil {
			t.AppendRow(table.Row{course.Title, "(skipped)", ""})
			continue
		}
		if len(course.Lectures) == 0 {
			t.AppendRow(table.Row{course.Title, "-", ""})
			continue
		}
		for _, lecture := range course.Lectures {
			isNew := ""
			if lecture.New {
				isNew = "*"
			}
			t.AppendRow(table.Row{course.Title, lecture.Title, isNew})
		}
	}
	t.AppendFooter(table.Row{
		fmt.Sprintf("%d courses", len(summary.Courses)),
		"",
		fmt.Sprintf("%d skipped", summary.Skipped),
	})
	t.Render()
}

func loginHint(err error) string {
	switch {
	case errors.Is(err, cnavi.ErrMissingCredentials):
		return "no credentials stored, run `cnavi config` first"
	case errors.Is(err, cnavi.ErrInvalidCredentials):
		return "the portal rejected the credentials, run `cnavi config` to replace them"
	case errors.Is(err, cnavi.ErrFieldNotFound):
		return "the portal's forms changed, a newer fields file is needed"
	}
	return "failed to pull"
}

// runPull returns instead of exiting so that telemetry is flushed and the
// ledger closed on every path.
func runPull(ctx context.Context, cfg Config, opts pull.Options) (pull.Summary, error) {
	tel, err := telemetry.Setup(ctx, "cnavi", cfg.Telemetry)
	if err != nil {
		return pull.Summary{}, fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := tel.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	}()

	fields, err := cnavi.LoadFieldsFile(cfg.FieldsFile)
	if err != nil {
		return pull.Summary{}, fmt.Errorf("load fields: %w", err)
	}

	var dump restyutil.InstrumentOutput
	if *debug {
		out, err := restyutil.NewFilesystemOutput(filepath.Join(".cnavi", "http"))
		if err != nil {
			return pull.Summary{}, fmt.Errorf("create http dump directory: %w", err)
		}
		dump = out
	}

	session, err := cnavi.NewSession(cnavi.SessionOptions{
		EntryUrl:           cfg.BaseUrl,
		Timeout:            cfg.Timeout(),
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		Proxy:              cfg.Proxy,
		RequestsPerSecond:  cfg.RequestRate(),
		Fields:             fields,
		HttpDump:           dump,
	})
	if err != nil {
		return pull.Summary{}, fmt.Errorf("create session: %w", err)
	}

	database, err := sqliteutil.OpenDB(db.Schema, cfg.DbPath)
	if err != nil {
		return pull.Summary{}, fmt.Errorf("open db: %w", err)
	}
	defer database.Close()

	manager, err := pull.NewManager(pull.ManagerOptions{
		DB:          database,
		Portal:      session,
		Credentials: keychain.New(database, chrono.NewStandardTime()),
		Markup:      fields.Markup,
	})
	if err != nil {
		return pull.Summary{}, fmt.Errorf("create manager: %w", err)
	}
	return manager.Pull(ctx, opts)
}

var pullCmd = &cobra.Command{
	Use:   "pull [-a] [--course <name>]",
	Short: "Logs in and lists the lectures of every course.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		summary, err := runPull(cmd.Context(), loadConfig(), pull.Options{
			All:          *pullAll,
			CourseFilter: *pullCourse,
		})
		if len(summary.Courses) > 0 {
			renderSummary(cmd.OutOrStdout(), summary)
		}
		if err != nil {
			serviceutil.Fatal(loginHint(err), err)
		}
	},
}
