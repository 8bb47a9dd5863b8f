package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/spigell/interview-coach/internal/archive"
	"github.com/spigell/interview-coach/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect archived interviews",
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived interviews, newest first",
	Run: func(cmd *cobra.Command, _ []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		withArchive(func(ctx context.Context, store *archive.Store) error {
			return listReports(ctx, store, limit)
		})
	},
}

var reportShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the report of an archived interview",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		asJSON, _ := cmd.Flags().GetBool("raw")
		withArchive(func(ctx context.Context, store *archive.Store) error {
			return showReport(ctx, store, args[0], asJSON)
		})
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportListCmd, reportShowCmd)

	reportListCmd.Flags().IntP("limit", "n", archive.DefaultListLimit, "how many interviews to list")
	reportShowCmd.Flags().Bool("raw", false, "print the report as JSON")
}

func withArchive(fn func(ctx context.Context, store *archive.Store) error) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	store, err := openArchive(config)
	if err != nil {
		logger.Fatal("opening archive", zap.Error(err))
	}
	if store == nil {
		logger.Fatal("archive is not configured",
			zap.String("hint", "set archive.path or INTERVIEW_ARCHIVE"),
		)
	}
	defer store.Close()

	if err := fn(context.Background(), store); err != nil {
		logger.Fatal("reading archive", zap.Error(err))
	}
}

func listReports(ctx context.Context, store *archive.Store, limit int) error {
	entries, err := store.List(ctx, limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tROLE\tMODE\tRATING\tANSWERED\tFINISHED")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%d/%d\t%s\n",
			e.ID, e.Role, e.Mode, e.AdjustedRating, e.Answered, e.Total,
			e.FinishedAt.Local().Format("2006-01-02 15:04"),
		)
	}
	return w.Flush()
}

func showReport(ctx context.Context, store *archive.Store, id string, asJSON bool) error {
	rec, err := store.Get(ctx, id)
	if err != nil {
		return err
	}

	if asJSON {
		data, err := rec.Report.JSON()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	md, err := rec.Report.Markdown()
	if err != nil {
		return err
	}
	fmt.Println(renderMarkdown(md))
	return nil
}
