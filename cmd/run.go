package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spigell/interview-coach/internal/archive"
	"github.com/spigell/interview-coach/internal/coach"
	"github.com/spigell/interview-coach/internal/interview"
	"github.com/spigell/interview-coach/internal/logger"
	"github.com/spigell/interview-coach/internal/report"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var errExit = errors.New("exit requested")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an interactive mock interview in the terminal",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("role", "r", "", "role the candidate is interviewing for")
	runCmd.Flags().StringP("mode", "m", "", "interview length: brief, normal or deep. Asked interactively when unset.")
	runCmd.Flags().StringSliceP("skills", "s", nil, "skills to focus on, comma separated")
	runCmd.Flags().StringP("report-file", "o", "", "write the markdown report to this file")

	viper.BindPFlag("interview.role", runCmd.Flags().Lookup("role"))
	viper.BindPFlag("interview.mode", runCmd.Flags().Lookup("mode"))
	viper.BindPFlag("interview.skills", runCmd.Flags().Lookup("skills"))
	viper.BindPFlag("report.file", runCmd.Flags().Lookup("report-file"))
}

// run is the interactive interview loop.
func run(_ *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	if config == nil || config.Interview == nil {
		logger.Fatal("config is required")
	}

	logger.Info("starting the interview-coach", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config.Interview, "", "  ")
	logger.Debug(fmt.Sprintf("starting with interview config: \n %s", pretty))

	mode, err := selectMode(config.Interview.Mode)
	if err != nil {
		if errors.Is(err, errExit) {
			return
		}
		logger.Fatal("choosing interview mode", zap.Error(err))
	}

	gen, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("creating ai backend", zap.Error(err))
	}

	controller, c, err := newController(config.Interview, gen, logger)
	if err != nil {
		logger.Fatal("preparing interview", zap.Error(err))
	}

	store, err := openArchive(config)
	if err != nil {
		logger.Fatal("opening archive", zap.Error(err))
	}
	if store != nil {
		defer store.Close()
	}

	questions := config.Interview.Questions
	if len(questions) == 0 {
		questions = generateQuestions(ctx, c, config.Interview.Role, mode, config.Interview.Skills, logger)
	}

	session, err := interview.NewSession(config.Interview.Role, mode, config.Interview.Skills, questions)
	if err != nil {
		logger.Fatal("creating session", zap.Error(err))
	}

	logger.Info("interview started",
		zap.String("session_id", session.ID),
		zap.String("role", session.Role),
		zap.String("mode", string(session.Mode)),
		zap.Int("questions", len(session.Questions)),
	)

	session, action, err := controller.Start(session)
	if err != nil {
		logger.Fatal("starting interview", zap.Error(err))
	}

	session, summary, err := converse(ctx, controller, session, action)
	if err != nil {
		if errors.Is(err, errExit) {
			logger.Info("exiting", zap.String("reason", "interrupted by user"), zap.String("session_id", session.ID))
			return
		}
		logger.Fatal("exiting", zap.Error(err))
	}

	if err := finish(ctx, session, summary, config, store, logger); err != nil {
		logger.Fatal("writing report", zap.Error(err))
	}
}

// selectMode parses configured or asks for the interview mode.
func selectMode(configured string) (interview.Mode, error) {
	if strings.TrimSpace(configured) != "" {
		return interview.ParseMode(configured)
	}

	items := make([]string, 0, len(interview.Modes))
	for _, m := range interview.Modes {
		items = append(items, fmt.Sprintf("%s (%d questions)", m, m.QuestionCount()))
	}

	prompt := promptui.Select{
		Label: "Choose interview mode",
		Items: items,
		// normal
		CursorPos: 1,
	}

	idx, _, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return "", errExit
		}
		return "", err
	}
	return interview.Modes[idx], nil
}

func generateQuestions(ctx context.Context, c *coach.Coach, role string, mode interview.Mode, skills []string, logger *zap.Logger) []string {
	questions, err := c.Questions(ctx, role, mode, skills)
	if err != nil || len(questions) == 0 {
		logger.Warn("falling back to built-in demo questions",
			zap.Error(err),
			zap.String("hint", "configure an ai backend or set interview.questions"),
		)
		return coach.DemoQuestions
	}
	return questions
}

// converse reads replies until the controller finishes the interview.
func converse(ctx context.Context, controller *interview.Controller, session interview.Session, action interview.Action) (interview.Session, interview.Summary, error) {
	reply := promptui.Prompt{Label: "You"}

	for {
		printAction(action)

		if fin, ok := action.(interview.Finish); ok {
			return session, fin.Summary, nil
		}

		text, err := reply.Run()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return session, interview.Summary{}, errExit
			}
			return session, interview.Summary{}, err
		}

		session, action, err = controller.HandleReply(ctx, session, strings.TrimSpace(text))
		if err != nil {
			return session, interview.Summary{}, err
		}
	}
}

func finish(ctx context.Context, session interview.Session, summary interview.Summary, config *Config, store *archive.Store, logger *zap.Logger) error {
	rep := report.Build(session, summary)

	md, err := rep.Markdown()
	if err != nil {
		return err
	}

	fmt.Println(renderMarkdown(md))

	if config.Report != nil && config.Report.File != "" {
		if err := os.WriteFile(config.Report.File, []byte(md), 0o644); err != nil {
			return fmt.Errorf("write report file: %w", err)
		}
		logger.Info("report written", zap.String("filename", config.Report.File))
	}

	if store != nil {
		rec := archive.Record{Session: session, Report: rep, FinishedAt: session.UpdatedAt}
		if err := store.Save(ctx, rec); err != nil {
			logger.Error("archiving interview failed", zap.Error(err))
		} else {
			logger.Info("interview archived", zap.String("session_id", session.ID))
		}
	}

	logger.Info("interview finished",
		zap.String("session_id", session.ID),
		zap.Float64("adjusted_rating", rep.AdjustedRating),
	)
	return nil
}
