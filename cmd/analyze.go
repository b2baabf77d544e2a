package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"resumelift/internal/app"
	"resumelift/internal/clix"
	"resumelift/internal/export"
	"resumelift/internal/inputprocessor"
	"resumelift/internal/models"
	"resumelift/internal/session"
)

const progressInterval = 150 * time.Millisecond

var analyzeCmd = &cobra.Command{
	Use:   "analyze [resume-file]",
	Short: "Analyze a resume against a job description",
	Long: `Uploads a resume together with a job description to the analysis backend.
The backend is woken up first when it is asleep.

The job description comes from --job (text, a URL or a file path) or
--job-file. Accepted resume types: ` + inputprocessor.SupportedExtensions() + `.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		appInstance, err := GetAppFromContext(ctx)
		if err != nil {
			return err
		}

		output := clix.ParseOutput(cmd.Flags())
		sub, err := buildSubmission(ctx, appInstance, args[0], cmd.Flags())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		state, err := runWithProgress(ctx, appInstance.Session, sub, out, !output.JSON)
		if err != nil {
			if msg := session.ValidationMessage(err); msg != "" {
				return errors.New(msg)
			}
			return err
		}

		if output.JSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(state); err != nil {
				return fmt.Errorf("failed to encode state: %w", err)
			}
		}

		if state.Phase != models.PhaseSucceeded {
			if !output.JSON {
				printFailure(out, state)
			}
			return fmt.Errorf("analysis failed (%s)", state.Kind)
		}

		if !output.JSON {
			fmt.Fprintf(out, "\n%s\n\n%s\n", color.GreenString("Analysis complete"), state.Result)
		}
		return handleResult(ctx, appInstance, state.Result, output, cmd.ErrOrStderr())
	},
}

// buildSubmission loads the resume and resolves the job description. An empty
// resume or a missing description is left for the session to report.
func buildSubmission(ctx context.Context, appInstance *app.App, resumePath string, flags *pflag.FlagSet) (models.Submission, error) {
	var sub models.Submission

	resume, err := inputprocessor.LoadResume(resumePath)
	switch {
	case errors.Is(err, models.ErrMissingFile):
	case err != nil:
		return sub, err
	default:
		sub.File = resume
	}

	jobInput, err := clix.JobInput(flags)
	if err != nil {
		return sub, err
	}
	if jobInput == "" {
		return sub, nil
	}
	job, err := appInstance.InputProcessor.Process(ctx, jobInput)
	switch {
	case errors.Is(err, inputprocessor.ErrEmptyInput):
		return sub, nil
	case err != nil:
		return sub, fmt.Errorf("failed to read job description: %w", err)
	}
	sub.JobDescription = job.Text
	return sub, nil
}

type submitResult struct {
	state models.ClientState
	err   error
}

// runWithProgress submits and, when show is set, prints each stage as the
// session publishes it.
func runWithProgress(ctx context.Context, sess *session.Session, sub models.Submission, out io.Writer, show bool) (models.ClientState, error) {
	events := sess.Events()
	seq := events.LastSeq()

	done := make(chan submitResult, 1)
	go func() {
		state, err := sess.Submit(ctx, sub)
		done <- submitResult{state: state, err: err}
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case res := <-done:
			if show {
				printProgress(out, events, seq)
			}
			return res.state, res.err
		case <-ticker.C:
			if show {
				seq = printProgress(out, events, seq)
			}
		}
	}
}

func printProgress(out io.Writer, events *session.EventBus, seq int64) int64 {
	for _, ev := range events.Since(seq) {
		seq = ev.Seq
		if ev.Type != session.EventTypeState {
			continue
		}
		switch ev.Phase {
		case models.PhaseWakingUp:
			fmt.Fprintln(out, color.CyanString("Waking up backend..."))
		case models.PhaseAnalyzing:
			fmt.Fprintln(out, color.CyanString("Analyzing your resume against the job description..."))
		}
	}
	return seq
}

func printFailure(out io.Writer, state models.ClientState) {
	fmt.Fprintf(out, "\n%s %s\n", color.RedString("Error:"), state.Message)
	if state.Retryable {
		fmt.Fprintln(out, color.YellowString("This looks temporary. Run the same command again to retry."))
	}
}

// handleResult saves and copies the result as requested. Clipboard problems
// are reported but do not fail the command.
func handleResult(ctx context.Context, appInstance *app.App, result string, output clix.OutputParams, errOut io.Writer) error {
	if output.Save {
		location, err := appInstance.Exporter.Save(ctx, result)
		if err != nil {
			return err
		}
		fmt.Fprintf(errOut, "%s %s\n", color.GreenString("Saved report to"), location)
	}

	if output.Copy {
		if err := export.CopyToClipboard(result); err != nil {
			fmt.Fprintf(errOut, "%s %v\n", color.YellowString("Warning:"), err)
		} else {
			fmt.Fprintln(errOut, color.GreenString("Copied!"))
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().String("job", "", "job description text, URL, or file path")
	analyzeCmd.Flags().String("job-file", "", "file containing the job description")
	analyzeCmd.Flags().Bool("save", false, "save the result as resume-analysis-<date>.<format>")
	analyzeCmd.Flags().String("save-dir", "", "directory for saved reports (overrides export.dir)")
	analyzeCmd.Flags().String("format", "", "report format: txt or md (overrides export.format)")
	analyzeCmd.Flags().Bool("copy", false, "copy the result to the clipboard")
	analyzeCmd.Flags().Bool("json", false, "print the final state as JSON")
}
