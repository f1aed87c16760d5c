package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"campus-assistant/internal/helper"
	"campus-assistant/internal/models"
	"campus-assistant/internal/questionlog"
	"campus-assistant/internal/render"
	"campus-assistant/internal/vectorstore"
)

var (
	askEmail string
	askHTML  bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a single question",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		question := strings.Join(args, " ")

		var ix *vectorstore.Index
		if usesIndex(currentConfig) {
			var err error
			if ix, err = openIndex(ctx, currentConfig); err != nil {
				return err
			}
			defer ix.Close()
		}
		r, err := newRAG(ctx, currentConfig, ix)
		if err != nil {
			return err
		}
		defer r.Close()

		resp, qerr := r.Query(ctx, question)
		questionlog.New(currentConfig.QuestionLogURL(), currentConfig.Timeout()).Log(ctx, questionlog.Record{
			Email:    askEmail,
			Question: question,
			Answer:   resp.Content,
			Duration: resp.Duration.Seconds(),
		})

		answer := resp.Content
		if askHTML {
			if answer, err = render.HTML(resp.Content); err != nil {
				return err
			}
		}
		printAnswer(cmd, resp, answer)
		return qerr
	},
}

func init() {
	askCmd.Flags().StringVar(&askEmail, "email", "", "email recorded with the question")
	askCmd.Flags().BoolVar(&askHTML, "html", false, "print the answer as HTML")
}

func printAnswer(cmd *cobra.Command, resp *models.PromptResponse, answer string) {
	out := cmd.OutOrStdout()
	if jsonOutput {
		helper.PrettyPrint(out, resp)
		return
	}
	header := color.New(color.FgCyan, color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	state := color.New(color.FgGreen).SprintFunc()
	switch resp.State {
	case models.StateDegraded:
		state = color.New(color.FgYellow).SprintFunc()
	case models.StateFailed:
		state = color.New(color.FgRed).SprintFunc()
	}

	fmt.Fprintln(out, header("Answer"))
	fmt.Fprintln(out, answer)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "%s %s via %s in %s\n", header("State"), state(resp.State), resp.Strategy, resp.Duration.Round(time.Millisecond))
	if len(resp.Sources) > 0 {
		fmt.Fprintf(out, "%s %s\n", header("Sources"), strings.Join(resp.Sources, ", "))
	}
	fmt.Fprintln(out, faint(joinStates(resp.Trace)))
}

func joinStates(trace []models.State) string {
	parts := make([]string, len(trace))
	for i, s := range trace {
		parts[i] = string(s)
	}
	return strings.Join(parts, " -> ")
}
