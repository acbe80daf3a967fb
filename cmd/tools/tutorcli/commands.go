package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/z-tutor/backend/internal/model/chat"
	"github.com/zhouzirui/z-tutor/backend/internal/service/tutor"
)

var (
	personaColor  = color.New(color.FgCyan, color.Bold)
	categoryColor = color.New(color.FgYellow)
	userColor     = color.New(color.FgGreen, color.Bold)
)

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Long:  "Read questions line by line. Type /reset to start a new conversation and /quit to leave.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), app.Tutor, userID, os.Stdin, cmd.OutOrStdout())
		},
	}
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ask(cmd.Context(), app.Tutor, userID, strings.Join(args, " "), cmd.OutOrStdout())
		},
	}
}

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <text>",
		Short: "Show which subject a question belongs to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Tutor.Classify(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Category: %s\n", categoryColor.Sprint(result.Category))
			fmt.Fprintf(out, "  Raw: %q (mode %s)\n", result.Raw, result.Mode)
			if result.Fallback {
				fmt.Fprintln(out, "  Label was not an exact match")
			}
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print the conversation transcript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			turns, err := app.Tutor.Transcript(cmd.Context(), userID)
			if err != nil {
				return err
			}
			printTranscript(cmd.OutOrStdout(), userID, turns)
			return nil
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Start a new conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Tutor.Reset(cmd.Context(), userID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Conversation for %s cleared\n", userID)
			return nil
		},
	}
}

func personasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "personas",
		Short: "List the faculty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, p := range app.Tutor.Personas() {
				fmt.Fprintf(out, "%-12s %s, %s\n", categoryColor.Sprint(p.Category), personaColor.Sprint(p.Name), p.Title)
				fmt.Fprintf(out, "             %q\n", p.Catchphrase)
			}
			return nil
		},
	}
}

// runChat 逐行读取问题，直到输入结束或 /quit。单个回合失败不会结束对话。
func runChat(ctx context.Context, svc *tutor.Service, user string, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "Online Tutoring, chatting as %s. /reset starts over, /quit leaves.\n", userColor.Sprint(user))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, userColor.Sprint("> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/reset":
			if err := svc.Reset(ctx, user); err != nil {
				return err
			}
			fmt.Fprintln(out, "Started a new conversation")
			continue
		}

		if err := ask(ctx, svc, user, line, out); err != nil {
			fmt.Fprintln(out, color.RedString("error: %v", err))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func ask(ctx context.Context, svc *tutor.Service, user, question string, out io.Writer) error {
	_, err := svc.AskStream(ctx, user, question, tutor.StreamHooks{
		OnRoute: func(route chat.Reply) {
			fmt.Fprintf(out, "%s %s\n", personaColor.Sprint(route.Persona), categoryColor.Sprintf("[%s]", route.Category))
		},
		OnDelta: func(chunk string) {
			fmt.Fprint(out, chunk)
		},
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(out)
	return nil
}

func printTranscript(out io.Writer, user string, turns []chat.Turn) {
	if len(turns) == 0 {
		fmt.Fprintf(out, "No conversation yet for %s\n", user)
		return
	}

	for _, turn := range turns {
		stamp := turn.CreatedAt.Local().Format("15:04:05")
		if turn.Role == chat.RoleUser {
			fmt.Fprintf(out, "%s %s %s\n", stamp, userColor.Sprint("you:"), turn.Content)
			continue
		}
		fmt.Fprintf(out, "%s %s %s\n", stamp, categoryColor.Sprintf("[%s]", turn.Category), turn.Content)
	}
}
