// sani-cli прогоняет текст через ядро SANI без HTTP: для отладки промптов и разбора логов.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sani-bot/api/internal/app"
	"sani-bot/api/internal/config"
	"sani-bot/api/internal/logger"
	"sani-bot/api/internal/sani"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sani-cli",
		Short:         "SANI output parsing and intent classification tools",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newSanitizeCmd(), newExtractCmd(), newClassifyCmd())
	return root
}

// input: аргументы через пробел или stdin, если аргументов нет.
func input(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(b), nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newSanitizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sanitize [text]",
		Short: "Strip leaked tags, meta lines and JSON from a chat reply",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := input(cmd, args)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), sani.SanitizeChatReply(raw))
			return err
		},
	}
}

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract [text]",
		Short: "Parse a [RESPONSE]/[ACTION] reply into JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := input(cmd, args)
			if err != nil {
				return err
			}
			return writeJSON(cmd, sani.ExtractStructuredReply(raw))
		},
	}
}

func newClassifyCmd() *cobra.Command {
	var (
		nluJSON string
		engine  string
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "classify [message]",
		Short: "Map a user message to a canonical intent",
		Long: "With --nlu-json the classifier output is taken as given and only the gate, parser and mapper run.\n" +
			"Without it the configured model is called (needs API keys in the environment).",
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := input(cmd, args)
			if err != nil {
				return err
			}
			msg = strings.TrimSpace(msg)

			if cmd.Flags().Changed("nlu-json") {
				d := (&sani.Classifier{}).MapOutput(msg, nluJSON)
				if verbose {
					return writeJSON(cmd, d)
				}
				return writeJSON(cmd, d.Result)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RequestTimeout)
			defer cancel()
			a, err := app.New(ctx, cfg, logger.New("warn", "console"))
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Svc.ParseIntent(ctx, engine, msg)
			if err != nil {
				return err
			}
			return writeJSON(cmd, res)
		},
	}
	cmd.Flags().StringVar(&nluJSON, "nlu-json", "", "raw classifier output to map offline")
	cmd.Flags().StringVar(&engine, "engine", "", "gemini | gpt | deepseek (default from config)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print gate and parse stage too")
	return cmd
}
