package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively generate a configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			outPath, _ := cmd.Flags().GetString("output")
			if outPath == "" {
				outPath = defaultConfigPath()
			}

			answers := wizardAnswers{
				Store:    "store.sqlite",
				Model:    "claude-sonnet-4-5-20250929",
				Listen:   ":8080",
				APIKey:   "${ANTHROPIC_API_KEY}",
				OutPath:  outPath,
				RunCron:  true,
				RunQuota: true,
			}
			if err := runWizard(&answers); err != nil {
				return err
			}

			if _, err := os.Stat(answers.OutPath); err == nil && !answers.Overwrite {
				return fmt.Errorf("%s already exists (re-run and confirm overwrite)", answers.OutPath)
			}

			if err := os.MkdirAll(filepath.Dir(answers.OutPath), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(answers.OutPath, []byte(renderConfig(answers)), 0o600); err != nil {
				return err
			}

			fmt.Printf("Wrote %s\n", answers.OutPath)
			fmt.Println("Start the server with: phrasecue start --config", answers.OutPath)
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Where to write the configuration file")
	return cmd
}

type wizardAnswers struct {
	Store     string
	APIKey    string
	Model     string
	Listen    string
	EntURL    string
	RunQuota  bool
	RunCron   bool
	OutPath   string
	Overwrite bool
}

func runWizard(a *wizardAnswers) error {
	exists := false
	if _, err := os.Stat(a.OutPath); err == nil {
		exists = true
	}

	groups := []*huh.Group{
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Storage backend").
				Description("SQLite persists caches across restarts; memory is for development.").
				Options(
					huh.NewOption("SQLite (recommended)", "store.sqlite"),
					huh.NewOption("In-memory", "store.memory"),
				).
				Value(&a.Store),
			huh.NewInput().
				Title("Anthropic API key").
				Description("Leave the ${ANTHROPIC_API_KEY} placeholder to read it from the environment.").
				EchoMode(huh.EchoModePassword).
				Value(&a.APIKey),
			huh.NewInput().
				Title("Analysis model").
				Value(&a.Model),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("HTTP listen address").
				Value(&a.Listen).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("listen address is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Entitlement API base URL").
				Description("Optional. Leave empty to run without the subscription paywall.").
				Value(&a.EntURL),
			huh.NewConfirm().
				Title("Enable quota limits?").
				Value(&a.RunQuota),
			huh.NewConfirm().
				Title("Enable scheduled maintenance (scratch sweep, cache pruning)?").
				Value(&a.RunCron),
		),
	}
	if exists {
		groups = append(groups, huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Overwrite existing %s?", a.OutPath)).
				Value(&a.Overwrite),
		))
	} else {
		a.Overwrite = true
	}

	return huh.NewForm(groups...).Run()
}

// renderConfig produces the YAML config for the chosen answers. Rendered by
// hand rather than yaml.Marshal so the output keeps its comments.
func renderConfig(a wizardAnswers) string {
	var b strings.Builder
	b.WriteString("version: \"1\"\n\nmodules:\n")

	fmt.Fprintf(&b, "  %s: {}\n\n", a.Store)

	b.WriteString("  media.ytdlp: {}\n\n")
	b.WriteString("  media.whisper:\n    # model_path: /path/to/ggml-base.bin\n    language: en\n\n")

	fmt.Fprintf(&b, "  provider.anthropic:\n    api_key: \"%s\"\n    model: %s\n\n", a.APIKey, a.Model)

	if a.EntURL != "" {
		fmt.Fprintf(&b, "  entitlement.httpapi:\n    base_url: %s\n    api_key: \"${ENTITLEMENT_API_KEY:-}\"\n\n", a.EntURL)
	}

	b.WriteString("  pipeline.worker: {}\n\n")
	b.WriteString("  stream.registry: {}\n\n")

	if a.RunQuota {
		b.WriteString("  quota.engine: {}\n\n")
	}
	if a.RunCron {
		b.WriteString("  cron.maintenance: {}\n\n")
	}

	fmt.Fprintf(&b, "  gateway.http:\n    bind: \"%s\"\n", a.Listen)

	b.WriteString("\n# telemetry:\n#   enabled: true\n#   endpoint: localhost:4318\n#   insecure: true\n")
	return b.String()
}

func defaultConfigPath() string {
	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		return filepath.Join(xdg, "phrasecue", "phrasecue.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "phrasecue.yaml"
	}
	return filepath.Join(home, ".config", "phrasecue", "phrasecue.yaml")
}
