package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dshills/triage/internal/config"
	"github.com/dshills/triage/internal/logging"
	"github.com/dshills/triage/internal/models"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Gemini model discovery",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List models visible to GEMINI_API_KEY",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(logOverrides(nil))
		if err != nil {
			configFailure(err)
			return nil
		}
		env := config.ReadEnv()
		gem, err := newGemini(cfg, env.GeminiAPIKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitFailure
			return nil
		}

		descs, err := gem.ListModels(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitFailure
			return nil
		}

		picked, _ := models.Pick(descs)
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "MODEL\tGENERATE\tDISPLAY NAME")
		for _, d := range descs {
			name := d.Name
			gen := color.New(color.FgHiBlack).Sprint("no")
			if models.SupportsGenerate(d) {
				gen = color.GreenString("yes")
			}
			if name != "" && name == picked {
				name = color.New(color.Bold).Sprint(name + " *")
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", name, gen, d.DisplayName)
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		if picked == "" {
			color.Yellow("\nNo generateContent model listed; runs will use %s", cfg.FallbackModel)
		} else {
			fmt.Fprintf(os.Stdout, "\n* selected by default (%d of %d support generateContent)\n",
				len(models.Candidates(descs)), len(descs))
		}
		return nil
	},
}

var modelsSelectCmd = &cobra.Command{
	Use:   "select",
	Short: "Print the model a run would use",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(logOverrides(nil))
		if err != nil {
			configFailure(err)
			return nil
		}
		if strings.TrimSpace(cfg.Model) != "" {
			fmt.Fprintln(os.Stdout, cfg.Model)
			return nil
		}

		level, _ := config.ParseLevel(cfg.Log.Level)
		logging.Init(level, cfg.Log.Format, os.Stderr)

		env := config.ReadEnv()
		sel := &models.Selector{
			Fallback: cfg.FallbackModel,
			Logger:   logging.New("selector"),
		}
		if gem, err := newGemini(cfg, env.GeminiAPIKey); err == nil {
			sel.Lister = gem
		}

		fmt.Fprintln(os.Stdout, sel.Select(context.Background()))
		return nil
	},
}

func init() {
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsSelectCmd)
}
