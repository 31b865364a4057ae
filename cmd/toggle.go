package cmd

import (
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var (
	toggleOn  bool
	toggleOff bool
)

//nolint:gochecknoglobals // Cobra boilerplate
var toggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Enable or disable the auto-trade scheduler",
	Long: `Flips the bot run state. With --on or --off the state is set
explicitly; without flags it flips the current value.`,
	RunE: runToggle,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(toggleCmd)
	toggleCmd.Flags().BoolVar(&toggleOn, "on", false, "Enable the bot")
	toggleCmd.Flags().BoolVar(&toggleOff, "off", false, "Disable the bot")
	toggleCmd.MarkFlagsMutuallyExclusive("on", "off")
}

func runToggle(cmd *cobra.Command, args []string) error {
	application, logger, err := newApp()
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := cmd.Context()

	target := false
	switch {
	case toggleOn:
		target = true
	case toggleOff:
		target = false
	default:
		current, err := application.Settings().Get(ctx)
		if err != nil {
			return err
		}
		target = !current.IsRunning
	}

	settings, err := application.Settings().SetRunning(ctx, target)
	if err != nil {
		return err
	}
	return printJSON(settings)
}
