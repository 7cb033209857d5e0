package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/plannerd/monthroster/pkg/core/services"
	"github.com/plannerd/monthroster/pkg/inputfile"
)

// GenerateCmd creates the generate command
func GenerateCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <input.yaml>",
		Short: "Generate the month's schedule from a YAML input file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")

			input, err := inputfile.Load(args[0])
			if err != nil {
				return err
			}

			result, err := services.GenerateSchedule(app.Ctx, input.GenerateInput(), app.Cfg, app.Logger)
			if err != nil {
				return err
			}
			if result.Failed {
				return fmt.Errorf("no schedule could be generated: solver status %s", result.Status)
			}

			fmt.Printf("\n✓ Schedule generated for %d-%02d (run %s, status %s)\n\n",
				input.Year, input.Month, result.RunID, result.Status)
			fmt.Println(result.Board)

			if output != "" {
				if err := inputfile.WriteResult(output, result); err != nil {
					return err
				}
				app.Logger.Info("result written", zap.String("path", output))
				fmt.Printf("Result saved to %s\n", output)
			}

			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Path to save the solved schedule as YAML")

	return cmd
}
