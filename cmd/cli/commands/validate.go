package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/plannerd/monthroster/pkg/inputfile"
)

// ValidateCmd creates the validate command
func ValidateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <input.yaml>",
		Short: "Check a YAML input file without solving",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := inputfile.Load(args[0])
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Input is valid\n\n")
			fmt.Printf("Month:     %d-%02d\n", input.Year, input.Month)
			fmt.Printf("Baseline:  %dh\n", input.BaselineHours)
			fmt.Printf("Employees: %d\n", len(input.Employees))
			fmt.Printf("Shifts:    %d\n", len(input.Shifts))
			for _, s := range input.Shifts {
				fmt.Printf("  - %s %s-%s (workplace %d, demand %d)\n",
					s.Name, s.Start, s.End, s.Workplace, s.Demand)
			}
			fmt.Printf("Preferences: %d, absences: %d, assignments: %d, closings: %d\n",
				len(input.Preferences), len(input.Absences), len(input.Assignments), len(input.Closings))

			return nil
		},
	}
}
