package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nvandessel/drsim/internal/models"
	"github.com/nvandessel/drsim/internal/simulation"
)

func newScenariosCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scenarios",
		Short: "List model specification scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			specs := simulation.Scenarios()

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"scenarios": specs,
					"count":     len(specs),
				})
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SCENARIO\tPROPENSITY\tOUTCOME\tDESCRIPTION")
			for _, s := range specs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name,
					covariateList(s.PropensityCovariates), covariateList(s.OutcomeCovariates), s.Description)
			}
			return tw.Flush()
		},
	}
}

func covariateList(covs []models.Covariate) string {
	names := make([]string, len(covs))
	for i, c := range covs {
		names[i] = c.String()
	}
	return strings.Join(names, ",")
}
