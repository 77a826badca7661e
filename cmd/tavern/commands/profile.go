package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"tavern-client/internal/domain"
)

func printProfile(cmd *cobra.Command, p domain.Profile) {
	fmt.Fprintf(cmd.OutOrStdout(), "user: %s (#%d)\nbalance: %s %s\n",
		p.Username, p.ID, p.Balance.Amount.StringFixed(0), p.Balance.Currency.Name)
}

func profileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Fetch the current profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !appCtx.Session.IsLoggedIn() {
				return fmt.Errorf("not logged in")
			}
			p, err := appCtx.Session.FetchProfile(cmd.Context())
			if err != nil {
				return err
			}
			printProfile(cmd, p)
			return nil
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session state after bootstrap",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "session: %s\n", appCtx.Session.State())
			if p, ok := appCtx.Session.User(); ok {
				printProfile(cmd, p)
			}

			families, err := appCtx.Registry.Gather()
			if err != nil {
				return err
			}
			for _, mf := range families {
				if mf.GetName() != "tavern_gateway_requests_total" {
					continue
				}
				for _, m := range mf.GetMetric() {
					labels := ""
					for _, l := range m.GetLabel() {
						labels += fmt.Sprintf(" %s=%s", l.GetName(), l.GetValue())
					}
					fmt.Fprintf(out, "backend calls:%s count=%.0f\n", labels, m.GetCounter().GetValue())
				}
			}
			return nil
		},
	}
}
