package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"tavern-client/internal/domain"
	"tavern-client/internal/navigation"
)

func currenciesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "currencies",
		Short: "List the game currencies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := appCtx.API.Currencies(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range list {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", c.ID, c.Slug, c.Name)
			}
			return nil
		},
	}
}

func createGameCmd() *cobra.Command {
	var (
		input    domain.CreateGameInput
		joinType string
	)
	cmd := &cobra.Command{
		Use:   "create-game",
		Short: "Create a game lobby",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc := appCtx.Router.Navigate(navigation.RouteCreate, nil)
			if loc.Route.Name != navigation.RouteCreate {
				return fmt.Errorf("not logged in")
			}
			jt, err := domain.ParseJoinType(joinType)
			if err != nil {
				return err
			}
			input.JoinType = jt

			game, err := appCtx.API.CreateGame(cmd.Context(), input)
			if err != nil {
				return err
			}
			appCtx.Router.Navigate(navigation.RouteLobby, map[string]string{"code": game.Code})
			fmt.Fprintf(cmd.OutOrStdout(), "game %s: bet %d %s, %d points, link %s\n",
				game.Code, game.Bet, game.Currency.Name, game.WinningPoints, game.Link)
			return nil
		},
	}
	cmd.Flags().UintVar(&input.CurrencyID, "currency", 1, "currency id")
	cmd.Flags().UintVar(&input.Bet, "bet", 0, "bet amount")
	cmd.Flags().UintVar(&input.WinningPoints, "points", 3000, "winning points")
	cmd.Flags().StringVar(&joinType, "join", string(domain.JoinAnyone), "who can join: anyone, friends or link")
	return cmd
}

func openCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open [path]",
		Short: "Navigate to a route and print where the guard lands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := appCtx.Router.Open(args[0])
			if err != nil {
				return err
			}
			if loc.Route.Name != "" && loc.Path() != args[0] {
				fmt.Fprintf(cmd.OutOrStdout(), "redirected to %s\n", loc.Route.Name)
			}
			return nil
		},
	}
}
