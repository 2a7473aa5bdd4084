package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/artpar/clubdues/app"
	"github.com/spf13/cobra"
)

var playersCmd = &cobra.Command{
	Use:   "players",
	Short: "Manage players",
	Long: `Manage club players.

Examples:
  clubdues players list
  clubdues players create --name "Ana Hoxha" --email ana@example.com --position forward --number 9`,
}

var playersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List players by name",
	RunE:  runPlayersList,
}

var playersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a player",
	RunE:  runPlayersCreate,
}

var (
	playerName     string
	playerEmail    string
	playerPhone    string
	playerPosition string
	playerNumber   int
	playerJoined   string
	playerInactive bool
)

func init() {
	rootCmd.AddCommand(playersCmd)

	playersCmd.AddCommand(playersListCmd)
	playersCmd.AddCommand(playersCreateCmd)

	playersCreateCmd.Flags().StringVar(&playerName, "name", "", "player name (required)")
	playersCreateCmd.Flags().StringVar(&playerEmail, "email", "", "contact email")
	playersCreateCmd.Flags().StringVar(&playerPhone, "phone", "", "contact phone")
	playersCreateCmd.Flags().StringVar(&playerPosition, "position", "", "playing position")
	playersCreateCmd.Flags().IntVar(&playerNumber, "number", 0, "jersey number")
	playersCreateCmd.Flags().StringVar(&playerJoined, "joined", "", "join date YYYY-MM-DD (default: today)")
	playersCreateCmd.Flags().BoolVar(&playerInactive, "inactive", false, "register as inactive")
	playersCreateCmd.MarkFlagRequired("name")
}

func runPlayersList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Shutdown()

	players, err := a.Players.ListPlayers(cmd.Context(), 1000, 0)
	if err != nil {
		return fmt.Errorf("failed to list players: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(players) == 0 {
		fmt.Fprintln(out, "No players found.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, `Register one with: clubdues players create --name "Ana"`)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPOSITION\tNUMBER\tJOINED\tACTIVE")
	fmt.Fprintln(w, "--\t----\t--------\t------\t------\t------")
	for _, p := range players {
		number := "-"
		if p.JerseyNumber > 0 {
			number = fmt.Sprint(p.JerseyNumber)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\n",
			p.ID, p.Name, p.Position, number, p.JoinDate.Format(time.DateOnly), p.Active)
	}
	w.Flush()
	return nil
}

func runPlayersCreate(cmd *cobra.Command, args []string) error {
	req := app.CreatePlayerRequest{
		Name:         playerName,
		Email:        playerEmail,
		Phone:        playerPhone,
		Position:     playerPosition,
		JerseyNumber: playerNumber,
	}
	if playerJoined != "" {
		d, err := time.Parse(time.DateOnly, playerJoined)
		if err != nil {
			return fmt.Errorf("invalid --joined: %w", err)
		}
		req.JoinDate = &d
	}
	if playerInactive {
		active := false
		req.Active = &active
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Shutdown()

	p, err := a.Players.CreatePlayer(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Player created: %s (%s)\n", p.ID, p.Name)
	return nil
}

