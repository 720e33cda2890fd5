// Package main provides a desk CLI for one-shot dutching, cashout and
// exposure swap calculations.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yourusername/dutch-trader/internal/dutching"
	"github.com/yourusername/dutch-trader/internal/models"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var (
	commission float64
	legSpecs   []string
)

var rootCmd = &cobra.Command{
	Use:   "dutch",
	Short: "Dutching calculator for Betfair Italy markets",
	Long: `Computes dutch stakes, cashout hedges and exposure swaps from
prices given on the command line, without touching the exchange.`,
	Version: fmt.Sprintf("%s (%s)", Version, GitCommit),
}

func init() {
	rootCmd.PersistentFlags().Float64Var(&commission, "commission", 4.5, "Exchange commission percent")
	rootCmd.AddCommand(backCmd, targetCmd, layCmd, mixedCmd, cashoutCmd, swapCmd)

	backCmd.Flags().StringSliceVar(&legSpecs, "leg", nil, "Selection as name:price (repeatable)")
	backCmd.MarkFlagRequired("leg")
	targetCmd.Flags().StringSliceVar(&legSpecs, "leg", nil, "Selection as name:price (repeatable)")
	targetCmd.MarkFlagRequired("leg")
	layCmd.Flags().StringSliceVar(&legSpecs, "leg", nil, "Selection as name:price (repeatable)")
	layCmd.MarkFlagRequired("leg")
	mixedCmd.Flags().StringSliceVar(&legSpecs, "leg", nil, "Selection as name:price:side (repeatable)")
	mixedCmd.MarkFlagRequired("leg")
	swapCmd.Flags().StringSliceVar(&legSpecs, "leg", nil, "Leg as odds:side (repeatable)")
	swapCmd.MarkFlagRequired("leg")
}

var backCmd = &cobra.Command{
	Use:   "back <totalStake>",
	Short: "Back-dutch a total stake across selections",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		totalStake, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid total stake %q: %w", args[0], err)
		}
		selections, err := parseSelections(legSpecs, models.BetSideBack)
		if err != nil {
			return err
		}
		summary, err := dutching.CalculateBackDutching(selections, totalStake, commission)
		if err != nil {
			return err
		}
		return printJSON(summary)
	},
}

var targetCmd = &cobra.Command{
	Use:   "target <targetProfit>",
	Short: "Back-dutch for a target profit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid target profit %q: %w", args[0], err)
		}
		selections, err := parseSelections(legSpecs, models.BetSideBack)
		if err != nil {
			return err
		}
		summary, err := dutching.CalculateBackDutchingTarget(selections, target, commission)
		if err != nil {
			return err
		}
		return printJSON(summary)
	},
}

var layCmd = &cobra.Command{
	Use:   "lay <totalLiability>",
	Short: "Lay-dutch a total liability across selections",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		liability, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid total liability %q: %w", args[0], err)
		}
		selections, err := parseSelections(legSpecs, models.BetSideLay)
		if err != nil {
			return err
		}
		summary, err := dutching.CalculateLayDutching(selections, liability, commission)
		if err != nil {
			return err
		}
		return printJSON(summary)
	},
}

var mixedCmd = &cobra.Command{
	Use:   "mixed <targetProfit>",
	Short: "Mixed back/lay dutch for a target profit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid target profit %q: %w", args[0], err)
		}
		selections, err := parseSelections(legSpecs, "")
		if err != nil {
			return err
		}
		summary, err := dutching.CalculateMixedDutching(selections, target, commission)
		if err != nil {
			return err
		}
		return printJSON(summary)
	},
}

var cashoutCmd = &cobra.Command{
	Use:   "cashout <backStake> <backPrice> <layPrice>",
	Short: "Green-up hedge for a single matched back bet",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		values := make([]float64, 3)
		for i, arg := range args {
			v, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				return fmt.Errorf("invalid number %q: %w", arg, err)
			}
			values[i] = v
		}
		hedge := dutching.CalculateCashout(values[0], values[1], values[2], commission)
		return printJSON(hedge)
	},
}

var swapCmd = &cobra.Command{
	Use:   "swap <targetProfit>",
	Short: "Size an exposure swap across market legs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("invalid target profit %q: %w", args[0], err)
		}
		legs, err := parseSwapLegs(legSpecs)
		if err != nil {
			return err
		}
		result, err := dutching.CalculateExposureSwap(legs, target, commission)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

// parseSelections parses name:price or name:price:side specs. When side is
// omitted defaultSide applies; an empty defaultSide makes the side part
// mandatory, as the mixed calculator needs it per leg.
func parseSelections(specs []string, defaultSide models.BetSide) ([]models.Selection, error) {
	selections := make([]models.Selection, 0, len(specs))
	for i, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("leg %q must be name:price or name:price:side", spec)
		}

		price, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("leg %q has invalid price: %w", spec, err)
		}

		side := defaultSide
		if len(parts) == 3 {
			side = models.BetSide(strings.ToUpper(parts[2]))
			if !side.IsValid() {
				return nil, fmt.Errorf("leg %q has invalid side %q", spec, parts[2])
			}
		} else if defaultSide == "" {
			return nil, fmt.Errorf("leg %q must name a side (BACK or LAY)", spec)
		}

		selections = append(selections, models.Selection{
			SelectionID:   uint64(i + 1),
			RunnerName:    parts[0],
			Price:         price,
			EffectiveType: side,
		})
	}
	return selections, nil
}

func parseSwapLegs(specs []string) ([]models.SwapLeg, error) {
	legs := make([]models.SwapLeg, 0, len(specs))
	for i, spec := range specs {
		parts := strings.Split(spec, ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("leg %q must be odds:side", spec)
		}

		odds, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("leg %q has invalid odds: %w", spec, err)
		}

		side := models.BetSide(strings.ToUpper(parts[1]))
		if !side.IsValid() {
			return nil, fmt.Errorf("leg %q has invalid side %q", spec, parts[1])
		}

		legs = append(legs, models.SwapLeg{
			SelectionID: uint64(i + 1),
			Odds:        odds,
			Side:        side,
		})
	}
	return legs, nil
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
