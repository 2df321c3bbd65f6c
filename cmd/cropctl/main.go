// Command cropctl runs the crop recommendation engine from the terminal
// against the same model artifacts and reference tables as the server.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"cropplanner/internal/agronomy"
	"cropplanner/internal/classifier"
	"cropplanner/internal/model"
	"cropplanner/internal/service"
	"cropplanner/internal/utils"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	modelPath     string
	labelsPath    string
	referencePath string
	jsonOutput    bool
)

var rootCmd = &cobra.Command{
	Use:           "cropctl",
	Short:         "Smart Crop Planner command line",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&modelPath, "model", envOr("MODEL_PATH", "models/crop_model.json"), "trained forest artifact")
	rootCmd.PersistentFlags().StringVar(&labelsPath, "labels", envOr("LABELS_PATH", "models/label_encoder.json"), "label encoder artifact")
	rootCmd.PersistentFlags().StringVar(&referencePath, "reference", os.Getenv("REFERENCE_TABLES_PATH"), "optional YAML reference table override")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of text")

	rootCmd.AddCommand(newRecommendCmd(), newSeasonCmd(), newFertilizerCmd(), newCompanionsCmd(), newCropsCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRecommendCmd() *cobra.Command {
	var s model.SoilSample
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Rank the three most suitable crops for a soil sample",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := loadEngine()
			if err != nil {
				return err
			}
			recs := engine.Recommend(s)
			if jsonOutput {
				return printJSON(cmd, recs)
			}

			out := cmd.OutOrStdout()
			for i, r := range recs {
				fmt.Fprintf(out, "%d. %s (%.2f%%)\n", i+1, r.Crop, r.Percent)
				fmt.Fprintf(out, "   Sowing: %s  Harvesting: %s\n", r.Season.Sowing, r.Season.Harvesting)
				fmt.Fprintf(out, "   Fertilizers: %s\n", listOrNone(r.Fertilizers))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64Var(&s.Nitrogen, "n", 0, "nitrogen (N)")
	f.Float64Var(&s.Phosphorus, "p", 0, "phosphorus (P)")
	f.Float64Var(&s.Potassium, "k", 0, "potassium (K)")
	f.Float64Var(&s.Temperature, "temperature", 0, "temperature in °C")
	f.Float64Var(&s.Humidity, "humidity", 0, "relative humidity in %")
	f.Float64Var(&s.PH, "ph", 0, "soil pH")
	for _, name := range []string{"n", "p", "k", "temperature", "humidity", "ph"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func newSeasonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "season CROP",
		Short: "Show the sowing and harvesting window for a crop",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			advisor, err := loadAdvisor()
			if err != nil {
				return err
			}
			crop := utils.NormalizeCropName(strings.Join(args, " "))
			season := advisor.Season(crop)
			if jsonOutput {
				return printJSON(cmd, model.SeasonResponse{Crop: crop, Season: season})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: sow %s, harvest %s\n", crop, season.Sowing, season.Harvesting)
			return nil
		},
	}
}

func newFertilizerCmd() *cobra.Command {
	var n, p, k float64
	cmd := &cobra.Command{
		Use:   "fertilizer CROP",
		Short: "List fertilizers for nutrients below a crop's ideal level",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			advisor, err := loadAdvisor()
			if err != nil {
				return err
			}
			crop := utils.NormalizeCropName(strings.Join(args, " "))
			resp := advisor.Fertilizers(crop, n, p, k)
			if jsonOutput {
				return printJSON(cmd, resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", crop, listOrNone(resp.Fertilizers))
			return nil
		},
	}
	cmd.Flags().Float64Var(&n, "n", 0, "nitrogen (N)")
	cmd.Flags().Float64Var(&p, "p", 0, "phosphorus (P)")
	cmd.Flags().Float64Var(&k, "k", 0, "potassium (K)")
	return cmd
}

func newCropsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crops",
		Short: "List crops with reference data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			advisor, err := loadAdvisor()
			if err != nil {
				return err
			}
			crops := advisor.Crops()
			if jsonOutput {
				return printJSON(cmd, model.CropListResponse{Crops: crops})
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(crops, "\n"))
			return nil
		},
	}
}

func newCompanionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "companions CROP",
		Short: "List companion crops",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			advisor, err := loadAdvisor()
			if err != nil {
				return err
			}
			crop := utils.NormalizeCropName(strings.Join(args, " "))
			companions := advisor.Companions(crop)
			if jsonOutput {
				return printJSON(cmd, model.CompanionResponse{Crop: crop, Companions: companions})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", crop, listOrNone(companions))
			return nil
		},
	}
}

func loadTables() (*agronomy.Tables, error) {
	if referencePath == "" {
		return agronomy.Default(), nil
	}
	return agronomy.LoadFile(referencePath)
}

// loadAdvisor serves lookups that never classify, so no model is read
func loadAdvisor() (*service.Advisor, error) {
	tables, err := loadTables()
	if err != nil {
		return nil, err
	}
	return service.NewAdvisor(tables), nil
}

func loadEngine() (*service.Engine, error) {
	tables, err := loadTables()
	if err != nil {
		return nil, err
	}
	m, err := classifier.Load(modelPath, labelsPath)
	if err != nil {
		return nil, err
	}
	return service.NewEngine(m, tables)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
