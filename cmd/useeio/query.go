package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"useeio/internal/adapters/httpapi"
	"useeio/internal/core"
	"useeio/internal/matrix"
)

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) newModelsCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models that load and validate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.loadService(cmd.Context())
			if err != nil {
				return err
			}
			infos := svc.Models(cmd.Context())
			if asJSON {
				return a.printJSON(infos)
			}
			tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSECTORS\tFLOWS\tINDICATORS")
			for _, m := range svc.Registry().Models() {
				card := m.Cardinalities()
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", m.ID(), m.Info().Name, card.Sectors, card.Flows, card.Indicators)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func (a *app) newCalcCmd() *cobra.Command {
	var demandFile, demandID, perspective string
	cmd := &cobra.Command{
		Use:   "calc <model>",
		Short: "Run a demand-driven impact calculation and print the result as JSON",
		Example: `  useeio calc USEEIOv2.0 --demand-id 2012_us_consumption
  useeio calc USEEIOv2.0 --demand demand.json --perspective direct
  echo '{"1111a0/us": 1e6}' | useeio calc USEEIOv2.0 --demand -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case demandFile != "" && demandID != "":
				return fmt.Errorf("--demand and --demand-id are mutually exclusive")
			case demandFile == "" && demandID == "":
				return fmt.Errorf("one of --demand or --demand-id is required")
			}
			svc, err := a.loadService(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := svc.Model(cmd.Context(), args[0]); err != nil {
				return err
			}
			req := core.CalculationRequest{DemandID: demandID}
			if demandFile != "" {
				body, err := readInput(cmd.InOrStdin(), demandFile)
				if err != nil {
					return err
				}
				if req, err = httpapi.DecodeCalculationRequest(body); err != nil {
					return err
				}
			}
			if perspective != "" {
				req.Perspective = core.Perspective(perspective)
			}
			res, err := svc.Calculate(cmd.Context(), args[0], req)
			if err != nil {
				return err
			}
			return a.printJSON(res)
		},
	}
	cmd.Flags().StringVar(&demandFile, "demand", "", "Demand JSON file, or - for stdin")
	cmd.Flags().StringVar(&demandID, "demand-id", "", "Stored demand scenario id")
	cmd.Flags().StringVar(&perspective, "perspective", "", "Contribution perspective: direct or final")
	return cmd
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	// #nosec G304 -- the path is an explicit CLI argument
	return os.ReadFile(path)
}

func (a *app) newMatrixCmd() *cobra.Command {
	var row, col string
	cmd := &cobra.Command{
		Use:   "matrix <model> <name>",
		Short: "Print a matrix, or one of its rows or columns, as JSON",
		Long: `Print a numeric matrix (A, B, C, D, L, U) or a data quality matrix
(B_dqi, D_dqi, U_dqi). When both --row and --col are given the column wins.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.loadService(cmd.Context())
			if err != nil {
				return err
			}
			m, err := svc.Model(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := m.HasMatrix(args[1]); err != nil {
				return err
			}
			sel, err := matrix.ParseSelector(row, col)
			if err != nil {
				return err
			}
			view, err := svc.Matrix(cmd.Context(), args[0], args[1], sel)
			if err != nil {
				return err
			}
			return a.printJSON(view.Payload())
		},
	}
	cmd.Flags().StringVar(&row, "row", "", "Row index")
	cmd.Flags().StringVar(&col, "col", "", "Column index")
	return cmd
}
