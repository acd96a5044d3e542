package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"lakegate/internal/fincalc"
)

// calcRequest is the stdin payload of `lakegate calc`: one operation plus its
// operands.
type calcRequest struct {
	Op      string          `json:"op"`
	Numbers []float64       `json:"numbers,omitempty"`
	Num     float64         `json:"num,omitempty"`
	Den     float64         `json:"den,omitempty"`
	Old     float64         `json:"old,omitempty"`
	FXRows  []fincalc.FXRow `json:"fxRows,omitempty"`
}

func newCalcCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "calc",
		Short: "Run a financial calculation from a JSON request on stdin",
		Long: `Reads one JSON request from stdin and prints the result.

Supported operations:
  {"op":"sum","numbers":[...]}
  {"op":"avg","numbers":[...]}
  {"op":"romi","num":N,"den":D}
  {"op":"deltaPct","old":O,"num":N}
  {"op":"aggregateRevenue","fxRows":[{"amount":..,"currency":..,"fxToUSD":..,"kind":..}]}`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			var req calcRequest
			if err := json.Unmarshal(raw, &req); err != nil {
				return fmt.Errorf("invalid JSON input: %w", err)
			}

			out, err := runCalc(req)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func runCalc(req calcRequest) (map[string]interface{}, error) {
	switch req.Op {
	case "sum":
		return map[string]interface{}{"result": fincalc.Sum(req.Numbers)}, nil
	case "avg":
		return map[string]interface{}{"result": fincalc.Avg(req.Numbers)}, nil
	case "romi":
		v, ok := fincalc.ROMI(req.Num, req.Den)
		if !ok {
			return map[string]interface{}{"result": nil}, nil
		}
		return map[string]interface{}{"result": v}, nil
	case "deltaPct":
		v, ok := fincalc.DeltaPct(req.Old, req.Num)
		if !ok {
			return map[string]interface{}{
				"result": nil,
				"note":   "old == 0 makes percentage change undefined, use the absolute delta",
			}, nil
		}
		return map[string]interface{}{"result": v}, nil
	case "aggregateRevenue":
		summary := fincalc.AggregateRevenue(req.FXRows)
		return map[string]interface{}{
			"result":    summary.Result,
			"breakdown": summary.Breakdown,
		}, nil
	default:
		return nil, fmt.Errorf("unknown operation: %s", req.Op)
	}
}
