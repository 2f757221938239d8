package cmd

import (
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"cosmossdk.io/log"
	"github.com/spf13/cobra"

	"github.com/paw-chain/oracle-feeder/pkg/config"
	"github.com/paw-chain/oracle-feeder/pkg/neorpc"
)

// newStatusCmd queries the on-chain contract state for the configured
// symbols. Useful to verify a deployment without running a cycle.
func newStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Query on-chain prices for the configured symbols",
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := log.NewNopLogger()
			node := neorpc.New(cfg.BatchProcessing.RpcEndpoint, 15*time.Second, logger)

			type symbolStatus struct {
				Symbol     string `json:"symbol"`
				Price      string `json:"price"`
				Timestamp  int64  `json:"timestamp"`
				Confidence int64  `json:"confidence"`
			}
			out := make([]symbolStatus, 0, len(cfg.Symbols))

			for _, symbol := range cfg.Symbols {
				var stack []struct {
					Value string `json:"value"`
				}
				result := struct {
					State string            `json:"state"`
					Stack []json.RawMessage `json:"stack"`
				}{}
				err := node.Call(cobraCmd.Context(), "invokefunction", []any{
					cfg.BatchProcessing.ContractScriptHash,
					"GetPriceData",
					[]neorpc.ContractParameter{{Type: "String", Value: symbol}},
					[]neorpc.Signer{},
				}, &result)
				if err != nil {
					return err
				}

				status := symbolStatus{Symbol: symbol}
				if len(result.Stack) > 0 {
					if err := json.Unmarshal(result.Stack[0], &stack); err == nil && len(stack) >= 3 {
						status.Price = stack[0].Value
						status.Timestamp = parseInt(stack[1].Value)
						status.Confidence = parseInt(stack[2].Value)
					}
				}
				out = append(out, status)
			}

			encoded, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cobraCmd.OutOrStdout(), string(encoded))
			return nil
		},
	}
}

func parseInt(s string) int64 {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return 0
	}
	return n.Int64()
}
