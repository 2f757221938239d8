package main

import (
	"os"

	sdkerrors "cosmossdk.io/errors"

	"github.com/paw-chain/oracle-feeder/cmd/feederd/cmd"
	"github.com/paw-chain/oracle-feeder/pkg/types"
)

func main() {
	rootCmd := cmd.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		// Misconfiguration exits 1; runtime failures past startup exit 2.
		if sdkerrors.IsOf(err, types.ErrConfig, types.ErrCredentials) {
			os.Exit(1)
		}
		os.Exit(2)
	}
}
