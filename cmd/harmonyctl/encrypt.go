package main

import (
	"fmt"
	"os"

	"github.com/Priya8975/harmony-node/internal/credential"
	"github.com/Priya8975/harmony-node/internal/signature"
	"github.com/spf13/cobra"
)

var nodePublicKey string

// encryptCmd prepares data source registration fields
var encryptCmd = &cobra.Command{
	Use:   "encrypt <value>...",
	Short: "Encrypt values with the node's public key for a data source registration",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(nodePublicKey)
		if err != nil {
			return fmt.Errorf("reading public key: %w", err)
		}
		pub, err := signature.ParsePublicKey(data)
		if err != nil {
			return err
		}

		for _, v := range args {
			enc, err := credential.EncryptForNode(pub, v)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), enc)
		}
		return nil
	},
}

func init() {
	encryptCmd.Flags().StringVar(&nodePublicKey, "public-key", "credentials/public-key.pem", "node public key (PEM)")
	rootCmd.AddCommand(encryptCmd)
}
