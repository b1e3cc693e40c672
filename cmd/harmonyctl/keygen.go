package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Priya8975/harmony-node/internal/signature"
	"github.com/spf13/cobra"
)

var (
	keyDir  string
	keyBits int
	keyOver bool
)

// keygenCmd writes a fresh node key pair
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate the node's RSA key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		privPath, pubPath, err := writeKeyPair(keyDir, keyBits, keyOver)
		if err != nil {
			return err
		}
		logger.Info("key pair written", "private_key", privPath, "public_key", pubPath, "bits", keyBits)
		return nil
	},
}

func init() {
	keygenCmd.Flags().StringVar(&keyDir, "dir", "credentials", "output directory")
	keygenCmd.Flags().IntVar(&keyBits, "bits", 2048, "RSA modulus size")
	keygenCmd.Flags().BoolVar(&keyOver, "force", false, "overwrite existing keys")
	rootCmd.AddCommand(keygenCmd)
}

func writeKeyPair(dir string, bits int, overwrite bool) (string, string, error) {
	privPath := filepath.Join(dir, "private-key.pem")
	pubPath := filepath.Join(dir, "public-key.pem")

	if !overwrite {
		if _, err := os.Stat(privPath); err == nil {
			return "", "", fmt.Errorf("%s already exists, use --force to replace it", privPath)
		}
	}

	privPEM, pubPEM, err := signature.GenerateKeyPair(bits)
	if err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", "", fmt.Errorf("creating %s: %w", dir, err)
	}
	if err := os.WriteFile(privPath, []byte(privPEM), 0o600); err != nil {
		return "", "", fmt.Errorf("writing private key: %w", err)
	}
	if err := os.WriteFile(pubPath, []byte(pubPEM), 0o644); err != nil {
		return "", "", fmt.Errorf("writing public key: %w", err)
	}
	return privPath, pubPath, nil
}
