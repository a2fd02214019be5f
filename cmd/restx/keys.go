package main

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/aretw0/restx/pkg/adapters/redis"
	"github.com/aretw0/restx/pkg/signature"
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage the session signature key shared through Redis",
}

var keysSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Publish a signature key",
	Long: `Publishes the session signature key read by every server configured with the
same Redis address. Without --value a random key is generated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := keyStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		value, _ := cmd.Flags().GetString("value")
		size, _ := cmd.Flags().GetInt("size")
		ifAbsent, _ := cmd.Flags().GetBool("if-absent")

		var key signature.Key
		if value != "" {
			key = signature.NewKey([]byte(value))
			err = store.Publish(cmd.Context(), key)
		} else {
			if size < 16 {
				return fmt.Errorf("key size must be at least 16 bytes, got %d", size)
			}
			key, err = store.Generate(cmd.Context(), size, ifAbsent)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "signature key published (fingerprint %s)\n", fingerprint(key))
		return nil
	},
}

var keysShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the fingerprint of the published signature key",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := keyStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		key, err := store.Load(cmd.Context())
		if errors.Is(err, redis.ErrKeyNotFound) {
			fmt.Fprintln(cmd.OutOrStdout(), "no signature key published")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d bytes, fingerprint %s\n", len(key.Bytes()), fingerprint(key))
		return nil
	},
}

func keyStore(cmd *cobra.Command) (*redis.KeyStore, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.RedisAddr == "" {
		return nil, errors.New("redis address is required (RESTX_REDIS_ADDR or redis_addr)")
	}
	return newKeyStore(cfg), nil
}

// fingerprint identifies a key without revealing it.
func fingerprint(key signature.Key) string {
	sum := sha256.Sum256(key.Bytes())
	return hex.EncodeToString(sum[:8])
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysSetCmd, keysShowCmd)

	keysSetCmd.Flags().String("value", "", "Literal key to publish")
	keysSetCmd.Flags().Int("size", 32, "Size in bytes of a generated key")
	keysSetCmd.Flags().Bool("if-absent", false, "Keep the published key if there is one")
}
