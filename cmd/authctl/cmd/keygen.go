package cmd

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/NordCoder/bazaar/internal/auth"
)

var (
	keyBits    int
	withPepper bool
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate RSA key pairs for access and refresh tokens",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return writeKeys(cmd.OutOrStdout(), keyBits, withPepper)
	},
}

func init() {
	keygenCmd.Flags().IntVar(&keyBits, "bits", 3072, "RSA modulus size")
	keygenCmd.Flags().BoolVar(&withPepper, "pepper", false, "also emit a random PASSWORD_PEPPER")
	rootCmd.AddCommand(keygenCmd)
}

func writeKeys(w io.Writer, bits int, pepper bool) error {
	if bits < 2048 {
		return fmt.Errorf("refusing %d-bit keys, use at least 2048", bits)
	}
	for _, prefix := range []string{"ACCESS", "REFRESH"} {
		priv, pub, err := auth.GenerateKeyPairPEM(bits)
		if err != nil {
			return fmt.Errorf("%s key pair: %w", prefix, err)
		}
		if _, err := fmt.Fprintf(w, "%s_TOKEN_PRIVATE_KEY=%s\n%s_TOKEN_PUBLIC_KEY=%s\n",
			prefix, strconv.Quote(string(priv)), prefix, strconv.Quote(string(pub))); err != nil {
			return err
		}
	}
	if !pepper {
		return nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "PASSWORD_PEPPER=%s\n", base64.RawStdEncoding.EncodeToString(buf))
	return err
}
