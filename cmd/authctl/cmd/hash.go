package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NordCoder/bazaar/internal/auth"
)

var hashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Hash a password read from stdin with PASSWORD_PEPPER",
	Long: `hash reads a single line from stdin and prints its argon2id hash in
the format stored in customers.password_hash. The pepper must match the one the
gateway runs with.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		pepper := os.Getenv("PASSWORD_PEPPER")
		if pepper == "" {
			return errors.New("PASSWORD_PEPPER is not set")
		}
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return errors.New("empty password")
		}

		hasher, err := auth.NewHasher([]byte(pepper), auth.DefaultPasswordConfig())
		if err != nil {
			return err
		}
		encoded, err := hasher.Hash(password)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), encoded)
		return err
	},
}

func init() {
	rootCmd.AddCommand(hashCmd)
}
