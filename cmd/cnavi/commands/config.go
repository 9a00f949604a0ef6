package commands

import (
	"fmt"

	"cnavi/internal/chrono"
	"cnavi/internal/keychain"
	"cnavi/lib/platforms/cnavi"
	"cnavi/lib/serviceutil"

	"github.com/spf13/cobra"
)

var configEmail *string
var configPassword *string

func init() {
	configEmail = configCmd.Flags().String("email", "", "The email to log in with, prompted for when empty.")
	configPassword = configCmd.Flags().String("password", "", "The password to log in with, prompted for when empty.")
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config [--email <email>] [--password <password>]",
	Short: "Stores the credentials used to log in.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		database := openDB(cfg)
		defer database.Close()

		prompt := newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
		creds := cnavi.Credentials{
			Identifier: *configEmail,
			Secret:     *configPassword,
		}
		var err error
		if creds.Identifier == "" {
			creds.Identifier, err = prompt.Line("Email: ")
			if err != nil {
				serviceutil.Fatal("failed to read email", err)
			}
		}
		if creds.Secret == "" {
			creds.Secret, err = prompt.Password("Password: ")
			if err != nil {
				serviceutil.Fatal("failed to read password", err)
			}
		}

		err = keychain.New(database, chrono.NewStandardTime()).Set(cmd.Context(), creds)
		if err != nil {
			serviceutil.Fatal("failed to save credentials", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved credentials for %s\n", creds.Identifier)
	},
}
