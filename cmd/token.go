package cmd

import (
	"fmt"

	"github.com/sinekal/Taxiye-EIMS-Integration/src/config"
	"github.com/sinekal/Taxiye-EIMS-Integration/src/security"
	"github.com/spf13/cobra"
)

var tokenFlags struct {
	subject string
	role    string
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API token for the Taxiye platform or an operator",
	Example: `  taxiye-eims token --subject taxiye-platform --role webhook
  taxiye-eims token --subject finance@taxiye.com --role operator`,
	RunE: func(cmd *cobra.Command, args []string) error {
		auth := security.NewAuthService(config.Cfg.JWTSecret, config.Cfg.APITokenExpiry)
		tok, err := auth.GenerateToken(tokenFlags.subject, tokenFlags.role)
		if err != nil {
			return err
		}
		fmt.Println(tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenFlags.subject, "subject", "", "client name recorded in the token")
	tokenCmd.Flags().StringVar(&tokenFlags.role, "role", security.RoleWebhook, "webhook or operator")
	rootCmd.AddCommand(tokenCmd)
}
