package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivanov2024/Inventory-managment-microservice/pkg/jwt"
)

func newTokenCmd() *cobra.Command {
	var (
		user    string
		role    string
		minutes int
	)

	cmd := &cobra.Command{
		Use:   "token --user <id> --role <admin|bodeguero|consulta>",
		Short: "Emite un JWT firmado con JWT_SECRET para un operador",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.JWT.Secret == "" {
				return errors.New("JWT_SECRET no está definido")
			}
			switch role {
			case jwt.RoleAdmin, jwt.RoleBodeguero, jwt.RoleConsulta:
			default:
				return fmt.Errorf("rol desconocido %q", role)
			}
			if minutes <= 0 {
				minutes = cfg.JWT.Expiration
			}

			token, err := jwt.Generate(cfg.JWT.Secret, user, role, cfg.JWT.Issuer, minutes)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Identificador del operador")
	cmd.Flags().StringVar(&role, "role", jwt.RoleConsulta, "Rol: admin, bodeguero o consulta")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "Vigencia en minutos (por defecto JWT_EXPIRATION_MINUTES)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
