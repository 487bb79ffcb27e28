package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	infrapdf "github.com/ivanov2024/Inventory-managment-microservice/internal/infrastructure/pdf"
)

func newReportCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "report <product-id> --out kardex.pdf",
		Short: "Genera la tarjeta de stock (kardex) de un producto en PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProductID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			e, err := openEnv(ctx, infrapdf.NewMarotoPDFGenerator())
			if err != nil {
				return err
			}
			defer e.close()

			pdf, err := e.stockCard.Render(ctx, id)
			if err != nil {
				return err
			}
			if out == "" {
				out = fmt.Sprintf("kardex-%d.pdf", id)
			}
			if err := os.WriteFile(out, pdf, 0o644); err != nil {
				return fmt.Errorf("escribir %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "kardex guardado en %s (%d bytes)\n", out, len(pdf))
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Archivo de salida (por defecto kardex-<id>.pdf)")
	return cmd
}
