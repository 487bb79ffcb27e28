package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ivanov2024/Inventory-managment-microservice/internal/application/dto"
	"github.com/ivanov2024/Inventory-managment-microservice/internal/domain"
)

func newHistoryCmd() *cobra.Command {
	var page dto.PageRequest

	cmd := &cobra.Command{
		Use:   "history <product-id>",
		Short: "Muestra los movimientos de un producto, del más reciente al más antiguo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProductID(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			e, err := openEnv(ctx, nil)
			if err != nil {
				return err
			}
			defer e.close()

			product, err := e.products.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if product == nil {
				return fmt.Errorf("producto %d: %w", id, domain.ErrNotFound)
			}
			txs, err := e.ledger.ListTransactions(ctx, id, page)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderHistory(product, txs))
			return nil
		},
	}

	cmd.Flags().IntVar(&page.Limit, "limit", 50, "Máximo de movimientos (0 = todos)")
	cmd.Flags().IntVar(&page.Offset, "offset", 0, "Movimientos a omitir")
	return cmd
}

func parseProductID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("id de producto inválido: %q", s)
	}
	return id, nil
}
