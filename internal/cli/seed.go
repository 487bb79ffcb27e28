package cli

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/ivanov2024/Inventory-managment-microservice/internal/application/dto"
)

// Columnas obligatorias del CSV; description y quantity son opcionales.
var requiredSeedColumns = []string{"name", "price"}

func newSeedCmd() *cobra.Command {
	var (
		file   string
		latin1 bool
	)

	cmd := &cobra.Command{
		Use:   "seed --file productos.csv",
		Short: "Crea productos desde un CSV (name,description,price,quantity)",
		Long:  "Crea cada fila como producto; una cantidad mayor que cero queda registrada como movimiento de stock inicial.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("abrir %s: %w", file, err)
			}
			defer f.Close()

			rows, err := parseProductsCSV(f, latin1)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			e, err := openEnv(ctx, nil)
			if err != nil {
				return err
			}
			defer e.close()

			batch := uuid.NewString()
			var failed int
			for i, row := range rows {
				p, err := e.products.Create(ctx, row)
				if err != nil {
					failed++
					e.log.Warn().Err(err).Str("batch_id", batch).Int("fila", i+2).Str("nombre", row.Name).Msg("producto no creado")
					fmt.Fprintf(cmd.ErrOrStderr(), "fila %d (%s): %v\n", i+2, row.Name, err)
					continue
				}
				e.log.Info().Str("batch_id", batch).Int64("product_id", p.ID).Int64("cantidad", p.Quantity).Msg("producto creado")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "lote %s: %d productos creados, %d con error\n", batch, len(rows)-failed, failed)
			if failed > 0 {
				return fmt.Errorf("seed: %d filas con error", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Ruta del CSV de productos")
	cmd.Flags().BoolVar(&latin1, "latin1", false, "El archivo está en ISO-8859-1 en lugar de UTF-8")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// parseProductsCSV lee el encabezado y convierte cada fila en una solicitud de alta.
// Las columnas se ubican por nombre, sin importar el orden.
func parseProductsCSV(r io.Reader, latin1 bool) ([]dto.CreateProductRequest, error) {
	if latin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("csv vacío")
	}
	if err != nil {
		return nil, fmt.Errorf("leer encabezado: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, col := range requiredSeedColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("falta la columna %q", col)
		}
	}

	field := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []dto.CreateProductRequest
	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("fila %d: %w", line, err)
		}

		price, err := decimal.NewFromString(field(rec, "price"))
		if err != nil {
			return nil, fmt.Errorf("fila %d: precio inválido %q", line, field(rec, "price"))
		}
		var qty int64
		if s := field(rec, "quantity"); s != "" {
			qty, err = strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("fila %d: cantidad inválida %q", line, s)
			}
		}
		out = append(out, dto.CreateProductRequest{
			Name:            field(rec, "name"),
			Description:     field(rec, "description"),
			Price:           price,
			InitialQuantity: qty,
		})
	}
	return out, nil
}
