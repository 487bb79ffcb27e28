package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func TestParseProductsCSV(t *testing.T) {
	in := "name,description,price,quantity\n" +
		"Teclado, mecánico,49.90,10\n" +
		"Mouse,,15,\n"

	rows, err := parseProductsCSV(strings.NewReader(in), false)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Teclado", rows[0].Name)
	assert.Equal(t, "mecánico", rows[0].Description)
	assert.True(t, decimal.RequireFromString("49.90").Equal(rows[0].Price))
	assert.Equal(t, int64(10), rows[0].InitialQuantity)

	assert.Equal(t, "Mouse", rows[1].Name)
	assert.Equal(t, int64(0), rows[1].InitialQuantity, "cantidad vacía equivale a cero")
}

func TestParseProductsCSV_ColumnasEnOtroOrden(t *testing.T) {
	in := "\ufeffPrice,Name\n10,Cable\n"

	rows, err := parseProductsCSV(strings.NewReader(in), false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Cable", rows[0].Name)
}

func TestParseProductsCSV_Latin1(t *testing.T) {
	utf8 := "name,price\nCafé tostado,12.5\n"
	encoded, err := charmap.ISO8859_1.NewEncoder().String(utf8)
	require.NoError(t, err)

	rows, err := parseProductsCSV(strings.NewReader(encoded), true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Café tostado", rows[0].Name)
}

func TestParseProductsCSV_Errores(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"vacío", ""},
		{"sin columna price", "name,quantity\nA,1\n"},
		{"precio inválido", "name,price\nA,gratis\n"},
		{"cantidad inválida", "name,price,quantity\nA,1,mucho\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseProductsCSV(strings.NewReader(tc.in), false)
			assert.Error(t, err)
		})
	}
}

func TestSeedCmd_Memoria(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("LOG_LEVEL", "error")

	path := filepath.Join(t.TempDir(), "productos.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,price,quantity\nTeclado,49.90,10\nMonitor,300,0\n"), 0o600))

	var out bytes.Buffer
	cmd := NewRootCmdForTest()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"seed", "--file", path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "2 productos creados, 0 con error")
}

func TestSeedCmd_FilaInvalida_RetornaError(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("LOG_LEVEL", "error")

	path := filepath.Join(t.TempDir(), "productos.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,price\nOk producto,1\nX,1\n"), 0o600))

	var out, errOut bytes.Buffer
	cmd := NewRootCmdForTest()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"seed", "--file", path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, out.String(), "1 productos creados, 1 con error")
	assert.Contains(t, errOut.String(), "fila 3")
}
