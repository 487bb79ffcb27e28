package docs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag"
)

func TestReadDoc_RegistraRutasDelLedger(t *testing.T) {
	raw, err := swag.ReadDoc(SwaggerInfo.InstanceName())
	require.NoError(t, err)

	var doc struct {
		Paths map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	for _, p := range []string{
		"/products/{id}/stock/increase",
		"/products/{id}/stock/decrease",
		"/products/{id}/stock/transactions",
	} {
		assert.Contains(t, doc.Paths, p)
	}
}
