package seed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notrya/storefront/internal/domain/catalog"
)

const fixture = `[
  {"id": 1, "name": "Basic Tee", "price": 49.9, "stock": 10,
   "category": "CAMISETA", "size": "M", "color": "PRETO", "gender": "UNISSEX",
   "brand": "Notrya", "imageUrl": "tee.jpg", "createdAt": "2024-01-02T03:04:05Z"},
  {"id": 2, "name": "Summer Dress", "price": "129.00", "stock": 0,
   "category": "VESTIDO", "size": "P", "color": "AZUL", "gender": "FEMININO",
   "active": false, "unknown": {"nested": [1, 2]}}
]`

func TestDecode(t *testing.T) {
	ps, err := Decode(strings.NewReader(fixture))
	require.NoError(t, err)
	require.Len(t, ps, 2)

	tee := ps[0]
	assert.Equal(t, int64(1), tee.ID)
	assert.Equal(t, "49.90", tee.Price.StringFixed(2))
	assert.Equal(t, catalog.CategoryCamiseta, tee.Category)
	assert.Equal(t, catalog.GenderUnissex, tee.Gender)
	assert.True(t, tee.Active)
	assert.Equal(t, 2024, tee.CreatedAt.Year())

	dress := ps[1]
	assert.Equal(t, "129.00", dress.Price.StringFixed(2))
	assert.False(t, dress.Active)
	assert.False(t, dress.CreatedAt.IsZero())
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "not an array", in: `{}`},
		{name: "missing id", in: `[{"name":"x","price":1,"category":"CAMISETA","size":"M","color":"AZUL","gender":"UNISSEX"}]`, want: "id"},
		{name: "zero price", in: `[{"id":1,"name":"x","price":0,"category":"CAMISETA","size":"M","color":"AZUL","gender":"UNISSEX"}]`, want: "price"},
		{name: "unknown category", in: `[{"id":1,"name":"x","price":1,"category":"HAT","size":"M","color":"AZUL","gender":"UNISSEX"}]`, want: "category"},
		{name: "negative stock", in: `[{"id":1,"name":"x","price":1,"stock":-1,"category":"CAMISETA","size":"M","color":"AZUL","gender":"UNISSEX"}]`, want: "stock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadFileGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(fixture))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	ps, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, ps, 2)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
