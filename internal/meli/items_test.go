package meli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractItemsWrappedResults(t *testing.T) {
	body := []byte(`{"results":[
		{"id":"MLC111","title":"X","price":10,"currency_id":"CLP","permalink":"https://x","seller":{"id":555}},
		{"id":222,"title":"Y"}
	]}`)

	items := ExtractItems(body)
	require.Len(t, items, 2)

	require.Equal(t, "MLC111", items[0].ID)
	require.Equal(t, "X", *items[0].Str("title"))
	require.Equal(t, float64(10), *items[0].Num("price"))
	require.Equal(t, "CLP", *items[0].Str("currency_id"))
	require.Equal(t, "555", *items[0].SellerID())
	require.JSONEq(t, `{"id":"MLC111","title":"X","price":10,"currency_id":"CLP","permalink":"https://x","seller":{"id":555}}`, string(items[0].Raw))

	// numeric ids normalize to their decimal string
	require.Equal(t, "222", items[1].ID)
	require.Nil(t, items[1].Num("price"))
}

func TestExtractItemsBareIDArray(t *testing.T) {
	items := ExtractItems([]byte(`["MLC999","MLC888"]`))
	require.Len(t, items, 2)
	require.Equal(t, "MLC999", items[0].ID)
	require.Nil(t, items[0].Record)
	require.Nil(t, items[0].Str("title"))
	require.Nil(t, items[0].SellerID())
	require.Equal(t, `"MLC999"`, string(items[0].Raw))
}

func TestExtractItemsDegenerateShapes(t *testing.T) {
	cases := map[string]string{
		"empty object":   `{}`,
		"empty results":  `{"results":[]}`,
		"empty array":    `[]`,
		"malformed json": `{"results":`,
		"scalar":         `42`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			require.Empty(t, ExtractItems([]byte(body)))
		})
	}
}

func TestExtractItemsSkipsElementsWithoutID(t *testing.T) {
	items := ExtractItems([]byte(`{"results":[{"title":"no id"},{"id":"MLC1"},""]}`))
	require.Len(t, items, 1)
	require.Equal(t, "MLC1", items[0].ID)
}

func TestSellerIDFallsBackToFlatField(t *testing.T) {
	items := ExtractItems([]byte(`[{"id":"MLC1","seller_id":"777"}]`))
	require.Len(t, items, 1)
	require.Equal(t, "777", *items[0].SellerID())
}
