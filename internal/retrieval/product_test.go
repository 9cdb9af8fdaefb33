package retrieval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnireply-ai/messaging-platform/internal/model"
)

type fakeProductRepo struct {
	products []model.Product
}

func (r *fakeProductRepo) ActiveProducts(ctx context.Context, companyID string) ([]model.Product, error) {
	var out []model.Product
	for _, p := range r.products {
		if p.CompanyID == companyID && p.Active {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestExtractFilters(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  model.ProductFilters
	}{
		{"max price", "something under $50", model.ProductFilters{MaxPrice: 50}},
		{"max price with k suffix", "laptop below 500k", model.ProductFilters{MaxPrice: 500000}},
		{"min price", "phones over 200", model.ProductFilters{MinPrice: 200}},
		{"in stock", "blue shirts in stock", model.ProductFilters{InStockOnly: true}},
		{"spanish max", "algo menos de 30", model.ProductFilters{MaxPrice: 30}},
		{"indonesian max", "sepatu di bawah 100rb", model.ProductFilters{MaxPrice: 100000}},
		{"combined", "shoes under 80 in stock", model.ProductFilters{MaxPrice: 80, InStockOnly: true}},
		{"no filters", "do you have shoes?", model.ProductFilters{}},
		{"malformed never fails", "under $$$,,,", model.ProductFilters{}},
		{"empty", "", model.ProductFilters{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractFilters(tt.query))
		})
	}
}

func TestProductSearch_FiltersAndRanking(t *testing.T) {
	repo := &fakeProductRepo{products: []model.Product{
		{CompanyID: "c1", Name: "Red Shoes", Price: 40, InStock: true, Active: true, Priority: 1},
		{CompanyID: "c1", Name: "Blue Shoes", Price: 90, InStock: true, Active: true, Priority: 5},
		{CompanyID: "c1", Name: "Green Shoes", Price: 60, InStock: false, Active: true, Priority: 3},
		{CompanyID: "c1", Name: "Red Hat", Price: 20, InStock: true, Active: true, Priority: 9},
		{CompanyID: "c1", Name: "Retired Shoes", Price: 10, InStock: true, Active: false, Priority: 9},
		{CompanyID: "c2", Name: "Other Tenant Shoes", Price: 10, InStock: true, Active: true},
	}}
	svc := NewProductService(repo, nil, 0)

	got, err := svc.Search(context.Background(), "c1", "shoes", model.ProductFilters{InStockOnly: true}, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Blue Shoes", got[0].Name, "higher priority ranks first")
	assert.Equal(t, "Red Shoes", got[1].Name)

	got, err = svc.Search(context.Background(), "c1", "shoes", model.ProductFilters{MaxPrice: 50}, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Red Shoes", got[0].Name)
}

func TestProductSearch_Cap(t *testing.T) {
	repo := &fakeProductRepo{}
	for i := 0; i < 10; i++ {
		repo.products = append(repo.products, model.Product{
			CompanyID: "c1", Name: "Widget", InStock: true, Active: true,
		})
	}
	svc := NewProductService(repo, nil, 0)

	got, err := svc.Search(context.Background(), "c1", "widget", model.ProductFilters{}, 0)
	require.NoError(t, err)
	assert.Len(t, got, DefaultProductLimit)
}

func TestHasPurchaseIntent(t *testing.T) {
	svc := NewProductService(&fakeProductRepo{}, nil, 0)

	assert.True(t, svc.HasPurchaseIntent("how much is the blue one?"))
	assert.True(t, svc.HasPurchaseIntent("cuánto cuesta"))
	assert.True(t, svc.HasPurchaseIntent("berapa harga sepatu ini"))
	assert.False(t, svc.HasPurchaseIntent("my package never arrived"))

	// Any text in the window can trip the gate.
	assert.True(t, svc.HasPurchaseIntent("hello", "is it available?"))
}

func TestExpandShortQuery(t *testing.T) {
	svc := NewProductService(&fakeProductRepo{}, nil, 30)

	assert.Equal(t, "I want the leather backpack how much?",
		svc.ExpandShortQuery("how much?", "I want the leather backpack"))

	long := "do you have the waterproof hiking backpack in green"
	assert.Equal(t, long, svc.ExpandShortQuery(long, "ignored context"))

	assert.Equal(t, "how much?", svc.ExpandShortQuery("how much?", ""))
}
