package services

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"storefront/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productColumns = []string{"id", "name", "description", "price", "stock", "image"}

func newTestProductService(t *testing.T) (*ProductService, sqlmock.Sqlmock) {
	db, mock := newMockDB(t)
	return NewProductService(db, zerolog.Nop()), mock
}

func TestListProductsNewestFirst(t *testing.T) {
	svc, mock := newTestProductService(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM products ORDER BY id DESC")).
		WillReturnRows(sqlmock.NewRows(productColumns).
			AddRow(2, "Mug", "Ceramic", "12.50", 4, "mug.png").
			AddRow(1, "Tee", nil, "20.00", 0, nil))

	products, err := svc.ListProducts(context.Background())

	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, 2, products[0].ID)
	assert.Equal(t, "mug.png", products[0].ImageName())
	assert.True(t, decimal.RequireFromString("12.5").Equal(products[0].Price))
	assert.Nil(t, products[1].Image)
	assert.Empty(t, products[1].Description)
}

func TestGetProductNotFound(t *testing.T) {
	svc, mock := newTestProductService(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM products WHERE id = ?")).
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows(productColumns))

	_, err := svc.GetProduct(context.Background(), 99)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateProductInsertsAllFields(t *testing.T) {
	svc, mock := newTestProductService(t)
	image := "mug.png"

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO products (name, description, price, stock, image)")).
		WithArgs("Mug", "Ceramic", sqlmock.AnyArg(), 4, "mug.png").
		WillReturnResult(sqlmock.NewResult(11, 1))

	p, err := svc.CreateProduct(context.Background(), &models.ProductInput{
		Name:        "Mug",
		Description: "Ceramic",
		Price:       decimal.RequireFromString("12.50"),
		Stock:       4,
	}, &image)

	require.NoError(t, err)
	assert.Equal(t, 11, p.ID)
	assert.Equal(t, "mug.png", p.ImageName())
}

func TestCreateProductWithoutImageStoresNull(t *testing.T) {
	svc, mock := newTestProductService(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO products")).
		WithArgs("Mug", "", sqlmock.AnyArg(), 0, nil).
		WillReturnResult(sqlmock.NewResult(12, 1))

	_, err := svc.CreateProduct(context.Background(), &models.ProductInput{Name: "Mug"}, nil)

	require.NoError(t, err)
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newTestProductService(t)

	cases := map[string]models.ProductInput{
		"missing name":   {Price: decimal.NewFromInt(1)},
		"negative price": {Name: "x", Price: decimal.NewFromInt(-1)},
		"negative stock": {Name: "x", Stock: -2},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), &in, nil)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestUpdateProductSingleStatement(t *testing.T) {
	svc, mock := newTestProductService(t)
	image := "old.png"

	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET name = ?, description = ?, price = ?, stock = ?, image = ? WHERE id = ?")).
		WithArgs("Mug v2", "Bigger", sqlmock.AnyArg(), 8, "old.png", 3).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.UpdateProduct(context.Background(), 3, &models.ProductInput{
		Name:        "Mug v2",
		Description: "Bigger",
		Price:       decimal.RequireFromString("14"),
		Stock:       8,
	}, &image)

	require.NoError(t, err)
}

func TestUpdateProductVanishedIsNotFound(t *testing.T) {
	svc, mock := newTestProductService(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET")).
		WithArgs("Mug", "", sqlmock.AnyArg(), 1, nil, 3).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.UpdateProduct(context.Background(), 3, &models.ProductInput{
		Name:  "Mug",
		Price: decimal.RequireFromString("2"),
		Stock: 1,
	}, nil)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProductRemovesCartReferencesInOneTransaction(t *testing.T) {
	svc, mock := newTestProductService(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items WHERE product_id = ?")).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM products WHERE id = ?")).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, svc.DeleteProduct(context.Background(), 5))
}

func TestDeleteProductRollsBackWhenProductDeleteFails(t *testing.T) {
	svc, mock := newTestProductService(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items")).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM products")).
		WillReturnError(errors.New("lock wait timeout"))
	mock.ExpectRollback()

	err := svc.DeleteProduct(context.Background(), 5)

	assert.ErrorIs(t, err, ErrStore)
}

func TestDeleteProductMissingRollsBack(t *testing.T) {
	svc, mock := newTestProductService(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart_items")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM products")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := svc.DeleteProduct(context.Background(), 404)

	assert.ErrorIs(t, err, ErrNotFound)
}
