package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/models"
	"storefront/internal/services"
	"storefront/internal/session"

	"github.com/shopspring/decimal"
)

const adminPath = "/products/admin"

type ProductHandler struct {
	Base
	productService *services.ProductService
	uploads        *services.UploadService
	maxUploadBytes int64
}

func NewProductHandler(db *sql.DB, uploads *services.UploadService, maxUploadBytes int64, base Base) *ProductHandler {
	return &ProductHandler{
		Base:           base,
		productService: services.NewProductService(db, base.Logger),
		uploads:        uploads,
		maxUploadBytes: maxUploadBytes,
	}
}

type productForm struct {
	Action      string
	Name        string
	Description string
	Price       string
	Stock       string
	Image       string
}

func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, "products.html", "Products")
}

func (h *ProductHandler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	h.renderList(w, r, "admin_dashboard.html", "Manage products")
}

func (h *ProductHandler) renderList(w http.ResponseWriter, r *http.Request, page, title string) {
	products, err := h.productService.ListProducts(r.Context())
	if err != nil {
		h.serverError(w, r, err, "Could not load products.")
		return
	}
	h.render(w, r, http.StatusOK, page, title, struct{ Products []*models.Product }{products})
}

func (h *ProductHandler) AddForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "product_form.html", "Add product", productForm{Action: adminPath + "/add", Stock: "0"})
}

func (h *ProductHandler) Add(w http.ResponseWriter, r *http.Request) {
	form := productForm{Action: adminPath + "/add"}

	in, err := h.parseProductForm(w, r, &form)
	if err != nil {
		h.formError(w, r, err, "Add product", form)
		return
	}

	image, created, err := h.saveUpload(r)
	if err != nil {
		h.formError(w, r, err, "Add product", form)
		return
	}

	if _, err := h.productService.CreateProduct(r.Context(), in, image); err != nil {
		if created {
			h.uploads.Discard(*image)
		}
		h.formError(w, r, err, "Add product", form)
		return
	}

	h.redirect(w, r, adminPath, session.Success, "Product added successfully!")
}

func (h *ProductHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	product, ok := h.loadProduct(w, r)
	if !ok {
		return
	}

	h.render(w, r, http.StatusOK, "product_form.html", "Edit product", productForm{
		Action:      fmt.Sprintf("%s/edit/%d", adminPath, product.ID),
		Name:        product.Name,
		Description: product.Description,
		Price:       product.Price.StringFixed(2),
		Stock:       strconv.Itoa(product.Stock),
		Image:       product.ImageName(),
	})
}

func (h *ProductHandler) Edit(w http.ResponseWriter, r *http.Request) {
	product, ok := h.loadProduct(w, r)
	if !ok {
		return
	}
	form := productForm{
		Action: fmt.Sprintf("%s/edit/%d", adminPath, product.ID),
		Image:  product.ImageName(),
	}

	in, err := h.parseProductForm(w, r, &form)
	if err != nil {
		h.formError(w, r, err, "Edit product", form)
		return
	}

	image := product.Image
	newImage, created, err := h.saveUpload(r)
	if err != nil {
		h.formError(w, r, err, "Edit product", form)
		return
	}
	if newImage != nil {
		image = newImage
	}

	if err := h.productService.UpdateProduct(r.Context(), product.ID, in, image); err != nil {
		if created {
			h.uploads.Discard(*newImage)
		}
		if errors.Is(err, services.ErrNotFound) {
			h.redirect(w, r, adminPath, session.Danger, "Product not found!")
			return
		}
		h.formError(w, r, err, "Edit product", form)
		return
	}

	h.redirect(w, r, adminPath, session.Success, "Product updated successfully!")
}

func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.redirect(w, r, adminPath, session.Danger, "Product not found!")
		return
	}

	err := h.productService.DeleteProduct(r.Context(), id)
	switch {
	case err == nil:
		h.redirect(w, r, adminPath, session.Success, "Product deleted.")
	case errors.Is(err, services.ErrNotFound):
		h.redirect(w, r, adminPath, session.Danger, "Product not found!")
	default:
		h.Logger.Error().Err(err).Int("product_id", id).Msg("Error deleting product")
		http.Error(w, "An error occurred while deleting the product.", http.StatusInternalServerError)
	}
}

func (h *ProductHandler) loadProduct(w http.ResponseWriter, r *http.Request) (*models.Product, bool) {
	id, ok := pathID(r)
	if !ok {
		h.redirect(w, r, adminPath, session.Danger, "Product not found!")
		return nil, false
	}

	product, err := h.productService.GetProduct(r.Context(), id)
	if errors.Is(err, services.ErrNotFound) {
		h.redirect(w, r, adminPath, session.Danger, "Product not found!")
		return nil, false
	}
	if err != nil {
		h.serverError(w, r, err, "Could not load the product.")
		return nil, false
	}
	return product, true
}

// parseProductForm reads the admin form, echoing raw values into form so a
// rejected submission can be shown again.
func (h *ProductHandler) parseProductForm(w http.ResponseWriter, r *http.Request, form *productForm) (*models.ProductInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, fmt.Errorf("%w: the upload is too large", services.ErrValidation)
		}
		return nil, fmt.Errorf("%w: malformed form", services.ErrValidation)
	}

	form.Name = strings.TrimSpace(r.FormValue("name"))
	form.Description = strings.TrimSpace(r.FormValue("description"))
	form.Price = strings.TrimSpace(r.FormValue("price"))
	form.Stock = strings.TrimSpace(r.FormValue("stock"))

	if form.Name == "" || form.Price == "" || form.Stock == "" {
		return nil, fmt.Errorf("%w: name, price and stock are required", services.ErrValidation)
	}

	price, err := decimal.NewFromString(form.Price)
	if err != nil || price.IsNegative() {
		return nil, fmt.Errorf("%w: price must be a non-negative number", services.ErrValidation)
	}
	stock, err := strconv.Atoi(form.Stock)
	if err != nil || stock < 0 {
		return nil, fmt.Errorf("%w: stock must be a non-negative whole number", services.ErrValidation)
	}

	return &models.ProductInput{
		Name:        form.Name,
		Description: form.Description,
		Price:       price.Round(2),
		Stock:       stock,
	}, nil
}

// saveUpload stores the optional "image" file. A nil name means no file was sent.
func (h *ProductHandler) saveUpload(r *http.Request) (*string, bool, error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: unreadable image upload", services.ErrValidation)
	}
	defer file.Close()

	if header.Filename == "" {
		return nil, false, nil
	}

	name, created, err := h.uploads.SaveImage(header.Filename, file)
	if err != nil {
		return nil, false, err
	}
	return &name, created, nil
}

func (h *ProductHandler) formError(w http.ResponseWriter, r *http.Request, err error, title string, form productForm) {
	s := session.FromContext(r.Context())
	if errors.Is(err, services.ErrValidation) {
		s.AddFlash(session.Warning, validationMessage(err))
		h.render(w, r, http.StatusBadRequest, "product_form.html", title, form)
		return
	}

	h.Logger.Error().Err(err).Str("title", title).Msg("Product form submission failed")
	s.AddFlash(session.Danger, "The product could not be saved. Please try again.")
	h.render(w, r, http.StatusInternalServerError, "product_form.html", title, form)
}

// validationMessage strips the sentinel prefix from a validation error.
func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), services.ErrValidation.Error()+": ")
	if msg == "" {
		return "Invalid input."
	}
	return strings.ToUpper(msg[:1]) + msg[1:] + "."
}
