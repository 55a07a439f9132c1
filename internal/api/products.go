// ABOUTME: HTTP handlers for product management under an organization.
// ABOUTME: Listing filters by the caller's visible product set.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/complyhub/complyhub/internal/authz"
	"github.com/complyhub/complyhub/internal/hierarchy"
	"github.com/complyhub/complyhub/internal/store"
)

// productBody is the JSON request body for POST and PATCH product routes.
type productBody struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// productResponseBody is the JSON response body for product routes.
type productResponseBody struct {
	ProductID   int64  `json:"product_id"`
	OrgID       int64  `json:"org_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func productResponse(p *store.Product) productResponseBody {
	return productResponseBody{
		ProductID:   p.ID,
		OrgID:       p.OrganizationID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}

// listProductsHandler handles GET /api/v1/orgs/{org_id}/products.
// The route carries no permission middleware: a caller holding only a
// product-level grant must still be able to enumerate the products it can
// read, so visibility is decided per product here. A caller with no
// visibility of the organization at all gets 404.
func (srv *Server) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(ctxUserID).(uuid.UUID)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	rawOrg := chi.URLParam(r, "org_id")
	orgNum, err := strconv.ParseInt(rawOrg, 10, 64)
	if err != nil {
		http.Error(w, "invalid org_id", http.StatusBadRequest)
		return
	}
	orgID, err := srv.authz.Resolve(r.Context(), authz.Ref{Level: hierarchy.LevelOrganization, ID: orgNum})
	if err != nil {
		slog.ErrorContext(r.Context(), "resolve org", "id", orgNum, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !orgID.IsValid() {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	perms, err := srv.authz.ResolvePermissions(r.Context(), userID,
		authz.RequireProductPermissions(authz.ProductRead))
	if err != nil {
		slog.ErrorContext(r.Context(), "resolve permissions", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !perms.Has(orgID) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	scope := listScope(perms, hierarchy.LevelProduct, orgID)
	products, err := srv.store.ListProducts(r.Context(), orgID.Organization(), scope)
	if err != nil {
		slog.ErrorContext(r.Context(), "list products", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]productResponseBody, 0, len(products))
	for i := range products {
		out = append(out, productResponse(&products[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// createProductHandler handles POST /api/v1/orgs/{org_id}/products.
func (srv *Server) createProductHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := r.Context().Value(ctxHierarchyID).(hierarchy.ID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var req productBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	product, err := srv.store.CreateProduct(r.Context(), id.Organization(), req.Name, req.Description)
	if err != nil {
		slog.ErrorContext(r.Context(), "create product", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, productResponse(product))
}

// getProductHandler handles GET /api/v1/products/{product_id}.
func (srv *Server) getProductHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := r.Context().Value(ctxHierarchyID).(hierarchy.ID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	product, err := srv.store.GetProduct(r.Context(), id.Product())
	if err != nil {
		slog.ErrorContext(r.Context(), "get product", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if product == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, productResponse(product))
}

// updateProductHandler handles PATCH /api/v1/products/{product_id}.
func (srv *Server) updateProductHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := r.Context().Value(ctxHierarchyID).(hierarchy.ID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	var req productBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	product, err := srv.store.UpdateProduct(r.Context(), id.Product(), req.Name, req.Description)
	if err != nil {
		slog.ErrorContext(r.Context(), "update product", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if product == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, productResponse(product))
}

// deleteProductHandler handles DELETE /api/v1/products/{product_id}.
func (srv *Server) deleteProductHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := r.Context().Value(ctxHierarchyID).(hierarchy.ID)
	if !ok {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	deleted, err := srv.store.DeleteProduct(r.Context(), id.Product())
	if err != nil {
		slog.ErrorContext(r.Context(), "delete product", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !deleted {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
