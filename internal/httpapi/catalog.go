package httpapi

import (
	"net/http"

	"latiafanny/backend/internal/domain"
)

func (a *API) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := a.service.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, categories)
}

func (a *API) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	category, err := a.service.GetCategory(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, category)
}

func (a *API) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.CategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, err.Error())
		return
	}
	category, err := a.service.CreateCategory(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, category)
}

func (a *API) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req domain.CategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, err.Error())
		return
	}
	category, err := a.service.UpdateCategory(r.Context(), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, category)
}

func (a *API) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.service.DeleteCategory(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, true, "Category deleted successfully")
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.ListProducts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, products)
}

func (a *API) handleProductsByCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, err := pathID(r, "categoryId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	products, err := a.service.ListProductsByCategory(r.Context(), categoryID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, products)
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	product, err := a.service.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, product)
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, err.Error())
		return
	}
	product, err := a.service.CreateProduct(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, product)
}

func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req domain.ProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, err.Error())
		return
	}
	product, err := a.service.UpdateProduct(r.Context(), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, product)
}

func (a *API) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.service.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, true, "Product deleted successfully")
}

func (a *API) handleListInventory(w http.ResponseWriter, r *http.Request) {
	items, err := a.service.ListInventory(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (a *API) handleLowStock(w http.ResponseWriter, r *http.Request) {
	items, err := a.service.ListLowStock(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (a *API) handleOutOfStock(w http.ResponseWriter, r *http.Request) {
	items, err := a.service.ListOutOfStock(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, items)
}

func (a *API) handleGetInventoryItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, err := a.service.GetInventoryItem(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, item)
}

func (a *API) handleCreateInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req domain.InventoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, err.Error())
		return
	}
	item, err := a.service.CreateInventoryItem(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, item)
}

func (a *API) handleUpdateInventoryItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req domain.InventoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, err.Error())
		return
	}
	item, err := a.service.UpdateInventoryItem(r.Context(), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, item)
}

func (a *API) handleDeleteInventoryItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := a.service.DeleteInventoryItem(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, true, "Inventory item deleted successfully")
}
