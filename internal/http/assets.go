package httpapi

import (
	"net/http"

	"siaf-backend/internal/models"
	"siaf-backend/internal/query"
	"siaf-backend/internal/services"
)

type AssetListResponse struct {
	Assets     []models.Asset   `json:"assets"`
	Pagination query.Pagination `json:"pagination"`
}

type AssetResponse struct {
	Message string       `json:"message,omitempty"`
	Asset   models.Asset `json:"asset"`
}

type CategoryListResponse struct {
	Categories []models.AssetCategory `json:"categories"`
}

type CategoryResponse struct {
	Message  string               `json:"message"`
	Category models.AssetCategory `json:"category"`
}

type StatsResponse struct {
	Stats map[string]interface{} `json:"stats"`
}

func (s *Server) ListAssets(w http.ResponseWriter, r *http.Request) {
	assets, pagination, err := services.ListAssets(r.Context(), s.DB, r.URL.Query())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, AssetListResponse{Assets: assets, Pagination: pagination})
}

func (s *Server) GetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	asset, err := services.GetAsset(r.Context(), s.DB, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, AssetResponse{Asset: asset})
}

func (s *Server) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var req services.AssetInput
	if !s.decode(w, r, &req) {
		return
	}
	asset, err := services.CreateAsset(r.Context(), s.DB, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.publish("asset.created", asset.ID, asset.AssetCode, r)
	WriteJSON(w, http.StatusCreated, AssetResponse{Message: "Asset created successfully", Asset: asset})
}

func (s *Server) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req services.AssetInput
	if !s.decode(w, r, &req) {
		return
	}
	asset, err := services.UpdateAsset(r.Context(), s.DB, id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.publish("asset.updated", asset.ID, asset.AssetCode, r)
	WriteJSON(w, http.StatusOK, AssetResponse{Message: "Asset updated successfully", Asset: asset})
}

func (s *Server) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := services.DeactivateAsset(r.Context(), s.DB, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	s.publish("asset.deactivated", id, "", r)
	WriteJSON(w, http.StatusOK, MessageResponse{Message: "Asset deactivated successfully"})
}

func (s *Server) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := services.ListCategories(r.Context(), s.DB)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, CategoryListResponse{Categories: categories})
}

func (s *Server) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req services.CategoryInput
	if !s.decode(w, r, &req) {
		return
	}
	category, err := services.CreateCategory(r.Context(), s.DB, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, CategoryResponse{Message: "Category created successfully", Category: category})
}

func (s *Server) AssetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := services.AssetStats(r.Context(), s.DB)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, StatsResponse{Stats: stats})
}
