package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"storefront-api/services/storefront-api/internal/http/render"
	"storefront-api/services/storefront-api/internal/repo"
)

type Reviews struct {
	Coll repo.Collection
	Log  zerolog.Logger
}

func (h *Reviews) Create(w http.ResponseWriter, r *http.Request) {
	doc, err := decodeDocument(w, r)
	if err != nil {
		fail(w, h.Log, repo.CollectionReviews, "insert", err)
		return
	}
	res, err := h.Coll.InsertOne(r.Context(), doc)
	if err != nil {
		fail(w, h.Log, repo.CollectionReviews, "insert", err)
		return
	}
	render.JSON(w, http.StatusOK, res)
}

func (h *Reviews) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.Coll.Find(r.Context(), repo.All)
	if err != nil {
		fail(w, h.Log, repo.CollectionReviews, "find", err)
		return
	}
	render.JSON(w, http.StatusOK, docs)
}
