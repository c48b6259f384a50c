package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"storefront-api/services/storefront-api/internal/http/render"
	"storefront-api/services/storefront-api/internal/repo"
)

type Products struct {
	Coll repo.Collection
	Log  zerolog.Logger
}

func (h *Products) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.Coll.Find(r.Context(), repo.All)
	if err != nil {
		fail(w, h.Log, repo.CollectionProducts, "find", err)
		return
	}
	render.JSON(w, http.StatusOK, docs)
}

// Get answers 200 with null for an unknown id.
func (h *Products) Get(w http.ResponseWriter, r *http.Request) {
	f, err := pathID(r)
	if err != nil {
		fail(w, h.Log, repo.CollectionProducts, "find_one", err)
		return
	}
	doc, err := h.Coll.FindOne(r.Context(), f)
	if err != nil {
		fail(w, h.Log, repo.CollectionProducts, "find_one", err)
		return
	}
	render.JSON(w, http.StatusOK, doc)
}

func (h *Products) Create(w http.ResponseWriter, r *http.Request) {
	doc, err := decodeDocument(w, r)
	if err != nil {
		fail(w, h.Log, repo.CollectionProducts, "insert", err)
		return
	}
	res, err := h.Coll.InsertOne(r.Context(), doc)
	if err != nil {
		fail(w, h.Log, repo.CollectionProducts, "insert", err)
		return
	}
	render.JSON(w, http.StatusOK, res)
}

func (h *Products) Delete(w http.ResponseWriter, r *http.Request) {
	f, err := pathID(r)
	if err != nil {
		fail(w, h.Log, repo.CollectionProducts, "delete", err)
		return
	}
	res, err := h.Coll.DeleteOne(r.Context(), f)
	if err != nil {
		fail(w, h.Log, repo.CollectionProducts, "delete", err)
		return
	}
	render.JSON(w, http.StatusOK, res)
}
