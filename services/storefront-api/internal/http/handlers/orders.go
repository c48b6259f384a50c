package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"storefront-api/services/storefront-api/internal/http/render"
	"storefront-api/services/storefront-api/internal/repo"
	"storefront-api/shared/pkg/models"
)

// Orders serves /orders. The path segment after /orders is an email for
// GET and an identifier for PUT and DELETE.
type Orders struct {
	Coll repo.Collection
	Log  zerolog.Logger
}

func (h *Orders) Create(w http.ResponseWriter, r *http.Request) {
	doc, err := decodeDocument(w, r)
	if err != nil {
		fail(w, h.Log, repo.CollectionOrders, "insert", err)
		return
	}
	res, err := h.Coll.InsertOne(r.Context(), doc)
	if err != nil {
		fail(w, h.Log, repo.CollectionOrders, "insert", err)
		return
	}
	render.JSON(w, http.StatusOK, res)
}

func (h *Orders) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.Coll.Find(r.Context(), repo.All)
	if err != nil {
		fail(w, h.Log, repo.CollectionOrders, "find", err)
		return
	}
	render.JSON(w, http.StatusOK, docs)
}

func (h *Orders) ListByEmail(w http.ResponseWriter, r *http.Request) {
	email := pathParam(r, "email")
	docs, err := h.Coll.Find(r.Context(), repo.ByField(models.OrderFieldEmail, email))
	if err != nil {
		fail(w, h.Log, repo.CollectionOrders, "find", err)
		return
	}
	render.JSON(w, http.StatusOK, docs)
}

// Ship marks the order shipped. The request body is ignored.
func (h *Orders) Ship(w http.ResponseWriter, r *http.Request) {
	f, err := pathID(r)
	if err != nil {
		fail(w, h.Log, repo.CollectionOrders, "update", err)
		return
	}
	res, err := h.Coll.UpdateOne(r.Context(), f, models.Document{models.OrderFieldStatus: models.OrderStatusShipped}, false)
	if err != nil {
		fail(w, h.Log, repo.CollectionOrders, "update", err)
		return
	}
	render.JSON(w, http.StatusOK, res)
}

func (h *Orders) Delete(w http.ResponseWriter, r *http.Request) {
	f, err := pathID(r)
	if err != nil {
		fail(w, h.Log, repo.CollectionOrders, "delete", err)
		return
	}
	res, err := h.Coll.DeleteOne(r.Context(), f)
	if err != nil {
		fail(w, h.Log, repo.CollectionOrders, "delete", err)
		return
	}
	render.JSON(w, http.StatusOK, res)
}
