package handlers

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"storefront-api/services/storefront-api/internal/http/render"
	"storefront-api/services/storefront-api/internal/repo"
	"storefront-api/shared/pkg/models"
)

type Users struct {
	Coll repo.Collection
	Log  zerolog.Logger
}

type adminStatus struct {
	Admin bool `json:"admin"`
}

// Create inserts the body as is. Emails are not checked for uniqueness.
func (h *Users) Create(w http.ResponseWriter, r *http.Request) {
	doc, err := decodeDocument(w, r)
	if err != nil {
		fail(w, h.Log, repo.CollectionUsers, "insert", err)
		return
	}
	res, err := h.Coll.InsertOne(r.Context(), doc)
	if err != nil {
		fail(w, h.Log, repo.CollectionUsers, "insert", err)
		return
	}
	render.JSON(w, http.StatusOK, res)
}

// MakeAdmin upserts role=admin for body.email. It must sit behind
// auth.RequireAdmin.
func (h *Users) MakeAdmin(w http.ResponseWriter, r *http.Request) {
	doc, err := decodeDocument(w, r)
	if err != nil {
		fail(w, h.Log, repo.CollectionUsers, "update", err)
		return
	}
	email, ok := doc[models.UserFieldEmail].(string)
	if !ok || email == "" {
		fail(w, h.Log, repo.CollectionUsers, "update", fmt.Errorf("%w: email is required", errBadBody))
		return
	}

	res, err := h.Coll.UpdateOne(r.Context(),
		repo.ByField(models.UserFieldEmail, email),
		models.Document{models.UserFieldRole: models.RoleAdmin},
		true)
	if err != nil {
		fail(w, h.Log, repo.CollectionUsers, "update", err)
		return
	}
	h.Log.Info().Str("email", email).Msg("user promoted to admin")
	render.JSON(w, http.StatusOK, res)
}

// AdminStatus reports whether the first user stored under the email is an
// admin. An unknown email is simply not an admin.
func (h *Users) AdminStatus(w http.ResponseWriter, r *http.Request) {
	user, err := h.Coll.FindOne(r.Context(), repo.ByField(models.UserFieldEmail, pathParam(r, "email")))
	if err != nil {
		fail(w, h.Log, repo.CollectionUsers, "find_one", err)
		return
	}
	render.JSON(w, http.StatusOK, adminStatus{Admin: models.IsAdmin(user)})
}
