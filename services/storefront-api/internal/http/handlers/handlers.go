package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"storefront-api/services/storefront-api/internal/http/render"
	"storefront-api/services/storefront-api/internal/repo"
	"storefront-api/shared/pkg/metrics"
	"storefront-api/shared/pkg/models"
)

// maxBodyBytes is 100KB, the default JSON body limit of express.
const maxBodyBytes = 100 << 10

var errBadBody = errors.New("request body must be a JSON object")

// decodeDocument reads the body as a relaxed extended JSON document. An
// empty body is an empty document.
func decodeDocument(w http.ResponseWriter, r *http.Request) (models.Document, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return models.Document{}, nil
	}

	var doc models.Document
	if err := bson.UnmarshalExtJSON(body, false, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadBody, err)
	}
	if doc == nil {
		doc = models.Document{}
	}
	return doc, nil
}

// pathParam returns the decoded path value. chi routes on RawPath when
// the request carries one, and only then is the value still escaped.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if s, err := url.PathUnescape(v); err == nil {
		return s
	}
	return v
}

func pathID(r *http.Request) (repo.Filter, error) {
	id, err := repo.ParseID(pathParam(r, "id"))
	if err != nil {
		return repo.Filter{}, err
	}
	return repo.ByID(id), nil
}

// fail maps err to a response. Anything that is not a client error is a
// storage failure.
func fail(w http.ResponseWriter, log zerolog.Logger, collection, op string, err error) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, repo.ErrInvalidID), errors.Is(err, errBadBody):
		render.Message(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &tooLarge):
		render.Message(w, http.StatusRequestEntityTooLarge, "request body too large")
	default:
		metrics.StorageError(collection, op)
		log.Error().Err(err).Str("collection", collection).Str("op", op).Msg("storage operation failed")
		render.Message(w, http.StatusInternalServerError, "internal error")
	}
}
