package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"rental-backend/internal/apperror"
	"rental-backend/internal/middleware"
	"rental-backend/internal/models"
	"rental-backend/pkg/utils"
)

// exposeInternal controls whether 500 responses carry the underlying error.
var exposeInternal bool

// SetExposeInternalErrors is called once at startup, true only in development.
func SetExposeInternalErrors(expose bool) {
	exposeInternal = expose
}

func respondError(w http.ResponseWriter, err error) {
	utils.RespondError(w, err, exposeInternal)
}

// ownerID returns the authenticated owner. Routes using it sit behind
// AuthMiddleware, so a missing id is answered with 401.
func ownerID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, apperror.Auth("Authentication required"))
		return 0, false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || id <= 0 {
		respondError(w, apperror.Validation("Invalid "+name,
			apperror.FieldError{Field: name, Message: "must be a positive integer"}))
		return 0, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter; absent means 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.Validation("Invalid "+name,
			apperror.FieldError{Field: name, Message: "must be an integer"})
	}
	return n, nil
}

// reportFilter reads apartmentId, from and to.
func reportFilter(r *http.Request) (models.ReportFilter, error) {
	q := r.URL.Query()
	filter := models.ReportFilter{From: q.Get("from"), To: q.Get("to")}

	aptID, err := queryInt(r, "apartmentId")
	if err != nil {
		return filter, err
	}
	if aptID > 0 {
		filter.ApartmentID = &aptID
	}
	return filter, nil
}
