package httpapi

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/frogworks/storefront/internal/app/domain/photo"
)

func (h *handler) getCloudSave(w http.ResponseWriter, r *http.Request) {
	save, err := h.app.CloudData.Get(r.Context(), currentUser(r).ID, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cloudSaveToView(save))
}

func (h *handler) putCloudSave(w http.ResponseWriter, r *http.Request) {
	data, err := parseJSONField(r, "data")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	save, err := h.app.CloudData.Put(r.Context(), currentUser(r).ID, mux.Vars(r)["id"], data)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cloudSaveToView(save))
}

func (h *handler) deleteCloudSave(w http.ResponseWriter, r *http.Request) {
	if err := h.app.CloudData.Delete(r.Context(), currentUser(r).ID, mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) purgeCloudSaves(w http.ResponseWriter, r *http.Request) {
	app, ok := h.manageableApplication(w, r)
	if !ok {
		return
	}
	if err := h.app.CloudData.PurgeApplication(r.Context(), app.ID); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readPhotoUpload pulls the "photo" part out of a multipart form and stores
// it under the given subfolder.
func (h *handler) readPhotoUpload(r *http.Request, subfolder string) (photo.Photo, error) {
	file, header, err := r.FormFile("photo")
	if err != nil {
		return photo.Photo{}, fmt.Errorf("photo file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return photo.Photo{}, fmt.Errorf("read upload: %w", err)
	}
	return h.app.Photos.Upload(r.Context(), subfolder, header.Filename, data)
}

func (h *handler) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	subfolder := formValue(r, "subfolder")
	p, err := h.readPhotoUpload(r, subfolder)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": p.ID, "filename": p.Filename})
}

func (h *handler) getPhoto(w http.ResponseWriter, r *http.Request) {
	p, data, err := h.app.Photos.Load(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	contentType := mime.TypeByExtension(filepath.Ext(p.Filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *handler) recordPlaySession(w http.ResponseWriter, r *http.Request) {
	length, err := strconv.Atoi(formValue(r, "length"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("length must be numeric seconds"))
		return
	}
	var date time.Time
	if raw := formValue(r, "date"); raw != "" {
		unix, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("date must be a unix timestamp"))
			return
		}
		date = time.Unix(unix, 0).UTC()
	}

	ps, err := h.app.Activity.RecordPlaySession(r.Context(), currentUser(r).ID, formValue(r, "application_id"), length, date)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, playSessionToView(ps))
}

func (h *handler) listPlaySessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.app.Activity.PlaySessions(r.Context(), currentUser(r).ID, r.URL.Query().Get("application_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]playSessionView, 0, len(sessions))
	for _, ps := range sessions {
		views = append(views, playSessionToView(ps))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handler) applicationPlaySessions(w http.ResponseWriter, r *http.Request) {
	app, ok := h.manageableApplication(w, r)
	if !ok {
		return
	}
	sessions, err := h.app.Activity.ApplicationPlaySessions(r.Context(), app.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]playSessionView, 0, len(sessions))
	for _, ps := range sessions {
		views = append(views, playSessionToView(ps))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handler) playtime(w http.ResponseWriter, r *http.Request) {
	applicationID := r.URL.Query().Get("application_id")
	if applicationID == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("application_id is required"))
		return
	}
	total, err := h.app.Activity.Playtime(r.Context(), currentUser(r).ID, applicationID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"seconds": total})
}
