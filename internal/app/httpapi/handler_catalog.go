package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/frogworks/storefront/internal/app/domain/catalog"
	"github.com/frogworks/storefront/internal/app/domain/money"
	"github.com/frogworks/storefront/internal/app/services/authz"
	catalogsvc "github.com/frogworks/storefront/internal/app/services/catalog"
)

func (h *handler) listApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.app.Catalog.ListApplications(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]applicationView, 0, len(apps))
	for _, app := range apps {
		views = append(views, applicationToView(app))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handler) createApplication(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	if !authz.IsDeveloper(u) {
		writeError(w, http.StatusForbidden, errForbidden)
		return
	}

	price, err := money.Parse(formValue(r, "price"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	releaseDate, err := parseDate(formValue(r, "release_date"), time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	app, err := h.app.Catalog.CreateApplication(r.Context(), catalogsvc.CreateApplicationParams{
		Name:               formValue(r, "name"),
		PackageName:        formValue(r, "package_name"),
		Type:               formValue(r, "type"),
		Description:        r.FormValue("description"),
		ReleaseDate:        releaseDate,
		EarlyAccess:        formValue(r, "early_access") == "true",
		SupportedPlatforms: splitList(formValue(r, "platforms")),
		Genres:             splitList(formValue(r, "genres")),
		Tags:               splitList(formValue(r, "tags")),
		BasePrice:          price,
		Owners:             []string{u.ID},
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, applicationToView(app))
}

func (h *handler) getApplication(w http.ResponseWriter, r *http.Request) {
	app, err := h.app.Catalog.GetApplication(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, applicationToView(app))
}

// manageableApplication loads the application and checks the caller may
// manage it.
func (h *handler) manageableApplication(w http.ResponseWriter, r *http.Request) (catalog.Application, bool) {
	app, err := h.app.Catalog.GetApplication(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return catalog.Application{}, false
	}
	if !authz.CanManageApplication(currentUser(r), app) {
		writeError(w, http.StatusForbidden, errForbidden)
		return catalog.Application{}, false
	}
	return app, true
}

func (h *handler) addVersion(w http.ResponseWriter, r *http.Request) {
	app, ok := h.manageableApplication(w, r)
	if !ok {
		return
	}
	releaseDate, err := parseDate(formValue(r, "release_date"), time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	v, err := h.app.Catalog.AddVersion(r.Context(), app.ID,
		formValue(r, "name"),
		formValue(r, "platform"),
		formValue(r, "filename"),
		formValue(r, "executable"),
		releaseDate,
	)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, versionToView(v))
}

func (h *handler) setLatestVersion(w http.ResponseWriter, r *http.Request) {
	app, ok := h.manageableApplication(w, r)
	if !ok {
		return
	}
	updated, err := h.app.Catalog.SetLatestVersion(r.Context(), app.ID, formValue(r, "version"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, applicationToView(updated))
}

func (h *handler) listVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.app.Catalog.Versions(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("platform"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]versionView, 0, len(versions))
	for _, v := range versions {
		views = append(views, versionToView(v))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handler) effectivePrice(w http.ResponseWriter, r *http.Request) {
	price, err := h.app.Catalog.EffectivePrice(r.Context(), mux.Vars(r)["id"], time.Now().UTC())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"price": money.Format(price)})
}

func (h *handler) createSale(w http.ResponseWriter, r *http.Request) {
	app, ok := h.manageableApplication(w, r)
	if !ok {
		return
	}

	price, err := money.Parse(formValue(r, "price"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	start, err := parseDate(formValue(r, "start_date"), time.Time{})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	end, err := parseDate(formValue(r, "end_date"), time.Time{})
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sale, err := h.app.Catalog.CreateSale(r.Context(), app.ID,
		formValue(r, "title"), r.FormValue("description"), price, start, end)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saleToView(sale))
}

func (h *handler) deleteSale(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.manageableApplication(w, r); !ok {
		return
	}
	if err := h.app.Catalog.DeleteSale(r.Context(), mux.Vars(r)["saleID"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.app.Catalog.ListSales(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]saleView, 0, len(sales))
	for _, s := range sales {
		views = append(views, saleToView(s))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handler) createIAP(w http.ResponseWriter, r *http.Request) {
	app, ok := h.manageableApplication(w, r)
	if !ok {
		return
	}

	price, err := money.Parse(formValue(r, "price"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	data, err := parseJSONField(r, "data")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	iap, err := h.app.Catalog.CreateIAP(r.Context(), app.ID,
		formValue(r, "title"), r.FormValue("description"), price, data)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, iapToView(iap))
}

func (h *handler) listIAPs(w http.ResponseWriter, r *http.Request) {
	iaps, err := h.app.Catalog.ListIAPs(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]iapView, 0, len(iaps))
	for _, iap := range iaps {
		views = append(views, iapToView(iap))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *handler) createCreatorKeys(w http.ResponseWriter, r *http.Request) {
	app, ok := h.manageableApplication(w, r)
	if !ok {
		return
	}
	count, err := strconv.Atoi(formValue(r, "count"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("count must be numeric"))
		return
	}

	keys, err := h.app.Commerce.CreateCreatorKeys(r.Context(), app.ID, count)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	views := make([]keyView, 0, len(keys))
	for _, k := range keys {
		views = append(views, keyToView(k))
	}
	writeJSON(w, http.StatusCreated, views)
}

func (h *handler) revokeKey(w http.ResponseWriter, r *http.Request) {
	app, ok := h.manageableApplication(w, r)
	if !ok {
		return
	}
	if err := h.app.Commerce.RevokeKey(r.Context(), app.ID, mux.Vars(r)["keyID"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// downloadVersion resolves a build for an entitled user. The response names
// the file; the launcher fetches the bytes out of band.
func (h *handler) downloadVersion(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	vars := mux.Vars(r)
	app, err := h.app.Catalog.GetApplication(r.Context(), vars["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	owned, err := h.app.Commerce.Owns(r.Context(), u.ID, app.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !owned && !authz.CanManageApplication(u, app) {
		writeError(w, http.StatusForbidden, errForbidden)
		return
	}

	v, err := h.app.Catalog.GetVersionByName(r.Context(), app.ID, vars["name"], r.URL.Query().Get("platform"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, versionToView(v))
}

// parseDate reads a YYYY-MM-DD form value. Empty values yield fallback; a
// zero fallback makes the field required.
func parseDate(raw string, fallback time.Time) (time.Time, error) {
	if raw == "" {
		if fallback.IsZero() {
			return time.Time{}, fmt.Errorf("date is required")
		}
		return fallback, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}
