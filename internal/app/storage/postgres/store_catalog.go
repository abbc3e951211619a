package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/frogworks/storefront/internal/app/domain/catalog"
)

// --- CatalogStore: applications ---------------------------------------------

const applicationColumns = `id, name, package_name, type, description,
	release_date, early_access, latest_version, supported_platforms,
	genres, tags, base_price, owners`

func scanApplication(row interface{ Scan(...any) error }) (catalog.Application, error) {
	var app catalog.Application
	err := row.Scan(&app.ID, &app.Name, &app.PackageName, &app.Type,
		&app.Description, &app.ReleaseDate, &app.EarlyAccess, &app.LatestVersion,
		pq.Array(&app.SupportedPlatforms), pq.Array(&app.Genres),
		pq.Array(&app.Tags), &app.BasePrice, pq.Array(&app.Owners))
	return app, err
}

func (s *Store) CreateApplication(ctx context.Context, app catalog.Application) (catalog.Application, error) {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO applications (`+applicationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, app.ID, app.Name, app.PackageName, app.Type, app.Description,
		app.ReleaseDate, app.EarlyAccess, app.LatestVersion,
		pq.Array(app.SupportedPlatforms), pq.Array(app.Genres),
		pq.Array(app.Tags), app.BasePrice, pq.Array(app.Owners))
	if err != nil {
		return catalog.Application{}, mapErr("application", err)
	}
	return app, nil
}

func (s *Store) UpdateApplication(ctx context.Context, app catalog.Application) (catalog.Application, error) {
	result, err := s.q.ExecContext(ctx, `
		UPDATE applications
		SET name = $2, type = $3, description = $4, release_date = $5,
		    early_access = $6, latest_version = $7, supported_platforms = $8,
		    genres = $9, tags = $10, base_price = $11, owners = $12
		WHERE id = $1
	`, app.ID, app.Name, app.Type, app.Description, app.ReleaseDate,
		app.EarlyAccess, app.LatestVersion, pq.Array(app.SupportedPlatforms),
		pq.Array(app.Genres), pq.Array(app.Tags), app.BasePrice, pq.Array(app.Owners))
	if err != nil {
		return catalog.Application{}, mapErr("application", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return catalog.Application{}, mapErr("application", sql.ErrNoRows)
	}
	return app, nil
}

func (s *Store) GetApplication(ctx context.Context, id string) (catalog.Application, error) {
	app, err := scanApplication(s.q.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id))
	if err != nil {
		return catalog.Application{}, mapErr("application", err)
	}
	return app, nil
}

func (s *Store) GetApplicationByPackage(ctx context.Context, packageName string) (catalog.Application, error) {
	app, err := scanApplication(s.q.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE package_name = $1`, packageName))
	if err != nil {
		return catalog.Application{}, mapErr("application", err)
	}
	return app, nil
}

func (s *Store) ListApplications(ctx context.Context) ([]catalog.Application, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM applications ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []catalog.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, app)
	}
	return result, rows.Err()
}

// --- CatalogStore: versions -------------------------------------------------

const versionColumns = `id, application_id, name, platform, release_date, filename, executable`

func scanVersion(row interface{ Scan(...any) error }) (catalog.Version, error) {
	var v catalog.Version
	err := row.Scan(&v.ID, &v.ApplicationID, &v.Name, &v.Platform,
		&v.ReleaseDate, &v.Filename, &v.Executable)
	return v, err
}

func (s *Store) CreateVersion(ctx context.Context, v catalog.Version) (catalog.Version, error) {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO versions (`+versionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, v.ID, v.ApplicationID, v.Name, v.Platform, v.ReleaseDate, v.Filename, v.Executable)
	if err != nil {
		return catalog.Version{}, mapErr("version", err)
	}
	return v, nil
}

func (s *Store) GetVersion(ctx context.Context, id string) (catalog.Version, error) {
	v, err := scanVersion(s.q.QueryRowContext(ctx,
		`SELECT `+versionColumns+` FROM versions WHERE id = $1`, id))
	if err != nil {
		return catalog.Version{}, mapErr("version", err)
	}
	return v, nil
}

func (s *Store) GetVersionByName(ctx context.Context, applicationID, name, platform string) (catalog.Version, error) {
	v, err := scanVersion(s.q.QueryRowContext(ctx, `
		SELECT `+versionColumns+` FROM versions
		WHERE application_id = $1 AND name = $2 AND ($3 = '' OR platform = $3)
	`, applicationID, name, platform))
	if err != nil {
		return catalog.Version{}, mapErr("version", err)
	}
	return v, nil
}

func (s *Store) ListVersions(ctx context.Context, applicationID string) ([]catalog.Version, error) {
	return s.listVersions(ctx, applicationID, "")
}

func (s *Store) ListVersionsForPlatform(ctx context.Context, applicationID, platform string) ([]catalog.Version, error) {
	return s.listVersions(ctx, applicationID, platform)
}

func (s *Store) listVersions(ctx context.Context, applicationID, platform string) ([]catalog.Version, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+versionColumns+` FROM versions
		WHERE application_id = $1 AND ($2 = '' OR platform = $2)
		ORDER BY release_date
	`, applicationID, platform)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []catalog.Version
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

// --- CatalogStore: sales ----------------------------------------------------

const saleColumns = `id, application_id, title, description, price, start_date, end_date`

func scanSale(row interface{ Scan(...any) error }) (catalog.Sale, error) {
	var sale catalog.Sale
	err := row.Scan(&sale.ID, &sale.ApplicationID, &sale.Title,
		&sale.Description, &sale.Price, &sale.StartDate, &sale.EndDate)
	return sale, err
}

func (s *Store) CreateSale(ctx context.Context, sale catalog.Sale) (catalog.Sale, error) {
	if sale.ID == "" {
		sale.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO sales (`+saleColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, sale.ID, sale.ApplicationID, sale.Title, sale.Description,
		sale.Price, sale.StartDate, sale.EndDate)
	if err != nil {
		return catalog.Sale{}, mapErr("sale", err)
	}
	return sale, nil
}

func (s *Store) GetSale(ctx context.Context, id string) (catalog.Sale, error) {
	sale, err := scanSale(s.q.QueryRowContext(ctx,
		`SELECT `+saleColumns+` FROM sales WHERE id = $1`, id))
	if err != nil {
		return catalog.Sale{}, mapErr("sale", err)
	}
	return sale, nil
}

func (s *Store) DeleteSale(ctx context.Context, id string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return mapErr("sale", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return mapErr("sale", sql.ErrNoRows)
	}
	return nil
}

func (s *Store) ListSales(ctx context.Context, applicationID string) ([]catalog.Sale, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+saleColumns+` FROM sales
		WHERE application_id = $1
		ORDER BY start_date
	`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []catalog.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sale)
	}
	return result, rows.Err()
}

// --- CatalogStore: IAP definitions ------------------------------------------

func (s *Store) CreateIAP(ctx context.Context, iap catalog.IAP) (catalog.IAP, error) {
	if iap.ID == "" {
		iap.ID = uuid.NewString()
	}
	dataJSON, err := json.Marshal(iap.Data)
	if err != nil {
		return catalog.IAP{}, err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO iaps (id, application_id, title, description, price, data)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, iap.ID, iap.ApplicationID, iap.Title, iap.Description, iap.Price, dataJSON)
	if err != nil {
		return catalog.IAP{}, mapErr("iap", err)
	}
	return iap, nil
}

func scanIAP(row interface{ Scan(...any) error }) (catalog.IAP, error) {
	var (
		iap     catalog.IAP
		dataRaw []byte
	)
	if err := row.Scan(&iap.ID, &iap.ApplicationID, &iap.Title,
		&iap.Description, &iap.Price, &dataRaw); err != nil {
		return catalog.IAP{}, err
	}
	if len(dataRaw) > 0 {
		_ = json.Unmarshal(dataRaw, &iap.Data)
	}
	return iap, nil
}

func (s *Store) GetIAP(ctx context.Context, id string) (catalog.IAP, error) {
	iap, err := scanIAP(s.q.QueryRowContext(ctx, `
		SELECT id, application_id, title, description, price, data
		FROM iaps WHERE id = $1
	`, id))
	if err != nil {
		return catalog.IAP{}, mapErr("iap", err)
	}
	return iap, nil
}

func (s *Store) ListIAPs(ctx context.Context, applicationID string) ([]catalog.IAP, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, application_id, title, description, price, data
		FROM iaps WHERE application_id = $1
		ORDER BY title
	`, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []catalog.IAP
	for rows.Next() {
		iap, err := scanIAP(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, iap)
	}
	return result, rows.Err()
}
