package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/frogworks/storefront/internal/app/domain/commerce"
)

// --- CommerceStore: application keys ----------------------------------------

const keyColumns = `id, application_id, key, type, redeemed, user_id`

func scanKey(row interface{ Scan(...any) error }) (commerce.ApplicationKey, error) {
	var k commerce.ApplicationKey
	err := row.Scan(&k.ID, &k.ApplicationID, &k.Key, &k.Type, &k.Redeemed, &k.UserID)
	return k, err
}

func (s *Store) CreateApplicationKey(ctx context.Context, k commerce.ApplicationKey) (commerce.ApplicationKey, error) {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO application_keys (`+keyColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, k.ID, k.ApplicationID, k.Key, k.Type, k.Redeemed, k.UserID)
	if err != nil {
		return commerce.ApplicationKey{}, mapErr("key", err)
	}
	return k, nil
}

func (s *Store) GetApplicationKey(ctx context.Context, id string) (commerce.ApplicationKey, error) {
	k, err := scanKey(s.q.QueryRowContext(ctx,
		`SELECT `+keyColumns+` FROM application_keys WHERE id = $1`, id))
	if err != nil {
		return commerce.ApplicationKey{}, mapErr("key", err)
	}
	return k, nil
}

func (s *Store) GetApplicationKeyByValue(ctx context.Context, key string) (commerce.ApplicationKey, error) {
	k, err := scanKey(s.q.QueryRowContext(ctx,
		`SELECT `+keyColumns+` FROM application_keys WHERE key = $1`, key))
	if err != nil {
		return commerce.ApplicationKey{}, mapErr("key", err)
	}
	return k, nil
}

func (s *Store) GetApplicationKeyFor(ctx context.Context, userID, applicationID string) (commerce.ApplicationKey, error) {
	k, err := scanKey(s.q.QueryRowContext(ctx, `
		SELECT `+keyColumns+` FROM application_keys
		WHERE user_id = $1 AND application_id = $2
	`, userID, applicationID))
	if err != nil {
		return commerce.ApplicationKey{}, mapErr("key", err)
	}
	return k, nil
}

func (s *Store) UpdateApplicationKey(ctx context.Context, k commerce.ApplicationKey) (commerce.ApplicationKey, error) {
	result, err := s.q.ExecContext(ctx, `
		UPDATE application_keys
		SET redeemed = $2, user_id = $3
		WHERE id = $1
	`, k.ID, k.Redeemed, k.UserID)
	if err != nil {
		return commerce.ApplicationKey{}, mapErr("key", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return commerce.ApplicationKey{}, mapErr("key", sql.ErrNoRows)
	}
	return k, nil
}

func (s *Store) ListUserApplicationKeys(ctx context.Context, userID string) ([]commerce.ApplicationKey, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+keyColumns+` FROM application_keys
		WHERE user_id = $1
		ORDER BY key
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []commerce.ApplicationKey
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, k)
	}
	return result, rows.Err()
}

func (s *Store) DeleteApplicationKey(ctx context.Context, id string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM application_keys WHERE id = $1`, id)
	if err != nil {
		return mapErr("key", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return mapErr("key", sql.ErrNoRows)
	}
	return nil
}

// --- CommerceStore: IAP records ---------------------------------------------

const iapRecordColumns = `id, iap_id, user_id, application_id, date, acknowledged`

func scanIAPRecord(row interface{ Scan(...any) error }) (commerce.IAPRecord, error) {
	var r commerce.IAPRecord
	err := row.Scan(&r.ID, &r.IAPID, &r.UserID, &r.ApplicationID, &r.Date, &r.Acknowledged)
	return r, err
}

func (s *Store) CreateIAPRecord(ctx context.Context, r commerce.IAPRecord) (commerce.IAPRecord, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO iap_records (`+iapRecordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.ID, r.IAPID, r.UserID, r.ApplicationID, r.Date, r.Acknowledged)
	if err != nil {
		return commerce.IAPRecord{}, mapErr("iap record", err)
	}
	return r, nil
}

func (s *Store) GetIAPRecord(ctx context.Context, id string) (commerce.IAPRecord, error) {
	r, err := scanIAPRecord(s.q.QueryRowContext(ctx,
		`SELECT `+iapRecordColumns+` FROM iap_records WHERE id = $1`, id))
	if err != nil {
		return commerce.IAPRecord{}, mapErr("iap record", err)
	}
	return r, nil
}

func (s *Store) UpdateIAPRecord(ctx context.Context, r commerce.IAPRecord) (commerce.IAPRecord, error) {
	result, err := s.q.ExecContext(ctx, `
		UPDATE iap_records SET acknowledged = $2 WHERE id = $1
	`, r.ID, r.Acknowledged)
	if err != nil {
		return commerce.IAPRecord{}, mapErr("iap record", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return commerce.IAPRecord{}, mapErr("iap record", sql.ErrNoRows)
	}
	return r, nil
}

func (s *Store) ListIAPRecords(ctx context.Context, userID, applicationID string, onlyUnacknowledged bool) ([]commerce.IAPRecord, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+iapRecordColumns+` FROM iap_records
		WHERE user_id = $1
		  AND ($2 = '' OR application_id = $2)
		  AND (NOT $3 OR NOT acknowledged)
		ORDER BY date
	`, userID, applicationID, onlyUnacknowledged)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []commerce.IAPRecord
	for rows.Next() {
		r, err := scanIAPRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// --- CommerceStore: purchases, deposits, transactions -----------------------

const purchaseColumns = `id, application_id, iap_id, user_id, type, source, price, key, date`

func scanPurchase(row interface{ Scan(...any) error }) (commerce.Purchase, error) {
	var p commerce.Purchase
	err := row.Scan(&p.ID, &p.ApplicationID, &p.IAPID, &p.UserID, &p.Type,
		&p.Source, &p.Price, &p.Key, &p.Date)
	return p, err
}

func (s *Store) CreatePurchase(ctx context.Context, p commerce.Purchase) (commerce.Purchase, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO purchases (`+purchaseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, p.ID, p.ApplicationID, p.IAPID, p.UserID, p.Type, p.Source, p.Price, p.Key, p.Date)
	if err != nil {
		return commerce.Purchase{}, mapErr("purchase", err)
	}
	return p, nil
}

func (s *Store) GetPurchase(ctx context.Context, id string) (commerce.Purchase, error) {
	p, err := scanPurchase(s.q.QueryRowContext(ctx,
		`SELECT `+purchaseColumns+` FROM purchases WHERE id = $1`, id))
	if err != nil {
		return commerce.Purchase{}, mapErr("purchase", err)
	}
	return p, nil
}

func (s *Store) GetPurchaseByKey(ctx context.Context, key string) (commerce.Purchase, error) {
	p, err := scanPurchase(s.q.QueryRowContext(ctx,
		`SELECT `+purchaseColumns+` FROM purchases WHERE key = $1`, key))
	if err != nil {
		return commerce.Purchase{}, mapErr("purchase", err)
	}
	return p, nil
}

func (s *Store) CreateDeposit(ctx context.Context, d commerce.Deposit) (commerce.Deposit, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO deposits (id, user_id, amount, source, date)
		VALUES ($1, $2, $3, $4, $5)
	`, d.ID, d.UserID, d.Amount, d.Source, d.Date)
	if err != nil {
		return commerce.Deposit{}, mapErr("deposit", err)
	}
	return d, nil
}

func (s *Store) GetDeposit(ctx context.Context, id string) (commerce.Deposit, error) {
	var d commerce.Deposit
	err := s.q.QueryRowContext(ctx, `
		SELECT id, user_id, amount, source, date FROM deposits WHERE id = $1
	`, id).Scan(&d.ID, &d.UserID, &d.Amount, &d.Source, &d.Date)
	if err != nil {
		return commerce.Deposit{}, mapErr("deposit", err)
	}
	return d, nil
}

func (s *Store) CreateTransaction(ctx context.Context, t commerce.Transaction) (commerce.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, reference, type, date)
		VALUES ($1, $2, $3, $4, $5)
	`, t.ID, t.UserID, t.Reference, t.Type, t.Date)
	if err != nil {
		return commerce.Transaction{}, mapErr("transaction", err)
	}
	return t, nil
}

func scanTransaction(row interface{ Scan(...any) error }) (commerce.Transaction, error) {
	var t commerce.Transaction
	err := row.Scan(&t.ID, &t.UserID, &t.Reference, &t.Type, &t.Date)
	return t, err
}

func (s *Store) GetTransaction(ctx context.Context, id string) (commerce.Transaction, error) {
	t, err := scanTransaction(s.q.QueryRowContext(ctx,
		`SELECT id, user_id, reference, type, date FROM transactions WHERE id = $1`, id))
	if err != nil {
		return commerce.Transaction{}, mapErr("transaction", err)
	}
	return t, nil
}

func (s *Store) GetTransactionByReference(ctx context.Context, reference string) (commerce.Transaction, error) {
	t, err := scanTransaction(s.q.QueryRowContext(ctx,
		`SELECT id, user_id, reference, type, date FROM transactions WHERE reference = $1`, reference))
	if err != nil {
		return commerce.Transaction{}, mapErr("transaction", err)
	}
	return t, nil
}

func (s *Store) ListUserTransactions(ctx context.Context, userID string) ([]commerce.Transaction, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, user_id, reference, type, date FROM transactions
		WHERE user_id = $1
		ORDER BY date DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []commerce.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}
