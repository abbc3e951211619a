package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/frogworks/storefront/internal/app/domain/activity"
	"github.com/frogworks/storefront/internal/app/domain/clouddata"
	"github.com/frogworks/storefront/internal/app/domain/photo"
	"github.com/frogworks/storefront/internal/app/domain/session"
	"github.com/frogworks/storefront/internal/app/domain/social"
)

// --- SessionStore -----------------------------------------------------------

const sessionColumns = `id, token, user_id, hostname, mac_address, platform, start_date, last_activity`

func scanSession(row interface{ Scan(...any) error }) (session.Session, error) {
	var sess session.Session
	err := row.Scan(&sess.ID, &sess.Token, &sess.UserID, &sess.Hostname,
		&sess.MACAddress, &sess.Platform, &sess.StartDate, &sess.LastActivity)
	return sess, err
}

func (s *Store) CreateSession(ctx context.Context, sess session.Session) (session.Session, error) {
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, sess.ID, sess.Token, sess.UserID, sess.Hostname, sess.MACAddress,
		sess.Platform, sess.StartDate, sess.LastActivity)
	if err != nil {
		return session.Session{}, mapErr("session", err)
	}
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (session.Session, error) {
	sess, err := scanSession(s.q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	if err != nil {
		return session.Session{}, mapErr("session", err)
	}
	return sess, nil
}

func (s *Store) GetSessionByToken(ctx context.Context, token string) (session.Session, error) {
	sess, err := scanSession(s.q.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE token = $1`, token))
	if err != nil {
		return session.Session{}, mapErr("session", err)
	}
	return sess, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return mapErr("session", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return mapErr("session", sql.ErrNoRows)
	}
	return nil
}

func (s *Store) ListUserSessions(ctx context.Context, userID string) ([]session.Session, error) {
	return s.listSessions(ctx, `WHERE user_id = $1`, userID)
}

func (s *Store) ListSessions(ctx context.Context) ([]session.Session, error) {
	return s.listSessions(ctx, ``)
}

func (s *Store) listSessions(ctx context.Context, clause string, args ...any) ([]session.Session, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions `+clause+` ORDER BY start_date`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []session.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sess)
	}
	return result, rows.Err()
}

func (s *Store) UpdateSessionActivity(ctx context.Context, id string, at time.Time) (session.Session, error) {
	result, err := s.q.ExecContext(ctx,
		`UPDATE sessions SET last_activity = $2 WHERE id = $1`, id, at)
	if err != nil {
		return session.Session{}, mapErr("session", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return session.Session{}, mapErr("session", sql.ErrNoRows)
	}
	return s.GetSession(ctx, id)
}

// --- SocialStore ------------------------------------------------------------

func (s *Store) CreateFriendRequest(ctx context.Context, r social.FriendRequest) (social.FriendRequest, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO friend_requests (id, user_id, from_user_id, date)
		VALUES ($1, $2, $3, $4)
	`, r.ID, r.UserID, r.FromUserID, r.Date)
	if err != nil {
		return social.FriendRequest{}, mapErr("friend request", err)
	}
	return r, nil
}

func scanFriendRequest(row interface{ Scan(...any) error }) (social.FriendRequest, error) {
	var r social.FriendRequest
	err := row.Scan(&r.ID, &r.UserID, &r.FromUserID, &r.Date)
	return r, err
}

func (s *Store) GetFriendRequest(ctx context.Context, id string) (social.FriendRequest, error) {
	r, err := scanFriendRequest(s.q.QueryRowContext(ctx,
		`SELECT id, user_id, from_user_id, date FROM friend_requests WHERE id = $1`, id))
	if err != nil {
		return social.FriendRequest{}, mapErr("friend request", err)
	}
	return r, nil
}

func (s *Store) GetFriendRequestBetween(ctx context.Context, userID, fromUserID string) (social.FriendRequest, error) {
	r, err := scanFriendRequest(s.q.QueryRowContext(ctx, `
		SELECT id, user_id, from_user_id, date FROM friend_requests
		WHERE user_id = $1 AND from_user_id = $2
	`, userID, fromUserID))
	if err != nil {
		return social.FriendRequest{}, mapErr("friend request", err)
	}
	return r, nil
}

func (s *Store) DeleteFriendRequest(ctx context.Context, id string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM friend_requests WHERE id = $1`, id)
	if err != nil {
		return mapErr("friend request", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return mapErr("friend request", sql.ErrNoRows)
	}
	return nil
}

func (s *Store) ListFriendRequestsFor(ctx context.Context, userID string) ([]social.FriendRequest, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, user_id, from_user_id, date FROM friend_requests
		WHERE user_id = $1
		ORDER BY date
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []social.FriendRequest
	for rows.Next() {
		r, err := scanFriendRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (s *Store) CreateFriend(ctx context.Context, f social.Friend) (social.Friend, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO friends (id, user_id, other_user_id, date)
		VALUES ($1, $2, $3, $4)
	`, f.ID, f.UserID, f.OtherUserID, f.Date)
	if err != nil {
		return social.Friend{}, mapErr("friend", err)
	}
	return f, nil
}

func (s *Store) GetFriendPair(ctx context.Context, userID, otherUserID string) (social.Friend, error) {
	var f social.Friend
	err := s.q.QueryRowContext(ctx, `
		SELECT id, user_id, other_user_id, date FROM friends
		WHERE user_id = $1 AND other_user_id = $2
	`, userID, otherUserID).Scan(&f.ID, &f.UserID, &f.OtherUserID, &f.Date)
	if err != nil {
		return social.Friend{}, mapErr("friend", err)
	}
	return f, nil
}

func (s *Store) DeleteFriendPair(ctx context.Context, userID, otherUserID string) error {
	result, err := s.q.ExecContext(ctx, `
		DELETE FROM friends
		WHERE (user_id = $1 AND other_user_id = $2)
		   OR (user_id = $2 AND other_user_id = $1)
	`, userID, otherUserID)
	if err != nil {
		return mapErr("friend", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return mapErr("friend", sql.ErrNoRows)
	}
	return nil
}

func (s *Store) ListFriends(ctx context.Context, userID string) ([]social.Friend, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, user_id, other_user_id, date FROM friends
		WHERE user_id = $1
		ORDER BY date
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []social.Friend
	for rows.Next() {
		var f social.Friend
		if err := rows.Scan(&f.ID, &f.UserID, &f.OtherUserID, &f.Date); err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, rows.Err()
}

func (s *Store) CreateInvite(ctx context.Context, inv social.Invite) (social.Invite, error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	detailsJSON, err := json.Marshal(inv.Details)
	if err != nil {
		return social.Invite{}, err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO invites (id, user_id, from_user_id, application_id, details, date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, inv.ID, inv.UserID, inv.FromUserID, inv.ApplicationID, detailsJSON, inv.Date)
	if err != nil {
		return social.Invite{}, mapErr("invite", err)
	}
	return inv, nil
}

func scanInvite(row interface{ Scan(...any) error }) (social.Invite, error) {
	var (
		inv        social.Invite
		detailsRaw []byte
	)
	if err := row.Scan(&inv.ID, &inv.UserID, &inv.FromUserID,
		&inv.ApplicationID, &detailsRaw, &inv.Date); err != nil {
		return social.Invite{}, err
	}
	if len(detailsRaw) > 0 {
		_ = json.Unmarshal(detailsRaw, &inv.Details)
	}
	return inv, nil
}

func (s *Store) GetInvite(ctx context.Context, id string) (social.Invite, error) {
	inv, err := scanInvite(s.q.QueryRowContext(ctx, `
		SELECT id, user_id, from_user_id, application_id, details, date
		FROM invites WHERE id = $1
	`, id))
	if err != nil {
		return social.Invite{}, mapErr("invite", err)
	}
	return inv, nil
}

func (s *Store) ListUserInvites(ctx context.Context, userID string) ([]social.Invite, error) {
	return s.listInvites(ctx, userID, "")
}

func (s *Store) ListUserInvitesFor(ctx context.Context, userID, applicationID string) ([]social.Invite, error) {
	return s.listInvites(ctx, userID, applicationID)
}

func (s *Store) listInvites(ctx context.Context, userID, applicationID string) ([]social.Invite, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, user_id, from_user_id, application_id, details, date
		FROM invites
		WHERE user_id = $1 AND ($2 = '' OR application_id = $2)
		ORDER BY date
	`, userID, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []social.Invite
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}

func (s *Store) DeleteInvite(ctx context.Context, id string) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM invites WHERE id = $1`, id)
	if err != nil {
		return mapErr("invite", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return mapErr("invite", sql.ErrNoRows)
	}
	return nil
}

// --- CloudDataStore ---------------------------------------------------------

func (s *Store) UpsertCloudSave(ctx context.Context, save clouddata.Save) (clouddata.Save, error) {
	if save.ID == "" {
		save.ID = uuid.NewString()
	}
	dataJSON, err := json.Marshal(save.Data)
	if err != nil {
		return clouddata.Save{}, err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO cloud_saves (id, user_id, application_id, data, date)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, application_id)
		DO UPDATE SET data = EXCLUDED.data, date = EXCLUDED.date
	`, save.ID, save.UserID, save.ApplicationID, dataJSON, save.Date)
	if err != nil {
		return clouddata.Save{}, mapErr("cloud save", err)
	}
	return s.GetCloudSave(ctx, save.UserID, save.ApplicationID)
}

func (s *Store) GetCloudSave(ctx context.Context, userID, applicationID string) (clouddata.Save, error) {
	var (
		save    clouddata.Save
		dataRaw []byte
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT id, user_id, application_id, data, date FROM cloud_saves
		WHERE user_id = $1 AND application_id = $2
	`, userID, applicationID).Scan(&save.ID, &save.UserID, &save.ApplicationID, &dataRaw, &save.Date)
	if err != nil {
		return clouddata.Save{}, mapErr("cloud save", err)
	}
	if len(dataRaw) > 0 {
		_ = json.Unmarshal(dataRaw, &save.Data)
	}
	return save, nil
}

func (s *Store) DeleteCloudSave(ctx context.Context, userID, applicationID string) error {
	result, err := s.q.ExecContext(ctx, `
		DELETE FROM cloud_saves WHERE user_id = $1 AND application_id = $2
	`, userID, applicationID)
	if err != nil {
		return mapErr("cloud save", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return mapErr("cloud save", sql.ErrNoRows)
	}
	return nil
}

func (s *Store) DeleteApplicationCloudSaves(ctx context.Context, applicationID string) error {
	_, err := s.q.ExecContext(ctx,
		`DELETE FROM cloud_saves WHERE application_id = $1`, applicationID)
	return mapErr("cloud save", err)
}

// --- PhotoStore -------------------------------------------------------------

func (s *Store) CreatePhoto(ctx context.Context, p photo.Photo) (photo.Photo, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO photos (id, filename, subfolder, created_at)
		VALUES ($1, $2, $3, $4)
	`, p.ID, p.Filename, p.Subfolder, p.CreatedAt)
	if err != nil {
		return photo.Photo{}, mapErr("photo", err)
	}
	return p, nil
}

func (s *Store) GetPhoto(ctx context.Context, id string) (photo.Photo, error) {
	var p photo.Photo
	err := s.q.QueryRowContext(ctx, `
		SELECT id, filename, subfolder, created_at FROM photos WHERE id = $1
	`, id).Scan(&p.ID, &p.Filename, &p.Subfolder, &p.CreatedAt)
	if err != nil {
		return photo.Photo{}, mapErr("photo", err)
	}
	return p, nil
}

func (s *Store) GetPhotoByLocation(ctx context.Context, filename, subfolder string) (photo.Photo, error) {
	var p photo.Photo
	err := s.q.QueryRowContext(ctx, `
		SELECT id, filename, subfolder, created_at FROM photos
		WHERE filename = $1 AND subfolder = $2
	`, filename, subfolder).Scan(&p.ID, &p.Filename, &p.Subfolder, &p.CreatedAt)
	if err != nil {
		return photo.Photo{}, mapErr("photo", err)
	}
	return p, nil
}

// --- ActivityStore ----------------------------------------------------------

func (s *Store) CreatePlaySession(ctx context.Context, ps activity.PlaySession) (activity.PlaySession, error) {
	if ps.ID == "" {
		ps.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO play_sessions (id, user_id, application_id, date, length)
		VALUES ($1, $2, $3, $4, $5)
	`, ps.ID, ps.UserID, ps.ApplicationID, ps.Date, ps.Length)
	if err != nil {
		return activity.PlaySession{}, mapErr("play session", err)
	}
	return ps, nil
}

func (s *Store) GetPlaySession(ctx context.Context, id string) (activity.PlaySession, error) {
	var ps activity.PlaySession
	err := s.q.QueryRowContext(ctx, `
		SELECT id, user_id, application_id, date, length FROM play_sessions WHERE id = $1
	`, id).Scan(&ps.ID, &ps.UserID, &ps.ApplicationID, &ps.Date, &ps.Length)
	if err != nil {
		return activity.PlaySession{}, mapErr("play session", err)
	}
	return ps, nil
}

func (s *Store) ListUserPlaySessions(ctx context.Context, userID string) ([]activity.PlaySession, error) {
	return s.listPlaySessions(ctx, userID, "")
}

func (s *Store) ListUserPlaySessionsFor(ctx context.Context, userID, applicationID string) ([]activity.PlaySession, error) {
	return s.listPlaySessions(ctx, userID, applicationID)
}

func (s *Store) ListApplicationPlaySessions(ctx context.Context, applicationID string) ([]activity.PlaySession, error) {
	return s.listPlaySessions(ctx, "", applicationID)
}

func (s *Store) listPlaySessions(ctx context.Context, userID, applicationID string) ([]activity.PlaySession, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, user_id, application_id, date, length FROM play_sessions
		WHERE ($1 = '' OR user_id = $1) AND ($2 = '' OR application_id = $2)
		ORDER BY date
	`, userID, applicationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []activity.PlaySession
	for rows.Next() {
		var ps activity.PlaySession
		if err := rows.Scan(&ps.ID, &ps.UserID, &ps.ApplicationID, &ps.Date, &ps.Length); err != nil {
			return nil, err
		}
		result = append(result, ps)
	}
	return result, rows.Err()
}
