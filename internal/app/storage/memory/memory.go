package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/frogworks/storefront/internal/app/domain/activity"
	"github.com/frogworks/storefront/internal/app/domain/catalog"
	"github.com/frogworks/storefront/internal/app/domain/clouddata"
	"github.com/frogworks/storefront/internal/app/domain/commerce"
	"github.com/frogworks/storefront/internal/app/domain/photo"
	"github.com/frogworks/storefront/internal/app/domain/session"
	"github.com/frogworks/storefront/internal/app/domain/social"
	"github.com/frogworks/storefront/internal/app/domain/user"
	"github.com/frogworks/storefront/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu     sync.RWMutex
	tx     bool
	nextID int64

	users          map[string]user.User
	verifications  map[string]user.EmailVerification
	applications   map[string]catalog.Application
	versions       map[string]catalog.Version
	sales          map[string]catalog.Sale
	iaps           map[string]catalog.IAP
	keys           map[string]commerce.ApplicationKey
	iapRecords     map[string]commerce.IAPRecord
	purchases      map[string]commerce.Purchase
	deposits       map[string]commerce.Deposit
	transactions   map[string]commerce.Transaction
	sessions       map[string]session.Session
	friendRequests map[string]social.FriendRequest
	friends        map[string]social.Friend
	invites        map[string]social.Invite
	saves          map[string]clouddata.Save
	photos         map[string]photo.Photo
	playSessions   map[string]activity.PlaySession
}

var _ storage.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		nextID:         1,
		users:          make(map[string]user.User),
		verifications:  make(map[string]user.EmailVerification),
		applications:   make(map[string]catalog.Application),
		versions:       make(map[string]catalog.Version),
		sales:          make(map[string]catalog.Sale),
		iaps:           make(map[string]catalog.IAP),
		keys:           make(map[string]commerce.ApplicationKey),
		iapRecords:     make(map[string]commerce.IAPRecord),
		purchases:      make(map[string]commerce.Purchase),
		deposits:       make(map[string]commerce.Deposit),
		transactions:   make(map[string]commerce.Transaction),
		sessions:       make(map[string]session.Session),
		friendRequests: make(map[string]social.FriendRequest),
		friends:        make(map[string]social.Friend),
		invites:        make(map[string]social.Invite),
		saves:          make(map[string]clouddata.Save),
		photos:         make(map[string]photo.Photo),
		playSessions:   make(map[string]activity.PlaySession),
	}
}

func (s *Store) nextIDLocked() string {
	id := s.nextID
	s.nextID++
	return fmt.Sprintf("%d", id)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
}

// Transactions ----------------------------------------------------------------

type snapshot struct {
	nextID         int64
	users          map[string]user.User
	verifications  map[string]user.EmailVerification
	applications   map[string]catalog.Application
	versions       map[string]catalog.Version
	sales          map[string]catalog.Sale
	iaps           map[string]catalog.IAP
	keys           map[string]commerce.ApplicationKey
	iapRecords     map[string]commerce.IAPRecord
	purchases      map[string]commerce.Purchase
	deposits       map[string]commerce.Deposit
	transactions   map[string]commerce.Transaction
	sessions       map[string]session.Session
	friendRequests map[string]social.FriendRequest
	friends        map[string]social.Friend
	invites        map[string]social.Invite
	saves          map[string]clouddata.Save
	photos         map[string]photo.Photo
	playSessions   map[string]activity.PlaySession
}

func copyTable[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// snapshotLocked copies every table. Stored values are replaced wholesale on
// write and cloned on read, so a shallow copy of each map is sufficient.
func (s *Store) snapshotLocked() snapshot {
	return snapshot{
		nextID:         s.nextID,
		users:          copyTable(s.users),
		verifications:  copyTable(s.verifications),
		applications:   copyTable(s.applications),
		versions:       copyTable(s.versions),
		sales:          copyTable(s.sales),
		iaps:           copyTable(s.iaps),
		keys:           copyTable(s.keys),
		iapRecords:     copyTable(s.iapRecords),
		purchases:      copyTable(s.purchases),
		deposits:       copyTable(s.deposits),
		transactions:   copyTable(s.transactions),
		sessions:       copyTable(s.sessions),
		friendRequests: copyTable(s.friendRequests),
		friends:        copyTable(s.friends),
		invites:        copyTable(s.invites),
		saves:          copyTable(s.saves),
		photos:         copyTable(s.photos),
		playSessions:   copyTable(s.playSessions),
	}
}

func (s *Store) restoreLocked(snap snapshot) {
	s.nextID = snap.nextID
	s.users = snap.users
	s.verifications = snap.verifications
	s.applications = snap.applications
	s.versions = snap.versions
	s.sales = snap.sales
	s.iaps = snap.iaps
	s.keys = snap.keys
	s.iapRecords = snap.iapRecords
	s.purchases = snap.purchases
	s.deposits = snap.deposits
	s.transactions = snap.transactions
	s.sessions = snap.sessions
	s.friendRequests = snap.friendRequests
	s.friends = snap.friends
	s.invites = snap.invites
	s.saves = snap.saves
	s.photos = snap.photos
	s.playSessions = snap.playSessions
}

// txViewLocked returns a view sharing the tables but carrying its own lock.
// The parent's lock stays held for the whole transaction, so every direct
// call waits for the outcome instead of interleaving with it.
func (s *Store) txViewLocked() *Store {
	return &Store{
		tx:             true,
		nextID:         s.nextID,
		users:          s.users,
		verifications:  s.verifications,
		applications:   s.applications,
		versions:       s.versions,
		sales:          s.sales,
		iaps:           s.iaps,
		keys:           s.keys,
		iapRecords:     s.iapRecords,
		purchases:      s.purchases,
		deposits:       s.deposits,
		transactions:   s.transactions,
		sessions:       s.sessions,
		friendRequests: s.friendRequests,
		friends:        s.friends,
		invites:        s.invites,
		saves:          s.saves,
		photos:         s.photos,
		playSessions:   s.playSessions,
	}
}

// WithTx holds the store lock for the whole transaction and rolls the tables
// back to their pre-transaction state when fn fails.
func (s *Store) WithTx(ctx context.Context, fn func(tx storage.Store) error) error {
	if s.tx {
		return fmt.Errorf("nested transactions are not supported")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := s.snapshotLocked()
	view := s.txViewLocked()
	if err := fn(view); err != nil {
		s.restoreLocked(snap)
		return err
	}
	s.nextID = view.nextID
	return nil
}

// UserStore implementation ----------------------------------------------------

func (s *Store) CreateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = s.nextIDLocked()
	} else if _, exists := s.users[u.ID]; exists {
		return user.User{}, fmt.Errorf("user %s: %w", u.ID, storage.ErrAlreadyExists)
	}
	for _, existing := range s.users {
		if strings.EqualFold(existing.Username, u.Username) || strings.EqualFold(existing.Email, u.Email) {
			return user.User{}, fmt.Errorf("user %s: %w", u.Username, storage.ErrAlreadyExists)
		}
	}

	s.users[u.ID] = u
	return u, nil
}

func (s *Store) UpdateUser(_ context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; !ok {
		return user.User{}, notFound("user", u.ID)
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUser(_ context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, notFound("user", id)
	}
	return u, nil
}

func (s *Store) GetUserByIdentifier(_ context.Context, identifier string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Identifier == identifier {
			return u, nil
		}
	}
	return user.User{}, notFound("user", identifier)
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return user.User{}, notFound("user", username)
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return user.User{}, notFound("user", email)
}

// GetUserForUpdate is equivalent to GetUser here. Transactions are serialized
// by WithTx, so no per-row lock is required.
func (s *Store) GetUserForUpdate(ctx context.Context, id string) (user.User, error) {
	return s.GetUser(ctx, id)
}

// VerificationStore implementation --------------------------------------------

func (s *Store) ReplaceEmailVerification(_ context.Context, v user.EmailVerification) (user.EmailVerification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v.ID == "" {
		v.ID = s.nextIDLocked()
	}
	s.verifications[strings.ToLower(v.Email)] = v
	return v, nil
}

func (s *Store) GetEmailVerification(_ context.Context, email string) (user.EmailVerification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.verifications[strings.ToLower(email)]
	if !ok {
		return user.EmailVerification{}, notFound("verification", email)
	}
	return v, nil
}

func (s *Store) DeleteEmailVerifications(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.verifications, strings.ToLower(email))
	return nil
}

// CatalogStore implementation -------------------------------------------------

func (s *Store) CreateApplication(_ context.Context, app catalog.Application) (catalog.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if app.ID == "" {
		app.ID = s.nextIDLocked()
	} else if _, exists := s.applications[app.ID]; exists {
		return catalog.Application{}, fmt.Errorf("application %s: %w", app.ID, storage.ErrAlreadyExists)
	}
	for _, existing := range s.applications {
		if existing.PackageName == app.PackageName {
			return catalog.Application{}, fmt.Errorf("application %s: %w", app.PackageName, storage.ErrAlreadyExists)
		}
	}

	s.applications[app.ID] = cloneApplication(app)
	return cloneApplication(app), nil
}

func (s *Store) UpdateApplication(_ context.Context, app catalog.Application) (catalog.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.applications[app.ID]; !ok {
		return catalog.Application{}, notFound("application", app.ID)
	}
	s.applications[app.ID] = cloneApplication(app)
	return cloneApplication(app), nil
}

func (s *Store) GetApplication(_ context.Context, id string) (catalog.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.applications[id]
	if !ok {
		return catalog.Application{}, notFound("application", id)
	}
	return cloneApplication(app), nil
}

func (s *Store) GetApplicationByPackage(_ context.Context, packageName string) (catalog.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, app := range s.applications {
		if app.PackageName == packageName {
			return cloneApplication(app), nil
		}
	}
	return catalog.Application{}, notFound("application", packageName)
}

func (s *Store) ListApplications(_ context.Context) ([]catalog.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]catalog.Application, 0, len(s.applications))
	for _, app := range s.applications {
		out = append(out, cloneApplication(app))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateVersion(_ context.Context, v catalog.Version) (catalog.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v.ID == "" {
		v.ID = s.nextIDLocked()
	}
	s.versions[v.ID] = v
	return v, nil
}

func (s *Store) GetVersion(_ context.Context, id string) (catalog.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.versions[id]
	if !ok {
		return catalog.Version{}, notFound("version", id)
	}
	return v, nil
}

func (s *Store) GetVersionByName(_ context.Context, applicationID, name, platform string) (catalog.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, v := range s.versions {
		if v.ApplicationID != applicationID || v.Name != name {
			continue
		}
		if platform != "" && v.Platform != platform {
			continue
		}
		return v, nil
	}
	return catalog.Version{}, notFound("version", name)
}

func (s *Store) ListVersions(_ context.Context, applicationID string) ([]catalog.Version, error) {
	return s.listVersions(applicationID, "")
}

func (s *Store) ListVersionsForPlatform(_ context.Context, applicationID, platform string) ([]catalog.Version, error) {
	return s.listVersions(applicationID, platform)
}

func (s *Store) listVersions(applicationID, platform string) ([]catalog.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []catalog.Version
	for _, v := range s.versions {
		if v.ApplicationID != applicationID {
			continue
		}
		if platform != "" && v.Platform != platform {
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReleaseDate.Before(out[j].ReleaseDate) })
	return out, nil
}

func (s *Store) CreateSale(_ context.Context, sale catalog.Sale) (catalog.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.ID == "" {
		sale.ID = s.nextIDLocked()
	}
	s.sales[sale.ID] = sale
	return sale, nil
}

func (s *Store) GetSale(_ context.Context, id string) (catalog.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sale, ok := s.sales[id]
	if !ok {
		return catalog.Sale{}, notFound("sale", id)
	}
	return sale, nil
}

func (s *Store) DeleteSale(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sales[id]; !ok {
		return notFound("sale", id)
	}
	delete(s.sales, id)
	return nil
}

func (s *Store) ListSales(_ context.Context, applicationID string) ([]catalog.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []catalog.Sale
	for _, sale := range s.sales {
		if sale.ApplicationID == applicationID {
			out = append(out, sale)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (s *Store) CreateIAP(_ context.Context, iap catalog.IAP) (catalog.IAP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if iap.ID == "" {
		iap.ID = s.nextIDLocked()
	}
	s.iaps[iap.ID] = cloneIAP(iap)
	return cloneIAP(iap), nil
}

func (s *Store) GetIAP(_ context.Context, id string) (catalog.IAP, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	iap, ok := s.iaps[id]
	if !ok {
		return catalog.IAP{}, notFound("iap", id)
	}
	return cloneIAP(iap), nil
}

func (s *Store) ListIAPs(_ context.Context, applicationID string) ([]catalog.IAP, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []catalog.IAP
	for _, iap := range s.iaps {
		if iap.ApplicationID == applicationID {
			out = append(out, cloneIAP(iap))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// CommerceStore implementation ------------------------------------------------

func (s *Store) CreateApplicationKey(_ context.Context, k commerce.ApplicationKey) (commerce.ApplicationKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.keys {
		if existing.Key == k.Key {
			return commerce.ApplicationKey{}, fmt.Errorf("key %s: %w", k.Key, storage.ErrAlreadyExists)
		}
		// One held key per user and application. Unassigned creator keys
		// are exempt.
		if k.UserID != "" && existing.UserID == k.UserID && existing.ApplicationID == k.ApplicationID {
			return commerce.ApplicationKey{}, fmt.Errorf("key holder %s/%s: %w", k.UserID, k.ApplicationID, storage.ErrAlreadyExists)
		}
	}
	if k.ID == "" {
		k.ID = s.nextIDLocked()
	}
	s.keys[k.ID] = k
	return k, nil
}

func (s *Store) GetApplicationKey(_ context.Context, id string) (commerce.ApplicationKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	k, ok := s.keys[id]
	if !ok {
		return commerce.ApplicationKey{}, notFound("key", id)
	}
	return k, nil
}

func (s *Store) GetApplicationKeyByValue(_ context.Context, key string) (commerce.ApplicationKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, k := range s.keys {
		if k.Key == key {
			return k, nil
		}
	}
	return commerce.ApplicationKey{}, notFound("key", key)
}

func (s *Store) GetApplicationKeyFor(_ context.Context, userID, applicationID string) (commerce.ApplicationKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, k := range s.keys {
		if k.UserID == userID && k.ApplicationID == applicationID {
			return k, nil
		}
	}
	return commerce.ApplicationKey{}, notFound("key", applicationID)
}

func (s *Store) UpdateApplicationKey(_ context.Context, k commerce.ApplicationKey) (commerce.ApplicationKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[k.ID]; !ok {
		return commerce.ApplicationKey{}, notFound("key", k.ID)
	}
	s.keys[k.ID] = k
	return k, nil
}

func (s *Store) ListUserApplicationKeys(_ context.Context, userID string) ([]commerce.ApplicationKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []commerce.ApplicationKey
	for _, k := range s.keys {
		if k.UserID == userID {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) DeleteApplicationKey(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[id]; !ok {
		return notFound("key", id)
	}
	delete(s.keys, id)
	return nil
}

func (s *Store) CreateIAPRecord(_ context.Context, r commerce.IAPRecord) (commerce.IAPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = s.nextIDLocked()
	}
	s.iapRecords[r.ID] = r
	return r, nil
}

func (s *Store) GetIAPRecord(_ context.Context, id string) (commerce.IAPRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.iapRecords[id]
	if !ok {
		return commerce.IAPRecord{}, notFound("iap record", id)
	}
	return r, nil
}

func (s *Store) UpdateIAPRecord(_ context.Context, r commerce.IAPRecord) (commerce.IAPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.iapRecords[r.ID]; !ok {
		return commerce.IAPRecord{}, notFound("iap record", r.ID)
	}
	s.iapRecords[r.ID] = r
	return r, nil
}

func (s *Store) ListIAPRecords(_ context.Context, userID, applicationID string, onlyUnacknowledged bool) ([]commerce.IAPRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []commerce.IAPRecord
	for _, r := range s.iapRecords {
		if r.UserID != userID {
			continue
		}
		if applicationID != "" && r.ApplicationID != applicationID {
			continue
		}
		if onlyUnacknowledged && r.Acknowledged {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) CreatePurchase(_ context.Context, p commerce.Purchase) (commerce.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.nextIDLocked()
	}
	s.purchases[p.ID] = p
	return p, nil
}

func (s *Store) GetPurchase(_ context.Context, id string) (commerce.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.purchases[id]
	if !ok {
		return commerce.Purchase{}, notFound("purchase", id)
	}
	return p, nil
}

func (s *Store) GetPurchaseByKey(_ context.Context, key string) (commerce.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.purchases {
		if p.Key == key {
			return p, nil
		}
	}
	return commerce.Purchase{}, notFound("purchase", key)
}

func (s *Store) CreateDeposit(_ context.Context, d commerce.Deposit) (commerce.Deposit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.ID == "" {
		d.ID = s.nextIDLocked()
	}
	s.deposits[d.ID] = d
	return d, nil
}

func (s *Store) GetDeposit(_ context.Context, id string) (commerce.Deposit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.deposits[id]
	if !ok {
		return commerce.Deposit{}, notFound("deposit", id)
	}
	return d, nil
}

func (s *Store) CreateTransaction(_ context.Context, t commerce.Transaction) (commerce.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.ID == "" {
		t.ID = s.nextIDLocked()
	}
	s.transactions[t.ID] = t
	return t, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (commerce.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transactions[id]
	if !ok {
		return commerce.Transaction{}, notFound("transaction", id)
	}
	return t, nil
}

func (s *Store) GetTransactionByReference(_ context.Context, reference string) (commerce.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.transactions {
		if t.Reference == reference {
			return t, nil
		}
	}
	return commerce.Transaction{}, notFound("transaction", reference)
}

func (s *Store) ListUserTransactions(_ context.Context, userID string) ([]commerce.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []commerce.Transaction
	for _, t := range s.transactions {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

// SessionStore implementation -------------------------------------------------

func (s *Store) CreateSession(_ context.Context, sess session.Session) (session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess.ID == "" {
		sess.ID = s.nextIDLocked()
	}
	s.sessions[sess.ID] = sess
	return sess, nil
}

func (s *Store) GetSession(_ context.Context, id string) (session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return session.Session{}, notFound("session", id)
	}
	return sess, nil
}

func (s *Store) GetSessionByToken(_ context.Context, token string) (session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.sessions {
		if sess.Token == token {
			return sess, nil
		}
	}
	return session.Session{}, fmt.Errorf("session: %w", storage.ErrNotFound)
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return notFound("session", id)
	}
	delete(s.sessions, id)
	return nil
}

func (s *Store) ListUserSessions(_ context.Context, userID string) ([]session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []session.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (s *Store) ListSessions(_ context.Context) ([]session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, nil
}

func (s *Store) UpdateSessionActivity(_ context.Context, id string, at time.Time) (session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return session.Session{}, notFound("session", id)
	}
	sess.LastActivity = at
	s.sessions[id] = sess
	return sess, nil
}

// SocialStore implementation --------------------------------------------------

func (s *Store) CreateFriendRequest(_ context.Context, r social.FriendRequest) (social.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = s.nextIDLocked()
	}
	s.friendRequests[r.ID] = r
	return r, nil
}

func (s *Store) GetFriendRequest(_ context.Context, id string) (social.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.friendRequests[id]
	if !ok {
		return social.FriendRequest{}, notFound("friend request", id)
	}
	return r, nil
}

func (s *Store) GetFriendRequestBetween(_ context.Context, userID, fromUserID string) (social.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.friendRequests {
		if r.UserID == userID && r.FromUserID == fromUserID {
			return r, nil
		}
	}
	return social.FriendRequest{}, fmt.Errorf("friend request: %w", storage.ErrNotFound)
}

func (s *Store) DeleteFriendRequest(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.friendRequests[id]; !ok {
		return notFound("friend request", id)
	}
	delete(s.friendRequests, id)
	return nil
}

func (s *Store) ListFriendRequestsFor(_ context.Context, userID string) ([]social.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []social.FriendRequest
	for _, r := range s.friendRequests {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) CreateFriend(_ context.Context, f social.Friend) (social.Friend, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.ID == "" {
		f.ID = s.nextIDLocked()
	}
	s.friends[f.ID] = f
	return f, nil
}

func (s *Store) GetFriendPair(_ context.Context, userID, otherUserID string) (social.Friend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.friends {
		if f.UserID == userID && f.OtherUserID == otherUserID {
			return f, nil
		}
	}
	return social.Friend{}, fmt.Errorf("friend pair: %w", storage.ErrNotFound)
}

// DeleteFriendPair removes both directional rows of a friendship.
func (s *Store) DeleteFriendPair(_ context.Context, userID, otherUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for id, f := range s.friends {
		if (f.UserID == userID && f.OtherUserID == otherUserID) ||
			(f.UserID == otherUserID && f.OtherUserID == userID) {
			delete(s.friends, id)
			found = true
		}
	}
	if !found {
		return fmt.Errorf("friend pair: %w", storage.ErrNotFound)
	}
	return nil
}

func (s *Store) ListFriends(_ context.Context, userID string) ([]social.Friend, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []social.Friend
	for _, f := range s.friends {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) CreateInvite(_ context.Context, inv social.Invite) (social.Invite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv.ID == "" {
		inv.ID = s.nextIDLocked()
	}
	s.invites[inv.ID] = cloneInvite(inv)
	return cloneInvite(inv), nil
}

func (s *Store) GetInvite(_ context.Context, id string) (social.Invite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invites[id]
	if !ok {
		return social.Invite{}, notFound("invite", id)
	}
	return cloneInvite(inv), nil
}

func (s *Store) ListUserInvites(_ context.Context, userID string) ([]social.Invite, error) {
	return s.listInvites(userID, "")
}

func (s *Store) ListUserInvitesFor(_ context.Context, userID, applicationID string) ([]social.Invite, error) {
	return s.listInvites(userID, applicationID)
}

func (s *Store) listInvites(userID, applicationID string) ([]social.Invite, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []social.Invite
	for _, inv := range s.invites {
		if inv.UserID != userID {
			continue
		}
		if applicationID != "" && inv.ApplicationID != applicationID {
			continue
		}
		out = append(out, cloneInvite(inv))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *Store) DeleteInvite(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.invites[id]; !ok {
		return notFound("invite", id)
	}
	delete(s.invites, id)
	return nil
}

// CloudDataStore implementation -----------------------------------------------

func saveKey(userID, applicationID string) string {
	return userID + "/" + applicationID
}

func (s *Store) UpsertCloudSave(_ context.Context, save clouddata.Save) (clouddata.Save, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := saveKey(save.UserID, save.ApplicationID)
	if existing, ok := s.saves[key]; ok {
		save.ID = existing.ID
	} else if save.ID == "" {
		save.ID = s.nextIDLocked()
	}
	s.saves[key] = cloneSave(save)
	return cloneSave(save), nil
}

func (s *Store) GetCloudSave(_ context.Context, userID, applicationID string) (clouddata.Save, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	save, ok := s.saves[saveKey(userID, applicationID)]
	if !ok {
		return clouddata.Save{}, notFound("cloud save", applicationID)
	}
	return cloneSave(save), nil
}

func (s *Store) DeleteCloudSave(_ context.Context, userID, applicationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := saveKey(userID, applicationID)
	if _, ok := s.saves[key]; !ok {
		return notFound("cloud save", applicationID)
	}
	delete(s.saves, key)
	return nil
}

func (s *Store) DeleteApplicationCloudSaves(_ context.Context, applicationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, save := range s.saves {
		if save.ApplicationID == applicationID {
			delete(s.saves, key)
		}
	}
	return nil
}

// PhotoStore implementation ---------------------------------------------------

func (s *Store) CreatePhoto(_ context.Context, p photo.Photo) (photo.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = s.nextIDLocked()
	}
	s.photos[p.ID] = p
	return p, nil
}

func (s *Store) GetPhoto(_ context.Context, id string) (photo.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.photos[id]
	if !ok {
		return photo.Photo{}, notFound("photo", id)
	}
	return p, nil
}

func (s *Store) GetPhotoByLocation(_ context.Context, filename, subfolder string) (photo.Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.photos {
		if p.Filename == filename && p.Subfolder == subfolder {
			return p, nil
		}
	}
	return photo.Photo{}, notFound("photo", filename)
}

// ActivityStore implementation ------------------------------------------------

func (s *Store) CreatePlaySession(_ context.Context, ps activity.PlaySession) (activity.PlaySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ps.ID == "" {
		ps.ID = s.nextIDLocked()
	}
	s.playSessions[ps.ID] = ps
	return ps, nil
}

func (s *Store) GetPlaySession(_ context.Context, id string) (activity.PlaySession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ps, ok := s.playSessions[id]
	if !ok {
		return activity.PlaySession{}, notFound("play session", id)
	}
	return ps, nil
}

func (s *Store) ListUserPlaySessions(_ context.Context, userID string) ([]activity.PlaySession, error) {
	return s.listPlaySessions(userID, "")
}

func (s *Store) ListUserPlaySessionsFor(_ context.Context, userID, applicationID string) ([]activity.PlaySession, error) {
	return s.listPlaySessions(userID, applicationID)
}

func (s *Store) ListApplicationPlaySessions(_ context.Context, applicationID string) ([]activity.PlaySession, error) {
	return s.listPlaySessions("", applicationID)
}

func (s *Store) listPlaySessions(userID, applicationID string) ([]activity.PlaySession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []activity.PlaySession
	for _, ps := range s.playSessions {
		if userID != "" && ps.UserID != userID {
			continue
		}
		if applicationID != "" && ps.ApplicationID != applicationID {
			continue
		}
		out = append(out, ps)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// Clone helpers ---------------------------------------------------------------

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneApplication(app catalog.Application) catalog.Application {
	app.SupportedPlatforms = cloneStrings(app.SupportedPlatforms)
	app.Genres = cloneStrings(app.Genres)
	app.Tags = cloneStrings(app.Tags)
	app.Owners = cloneStrings(app.Owners)
	return app
}

func cloneIAP(iap catalog.IAP) catalog.IAP {
	iap.Data = cloneMap(iap.Data)
	return iap
}

func cloneInvite(inv social.Invite) social.Invite {
	inv.Details = cloneMap(inv.Details)
	return inv
}

func cloneSave(save clouddata.Save) clouddata.Save {
	save.Data = cloneMap(save.Data)
	return save
}
