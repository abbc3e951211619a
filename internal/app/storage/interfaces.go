// Package storage declares the persistence interfaces implemented by the
// in-memory and PostgreSQL stores. All entity storage is owned here; services
// hold only ids and resolve entities per call.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/frogworks/storefront/internal/app/domain/activity"
	"github.com/frogworks/storefront/internal/app/domain/catalog"
	"github.com/frogworks/storefront/internal/app/domain/clouddata"
	"github.com/frogworks/storefront/internal/app/domain/commerce"
	"github.com/frogworks/storefront/internal/app/domain/photo"
	"github.com/frogworks/storefront/internal/app/domain/session"
	"github.com/frogworks/storefront/internal/app/domain/social"
	"github.com/frogworks/storefront/internal/app/domain/user"
)

// Sentinel errors mapped at the store boundary. Services match them with
// errors.Is and never inspect driver errors directly.
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	// ErrPartialState reports that a multi-step mutation failed and the
	// store could not roll back cleanly. Callers must not retry blindly.
	ErrPartialState = errors.New("store left partial state")
)

// TxRunner executes fn against a transactional view of the store. Every
// read-then-write sequence with an invariant (balance debit, key issuance,
// sale overlap check, friend-request reciprocity) runs inside WithTx.
// Calls must not be nested.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	GetUser(ctx context.Context, id string) (user.User, error)
	GetUserByIdentifier(ctx context.Context, identifier string) (user.User, error)
	GetUserByUsername(ctx context.Context, username string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	// GetUserForUpdate locks the user row against concurrent balance
	// mutations for the remainder of the enclosing transaction.
	GetUserForUpdate(ctx context.Context, id string) (user.User, error)
}

// VerificationStore persists pending email verification codes.
type VerificationStore interface {
	ReplaceEmailVerification(ctx context.Context, v user.EmailVerification) (user.EmailVerification, error)
	GetEmailVerification(ctx context.Context, email string) (user.EmailVerification, error)
	DeleteEmailVerifications(ctx context.Context, email string) error
}

// CatalogStore persists applications, versions, sales and IAP definitions.
type CatalogStore interface {
	CreateApplication(ctx context.Context, app catalog.Application) (catalog.Application, error)
	UpdateApplication(ctx context.Context, app catalog.Application) (catalog.Application, error)
	GetApplication(ctx context.Context, id string) (catalog.Application, error)
	GetApplicationByPackage(ctx context.Context, packageName string) (catalog.Application, error)
	ListApplications(ctx context.Context) ([]catalog.Application, error)

	CreateVersion(ctx context.Context, v catalog.Version) (catalog.Version, error)
	GetVersion(ctx context.Context, id string) (catalog.Version, error)
	GetVersionByName(ctx context.Context, applicationID, name, platform string) (catalog.Version, error)
	ListVersions(ctx context.Context, applicationID string) ([]catalog.Version, error)
	ListVersionsForPlatform(ctx context.Context, applicationID, platform string) ([]catalog.Version, error)

	CreateSale(ctx context.Context, s catalog.Sale) (catalog.Sale, error)
	GetSale(ctx context.Context, id string) (catalog.Sale, error)
	DeleteSale(ctx context.Context, id string) error
	ListSales(ctx context.Context, applicationID string) ([]catalog.Sale, error)

	CreateIAP(ctx context.Context, iap catalog.IAP) (catalog.IAP, error)
	GetIAP(ctx context.Context, id string) (catalog.IAP, error)
	ListIAPs(ctx context.Context, applicationID string) ([]catalog.IAP, error)
}

// CommerceStore persists the ledger: keys, IAP records, purchases, deposits
// and transactions.
type CommerceStore interface {
	CreateApplicationKey(ctx context.Context, k commerce.ApplicationKey) (commerce.ApplicationKey, error)
	GetApplicationKey(ctx context.Context, id string) (commerce.ApplicationKey, error)
	GetApplicationKeyByValue(ctx context.Context, key string) (commerce.ApplicationKey, error)
	GetApplicationKeyFor(ctx context.Context, userID, applicationID string) (commerce.ApplicationKey, error)
	UpdateApplicationKey(ctx context.Context, k commerce.ApplicationKey) (commerce.ApplicationKey, error)
	ListUserApplicationKeys(ctx context.Context, userID string) ([]commerce.ApplicationKey, error)
	DeleteApplicationKey(ctx context.Context, id string) error

	CreateIAPRecord(ctx context.Context, r commerce.IAPRecord) (commerce.IAPRecord, error)
	GetIAPRecord(ctx context.Context, id string) (commerce.IAPRecord, error)
	UpdateIAPRecord(ctx context.Context, r commerce.IAPRecord) (commerce.IAPRecord, error)
	ListIAPRecords(ctx context.Context, userID, applicationID string, onlyUnacknowledged bool) ([]commerce.IAPRecord, error)

	CreatePurchase(ctx context.Context, p commerce.Purchase) (commerce.Purchase, error)
	GetPurchase(ctx context.Context, id string) (commerce.Purchase, error)
	GetPurchaseByKey(ctx context.Context, key string) (commerce.Purchase, error)

	CreateDeposit(ctx context.Context, d commerce.Deposit) (commerce.Deposit, error)
	GetDeposit(ctx context.Context, id string) (commerce.Deposit, error)

	CreateTransaction(ctx context.Context, t commerce.Transaction) (commerce.Transaction, error)
	GetTransaction(ctx context.Context, id string) (commerce.Transaction, error)
	GetTransactionByReference(ctx context.Context, reference string) (commerce.Transaction, error)
	ListUserTransactions(ctx context.Context, userID string) ([]commerce.Transaction, error)
}

// SessionStore persists client sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, s session.Session) (session.Session, error)
	GetSession(ctx context.Context, id string) (session.Session, error)
	GetSessionByToken(ctx context.Context, token string) (session.Session, error)
	DeleteSession(ctx context.Context, id string) error
	ListUserSessions(ctx context.Context, userID string) ([]session.Session, error)
	ListSessions(ctx context.Context) ([]session.Session, error)
	UpdateSessionActivity(ctx context.Context, id string, at time.Time) (session.Session, error)
}

// SocialStore persists the friend graph and invites.
type SocialStore interface {
	CreateFriendRequest(ctx context.Context, r social.FriendRequest) (social.FriendRequest, error)
	GetFriendRequest(ctx context.Context, id string) (social.FriendRequest, error)
	GetFriendRequestBetween(ctx context.Context, userID, fromUserID string) (social.FriendRequest, error)
	DeleteFriendRequest(ctx context.Context, id string) error
	ListFriendRequestsFor(ctx context.Context, userID string) ([]social.FriendRequest, error)

	CreateFriend(ctx context.Context, f social.Friend) (social.Friend, error)
	GetFriendPair(ctx context.Context, userID, otherUserID string) (social.Friend, error)
	DeleteFriendPair(ctx context.Context, userID, otherUserID string) error
	ListFriends(ctx context.Context, userID string) ([]social.Friend, error)

	CreateInvite(ctx context.Context, inv social.Invite) (social.Invite, error)
	GetInvite(ctx context.Context, id string) (social.Invite, error)
	ListUserInvites(ctx context.Context, userID string) ([]social.Invite, error)
	ListUserInvitesFor(ctx context.Context, userID, applicationID string) ([]social.Invite, error)
	DeleteInvite(ctx context.Context, id string) error
}

// CloudDataStore persists cloud save slots, one per user and application.
type CloudDataStore interface {
	UpsertCloudSave(ctx context.Context, save clouddata.Save) (clouddata.Save, error)
	GetCloudSave(ctx context.Context, userID, applicationID string) (clouddata.Save, error)
	DeleteCloudSave(ctx context.Context, userID, applicationID string) error
	DeleteApplicationCloudSaves(ctx context.Context, applicationID string) error
}

// PhotoStore persists photo metadata.
type PhotoStore interface {
	CreatePhoto(ctx context.Context, p photo.Photo) (photo.Photo, error)
	GetPhoto(ctx context.Context, id string) (photo.Photo, error)
	GetPhotoByLocation(ctx context.Context, filename, subfolder string) (photo.Photo, error)
}

// ActivityStore persists play sessions.
type ActivityStore interface {
	CreatePlaySession(ctx context.Context, ps activity.PlaySession) (activity.PlaySession, error)
	GetPlaySession(ctx context.Context, id string) (activity.PlaySession, error)
	ListUserPlaySessions(ctx context.Context, userID string) ([]activity.PlaySession, error)
	ListUserPlaySessionsFor(ctx context.Context, userID, applicationID string) ([]activity.PlaySession, error)
	ListApplicationPlaySessions(ctx context.Context, applicationID string) ([]activity.PlaySession, error)
}

// Store is the full persistence surface.
type Store interface {
	UserStore
	VerificationStore
	CatalogStore
	CommerceStore
	SessionStore
	SocialStore
	CloudDataStore
	PhotoStore
	ActivityStore
	TxRunner
}
