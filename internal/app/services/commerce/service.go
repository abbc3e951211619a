// Package commerce runs the purchase engine: entitlement keys, balance
// debits, IAP fulfilment and the transaction ledger.
package commerce

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/frogworks/storefront/internal/app/domain/commerce"
	"github.com/frogworks/storefront/internal/app/domain/money"
	"github.com/frogworks/storefront/internal/app/storage"
	"github.com/frogworks/storefront/pkg/logger"
)

var (
	// ErrAlreadyOwned reports that the recipient already holds an
	// entitlement for the application.
	ErrAlreadyOwned = errors.New("application is already owned")
	// ErrInsufficientFunds reports that the payer's balance does not cover
	// the effective price.
	ErrInsufficientFunds = errors.New("balance does not cover the price")
	// ErrKeyCollision reports that a unique product key could not be
	// generated after several attempts.
	ErrKeyCollision = errors.New("could not generate a unique product key")
	// ErrNotEntitled reports an IAP purchase against an unowned application.
	ErrNotEntitled = errors.New("application is not owned")
	// ErrKeyRedeemed reports redemption of an already redeemed key.
	ErrKeyRedeemed = errors.New("key has already been redeemed")
	// ErrPartialFailure reports that a purchase failed partway and the
	// ledger could not be rolled back cleanly. Manual review is required.
	ErrPartialFailure = errors.New("purchase left partial state")
)

// keyAttempts bounds product key generation retries on value collisions.
const keyAttempts = 5

// PriceResolver yields the price charged for an application at an instant,
// accounting for any running sale.
type PriceResolver interface {
	EffectivePrice(ctx context.Context, applicationID string, at time.Time) (money.Amount, error)
}

// Store is the persistence surface the commerce service needs.
type Store interface {
	storage.UserStore
	storage.CatalogStore
	storage.CommerceStore
	storage.TxRunner
}

// Service executes purchases and maintains the ledger.
type Service struct {
	store  Store
	prices PriceResolver
	log    *logger.Logger
}

// New constructs a commerce service.
func New(store Store, prices PriceResolver, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("commerce")
	}
	return &Service{store: store, prices: prices, log: log}
}

// Owns reports whether the user holds an entitlement for the application,
// either a redeemed key or listing ownership.
func (s *Service) Owns(ctx context.Context, userID, applicationID string) (bool, error) {
	app, err := s.store.GetApplication(ctx, applicationID)
	if err != nil {
		return false, err
	}
	if app.OwnedBy(userID) {
		return true, nil
	}
	if _, err := s.store.GetApplicationKeyFor(ctx, userID, applicationID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// PurchaseApplication buys an application for recipientID, paid by
// purchaserID. An empty recipient means the purchaser buys for themselves;
// anyone else makes it a gift. The entitlement key, purchase record,
// transaction and balance debit land atomically or not at all.
func (s *Service) PurchaseApplication(ctx context.Context, purchaserID, recipientID, applicationID string) (commerce.Receipt, error) {
	recipientID = strings.TrimSpace(recipientID)
	if recipientID == "" {
		recipientID = purchaserID
	}
	source := commerce.SourceSelf
	if recipientID != purchaserID {
		source = commerce.SourceGift
	}

	now := time.Now().UTC()
	price, err := s.prices.EffectivePrice(ctx, applicationID, now)
	if err != nil {
		return commerce.Receipt{}, err
	}

	var receipt commerce.Receipt
	err = s.store.WithTx(ctx, func(tx storage.Store) error {
		app, err := tx.GetApplication(ctx, applicationID)
		if err != nil {
			return err
		}
		if _, err := tx.GetUser(ctx, recipientID); err != nil {
			return fmt.Errorf("recipient: %w", err)
		}
		if app.OwnedBy(recipientID) {
			return fmt.Errorf("application %s: %w", applicationID, ErrAlreadyOwned)
		}

		payer, err := tx.GetUserForUpdate(ctx, purchaserID)
		if err != nil {
			return err
		}
		// Checked after the payer lock so two concurrent purchases for the
		// same recipient see each other's key.
		if _, err := tx.GetApplicationKeyFor(ctx, recipientID, applicationID); err == nil {
			return fmt.Errorf("application %s: %w", applicationID, ErrAlreadyOwned)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if payer.Balance.LessThan(price) {
			return fmt.Errorf("price %s: %w", money.Format(price), ErrInsufficientFunds)
		}

		key, err := issueKey(ctx, tx, commerce.ApplicationKey{
			ApplicationID: applicationID,
			Type:          commerce.KeyTypePurchase,
			Redeemed:      true,
			UserID:        recipientID,
		})
		if err != nil {
			return err
		}

		purchase, err := tx.CreatePurchase(ctx, commerce.Purchase{
			ApplicationID: applicationID,
			UserID:        recipientID,
			Type:          commerce.PurchaseTypeApplication,
			Source:        source,
			Price:         price,
			Key:           key.Key,
			Date:          now,
		})
		if err != nil {
			return err
		}
		txn, err := tx.CreateTransaction(ctx, commerce.Transaction{
			UserID:    purchaserID,
			Reference: purchase.ID,
			Type:      commerce.TransactionTypePurchase,
			Date:      now,
		})
		if err != nil {
			return err
		}

		payer.Balance = payer.Balance.Sub(price)
		if _, err := tx.UpdateUser(ctx, payer); err != nil {
			return err
		}

		receipt = commerce.Receipt{Purchase: purchase, Transaction: txn, Key: &key}
		return nil
	})
	if err != nil {
		return commerce.Receipt{}, s.mapTxErr(err)
	}

	s.log.WithField("purchaser_id", purchaserID).
		WithField("recipient_id", recipientID).
		WithField("application_id", applicationID).
		WithField("price", money.Format(price)).
		WithField("source", source).
		Info("application purchased")
	return receipt, nil
}

// PurchaseIAP buys an in-app purchase for the user. The user must own the
// surrounding application. IAP prices are never discounted by sales.
func (s *Service) PurchaseIAP(ctx context.Context, userID, iapID string) (commerce.Receipt, error) {
	now := time.Now().UTC()

	var receipt commerce.Receipt
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		iap, err := tx.GetIAP(ctx, iapID)
		if err != nil {
			return err
		}
		owned, err := ownsLocked(ctx, tx, userID, iap.ApplicationID)
		if err != nil {
			return err
		}
		if !owned {
			return fmt.Errorf("application %s: %w", iap.ApplicationID, ErrNotEntitled)
		}

		payer, err := tx.GetUserForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if payer.Balance.LessThan(iap.Price) {
			return fmt.Errorf("price %s: %w", money.Format(iap.Price), ErrInsufficientFunds)
		}

		record, err := tx.CreateIAPRecord(ctx, commerce.IAPRecord{
			IAPID:         iapID,
			UserID:        userID,
			ApplicationID: iap.ApplicationID,
			Date:          now,
		})
		if err != nil {
			return err
		}
		purchase, err := tx.CreatePurchase(ctx, commerce.Purchase{
			ApplicationID: iap.ApplicationID,
			IAPID:         iapID,
			UserID:        userID,
			Type:          commerce.PurchaseTypeIAP,
			Source:        commerce.SourceSelf,
			Price:         iap.Price,
			Date:          now,
		})
		if err != nil {
			return err
		}
		txn, err := tx.CreateTransaction(ctx, commerce.Transaction{
			UserID:    userID,
			Reference: purchase.ID,
			Type:      commerce.TransactionTypePurchase,
			Date:      now,
		})
		if err != nil {
			return err
		}

		payer.Balance = payer.Balance.Sub(iap.Price)
		if _, err := tx.UpdateUser(ctx, payer); err != nil {
			return err
		}

		receipt = commerce.Receipt{Purchase: purchase, Transaction: txn, IAPRecord: &record}
		return nil
	})
	if err != nil {
		return commerce.Receipt{}, s.mapTxErr(err)
	}

	s.log.WithField("user_id", userID).
		WithField("iap_id", iapID).
		WithField("price", money.Format(receipt.Purchase.Price)).
		Info("iap purchased")
	return receipt, nil
}

// CreateCreatorKeys mints unredeemed giveaway keys for an application.
func (s *Service) CreateCreatorKeys(ctx context.Context, applicationID string, count int) ([]commerce.ApplicationKey, error) {
	if count <= 0 {
		return nil, fmt.Errorf("count must be positive")
	}
	if _, err := s.store.GetApplication(ctx, applicationID); err != nil {
		return nil, err
	}

	var keys []commerce.ApplicationKey
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		keys = keys[:0]
		for i := 0; i < count; i++ {
			key, err := issueKey(ctx, tx, commerce.ApplicationKey{
				ApplicationID: applicationID,
				Type:          commerce.KeyTypeCreator,
			})
			if err != nil {
				return err
			}
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, s.mapTxErr(err)
	}

	s.log.WithField("application_id", applicationID).
		WithField("count", count).
		Info("creator keys minted")
	return keys, nil
}

// RedeemKey claims an unredeemed key for the user and records a zero price
// purchase so ownership lookups stay uniform.
func (s *Service) RedeemKey(ctx context.Context, userID, keyValue string) (commerce.Receipt, error) {
	keyValue = strings.ToUpper(strings.TrimSpace(keyValue))
	if keyValue == "" {
		return commerce.Receipt{}, fmt.Errorf("key is required")
	}

	now := time.Now().UTC()
	var receipt commerce.Receipt
	err := s.store.WithTx(ctx, func(tx storage.Store) error {
		key, err := tx.GetApplicationKeyByValue(ctx, keyValue)
		if err != nil {
			return err
		}
		if key.Redeemed {
			return fmt.Errorf("key %s: %w", keyValue, ErrKeyRedeemed)
		}
		owned, err := ownsLocked(ctx, tx, userID, key.ApplicationID)
		if err != nil {
			return err
		}
		if owned {
			return fmt.Errorf("application %s: %w", key.ApplicationID, ErrAlreadyOwned)
		}

		key.Redeemed = true
		key.UserID = userID
		key, err = tx.UpdateApplicationKey(ctx, key)
		if err != nil {
			return err
		}

		purchase, err := tx.CreatePurchase(ctx, commerce.Purchase{
			ApplicationID: key.ApplicationID,
			UserID:        userID,
			Type:          commerce.PurchaseTypeApplication,
			Source:        commerce.SourceGift,
			Price:         money.Zero(),
			Key:           key.Key,
			Date:          now,
		})
		if err != nil {
			return err
		}
		txn, err := tx.CreateTransaction(ctx, commerce.Transaction{
			UserID:    userID,
			Reference: purchase.ID,
			Type:      commerce.TransactionTypePurchase,
			Date:      now,
		})
		if err != nil {
			return err
		}

		receipt = commerce.Receipt{Purchase: purchase, Transaction: txn, Key: &key}
		return nil
	})
	if err != nil {
		return commerce.Receipt{}, s.mapTxErr(err)
	}

	s.log.WithField("user_id", userID).
		WithField("application_id", receipt.Purchase.ApplicationID).
		Info("key redeemed")
	return receipt, nil
}

// RevokeKey deletes an unredeemed creator key. Redeemed keys are part of the
// ledger and stay.
func (s *Service) RevokeKey(ctx context.Context, applicationID, keyID string) error {
	key, err := s.store.GetApplicationKey(ctx, keyID)
	if err != nil {
		return err
	}
	if key.ApplicationID != applicationID {
		return fmt.Errorf("key %s: %w", keyID, storage.ErrNotFound)
	}
	if key.Redeemed {
		return fmt.Errorf("key %s: %w", keyID, ErrKeyRedeemed)
	}
	if err := s.store.DeleteApplicationKey(ctx, keyID); err != nil {
		return err
	}
	s.log.WithField("application_id", applicationID).
		WithField("key_id", keyID).
		Info("key revoked")
	return nil
}

/// PurchaseSource resolves who paid for a user's entitlement: the purchase
// record and the payer's transaction behind their key.
func (s *Service) PurchaseSource(ctx context.Context, userID, applicationID string) (commerce.Purchase, commerce.Transaction, error) {
	key, err := s.store.GetApplicationKeyFor(ctx, userID, applicationID)
	if err != nil {
		return commerce.Purchase{}, commerce.Transaction{}, err
	}
	purchase, err := s.store.GetPurchaseByKey(ctx, key.Key)
	if err != nil {
		return commerce.Purchase{}, commerce.Transaction{}, err
	}
	txn, err := s.store.GetTransactionByReference(ctx, purchase.ID)
	if err != nil {
		return commerce.Purchase{}, commerce.Transaction{}, err
	}
	return purchase, txn, nil
}

// PurchaseSourceByID resolves the payer behind a purchase record directly.
// This form covers purchases without an entitlement key, such as IAPs.
func (s *Service) PurchaseSourceByID(ctx context.Context, purchaseID string) (commerce.Purchase, commerce.Transaction, error) {
	purchase, err := s.store.GetPurchase(ctx, purchaseID)
	if err != nil {
		return commerce.Purchase{}, commerce.Transaction{}, err
	}
	txn, err := s.store.GetTransactionByReference(ctx, purchase.ID)
	if err != nil {
		return commerce.Purchase{}, commerce.Transaction{}, err
	}
	return purchase, txn, nil
}

// AcknowledgeIAPRecord marks a fulfilled IAP as seen by the client.
func (s *Service) AcknowledgeIAPRecord(ctx context.Context, userID, recordID string) (commerce.IAPRecord, error) {
	record, err := s.store.GetIAPRecord(ctx, recordID)
	if err != nil {
		return commerce.IAPRecord{}, err
	}
	if record.UserID != userID {
		return commerce.IAPRecord{}, fmt.Errorf("iap record %s: %w", recordID, storage.ErrNotFound)
	}
	if record.Acknowledged {
		return record, nil
	}
	record.Acknowledged = true
	return s.store.UpdateIAPRecord(ctx, record)
}

// PendingIAPRecords lists a user's unacknowledged IAP fulfilments for an
// application.
func (s *Service) PendingIAPRecords(ctx context.Context, userID, applicationID string) ([]commerce.IAPRecord, error) {
	return s.store.ListIAPRecords(ctx, userID, applicationID, true)
}

// Keys lists a user's entitlement keys.
func (s *Service) Keys(ctx context.Context, userID string) ([]commerce.ApplicationKey, error) {
	return s.store.ListUserApplicationKeys(ctx, userID)
}

// Transactions lists a user's ledger entries, newest first.
func (s *Service) Transactions(ctx context.Context, userID string) ([]commerce.Transaction, error) {
	return s.store.ListUserTransactions(ctx, userID)
}

// issueKey creates an entitlement key with a fresh product key value,
// retrying on value collisions.
func issueKey(ctx context.Context, tx storage.Store, key commerce.ApplicationKey) (commerce.ApplicationKey, error) {
	for attempt := 0; attempt < keyAttempts; attempt++ {
		key.Key = strings.ToUpper(uuid.NewString())
		created, err := tx.CreateApplicationKey(ctx, key)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, storage.ErrAlreadyExists) {
			return commerce.ApplicationKey{}, err
		}
		// The conflict is either a key value collision, which a fresh value
		// resolves, or the holder already has a key for the application.
		if key.UserID != "" {
			if _, held := tx.GetApplicationKeyFor(ctx, key.UserID, key.ApplicationID); held == nil {
				return commerce.ApplicationKey{}, fmt.Errorf("application %s: %w", key.ApplicationID, ErrAlreadyOwned)
			}
		}
	}
	return commerce.ApplicationKey{}, ErrKeyCollision
}

func ownsLocked(ctx context.Context, tx storage.Store, userID, applicationID string) (bool, error) {
	app, err := tx.GetApplication(ctx, applicationID)
	if err != nil {
		return false, err
	}
	if app.OwnedBy(userID) {
		return true, nil
	}
	if _, err := tx.GetApplicationKeyFor(ctx, userID, applicationID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Service) mapTxErr(err error) error {
	if errors.Is(err, storage.ErrPartialState) {
		s.log.WithError(err).Warn("ledger left in partial state")
		return fmt.Errorf("%w: %v", ErrPartialFailure, err)
	}
	return err
}
