// Package commerce defines the monetary ledger of the storefront: purchases,
// payer-centric transactions, deposits, application keys and in-app-purchase
// records.
package commerce

import (
	"time"

	"github.com/frogworks/storefront/internal/app/domain/money"
)

// Purchase types.
const (
	PurchaseTypeApplication = "application"
	PurchaseTypeIAP         = "iap"
)

// Purchase sources.
const (
	SourceSelf = "self"
	SourceGift = "gift"
)

// Application key types.
const (
	KeyTypePurchase = "purchase"
	KeyTypeCreator  = "creator"
)

// Transaction types.
const (
	TransactionTypePurchase = "purchase"
	TransactionTypeDeposit  = "deposit"
)

// ApplicationKey is the entitlement proving a user may access an
// application. Key values are globally unique.
type ApplicationKey struct {
	ID            string
	ApplicationID string
	Key           string
	Type          string
	Redeemed      bool
	UserID        string
}

// IAPRecord is one purchase event of an in-app purchase. Records are not
// unique per user; the same IAP may be bought repeatedly. Acknowledged flips
// false to true exactly once.
type IAPRecord struct {
	ID            string
	IAPID         string
	UserID        string
	ApplicationID string
	Date          time.Time
	Acknowledged  bool
}

// Purchase is an immutable record of a completed purchase. UserID is the
// recipient; the payer is found through the linked Transaction. IAPID is
// empty for application purchases, Key is empty for IAP purchases.
type Purchase struct {
	ID            string
	ApplicationID string
	IAPID         string
	UserID        string
	Type          string
	Source        string
	Price         money.Amount
	Key           string
	Date          time.Time
}

// Transaction links a payer to a purchase or deposit, enabling reverse
// lookup of who paid. Reference holds the purchase or deposit id.
type Transaction struct {
	ID        string
	UserID    string
	Reference string
	Type      string
	Date      time.Time
}

// Deposit is a balance top-up.
type Deposit struct {
	ID     string
	UserID string
	Amount money.Amount
	Source string
	Date   time.Time
}

// Receipt is returned by the purchase engine on success.
type Receipt struct {
	Purchase    Purchase
	Transaction Transaction
	Key         *ApplicationKey
	IAPRecord   *IAPRecord
}
