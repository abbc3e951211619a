package httpapi

import (
	"time"

	"github.com/frogworks/storefront/internal/app/domain/activity"
	"github.com/frogworks/storefront/internal/app/domain/catalog"
	"github.com/frogworks/storefront/internal/app/domain/clouddata"
	"github.com/frogworks/storefront/internal/app/domain/commerce"
	"github.com/frogworks/storefront/internal/app/domain/money"
	"github.com/frogworks/storefront/internal/app/domain/session"
	"github.com/frogworks/storefront/internal/app/domain/social"
	"github.com/frogworks/storefront/internal/app/domain/user"
)

// Wire shapes. Domain structs never cross the API boundary directly; these
// views control exactly what clients see.

type userView struct {
	Identifier     string    `json:"identifier"`
	Username       string    `json:"username"`
	Name           string    `json:"name"`
	Joined         time.Time `json:"joined"`
	ProfilePhotoID string    `json:"profile_photo_id,omitempty"`
	Developer      bool      `json:"developer"`
}

type profileView struct {
	userView
	Email         string `json:"email"`
	Balance       string `json:"balance"`
	Administrator bool   `json:"administrator"`
	Verified      bool   `json:"verified"`
}

func publicUser(u user.User) userView {
	return userView{
		Identifier:     u.Identifier,
		Username:       u.Username,
		Name:           u.Name,
		Joined:         u.Joined,
		ProfilePhotoID: u.ProfilePhotoID,
		Developer:      u.Developer,
	}
}

func privateUser(u user.User) profileView {
	return profileView{
		userView:      publicUser(u),
		Email:         u.Email,
		Balance:       money.Format(u.Balance),
		Administrator: u.Administrator,
		Verified:      u.Verified,
	}
}

type sessionView struct {
	ID           string    `json:"id"`
	Hostname     string    `json:"hostname"`
	Platform     string    `json:"platform"`
	StartDate    time.Time `json:"start_date"`
	LastActivity time.Time `json:"last_activity"`
}

func sessionToView(s session.Session) sessionView {
	return sessionView{
		ID:           s.ID,
		Hostname:     s.Hostname,
		Platform:     s.Platform,
		StartDate:    s.StartDate,
		LastActivity: s.LastActivity,
	}
}

type applicationView struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	PackageName        string    `json:"package_name"`
	Type               string    `json:"type"`
	Description        string    `json:"description"`
	ReleaseDate        time.Time `json:"release_date"`
	EarlyAccess        bool      `json:"early_access"`
	LatestVersion      string    `json:"latest_version,omitempty"`
	SupportedPlatforms []string  `json:"supported_platforms"`
	Genres             []string  `json:"genres"`
	Tags               []string  `json:"tags"`
	Price              string    `json:"price"`
}

func applicationToView(app catalog.Application) applicationView {
	return applicationView{
		ID:                 app.ID,
		Name:               app.Name,
		PackageName:        app.PackageName,
		Type:               app.Type,
		Description:        app.Description,
		ReleaseDate:        app.ReleaseDate,
		EarlyAccess:        app.EarlyAccess,
		LatestVersion:      app.LatestVersion,
		SupportedPlatforms: app.SupportedPlatforms,
		Genres:             app.Genres,
		Tags:               app.Tags,
		Price:              money.Format(app.BasePrice),
	}
}

type versionView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Platform    string    `json:"platform"`
	ReleaseDate time.Time `json:"release_date"`
	Filename    string    `json:"filename"`
	Executable  string    `json:"executable"`
}

func versionToView(v catalog.Version) versionView {
	return versionView{
		ID:          v.ID,
		Name:        v.Name,
		Platform:    v.Platform,
		ReleaseDate: v.ReleaseDate,
		Filename:    v.Filename,
		Executable:  v.Executable,
	}
}

type saleView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

func saleToView(s catalog.Sale) saleView {
	return saleView{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		Price:       money.Format(s.Price),
		StartDate:   s.StartDate,
		EndDate:     s.EndDate,
	}
}

type iapView struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Price       string         `json:"price"`
	Data        map[string]any `json:"data,omitempty"`
}

func iapToView(iap catalog.IAP) iapView {
	return iapView{
		ID:          iap.ID,
		Title:       iap.Title,
		Description: iap.Description,
		Price:       money.Format(iap.Price),
		Data:        iap.Data,
	}
}

type keyView struct {
	ID            string `json:"id"`
	Key           string `json:"key"`
	ApplicationID string `json:"application_id"`
	Type          string `json:"type"`
	Redeemed      bool   `json:"redeemed"`
}

func keyToView(k commerce.ApplicationKey) keyView {
	return keyView{
		ID:            k.ID,
		Key:           k.Key,
		ApplicationID: k.ApplicationID,
		Type:          k.Type,
		Redeemed:      k.Redeemed,
	}
}

type purchaseView struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"application_id"`
	IAPID         string    `json:"iap_id,omitempty"`
	Type          string    `json:"type"`
	Source        string    `json:"source"`
	Price         string    `json:"price"`
	Key           string    `json:"key,omitempty"`
	Date          time.Time `json:"date"`
}

func purchaseToView(p commerce.Purchase) purchaseView {
	return purchaseView{
		ID:            p.ID,
		ApplicationID: p.ApplicationID,
		IAPID:         p.IAPID,
		Type:          p.Type,
		Source:        p.Source,
		Price:         money.Format(p.Price),
		Key:           p.Key,
		Date:          p.Date,
	}
}

type transactionView struct {
	ID        string    `json:"id"`
	Reference string    `json:"reference"`
	Type      string    `json:"type"`
	Date      time.Time `json:"date"`
}

func transactionToView(t commerce.Transaction) transactionView {
	return transactionView{
		ID:        t.ID,
		Reference: t.Reference,
		Type:      t.Type,
		Date:      t.Date,
	}
}

type receiptView struct {
	Purchase    purchaseView    `json:"purchase"`
	Transaction transactionView `json:"transaction"`
	Key         *keyView        `json:"key,omitempty"`
	IAPRecord   *iapRecordView  `json:"iap_record,omitempty"`
}

func receiptToView(rcpt commerce.Receipt) receiptView {
	view := receiptView{
		Purchase:    purchaseToView(rcpt.Purchase),
		Transaction: transactionToView(rcpt.Transaction),
	}
	if rcpt.Key != nil {
		kv := keyToView(*rcpt.Key)
		view.Key = &kv
	}
	if rcpt.IAPRecord != nil {
		rv := iapRecordToView(*rcpt.IAPRecord)
		view.IAPRecord = &rv
	}
	return view
}

type iapRecordView struct {
	ID            string    `json:"id"`
	IAPID         string    `json:"iap_id"`
	ApplicationID string    `json:"application_id"`
	Date          time.Time `json:"date"`
	Acknowledged  bool      `json:"acknowledged"`
}

func iapRecordToView(r commerce.IAPRecord) iapRecordView {
	return iapRecordView{
		ID:            r.ID,
		IAPID:         r.IAPID,
		ApplicationID: r.ApplicationID,
		Date:          r.Date,
		Acknowledged:  r.Acknowledged,
	}
}

type friendView struct {
	Identifier string    `json:"identifier"`
	Username   string    `json:"username"`
	Since      time.Time `json:"since"`
}

type friendRequestView struct {
	ID   string    `json:"id"`
	From userView  `json:"from"`
	Date time.Time `json:"date"`
}

func friendRequestToView(r social.FriendRequest, from user.User) friendRequestView {
	return friendRequestView{ID: r.ID, From: publicUser(from), Date: r.Date}
}

type inviteView struct {
	ID            string         `json:"id"`
	From          userView       `json:"from"`
	ApplicationID string         `json:"application_id"`
	Details       map[string]any `json:"details,omitempty"`
	Date          time.Time      `json:"date"`
}

func inviteToView(inv social.Invite, from user.User) inviteView {
	return inviteView{
		ID:            inv.ID,
		From:          publicUser(from),
		ApplicationID: inv.ApplicationID,
		Details:       inv.Details,
		Date:          inv.Date,
	}
}

type cloudSaveView struct {
	ApplicationID string         `json:"application_id"`
	Data          map[string]any `json:"data"`
	Date          time.Time      `json:"date"`
}

func cloudSaveToView(s clouddata.Save) cloudSaveView {
	return cloudSaveView{
		ApplicationID: s.ApplicationID,
		Data:          s.Data,
		Date:          s.Date,
	}
}

type playSessionView struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"application_id"`
	Date          time.Time `json:"date"`
	Length        int       `json:"length"`
}

func playSessionToView(ps activity.PlaySession) playSessionView {
	return playSessionView{
		ID:            ps.ID,
		ApplicationID: ps.ApplicationID,
		Date:          ps.Date,
		Length:        ps.Length,
	}
}
