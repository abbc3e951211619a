// Package authz holds the authorization predicates handlers compose. The
// predicates are pure; entitlement lookups stay with the commerce service.
package authz

import (
	"github.com/frogworks/storefront/internal/app/domain/catalog"
	"github.com/frogworks/storefront/internal/app/domain/user"
)

// IsDeveloper reports whether the user may publish and manage listings.
// Administrators always may.
func IsDeveloper(u user.User) bool {
	return u.HasDeveloperRights()
}

// IsAdministrator reports whether the user holds the administrator role.
func IsAdministrator(u user.User) bool {
	return u.Administrator
}

// CanManageApplication reports whether the user may edit the listing, add
// versions, schedule sales or mint keys for it.
func CanManageApplication(u user.User, app catalog.Application) bool {
	return u.Administrator || app.OwnedBy(u.ID)
}

// CanActFor reports whether the user may operate on targetUserID's
// resources: themselves, or anyone when administrator.
func CanActFor(u user.User, targetUserID string) bool {
	return u.IsOrAdmin(targetUserID)
}
