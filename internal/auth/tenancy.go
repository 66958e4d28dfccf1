package auth

import "context"

// PlatformCompanyID is the company the platform operator's own staff
// belong to. Platform admins in this company may act across companies.
const PlatformCompanyID int64 = 1

// IsPlatformAdmin reports whether the caller is a platform operator
func IsPlatformAdmin(ctx context.Context) bool {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return false
	}
	return claims.CompanyID == PlatformCompanyID && claims.HasRole("platform_admin")
}

// GetTargetCompanyID resolves which company a request should act on.
// Platform admins may pass an explicit target; everyone else is pinned
// to their own company.
func GetTargetCompanyID(ctx context.Context, requested *int64) int64 {
	if requested != nil && *requested > 0 && IsPlatformAdmin(ctx) {
		return *requested
	}
	return CompanyIDFromContext(ctx)
}

// CanManageCompany checks if the caller can manage the target company
func CanManageCompany(ctx context.Context, targetCompanyID int64) bool {
	if IsPlatformAdmin(ctx) {
		return true
	}
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return false
	}
	return claims.CompanyID == targetCompanyID && claims.HasRole("company_admin")
}
