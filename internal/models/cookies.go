package models

// LogoutCookieName is shared by both principal kinds; its presence on a
// request clears that kind's session cookies before anything else runs.
const LogoutCookieName = "logout"

// CookieNames is the cookie name set for one principal kind. The customer and
// staff session stacks are structurally identical and differ only here.
type CookieNames struct {
	Access           string
	Refresh          string
	Display          string
	BootstrapAccess  string
	BootstrapDisplay string
}

func CustomerCookies() CookieNames {
	return CookieNames{
		Access:           "access-token",
		Refresh:          "refresh-token",
		Display:          "dummy-token",
		BootstrapAccess:  "temporary-facebook-access-token",
		BootstrapDisplay: "temporary-facebook-dummy-token",
	}
}

func StaffCookies() CookieNames {
	return CookieNames{
		Access:           "admin-access-token",
		Refresh:          "admin-refresh-token",
		Display:          "admin-dummy-token",
		BootstrapAccess:  "temporary-admin-access-token",
		BootstrapDisplay: "temporary-admin-dummy-token",
	}
}
