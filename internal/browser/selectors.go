package browser

// Page selectors for the ProtonVPN account dashboard
const (
	selUsername      = "#username"
	selPassword      = "#password"
	selSubmit        = ".button-large"
	selNavigation    = ".navigation-item"
	selDownloadsNav  = ".navigation-item:nth-child(7) .text-ellipsis"
	selWireGuardTab  = ".flex:nth-child(4) > .mr-8:nth-child(1) > .relative"
	selPlatformRadio = ".flex:nth-child(4) > .mr-8:nth-child(3) .radio-fakeradio"
	selCountry       = ".mb-6 details"
	selCountryName   = "summary"
	selRow           = "tr"
	selServerID      = "td:nth-child(1)"
	selRowButton     = ".button"
	selConfirm       = ".button-solid-norm:nth-child(2)"
	selModalBackdrop = ".modal-two-backdrop"
	selAccountMenu   = ".p-1"
	selMenuSignOut   = ".mb-4 > .button"
)
