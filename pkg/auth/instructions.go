package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowLoginGuide explains where credentials can come from and in which
// order they are tried
func ShowLoginGuide(w io.Writer) {
	line := strings.Repeat("=", 72)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "VPN ACCOUNT SETUP")
	fmt.Fprintln(w, line)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "wgharvest logs into the VPN account dashboard with a username and")
	fmt.Fprintln(w, "password. They are looked up in this order:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  1. credentials.username / credentials.password in the config file")
	fmt.Fprintln(w, "  2. VPN_USERNAME / VPN_PASSWORD (or the WGHARVEST_VPN_ prefixed pair)")
	fmt.Fprintln(w, "  3. the system keychain, if one is available")
	fmt.Fprintf(w, "  4. an encrypted file in the config directory (%s unlocks it)\n", PassphraseEnv)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Use a dedicated account: the dashboard may rate limit or lock")
	fmt.Fprintln(w, "accounts that download many configurations.")
	fmt.Fprintln(w, line)
}

// ShowQuickGuide shows a condensed version for experienced users
func ShowQuickGuide(w io.Writer) {
	fmt.Fprintln(w, "Set VPN_USERNAME and VPN_PASSWORD, or run 'wgharvest auth login'.")
}
