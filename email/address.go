package email

import (
	"fmt"
	"regexp"
)

// AddressPrefix is the literal every feed address local part starts with
const AddressPrefix = "newsletter-"

var feedAddress = regexp.MustCompile(`^` + AddressPrefix + `([a-zA-Z0-9]+)@`)

// ExtractFeedID returns the feed token embedded in an address of the form newsletter-<token>@<domain>.
// Any other shape returns false. Case is preserved.
func ExtractFeedID(address string) (string, bool) {
	m := feedAddress.FindStringSubmatch(address)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Address builds the inbound address for the given feed token and mail domain
func Address(feedID, domain string) string {
	return fmt.Sprintf("%s%s@%s", AddressPrefix, feedID, domain)
}
