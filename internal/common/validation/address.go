package validation

import "regexp"

// EmailPattern is the address rule shared by form validation, configuration
// and the mailer: one "@", no whitespace or header delimiters, and a dot in
// the domain.
const EmailPattern = `^[^\s<>,@]+@[^\s<>,@]*\.[^\s<>,@]*$`

var emailAddress = regexp.MustCompile(EmailPattern)

// IsEmail reports whether s is a deliverable address under EmailPattern.
func IsEmail(s string) bool {
	return emailAddress.MatchString(s)
}
