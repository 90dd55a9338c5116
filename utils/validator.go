// utils/validator.go - Input validation
package utils

import (
	"regexp"
	"strings"
)

var (
	assignmentIDRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	walletRegex       = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// ValidateAssignmentID checks the id looks like a UUID.
func ValidateAssignmentID(id string) bool {
	return assignmentIDRegex.MatchString(id)
}

// ValidateWalletAddress checks the wallet has the expected hex form.
func ValidateWalletAddress(wallet string) bool {
	return walletRegex.MatchString(wallet)
}

// SanitizeInput removes potentially harmful characters
func SanitizeInput(input string) string {
	// Remove leading/trailing spaces
	input = strings.TrimSpace(input)

	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	return input
}
