package utils

import (
	"fmt"

	"github.com/ttacon/libphonenumber"
)

var CountryCode = "US"

// NormalizePhoneNumber validates phoneNumber for countryCode and formats it as E.164.
func NormalizePhoneNumber(phoneNumber, countryCode string) (string, error) {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return "", err
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", fmt.Errorf("phone number %q is not valid", phoneNumber)
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}
