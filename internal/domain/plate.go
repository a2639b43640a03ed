package domain

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
)

var ErrInvalidPlate = errors.New("placa inválida")

// Three letters, one digit, one letter or digit, two digits. Covers both the
// legacy ABC1234 layout and the unified ABC1D23 layout.
var platePattern = regexp.MustCompile(`^[A-Z]{3}[0-9][A-Z0-9][0-9]{2}$`)

// NormalizePlate removes whitespace and hyphens, upper-cases the result and checks
// it against the accepted plate layout. Nothing is returned for a plate that does
// not match.
func NormalizePlate(raw string) (string, error) {
	plate := strings.Map(func(r rune) rune {
		if r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	plate = strings.ToUpper(plate)
	if !platePattern.MatchString(plate) {
		return "", ErrInvalidPlate
	}
	return plate, nil
}
