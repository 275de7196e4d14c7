package utils

import "golang.org/x/crypto/bcrypt"

func HashPassword(s string, cost int) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(s), cost)
}

func ComparePassword(hashed string, normal string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(normal))
}
