package utils

import "golang.org/x/crypto/bcrypt"

// HashSecret hashes a client secret for API_CLIENT_SECRET_HASH.
func HashSecret(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifySecret reports whether plain matches the bcrypt hash.
func VerifySecret(hash, plain string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
