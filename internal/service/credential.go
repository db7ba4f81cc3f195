package service

import "golang.org/x/crypto/bcrypt"

// CredentialVerifier checks submitted passwords against stored bcrypt
// hashes. It never touches tokens.
type CredentialVerifier struct{}

func (CredentialVerifier) Verify(password string, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password)) == nil
}

func (CredentialVerifier) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}
