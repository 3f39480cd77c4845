package auth

import "golang.org/x/crypto/bcrypt"

// bcrypt silently ignores input past 72 bytes; truncate explicitly so hashing
// and verification agree on long passphrases.
const bcryptInputLimit = 72

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword(truncate(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), truncate(plain))
}

func truncate(password string) []byte {
	raw := []byte(password)
	if len(raw) > bcryptInputLimit {
		raw = raw[:bcryptInputLimit]
	}
	return raw
}
