package crypto

import "golang.org/x/crypto/bcrypt"

// passwordCost pins the bcrypt work factor so stored hashes stay
// comparable across deployments.
const passwordCost = 10

// HashPassword hashes plaintext using bcrypt.
func HashPassword(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), passwordCost)
}

// ComparePassword compares plaintext to hashed secret.
func ComparePassword(hash []byte, plain string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain))
}
