package hash

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

var compare = bcrypt.CompareHashAndPassword

var dummyHash = sync.OnceValue(func() []byte {
	h, _ := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)
	return h
})

func HashPassword(password string) (string, error) {
	hashbytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hashbytes), nil
}

// CheckPassword reports whether password matches hash. An empty hash is
// compared against a fixed dummy hash so a missing account costs the same
// bcrypt work as a wrong password.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		_ = compare(dummyHash(), []byte(password))
		return false
	}
	return compare([]byte(hash), []byte(password)) == nil
}
