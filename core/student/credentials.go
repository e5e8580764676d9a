package student

import (
	"crypto/rand"
	"math/big"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/bestqrov/lahwla/core"
)

const (
	emailDomainSuffix = ".com"

	generatedPasswordLength = 10
	// ambiguous characters (0, O, 1, l, I, o) left out
	passwordCharset = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// credentials is the result of provisioning a student login: the (possibly
// derived) email and the hash to store. GeneratedPassword is only set when no
// password was supplied; it is handed back once for delivery and never persisted.
type credentials struct {
	Email             string
	PasswordHash      []byte
	GeneratedPassword string
}

// provisionCredentials derives missing login credentials for a new student.
// The derived email is deterministic for a given name/surname/school; the
// generated password comes from a CSPRNG.
func provisionCredentials(name, surname, schoolName, email, password string) (credentials, error) {
	creds := credentials{Email: email}

	if creds.Email == "" {
		creds.Email = deriveEmail(name, surname, schoolName)
	}
	if password == "" {
		pwd, err := generatePassword(generatedPasswordLength)
		if err != nil {
			return credentials{}, errors.Wrap(err, "generating password")
		}
		password = pwd
		creds.GeneratedPassword = pwd
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return credentials{}, errors.Wrap(err, "hashing password")
	}
	creds.PasswordHash = hash
	return creds, nil
}

// deriveEmail builds "name.surname@school.com" with all spaces stripped and
// everything lowered.
func deriveEmail(name, surname, schoolName string) string {
	return core.StripSpaces(name) + "." + core.StripSpaces(surname) + "@" + core.StripSpaces(schoolName) + emailDomainSuffix
}

func generatePassword(length int) (string, error) {
	pwd := make([]byte, length)
	max := big.NewInt(int64(len(passwordCharset)))
	for i := range pwd {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		pwd[i] = passwordCharset[n.Int64()]
	}
	return string(pwd), nil
}
