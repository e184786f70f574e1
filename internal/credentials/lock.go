package credentials

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// lockBcryptCost mirrors the teacher's identity package default: cost 10
// balances hashing time against brute-force resistance for a file that
// only ever needs to resist casual local tampering, not a networked
// attacker.
const lockBcryptCost = 10

// ErrWrongPassphrase indicates a lock passphrase did not match.
var ErrWrongPassphrase = errors.New("credentials: wrong passphrase")

// ErrNotLocked indicates Unlock was called on a context with no
// passphrase set.
var ErrNotLocked = errors.New("credentials: context is not locked")

// Lock stores a bcrypt hash of passphrase on name's context, which
// Unlock and RemoveLock later check. The token itself stays in the
// config file in plain text, and connection resolution
// (cmdutil.ResolveConnection) does not consult the lock.
func (s *Store) Lock(name, passphrase string) error {
	ctx, ok := s.config.Contexts[name]
	if !ok {
		return ErrContextNotFound
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), lockBcryptCost)
	if err != nil {
		return err
	}
	ctx.PassphraseHash = string(hash)
	return s.save()
}

// Unlock verifies passphrase against name's stored hash. It returns
// ErrNotLocked if the context was never locked.
func (s *Store) Unlock(name, passphrase string) error {
	ctx, ok := s.config.Contexts[name]
	if !ok {
		return ErrContextNotFound
	}
	if ctx.PassphraseHash == "" {
		return ErrNotLocked
	}
	if err := bcrypt.CompareHashAndPassword([]byte(ctx.PassphraseHash), []byte(passphrase)); err != nil {
		return ErrWrongPassphrase
	}
	return nil
}

// IsLocked reports whether a passphrase has been set for the context.
func (c *Context) IsLocked() bool {
	return c.PassphraseHash != ""
}

// RemoveLock clears name's passphrase, requiring the current passphrase
// to do so.
func (s *Store) RemoveLock(name, passphrase string) error {
	if err := s.Unlock(name, passphrase); err != nil {
		return err
	}
	s.config.Contexts[name].PassphraseHash = ""
	return s.save()
}
