package handshake

import (
	"errors"

	"golang.org/x/crypto/ssh"
)

// KeyInfo describes a private key without exposing it
type KeyInfo struct {
	Type        string // e.g. ssh-ed25519, empty when unknown
	Fingerprint string // SHA256 fingerprint of the public half, when known
	Encrypted   bool
}

// InspectKey parses a PEM/OpenSSH private key to report what it is. The server
// stays the authority on whether the key is usable, so callers only log or warn.
func InspectKey(pemBytes []byte) (KeyInfo, error) {
	signer, err := ssh.ParsePrivateKey(pemBytes)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			info := KeyInfo{Encrypted: true}
			if missing.PublicKey != nil {
				info.Type = missing.PublicKey.Type()
				info.Fingerprint = ssh.FingerprintSHA256(missing.PublicKey)
			}
			return info, nil
		}
		return KeyInfo{}, err
	}

	pub := signer.PublicKey()
	return KeyInfo{
		Type:        pub.Type(),
		Fingerprint: ssh.FingerprintSHA256(pub),
	}, nil
}

// CheckPassphrase reports whether passphrase decrypts an encrypted key
func CheckPassphrase(pemBytes []byte, passphrase string) bool {
	if passphrase == "" {
		return false
	}
	_, err := ssh.ParsePrivateKeyWithPassphrase(pemBytes, []byte(passphrase))
	return err == nil
}
