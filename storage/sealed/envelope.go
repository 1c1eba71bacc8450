package sealed

import (
	"fmt"

	"github.com/jmcleod/carepoint/internal/util"
)

const (
	envelopeVer    = 1
	envelopeScheme = "aes256gcm"
)

// Envelope is a sealed value containing AES-256-GCM encrypted data.
type Envelope struct {
	Ver        int    `json:"ver"`
	Scheme     string `json:"scheme"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Seal encrypts plaintext into an Envelope using key and AAD.
func Seal(key, plaintext, aad []byte) (*Envelope, error) {
	nonce, ct, err := util.SealGCM(key, plaintext, aad)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		Ver:        envelopeVer,
		Scheme:     envelopeScheme,
		Nonce:      nonce,
		Ciphertext: ct,
	}, nil
}

// Open decrypts an Envelope using key and AAD.
func Open(key []byte, env *Envelope, aad []byte) ([]byte, error) {
	if env.Ver != envelopeVer {
		return nil, fmt.Errorf("unsupported envelope version: %d", env.Ver)
	}
	if env.Scheme != envelopeScheme {
		return nil, fmt.Errorf("unsupported envelope scheme: %s", env.Scheme)
	}
	return util.OpenGCM(key, env.Nonce, env.Ciphertext, aad)
}
