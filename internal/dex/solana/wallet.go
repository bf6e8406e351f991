package solana

import (
	"errors"
	"os"

	solana "github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
)

// PrivateKeyEnv names the environment variable holding the base58 signing key.
const PrivateKeyEnv = "SOLANA_PRIVATE_KEY_BASE58"

// LoadPrivateKeyFromEnv reads the signing key, honouring a local .env file.
func LoadPrivateKeyFromEnv() (solana.PrivateKey, error) {
	_ = godotenv.Load() // best-effort
	b58 := os.Getenv(PrivateKeyEnv)
	if b58 == "" {
		return nil, errors.New(PrivateKeyEnv + " not set")
	}
	return solana.PrivateKeyFromBase58(b58)
}
