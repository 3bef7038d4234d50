package fieldcipher

// Supported envelope algorithms. Only AES-256-GCM is produced today; the tag
// is stored so future algorithms can coexist with old ciphertext.
const AlgorithmAESGCM = "aes-256-gcm"

// Envelope is self-describing ciphertext: everything needed to decrypt it
// later, including after key rotation, travels with the data. Byte fields are
// base64 in JSON so envelopes can be persisted as-is.
type Envelope struct {
	Ciphertext []byte `json:"ciphertext"`
	KeyID      string `json:"key_id"`
	Algorithm  string `json:"algorithm"`
	Nonce      []byte `json:"nonce"`
}

// IsZero reports whether the envelope holds no ciphertext.
func (e Envelope) IsZero() bool {
	return len(e.Ciphertext) == 0 && e.KeyID == ""
}
