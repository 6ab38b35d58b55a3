package domain

// Credentials is the client id/secret pair issued at site registration.
// ClientSecret is only ever held decrypted in memory.
type Credentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"-"` // Never serialize
}

// IsComplete reports whether both halves of the pair are present.
func (c Credentials) IsComplete() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// CredentialSummary provides a safe view without the secret
type CredentialSummary struct {
	Registered bool   `json:"registered"`
	ClientID   string `json:"client_id,omitempty"`
}

// ToSummary converts Credentials to CredentialSummary
func (c Credentials) ToSummary() CredentialSummary {
	return CredentialSummary{
		Registered: c.IsComplete(),
		ClientID:   c.ClientID,
	}
}
