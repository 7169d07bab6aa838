package models

import "strings"

// SecretMaskRune marks a provider key as masked. A submitted key containing it
// means "leave the stored key unchanged".
const SecretMaskRune = '•'

// Profile holds the academic context of a user and their Gemini API key.
// Field names on the wire follow the browser client.
type Profile struct {
	UserID      int64  `json:"user_id"`
	Institution string `json:"university"`
	Term        string `json:"semester"`
	Course      string `json:"course"`
	APIKey      string `json:"gemini_api_key"`
	HasAPIKey   bool   `json:"has_api_key"`
	Name        string `json:"name"`
	Email       string `json:"email"`
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	Institution string `json:"university"`
	Term        string `json:"semester"`
	Course      string `json:"course"`
	APIKey      string `json:"gemini_api_key"`
}

// Masked returns a copy of the profile that is safe to send to the client.
func (p Profile) Masked() Profile {
	p.HasAPIKey = p.APIKey != ""
	p.APIKey = MaskSecret(p.APIKey)
	return p
}

// MaskSecret hides all but the last four characters of a secret behind mask runes.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	r := []rune(secret)
	tail := ""
	if len(r) > 8 {
		tail = string(r[len(r)-4:])
	}
	return strings.Repeat(string(SecretMaskRune), 8) + tail
}

// IsMaskedSecret reports whether a submitted secret is a masked placeholder.
func IsMaskedSecret(secret string) bool {
	return strings.ContainsRune(secret, SecretMaskRune)
}
