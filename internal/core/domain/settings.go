package domain

// Settings keys owned by the broker.
const (
	KeyClientID           = "waf_client_id"
	KeyClientSecret       = "waf_client_secret"
	KeyAuthToken          = "waf_auth_token"
	KeyEncryptionKey      = "waf_encryption_key"
	KeyInstallationSecret = "waf_installation_secret"
	KeySubscription       = "waf_subscription"
	KeyCompletedSteps     = "waf_completed_steps"
	KeyProtectionStatus   = "waf_protection_status"
)

// PurgeableKeys are removed on uninstall. The encryption key and
// installation secret are kept so a reinstall can still read old blobs.
func PurgeableKeys() []string {
	return []string{
		KeyClientID,
		KeyClientSecret,
		KeyAuthToken,
		KeySubscription,
		KeyCompletedSteps,
		KeyProtectionStatus,
	}
}
