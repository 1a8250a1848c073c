package models

// TOTPSetupResponse returned when initiating 2FA setup
type TOTPSetupResponse struct {
	Secret      string `json:"secret"`  // Base32 secret for manual entry
	QRCode      string `json:"qr_code"` // PNG data URL
	Issuer      string `json:"issuer"`
	AccountName string `json:"account_name"` // Owner's email
}

// TOTPCodeRequest carries a 6-digit authenticator code
type TOTPCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// TOTPLoginRequest completes a login that stopped at the second factor
type TOTPLoginRequest struct {
	TempToken string `json:"temp_token" validate:"required"`
	Code      string `json:"code" validate:"required,len=6,numeric"`
}

// TOTPDisableRequest requires both the password and a current code
type TOTPDisableRequest struct {
	Password string `json:"password" validate:"required"`
	Code     string `json:"code" validate:"required,len=6,numeric"`
}

// LoginStep1Response when 2FA is required after password verification
type LoginStep1Response struct {
	Requires2FA bool   `json:"requires_2fa"`
	TempToken   string `json:"temp_token,omitempty"`
	Message     string `json:"message,omitempty"`
}
