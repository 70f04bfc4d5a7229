package model

// RegisterTokenRequest is the request body for registering a device token.
type RegisterTokenRequest struct {
	Token    string `json:"token" validate:"required,max=4096"`
	Platform string `json:"platform" validate:"required,oneof=ios android"`
}

// Platform constants
const (
	PlatformIOS     = "ios"
	PlatformAndroid = "android"
)
