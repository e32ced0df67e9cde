package config

import (
	"errors"
	"fmt"
)

var (
	ErrIncorrectExportFormat  = errors.New("incorrect export format")
	ErrIncorrectAuthMethod    = errors.New("incorrect authentication method")
	ErrMissingCredentialsFile = errors.New("missing credentials file")
	ErrInvalidSetting         = errors.New("invalid setting")
)

// IncorrectExportFormatError reports an export_format outside the known set.
type IncorrectExportFormatError struct {
	Value     string
	Available []string
}

func (e *IncorrectExportFormatError) Error() string {
	return fmt.Sprintf("%s is an incorrect export format! export_format must be one of %v", e.Value, e.Available)
}

func (e *IncorrectExportFormatError) Unwrap() error { return ErrIncorrectExportFormat }

// IncorrectAuthMethodError reports an authentication_method outside the known set.
type IncorrectAuthMethodError struct {
	Value     string
	Available []string
}

func (e *IncorrectAuthMethodError) Error() string {
	return fmt.Sprintf("%s is an incorrect authentication method! authentication_method must be one of %v", e.Value, e.Available)
}

func (e *IncorrectAuthMethodError) Unwrap() error { return ErrIncorrectAuthMethod }

// MissingCredentialsFileError is returned when client_secret.json or
// service_account.json is absent from the config directory.
type MissingCredentialsFileError struct {
	File      string
	ConfigDir string
}

func (e *MissingCredentialsFileError) Error() string {
	return fmt.Sprintf("%s is missing! Create and download it from the Google Cloud console, then copy it to %s", e.File, e.ConfigDir)
}

func (e *MissingCredentialsFileError) Unwrap() error { return ErrMissingCredentialsFile }
