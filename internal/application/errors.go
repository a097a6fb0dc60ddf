package application

import "errors"

var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUserNotFound         = errors.New("user not found")
	ErrEmailTaken           = errors.New("user already exists with this email")
	ErrAccountInactive      = errors.New("account is deactivated")
	ErrPasswordMismatch     = errors.New("password is incorrect")
	ErrCannotAddSelf        = errors.New("cannot add yourself as a family member")
	ErrAlreadyFamily        = errors.New("user is already a family member")
	ErrFamilyMemberNotFound = errors.New("user not found with this email")
	ErrSessionExpired       = errors.New("session expired")

	ErrSymptomNotFound    = errors.New("symptom log not found")
	ErrInvalidID          = errors.New("invalid id")
	ErrStorageUnavailable = errors.New("file storage not configured")
	ErrUnsupportedFile    = errors.New("unsupported file type")
)
