package models

import "errors"

var (
	ErrUnknownInvitation  = errors.New("invitation not found on booking")
	ErrInvitationResolved = errors.New("invitation already answered")
)
