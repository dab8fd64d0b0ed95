package storage

import "errors"

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrTokenNotFound     = errors.New("refresh token not found")

	// ErrDocumentNotFound - у пользователя нет документа с таким ключом
	ErrDocumentNotFound = errors.New("document not found")
)
