package handler

import (
	"errors"

	"github.com/ashwinyue/next-chat/internal/service/auth"
	"github.com/ashwinyue/next-chat/internal/service/chat"
)

func isBadRequest(err error) bool {
	return errors.Is(err, chat.ErrWorkflowNotFound)
}

func isUnauthorized(err error) bool {
	return errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrInvalidToken)
}

func isForbidden(err error) bool {
	return errors.Is(err, chat.ErrForbidden)
}

func isNotFound(err error) bool {
	return errors.Is(err, chat.ErrNotFound)
}
