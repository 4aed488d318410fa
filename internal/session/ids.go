package session

import (
	"fmt"

	"github.com/google/uuid"
)

func parseSessionID(id string) (uuid.UUID, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid session id %q: %w", id, err)
	}
	return parsed, nil
}
