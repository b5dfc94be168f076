package systemadapter

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// UUIDTokenGenerator mints opaque session tokens. Tokens carry no
// claims; they are only lookup handles.
type UUIDTokenGenerator struct{}

func (UUIDTokenGenerator) NewToken(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}
