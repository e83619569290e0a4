package telegram

import (
	"strconv"
	"strings"
	"sync"

	"github.com/iksnae/corebos/internal"
)

// CheckAccess admits from only when it is the connected operator. A zero
// connected id means no operator is set yet.
func CheckAccess(from, connected int64) error {
	if from == 0 {
		return internal.Errorf(internal.KindMissingSender, "ExpectedFromUserIdToCheckAccess", "the update has no sender")
	}
	if connected == 0 || from != connected {
		return internal.NewError(internal.KindUnauthorized, "CommandRequiresConnectCode", nil)
	}
	return nil
}

// ParseConnectCode checks that code is a numeric chat id and not the bot id
// at the front of the API key.
func ParseConnectCode(code, apiKey string) (int64, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, internal.Errorf(internal.KindInvalidConnectCode, "ExpectedConnectCodeToStartTelegramBot", "a connect code is required")
	}
	id, err := strconv.ParseInt(code, 10, 64)
	if err != nil || id <= 0 {
		return 0, internal.Errorf(internal.KindInvalidConnectCode, "", "expected numeric connect code from /connect command")
	}
	if strings.HasPrefix(apiKey, code+":") {
		return 0, internal.Errorf(internal.KindInvalidConnectCode, "ExpectedConnectCodeFromConnectCommandNotBotId", "expected /connect code, not bot id from API key")
	}
	return id, nil
}

// Operator is the one chat identity allowed to run privileged commands. It
// moves from unset to set once and never back.
type Operator struct {
	mu sync.RWMutex
	id int64
}

// ID returns the operator id, or 0 while unset
func (o *Operator) ID() int64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.id
}

// Confirm validates code and records it as the operator.
func (o *Operator) Confirm(code, apiKey string) error {
	id, err := ParseConnectCode(code, apiKey)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.id != 0 {
		return internal.Errorf(internal.KindOperatorAlreadySet, "", "operator is already %d", o.id)
	}
	o.id = id
	internal.LogDebug("Operator set to %d", id)
	return nil
}
