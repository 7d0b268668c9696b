package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

type envelope struct {
	Type string `json:"type"`
}

// DecodeInbound parses one client message, returning its type discriminator
// and typed payload. The caller drops any returned error silently; bad input
// from one client never affects another connection.
func DecodeInbound(raw []byte) (string, any, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case TypeRegister, TypeRegisterPresence:
		var msg Register
		if err := json.Unmarshal(raw, &msg); err != nil {
			return env.Type, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if strings.TrimSpace(msg.Addr()) == "" || strings.TrimSpace(msg.Name) == "" {
			return env.Type, nil, fmt.Errorf("%w: register needs address and name", ErrMissingField)
		}
		return env.Type, msg, nil

	case TypeLookupAddress:
		var msg Lookup
		if err := json.Unmarshal(raw, &msg); err != nil {
			return env.Type, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if strings.TrimSpace(msg.Query) == "" {
			return env.Type, nil, fmt.Errorf("%w: lookup needs query", ErrMissingField)
		}
		return env.Type, msg, nil

	case TypeSendProposal, TypeKnockRequest:
		var msg SendProposal
		if err := json.Unmarshal(raw, &msg); err != nil {
			return env.Type, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if strings.TrimSpace(msg.Target()) == "" {
			return env.Type, nil, fmt.Errorf("%w: proposal needs target address", ErrMissingField)
		}
		return env.Type, msg, nil

	case TypeRespondToProposal, TypeKnockResponse:
		var msg RespondToProposal
		if err := json.Unmarshal(raw, &msg); err != nil {
			return env.Type, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if strings.TrimSpace(msg.PropID) == "" || strings.TrimSpace(msg.Action) == "" {
			return env.Type, nil, fmt.Errorf("%w: response needs propId and action", ErrMissingField)
		}
		return env.Type, msg, nil
	}

	return env.Type, nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
}
