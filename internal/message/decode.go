package message

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/kursadbilgin/rndc-gateway/internal/domain"
)

// Decode unmarshals a raw JSON item into the typed payload of the given kind.
func Decode(kind domain.Kind, raw []byte) (Payload, error) {
	var (
		p   Payload
		err error
	)
	switch kind {
	case domain.KindRemesa:
		var v RemesaPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case domain.KindManifiesto:
		var v ManifiestoPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case domain.KindCumplidoRemesa:
		var v CumplidoRemesaPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case domain.KindCumplidoManifiesto:
		var v CumplidoManifiestoPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case domain.KindCheckpoint:
		var v CheckpointPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case domain.KindQuery:
		var v QueryPayload
		err = json.Unmarshal(raw, &v)
		p = v
	default:
		return nil, fmt.Errorf("%w: unsupported kind %q", domain.ErrValidation, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s payload: %v", domain.ErrValidation, kind, err)
	}
	return p, nil
}
