package domain

import (
	"fmt"
	"strings"
)

// Kind identifies the RNDC message family a batch or query belongs to.
type Kind string

const (
	KindCheckpoint         Kind = "checkpoint"
	KindRemesa             Kind = "remesa"
	KindManifiesto         Kind = "manifiesto"
	KindCumplidoRemesa     Kind = "cumplido_remesa"
	KindCumplidoManifiesto Kind = "cumplido_manifiesto"
	KindQuery              Kind = "query"
)

func (k Kind) String() string { return string(k) }

func (k Kind) IsValid() bool {
	switch k {
	case KindCheckpoint, KindRemesa, KindManifiesto, KindCumplidoRemesa, KindCumplidoManifiesto, KindQuery:
		return true
	}
	return false
}

// IsBatchKind reports whether submissions of this kind are routed through batches.
func (k Kind) IsBatchKind() bool {
	return k.IsValid() && k != KindQuery
}

func ParseKindFromString(s string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	k := Kind(normalized)
	if !k.IsValid() {
		return "", fmt.Errorf("%w: invalid kind %q", ErrValidation, s)
	}
	return k, nil
}

// BatchKinds returns every kind accepted by the batch orchestrator.
func BatchKinds() []Kind {
	return []Kind{KindCheckpoint, KindRemesa, KindManifiesto, KindCumplidoRemesa, KindCumplidoManifiesto}
}
