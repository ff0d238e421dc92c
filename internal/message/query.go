package message

import (
	"strings"

	"github.com/kursadbilgin/rndc-gateway/internal/domain"
)

// QueryPayload is a consultation against one RNDC process. Variables lists the
// fields to return and Filters are matched in order against stored records.
type QueryPayload struct {
	ProcesoID string      `json:"procesoId" validate:"required,numeric"`
	QueryRole domain.Role `json:"role"`
	Variables []string    `json:"variables" validate:"required,min=1,dive,required"`
	Filters   []Field     `json:"filters" validate:"dive"`
}

func (p QueryPayload) Kind() domain.Kind { return domain.KindQuery }

func (p QueryPayload) Role() domain.Role {
	if p.QueryRole == domain.RoleGPS {
		return domain.RoleGPS
	}
	return domain.RoleRNDC
}

func (p QueryPayload) Reference() string { return p.ProcesoID }

func (p QueryPayload) solicitud() solicitud {
	if p.Role() == domain.RoleGPS {
		return solicitud{tipo: tipoConsultaGPS, procesoID: p.ProcesoID}
	}
	return solicitud{tipo: tipoConsulta, procesoID: p.ProcesoID}
}

func (p QueryPayload) writeBody(w *writer) {
	vars := make([]string, 0, len(p.Variables))
	for _, v := range p.Variables {
		if v = strings.TrimSpace(v); v != "" {
			vars = append(vars, v)
		}
	}
	w.element("variables", strings.Join(vars, ","))
	w.open("documento")
	w.fields(p.Filters)
	w.close("documento")
}
