package message

import "github.com/kursadbilgin/rndc-gateway/internal/domain"

// CheckpointPayload reports a vehicle passing a GPS control point (procesoid 60).
// It is sent with the GPS operator credentials.
type CheckpointPayload struct {
	NumIDGPS            string `json:"numIdGps" validate:"required"`
	IngresoIDManifiesto string `json:"ingresoIdManifiesto" validate:"required"`
	NumPlaca            string `json:"numPlaca" validate:"required"`
	CodPuntoControl     string `json:"codPuntoControl" validate:"required"`
	Latitud             string `json:"latitud" validate:"required"`
	Longitud            string `json:"longitud" validate:"required"`
	FechaLlegada        string `json:"fechaLlegada" validate:"required"`
	HoraLlegada         string `json:"horaLlegada" validate:"required"`
	FechaSalida         string `json:"fechaSalida"`
	HoraSalida          string `json:"horaSalida"`
}

func (p CheckpointPayload) Kind() domain.Kind { return domain.KindCheckpoint }
func (p CheckpointPayload) Role() domain.Role { return domain.RoleGPS }
func (p CheckpointPayload) Reference() string { return p.NumPlaca }

func (p CheckpointPayload) solicitud() solicitud {
	return solicitud{tipo: tipoRegistroGPS, procesoID: procesoPuntoGPS}
}

func (p CheckpointPayload) writeBody(w *writer) {
	fields := []Field{
		{"numidgps", p.NumIDGPS},
		{"ingresoidmanifiesto", p.IngresoIDManifiesto},
		{"numplaca", p.NumPlaca},
		{"codpuntocontrol", p.CodPuntoControl},
		{"latitud", p.Latitud},
		{"longitud", p.Longitud},
		{"fechallegada", p.FechaLlegada},
		{"horallegada", p.HoraLlegada},
	}
	if p.FechaSalida != "" || p.HoraSalida != "" {
		fields = append(fields, Field{"fechasalida", p.FechaSalida}, Field{"horasalida", p.HoraSalida})
	}
	w.variables(fields)
}
