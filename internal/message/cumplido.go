package message

import "github.com/kursadbilgin/rndc-gateway/internal/domain"

// CumplidoRemesaPayload confirms fulfilment of a registered remesa (procesoid 5).
type CumplidoRemesaPayload struct {
	NitEmpresa             string `json:"nitEmpresa" validate:"required"`
	ConsecutivoRemesa      string `json:"consecutivoRemesa" validate:"required"`
	NumManifiestoCarga     string `json:"numManifiestoCarga" validate:"required"`
	TipoCumplido           string `json:"tipoCumplido" validate:"required"`
	CantidadEntregada      string `json:"cantidadEntregada" validate:"required"`
	UnidadMedidaCapacidad  string `json:"unidadMedidaCapacidad" validate:"required"`
	FechaLlegadaCargue     string `json:"fechaLlegadaCargue" validate:"required"`
	HoraLlegadaCargue      string `json:"horaLlegadaCargue" validate:"required"`
	FechaEntradaCargue     string `json:"fechaEntradaCargue" validate:"required"`
	HoraEntradaCargue      string `json:"horaEntradaCargue" validate:"required"`
	FechaSalidaCargue      string `json:"fechaSalidaCargue" validate:"required"`
	HoraSalidaCargue       string `json:"horaSalidaCargue" validate:"required"`
	FechaLlegadaDescargue  string `json:"fechaLlegadaDescargue" validate:"required"`
	HoraLlegadaDescargue   string `json:"horaLlegadaDescargue" validate:"required"`
	FechaEntradaDescargue  string `json:"fechaEntradaDescargue" validate:"required"`
	HoraEntradaDescargue   string `json:"horaEntradaDescargue" validate:"required"`
	FechaSalidaDescargue   string `json:"fechaSalidaDescargue" validate:"required"`
	HoraSalidaDescargue    string `json:"horaSalidaDescargue" validate:"required"`
	MotivoSuspension       string `json:"motivoSuspension,omitempty"`
	ConsecuenciaSuspension string `json:"consecuenciaSuspension,omitempty"`
}

func (p CumplidoRemesaPayload) Kind() domain.Kind { return domain.KindCumplidoRemesa }
func (p CumplidoRemesaPayload) Role() domain.Role { return domain.RoleRNDC }
func (p CumplidoRemesaPayload) Reference() string { return p.ConsecutivoRemesa }

func (p CumplidoRemesaPayload) solicitud() solicitud {
	return solicitud{tipo: tipoRegistro, procesoID: procesoCumplRem}
}

func (p CumplidoRemesaPayload) writeBody(w *writer) {
	fields := []Field{
		{"NUMNITEMPRESATRANSPORTE", p.NitEmpresa},
		{"CONSECUTIVOREMESA", p.ConsecutivoRemesa},
		{"NUMMANIFIESTOCARGA", p.NumManifiestoCarga},
		{"TIPOCUMPLIDOREMESA", p.TipoCumplido},
		{"CANTIDADENTREGADA", p.CantidadEntregada},
		{"UNIDADMEDIDACAPACIDAD", p.UnidadMedidaCapacidad},
		{"FECHALLEGADACARGUE", p.FechaLlegadaCargue},
		{"HORALLEGADACARGUEREMESA", p.HoraLlegadaCargue},
		{"FECHAENTRADACARGUE", p.FechaEntradaCargue},
		{"HORAENTRADACARGUEREMESA", p.HoraEntradaCargue},
		{"FECHASALIDACARGUE", p.FechaSalidaCargue},
		{"HORASALIDACARGUEREMESA", p.HoraSalidaCargue},
		{"FECHALLEGADADESCARGUE", p.FechaLlegadaDescargue},
		{"HORALLEGADADESCARGUECUMPLIDO", p.HoraLlegadaDescargue},
		{"FECHAENTRADADESCARGUE", p.FechaEntradaDescargue},
		{"HORAENTRADADESCARGUECUMPLIDO", p.HoraEntradaDescargue},
		{"FECHASALIDADESCARGUE", p.FechaSalidaDescargue},
		{"HORASALIDADESCARGUECUMPLIDO", p.HoraSalidaDescargue},
	}
	if p.TipoCumplido == "S" {
		fields = append(fields,
			Field{"MOTIVOSUSPENSIONREMESA", p.MotivoSuspension},
			Field{"CONSECUENCIASUSPENSION", p.ConsecuenciaSuspension},
		)
	}
	w.variables(fields)
}

// CumplidoManifiestoPayload confirms fulfilment of a registered manifiesto (procesoid 6).
type CumplidoManifiestoPayload struct {
	NitEmpresa                   string `json:"nitEmpresa" validate:"required"`
	NumManifiestoCarga           string `json:"numManifiestoCarga" validate:"required"`
	TipoCumplido                 string `json:"tipoCumplido" validate:"required"`
	FechaEntregaDocumentos       string `json:"fechaEntregaDocumentos" validate:"required"`
	ValorAdicionalHorasCargue    string `json:"valorAdicionalHorasCargue"`
	ValorAdicionalHorasDescargue string `json:"valorAdicionalHorasDescargue"`
	ValorAdicionalFlete          string `json:"valorAdicionalFlete"`
	MotivoValorAdicional         string `json:"motivoValorAdicional"`
	ValorDescuentoFlete          string `json:"valorDescuentoFlete"`
	MotivoValorDescuento         string `json:"motivoValorDescuento"`
	ValorSobreAnticipo           string `json:"valorSobreAnticipo"`
	Observaciones                string `json:"observaciones,omitempty"`
}

func (p CumplidoManifiestoPayload) Kind() domain.Kind { return domain.KindCumplidoManifiesto }
func (p CumplidoManifiestoPayload) Role() domain.Role { return domain.RoleRNDC }
func (p CumplidoManifiestoPayload) Reference() string { return p.NumManifiestoCarga }

func (p CumplidoManifiestoPayload) solicitud() solicitud {
	return solicitud{tipo: tipoRegistro, procesoID: procesoCumplMan}
}

func (p CumplidoManifiestoPayload) writeBody(w *writer) {
	fields := []Field{
		{"NUMNITEMPRESATRANSPORTE", p.NitEmpresa},
		{"NUMMANIFIESTOCARGA", p.NumManifiestoCarga},
		{"TIPOCUMPLIDOMANIFIESTO", p.TipoCumplido},
		{"FECHAENTREGADOCUMENTOS", p.FechaEntregaDocumentos},
		{"VALORADICIONALHORASCARGUE", p.ValorAdicionalHorasCargue},
		{"VALORADICIONALHORASDESCARGUE", p.ValorAdicionalHorasDescargue},
		{"VALORADICIONALFLETE", p.ValorAdicionalFlete},
		{"MOTIVOVALORADICIONAL", p.MotivoValorAdicional},
		{"VALORDESCUENTOFLETE", p.ValorDescuentoFlete},
		{"MOTIVOVALORDESCUENTOMANIFIESTO", p.MotivoValorDescuento},
		{"VALORSOBREANTICIPO", p.ValorSobreAnticipo},
	}
	if p.Observaciones != "" {
		fields = append(fields, Field{"OBSERVACIONES", p.Observaciones})
	}
	w.variables(fields)
}
